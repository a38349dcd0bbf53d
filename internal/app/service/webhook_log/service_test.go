package webhook_log

import (
	"context"
	"testing"

	"github.com/quantprep/gatekeeper/internal/models"
	"github.com/quantprep/gatekeeper/pkg/gormlog"
	"github.com/quantprep/gatekeeper/pkg/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlog.New(zap.NewNop().Sugar()),
	})
	require.NoError(t, err)
	return db, mock
}

func expectDeliveryInsert(mock sqlmock.Sqlmock, inserted bool) {
	rows := sqlmock.NewRows([]string{"payload", "result"})
	if inserted {
		rows.AddRow([]byte(`{}`), nil)
	}
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "webhook_event"`).WillReturnRows(rows)
	mock.ExpectCommit()
}

func TestBegin_RecordsDelivery(t *testing.T) {
	db, mock := newMockDB(t)
	svc := New(db, zap.NewNop().Sugar())

	expectDeliveryInsert(mock, true)

	rec := &models.WebhookEvent{
		Provider:  types.PaymentProviderDodo,
		EventID:   "evt_1",
		EventType: "subscription.active",
	}
	dup, err := svc.Begin(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, models.WebhookEventStatusReceived, rec.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBegin_DuplicateDelivery(t *testing.T) {
	db, mock := newMockDB(t)
	svc := New(db, zap.NewNop().Sugar())

	expectDeliveryInsert(mock, false)

	rec := &models.WebhookEvent{
		Provider:  types.PaymentProviderDodo,
		EventID:   "evt_1",
		EventType: "subscription.active",
	}
	dup, err := svc.Begin(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBegin_EmptyEventIDIsNeverDeduped(t *testing.T) {
	db, mock := newMockDB(t)
	svc := New(db, zap.NewNop().Sugar())

	// Two id-less deliveries in a row: each gets a surrogate event id, so
	// the unique index must not report the second one as a duplicate.
	expectDeliveryInsert(mock, true)
	expectDeliveryInsert(mock, true)

	first := &models.WebhookEvent{Provider: types.PaymentProviderRazorpay, EventType: "payment.captured"}
	dup, err := svc.Begin(context.Background(), first)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Equal(t, first.ID, first.EventID)

	second := &models.WebhookEvent{Provider: types.PaymentProviderRazorpay, EventType: "payment.captured"}
	dup, err = svc.Begin(context.Background(), second)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Equal(t, second.ID, second.EventID)
	assert.NotEqual(t, first.EventID, second.EventID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
