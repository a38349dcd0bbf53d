package entitlement

import (
	"context"
	"testing"
	"time"

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

func entitlementRow(userID string, plan types.Plan, status types.EntitlementStatus, eventTime *time.Time) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "user_id", "plan", "status", "event_time"})
	if eventTime != nil {
		return rows.AddRow("0198a000-0000-7000-8000-000000000001", userID, string(plan), string(status), *eventTime)
	}
	return rows.AddRow("0198a000-0000-7000-8000-000000000001", userID, string(plan), string(status), nil)
}

func TestApplyEvent_EqualTimestampApplies(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, zap.NewNop().Sugar())

	// Dodo timestamps carry one-second resolution, so a legitimate
	// follow-up event can share the fence timestamp exactly.
	fence := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "entitlement" WHERE user_id = (.+)FOR UPDATE`).
		WillReturnRows(entitlementRow("user-1", types.PlanPremium, types.EntitlementStatusActive, &fence))
	mock.ExpectExec(`UPDATE "entitlement" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := svc.ApplyEvent(context.Background(), "user-1", &Event{
		Provider:       types.PaymentProviderDodo,
		EventID:        "evt_hold_1",
		Type:           "subscription.on_hold",
		SubscriptionID: "sub_1",
		OccurredAt:     fence,
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyEvent_OlderTimestampSkipped(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, zap.NewNop().Sugar())

	fence := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "entitlement" WHERE user_id = (.+)FOR UPDATE`).
		WillReturnRows(entitlementRow("user-1", types.PlanPremium, types.EntitlementStatusActive, &fence))
	mock.ExpectCommit()

	applied, err := svc.ApplyEvent(context.Background(), "user-1", &Event{
		Provider:       types.PaymentProviderDodo,
		EventID:        "evt_stale_1",
		Type:           "subscription.on_hold",
		SubscriptionID: "sub_1",
		OccurredAt:     fence.Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyEvent_UnknownTypeIsNoChange(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewService(db, zap.NewNop().Sugar())

	applied, err := svc.ApplyEvent(context.Background(), "user-1", &Event{
		Provider:   types.PaymentProviderDodo,
		EventID:    "evt_unknown_1",
		Type:       "subscription.plan_changed",
		OccurredAt: time.Now(),
	})
	assert.ErrorIs(t, err, ErrUnknownEventType)
	assert.False(t, applied)
}

func TestApplyEvent_RecordsPayment(t *testing.T) {
	tests := []struct {
		name         string
		insertedRows int64
	}{
		{name: "first delivery inserts the payment row", insertedRows: 1},
		{name: "re-delivered payment id is skipped", insertedRows: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			svc := NewService(db, zap.NewNop().Sugar())

			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT \* FROM "entitlement" WHERE user_id = (.+)FOR UPDATE`).
				WillReturnRows(entitlementRow("user-1", types.PlanFree, types.EntitlementStatusNone, nil))
			mock.ExpectExec(`UPDATE "entitlement" SET`).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(`INSERT INTO "payment" (.+)ON CONFLICT DO NOTHING`).
				WillReturnResult(sqlmock.NewResult(0, tc.insertedRows))
			mock.ExpectCommit()

			applied, err := svc.ApplyEvent(context.Background(), "user-1", &Event{
				Provider:   types.PaymentProviderRazorpay,
				EventID:    "evt_pay_1",
				Type:       "payment.captured",
				Email:      "alex@example.com",
				PaymentID:  "pay_123",
				OrderID:    "order_456",
				Amount:     499900,
				Currency:   "INR",
				OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			})
			require.NoError(t, err)
			assert.True(t, applied)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdminSet_RevokeAdvancesFence(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, zap.NewNop().Sugar())

	fence := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "entitlement" WHERE user_id = (.+)FOR UPDATE`).
		WillReturnRows(entitlementRow("user-1", types.PlanPremium, types.EntitlementStatusActive, &fence))
	mock.ExpectExec(`UPDATE "entitlement" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e, err := svc.AdminSet(context.Background(), "user-1", false, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, types.PlanFree, e.Plan)
	assert.Equal(t, types.EntitlementStatusNone, e.Status)
	// The write stamps a fresh event time so a delayed provider event for
	// the pre-revoke subscription cannot restore premium.
	require.NotNil(t, e.EventTime)
	assert.True(t, e.EventTime.After(fence))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminSet_GrantUsesInnerOutcome(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, zap.NewNop().Sugar())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "entitlement" WHERE user_id = (.+)FOR UPDATE`).
		WillReturnRows(entitlementRow("user-1", types.PlanFree, types.EntitlementStatusNone, nil))
	mock.ExpectExec(`UPDATE "entitlement" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e, err := svc.AdminSet(context.Background(), "user-1", true, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, types.PlanPremium, e.Plan)
	assert.Equal(t, types.EntitlementStatusActive, e.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
