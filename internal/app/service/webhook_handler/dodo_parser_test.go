package webhook_handler

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/quantprep/gatekeeper/internal/platform/dodo"
	"github.com/quantprep/gatekeeper/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dodoTestSecret = "whsec_dGVzdGluZy1zZWNyZXQtZm9yLWRvZG8="

const dodoActiveBody = `{
	"type": "subscription.active",
	"data": {
		"id": "evt_data_1",
		"subscription_id": "sub_123",
		"status": "active",
		"customer": {"id": "cus_9", "email": "buyer@example.com"},
		"total_amount": 4900,
		"currency": "USD"
	}
}`

func dodoHeaders(t *testing.T, secret, webhookID string, at time.Time, body []byte) map[string]string {
	t.Helper()
	ts := strconv.FormatInt(at.Unix(), 10)
	sig, err := dodo.Sign(secret, webhookID, ts, body)
	require.NoError(t, err)
	return map[string]string{
		"webhook-id":        webhookID,
		"webhook-timestamp": ts,
		"webhook-signature": "v1," + sig,
	}
}

func TestDodoParser_VerifyValid(t *testing.T) {
	now := time.Now()
	body := []byte(dodoActiveBody)
	c := newTestContext(t, body, dodoHeaders(t, dodoTestSecret, "msg_1", now, body))

	p, err := NewDodoParser(dodoTestSecret, c, now)
	require.NoError(t, err)
	require.NoError(t, p.Verify())
}

func TestDodoParser_VerifyRejections(t *testing.T) {
	now := time.Now()
	body := []byte(dodoActiveBody)

	tests := []struct {
		name    string
		secret  string
		headers map[string]string
	}{
		{name: "unconfigured secret", secret: "", headers: dodoHeaders(t, dodoTestSecret, "msg_1", now, body)},
		{name: "missing headers", secret: dodoTestSecret, headers: nil},
		{name: "stale timestamp", secret: dodoTestSecret, headers: dodoHeaders(t, dodoTestSecret, "msg_1", now.Add(-10*time.Minute), body)},
		{name: "future timestamp", secret: dodoTestSecret, headers: dodoHeaders(t, dodoTestSecret, "msg_1", now.Add(10*time.Minute), body)},
		{name: "wrong secret", secret: "whsec_b3RoZXItc2VjcmV0LWVudGlyZWx5LXdyb25n", headers: dodoHeaders(t, dodoTestSecret, "msg_1", now, body)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestContext(t, body, tc.headers)
			p, err := NewDodoParser(tc.secret, c, now)
			require.NoError(t, err)

			err = p.Verify()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnauthorized))
		})
	}
}

func TestDodoParser_VerifyTamperedBody(t *testing.T) {
	now := time.Now()
	body := []byte(dodoActiveBody)
	headers := dodoHeaders(t, dodoTestSecret, "msg_1", now, body)

	tampered := []byte(`{"type":"subscription.active","data":{"customer":{"email":"attacker@example.com"}}}`)
	c := newTestContext(t, tampered, headers)
	p, err := NewDodoParser(dodoTestSecret, c, now)
	require.NoError(t, err)

	err = p.Verify()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestDodoParser_Event(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := []byte(dodoActiveBody)
	c := newTestContext(t, body, dodoHeaders(t, dodoTestSecret, "msg_1", now, body))

	p, err := NewDodoParser(dodoTestSecret, c, now)
	require.NoError(t, err)

	assert.Equal(t, "msg_1", p.EventID())
	assert.Equal(t, "subscription.active", p.EventType())

	ev, err := p.Event()
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, types.PaymentProviderDodo, ev.Provider)
	assert.Equal(t, "buyer@example.com", ev.Email)
	assert.Equal(t, "sub_123", ev.SubscriptionID)
	assert.Equal(t, "cus_9", ev.CustomerID)
	assert.Equal(t, int64(4900), ev.Amount)
	assert.Equal(t, "USD", ev.Currency)
	assert.True(t, ev.OccurredAt.Equal(now))
}

func TestDodoParser_SubscriptionIDFallsBackToDataID(t *testing.T) {
	now := time.Now()
	body := []byte(`{"type":"subscription.on_hold","data":{"id":"sub_direct","customer":{"email":"a@b.com"}}}`)
	c := newTestContext(t, body, dodoHeaders(t, dodoTestSecret, "msg_2", now, body))

	p, err := NewDodoParser(dodoTestSecret, c, now)
	require.NoError(t, err)

	ev, err := p.Event()
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "sub_direct", ev.SubscriptionID)
}

func TestDodoParser_NoCustomerEmailYieldsNoEvent(t *testing.T) {
	now := time.Now()
	body := []byte(`{"type":"subscription.active","data":{"id":"sub_1"}}`)
	c := newTestContext(t, body, dodoHeaders(t, dodoTestSecret, "msg_3", now, body))

	p, err := NewDodoParser(dodoTestSecret, c, now)
	require.NoError(t, err)

	ev, err := p.Event()
	require.NoError(t, err)
	assert.Nil(t, ev)
}
