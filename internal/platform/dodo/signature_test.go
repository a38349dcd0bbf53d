package dodo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_C2FVsBQIhrscChlQIMV+b5sSYspob7oD"

func TestCheckTimestamp(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{name: "current", header: strconv.FormatInt(now.Unix(), 10), want: true},
		{name: "at window edge past", header: strconv.FormatInt(now.Add(-ReplayWindow).Unix(), 10), want: true},
		{name: "at window edge future", header: strconv.FormatInt(now.Add(ReplayWindow).Unix(), 10), want: true},
		{name: "beyond window past", header: strconv.FormatInt(now.Add(-ReplayWindow-time.Second).Unix(), 10), want: false},
		{name: "beyond window future", header: strconv.FormatInt(now.Add(ReplayWindow+time.Second).Unix(), 10), want: false},
		{name: "not a number", header: "yesterday", want: false},
		{name: "empty", header: "", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CheckTimestamp(tc.header, now))
		})
	}
}

func TestVerifySignature_RoundTrip(t *testing.T) {
	body := []byte(`{"type":"subscription.active","data":{"customer":{"email":"a@b.com"}}}`)
	sig, err := Sign(testSecret, "msg_1", "1700000000", body)
	require.NoError(t, err)

	require.True(t, VerifySignature(testSecret, "msg_1", "1700000000", "v1,"+sig, body))
}

func TestVerifySignature_MatchesReferenceHMAC(t *testing.T) {
	// Independently computed: HMAC-SHA256 over "id.timestamp.body" with the
	// base64-decoded secret (whsec_ prefix stripped).
	body := []byte(`{"type":"payment.succeeded"}`)
	key, err := base64.StdEncoding.DecodeString("C2FVsBQIhrscChlQIMV+b5sSYspob7oD")
	require.NoError(t, err)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("msg_ref.1700000123."))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	sig, err := Sign(testSecret, "msg_ref", "1700000123", body)
	require.NoError(t, err)
	require.Equal(t, expected, sig)
	require.True(t, VerifySignature(testSecret, "msg_ref", "1700000123", "v1,"+expected, body))
}

func TestVerifySignature_Rejections(t *testing.T) {
	body := []byte(`{"type":"subscription.active"}`)
	sig, err := Sign(testSecret, "msg_1", "1700000000", body)
	require.NoError(t, err)

	tests := []struct {
		name      string
		secret    string
		webhookID string
		timestamp string
		sigHeader string
		body      []byte
	}{
		{name: "empty secret", secret: "", webhookID: "msg_1", timestamp: "1700000000", sigHeader: "v1," + sig, body: body},
		{name: "empty header", secret: testSecret, webhookID: "msg_1", timestamp: "1700000000", sigHeader: "", body: body},
		{name: "tampered body", secret: testSecret, webhookID: "msg_1", timestamp: "1700000000", sigHeader: "v1," + sig, body: []byte(`{"type":"grant"}`)},
		{name: "wrong webhook id", secret: testSecret, webhookID: "msg_2", timestamp: "1700000000", sigHeader: "v1," + sig, body: body},
		{name: "wrong timestamp", secret: testSecret, webhookID: "msg_1", timestamp: "1700000001", sigHeader: "v1," + sig, body: body},
		{name: "unknown version", secret: testSecret, webhookID: "msg_1", timestamp: "1700000000", sigHeader: "v2," + sig, body: body},
		{name: "not base64", secret: testSecret, webhookID: "msg_1", timestamp: "1700000000", sigHeader: "v1,not-base64!!", body: body},
		{name: "bad secret encoding", secret: "whsec_%%%", webhookID: "msg_1", timestamp: "1700000000", sigHeader: "v1," + sig, body: body},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, VerifySignature(tc.secret, tc.webhookID, tc.timestamp, tc.sigHeader, tc.body))
		})
	}
}

func TestVerifySignature_MultipleEntries(t *testing.T) {
	body := []byte(`{"type":"subscription.renewed"}`)
	good, err := Sign(testSecret, "msg_1", "1700000000", body)
	require.NoError(t, err)
	bad := base64.StdEncoding.EncodeToString([]byte("definitely not the mac of this"))

	// Key rotation sends several space-separated entries; any valid v1 match
	// accepts the delivery.
	require.True(t, VerifySignature(testSecret, "msg_1", "1700000000", "v1,"+bad+" v1,"+good, body))
	require.True(t, VerifySignature(testSecret, "msg_1", "1700000000", "v2,"+bad+" v1,"+good, body))
	require.False(t, VerifySignature(testSecret, "msg_1", "1700000000", "v1,"+bad+" v1,"+bad, body))
}

func TestVerifySignature_SecretWithoutPrefix(t *testing.T) {
	body := []byte(`{}`)
	raw := "C2FVsBQIhrscChlQIMV+b5sSYspob7oD"
	sig, err := Sign(raw, "msg_1", "1700000000", body)
	require.NoError(t, err)

	// Secrets are accepted both with and without the whsec_ prefix.
	require.True(t, VerifySignature(testSecret, "msg_1", "1700000000", "v1,"+sig, body))
	require.True(t, VerifySignature(raw, "msg_1", "1700000000", "v1,"+sig, body))
}
