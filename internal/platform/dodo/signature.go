// Package dodo implements the Standard Webhooks signing scheme used by the
// Dodo Payments webhook: HMAC-SHA256 over "id.timestamp.body" with a
// base64-encoded secret carrying a "whsec_" prefix.
package dodo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// ReplayWindow is the maximum accepted skew between the webhook-timestamp
// header and local time.
const ReplayWindow = 5 * time.Minute

const secretPrefix = "whsec_"

// CheckTimestamp rejects deliveries whose timestamp header is outside the
// replay window in either direction.
func CheckTimestamp(header string, now time.Time) bool {
	ts, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return false
	}
	diff := now.Unix() - ts
	if diff < 0 {
		diff = -diff
	}
	return diff <= int64(ReplayWindow.Seconds())
}

// VerifySignature checks the webhook-signature header, which holds one or
// more space-separated "version,signature" pairs. Verification succeeds if
// any v1 entry matches the expected HMAC. Comparison is constant-time.
func VerifySignature(secret, webhookID, timestamp, sigHeader string, body []byte) bool {
	if secret == "" || webhookID == "" || timestamp == "" || sigHeader == "" {
		return false
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(webhookID + "." + timestamp + "."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, entry := range strings.Fields(sigHeader) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != "v1" {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return true
		}
	}
	return false
}

// Sign computes the v1 signature for the given delivery. Exposed for tests
// and local tooling.
func Sign(secret, webhookID, timestamp string, body []byte) (string, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(webhookID + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
