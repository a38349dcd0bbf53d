package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyWebhookSignature checks the x-razorpay-signature header: a
// hex-encoded HMAC-SHA256 of the raw request body under the webhook secret.
// An empty secret or signature always fails; there is no unverified mode.
func VerifyWebhookSignature(secret, signature string, body []byte) bool {
	if secret == "" || signature == "" {
		return false
	}
	return verify(secret, signature, body)
}

// VerifyPaymentSignature checks the checkout callback signature: a
// hex-encoded HMAC-SHA256 of "orderID|paymentID" under the key secret.
func VerifyPaymentSignature(keySecret, orderID, paymentID, signature string) bool {
	if keySecret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return verify(keySecret, signature, []byte(orderID+"|"+paymentID))
}

func verify(secret, signature string, payload []byte) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}
