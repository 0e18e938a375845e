package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks that sig is the hex-encoded HMAC-SHA256 of
// "orderID|paymentID" under secret. This is the sole gate before an
// appointment is persisted. The comparison is constant time.
func VerifySignature(orderID, paymentID, sig, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sig))
}
