package payment_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/clinicdesk/clinic-appointment-api/internal/payment"
)

const sigSecret = "signature-test-secret"

func sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	sig := sign("order_abc", "pay_xyz", sigSecret)

	if !payment.VerifySignature("order_abc", "pay_xyz", sig, sigSecret) {
		t.Fatal("valid signature rejected")
	}
}

func TestVerifySignatureRejects(t *testing.T) {
	sig := sign("order_abc", "pay_xyz", sigSecret)

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		sig       string
		secret    string
	}{
		{"wrong order id", "order_abd", "pay_xyz", sig, sigSecret},
		{"wrong payment id", "order_abc", "pay_xyy", sig, sigSecret},
		{"swapped ids", "pay_xyz", "order_abc", sig, sigSecret},
		{"mutated signature", "order_abc", "pay_xyz", "0" + sig[1:], sigSecret},
		{"truncated signature", "order_abc", "pay_xyz", sig[:len(sig)-1], sigSecret},
		{"empty signature", "order_abc", "pay_xyz", "", sigSecret},
		{"wrong secret", "order_abc", "pay_xyz", sig, "other-secret"},
		{"uppercase hex", "order_abc", "pay_xyz", "ABCDEF", sigSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if payment.VerifySignature(tt.orderID, tt.paymentID, tt.sig, tt.secret) {
				t.Error("invalid signature accepted")
			}
		})
	}
}

func TestVerifySignatureEmptyInputs(t *testing.T) {
	// even empty ids have a well-defined signature
	sig := sign("", "", sigSecret)
	if !payment.VerifySignature("", "", sig, sigSecret) {
		t.Fatal("valid signature over empty ids rejected")
	}
	if payment.VerifySignature("", "", "", sigSecret) {
		t.Fatal("empty signature accepted")
	}
}
