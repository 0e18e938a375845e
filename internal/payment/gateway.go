package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// Order is the gateway-side record representing an amount to be collected,
// created before the user completes payment. Amount is in minor currency
// units (paise for INR).
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway creates payment orders. Amounts are already in minor units.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error)
}

type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error) {
	// The SDK call carries no context or explicit timeout; the request
	// relies on the SDK's default HTTP client settings.
	_ = ctx

	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}

	resp, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("create razorpay order: %w", err)
	}

	return orderFromResponse(resp), nil
}

func orderFromResponse(resp map[string]interface{}) *Order {
	o := &Order{}
	if v, ok := resp["id"].(string); ok {
		o.ID = v
	}
	// the SDK decodes JSON numbers as float64
	if v, ok := resp["amount"].(float64); ok {
		o.Amount = int64(v)
	}
	if v, ok := resp["currency"].(string); ok {
		o.Currency = v
	}
	if v, ok := resp["receipt"].(string); ok {
		o.Receipt = v
	}
	if v, ok := resp["status"].(string); ok {
		o.Status = v
	}
	return o
}
