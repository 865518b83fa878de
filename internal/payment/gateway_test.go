package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksrnb/reunion-ticketing/internal/model"
)

func testGateway() GatewayStrategy {
	return GatewayStrategy{
		MerchantID: "M12345",
		Key:        "merchant-secret",
		PaymentURL: "https://ipg.example/pay",
		ReturnURL:  "https://tickets.example/payment/return",
	}
}

func TestGatewayCheckoutParams(t *testing.T) {
	g := testGateway()
	b := &model.Booking{ID: 7, BookingRef: "RB-ABCDEF123456", Amount: 10000}

	co, err := g.Checkout(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, "https://ipg.example/pay", co.PaymentURL)
	assert.Equal(t, "M12345", co.Params["merchant_id"])
	assert.Equal(t, "RB-ABCDEF123456", co.Params["order_id"])
	assert.Equal(t, "10000", co.Params["amount"])
	assert.Equal(t, "LKR", co.Params["currency"])
	assert.Equal(t,
		g.sign("M12345", "RB-ABCDEF123456", "10000", "LKR"),
		co.Params["signature"])
}

func TestVerifyCallbackRoundTrip(t *testing.T) {
	g := testGateway()
	f := CallbackFields{
		OrderID:       "RB-ABCDEF123456",
		Amount:        "10000",
		Currency:      "LKR",
		Status:        "SUCCESS",
		TransactionID: "TXN-991",
	}
	f.Signature = g.sign(f.OrderID, f.Amount, f.Currency, f.Status)

	assert.NoError(t, g.VerifyCallback(f))
	assert.True(t, f.Succeeded())
}

func TestVerifyCallbackRejectsTampering(t *testing.T) {
	g := testGateway()
	f := CallbackFields{
		OrderID:  "RB-ABCDEF123456",
		Amount:   "10000",
		Currency: "LKR",
		Status:   "FAILED",
	}
	f.Signature = g.sign(f.OrderID, f.Amount, f.Currency, f.Status)

	// Flipping the status after signing must fail verification.
	f.Status = "SUCCESS"
	assert.ErrorIs(t, g.VerifyCallback(f), ErrBadCallbackSignature)
}

func TestVerifyCallbackRejectsWrongKey(t *testing.T) {
	g := testGateway()
	other := testGateway()
	other.Key = "someone-elses-key"

	f := CallbackFields{OrderID: "RB-ABCDEF123456", Amount: "10000", Currency: "LKR", Status: "SUCCESS"}
	f.Signature = other.sign(f.OrderID, f.Amount, f.Currency, f.Status)

	assert.ErrorIs(t, g.VerifyCallback(f), ErrBadCallbackSignature)
}

func TestCallbackSucceeded(t *testing.T) {
	assert.True(t, CallbackFields{Status: "SUCCESS"}.Succeeded())
	assert.True(t, CallbackFields{Status: "PAID"}.Succeeded())
	assert.False(t, CallbackFields{Status: "FAILED"}.Succeeded())
	assert.False(t, CallbackFields{Status: "success"}.Succeeded())
	assert.False(t, CallbackFields{Status: ""}.Succeeded())
}
