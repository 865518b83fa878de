package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/ksrnb/reunion-ticketing/internal/model"
)

// ErrBadCallbackSignature is returned when a payment callback's
// signature does not verify against the merchant key.
var ErrBadCallbackSignature = errors.New("payment callback signature mismatch")

// currency is fixed for this deployment; the bank settles in LKR.
const currency = "LKR"

// GatewayStrategy builds the signed parameter set the frontend
// posts to the bank's IPG endpoint. The parameter names and the
// exact hash recipe follow the bank's integration guide; the
// HMAC-SHA256 over pipe-joined values here is the placeholder
// recipe the deployment substitutes per that guide.
type GatewayStrategy struct {
	MerchantID string
	Key        string
	PaymentURL string
	ReturnURL  string
}

func (GatewayStrategy) Name() string { return "gateway" }

func (s GatewayStrategy) Checkout(_ context.Context, b *model.Booking) (*Checkout, error) {
	params := map[string]string{
		"merchant_id": s.MerchantID,
		"order_id":    b.BookingRef,
		"amount":      strconv.FormatInt(b.Amount, 10),
		"currency":    currency,
		"return_url":  s.ReturnURL,
	}
	params["signature"] = s.sign(params["merchant_id"], params["order_id"], params["amount"], params["currency"])
	return &Checkout{PaymentURL: s.PaymentURL, Params: params}, nil
}

func (s GatewayStrategy) sign(fields ...string) string {
	mac := hmac.New(sha256.New, []byte(s.Key))
	for i, f := range fields {
		if i > 0 {
			mac.Write([]byte("|"))
		}
		mac.Write([]byte(f))
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// CallbackFields is the subset of the bank's asynchronous
// notification the service acts on. The raw body is stored on the
// booking verbatim for audit.
type CallbackFields struct {
	OrderID       string `json:"order_id" form:"order_id"`
	Amount        string `json:"amount" form:"amount"`
	Currency      string `json:"currency" form:"currency"`
	Status        string `json:"status" form:"status"`
	TransactionID string `json:"transaction_id" form:"transaction_id"`
	Signature     string `json:"signature" form:"signature"`
}

// Succeeded reports whether the bank's status field indicates a
// completed payment.
func (f CallbackFields) Succeeded() bool {
	return f.Status == "SUCCESS" || f.Status == "PAID"
}

// VerifyCallback authenticates a callback against the merchant
// key using a constant-time comparison.
func (s GatewayStrategy) VerifyCallback(f CallbackFields) error {
	expected := s.sign(f.OrderID, f.Amount, f.Currency, f.Status)
	if !hmac.Equal([]byte(expected), []byte(f.Signature)) {
		return fmt.Errorf("%w: order %s", ErrBadCallbackSignature, f.OrderID)
	}
	return nil
}
