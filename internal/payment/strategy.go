// Package payment implements the interchangeable checkout
// strategies: simulated (dev), bank-gateway redirect and manual
// bank transfer. Exactly one strategy is active per deployment,
// selected by PAYMENT_MODE.
package payment

import (
	"context"
	"fmt"

	"github.com/ksrnb/reunion-ticketing/internal/model"
)

// Checkout is what the frontend needs to continue a payment:
// either a URL plus a parameter set to POST to the bank, or
// static instructions for a manual transfer.
type Checkout struct {
	PaymentURL   string            `json:"paymentUrl,omitempty"`
	Params       map[string]string `json:"params,omitempty"`
	Instructions *BankDetails      `json:"instructions,omitempty"`
}

// BankDetails are the transfer instructions shown in manual mode.
type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	Branch        string `json:"branch"`
	ReferenceNote string `json:"referenceNote"`
}

// Strategy begins a checkout for a pending booking.
type Strategy interface {
	Name() string
	Checkout(ctx context.Context, b *model.Booking) (*Checkout, error)
}

// DevStrategy simulates an instantly successful payment. The
// handler marks the booking paid before redirecting to the success
// page, so the frontend flow matches production without a bank.
type DevStrategy struct {
	FrontendURL string
}

func (DevStrategy) Name() string { return "dev" }

func (s DevStrategy) Checkout(_ context.Context, b *model.Booking) (*Checkout, error) {
	return &Checkout{
		PaymentURL: fmt.Sprintf("%s/success/%d", s.FrontendURL, b.ID),
		Params:     map[string]string{},
	}, nil
}

// ManualStrategy returns bank-transfer instructions; payment
// completes later through receipt upload and admin verification.
type ManualStrategy struct {
	Details BankDetails
}

func (ManualStrategy) Name() string { return "manual" }

func (s ManualStrategy) Checkout(_ context.Context, b *model.Booking) (*Checkout, error) {
	d := s.Details
	d.ReferenceNote = fmt.Sprintf("Use booking ref %s as the transfer reference", b.BookingRef)
	return &Checkout{Instructions: &d}, nil
}
