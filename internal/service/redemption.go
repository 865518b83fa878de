package service

import (
	"context"
	"errors"
	"time"

	"github.com/ksrnb/reunion-ticketing/internal/model"
	"github.com/ksrnb/reunion-ticketing/internal/repository"
)

// Redemption outcomes for a scanned QR payload.
const (
	RedeemValid   = "valid"
	RedeemUsed    = "used"
	RedeemInvalid = "invalid"
)

// RedemptionResult is the gate operator's answer for one scan.
type RedemptionResult struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	UsedAt  *time.Time     `json:"used_at,omitempty"`
	Booking *model.Booking `json:"booking,omitempty"`
}

// Redeem verifies a scanned QR payload and, when it belongs to a
// paid unredeemed booking, consumes it. The consume step is a
// single conditional update, so two concurrent scans of the same
// ticket admit exactly one.
func (s *BookingService) Redeem(ctx context.Context, raw []byte) (RedemptionResult, error) {
	payload, err := s.signer.Validate(raw)
	if err != nil {
		return RedemptionResult{Status: RedeemInvalid, Message: "QR code is not valid"}, nil
	}

	b, err := s.bookings.GetByRef(ctx, payload.BookingRef)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return RedemptionResult{Status: RedeemInvalid, Message: "no booking for this QR code"}, nil
		}
		return RedemptionResult{}, err
	}
	if b.PaymentStatus != model.PaymentPaid {
		return RedemptionResult{Status: RedeemInvalid, Message: "booking is not paid", Booking: b}, nil
	}
	if b.UsedAt != nil {
		return RedemptionResult{Status: RedeemUsed, Message: "ticket already used", UsedAt: b.UsedAt, Booking: b}, nil
	}

	now := s.now()
	ok, err := s.bookings.Redeem(ctx, b.BookingRef, now)
	if err != nil {
		return RedemptionResult{}, err
	}
	if !ok {
		// Lost the race to another scanner; report when it was consumed.
		b, err = s.bookings.GetByRef(ctx, b.BookingRef)
		if err != nil {
			return RedemptionResult{}, err
		}
		return RedemptionResult{Status: RedeemUsed, Message: "ticket already used", UsedAt: b.UsedAt, Booking: b}, nil
	}
	b.UsedAt = &now
	return RedemptionResult{Status: RedeemValid, Message: "welcome, ticket accepted", UsedAt: &now, Booking: b}, nil
}
