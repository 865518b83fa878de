package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ksrnb/reunion-ticketing/internal/model"
)

func bw(status model.PaymentStatus, tickets int, amount int64, created time.Time) model.BookingWithUser {
	return model.BookingWithUser{Booking: model.Booking{
		PaymentStatus: status,
		Tickets:       tickets,
		Amount:        amount,
		CreatedAt:     created,
	}}
}

func TestComputeDashboard(t *testing.T) {
	day1 := time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)

	paid1 := bw(model.PaymentPaid, 1, 5000, day1)
	paid2 := bw(model.PaymentPaid, 2, 10000, day1)
	paid3 := bw(model.PaymentPaid, 2, 10000, day2)

	used := time.Date(2026, 12, 19, 19, 0, 0, 0, time.UTC)
	paid3.UsedAt = &used

	pendingWithReceipt := bw(model.PaymentPending, 1, 5000, day2)
	pendingWithReceipt.ReceiptURL = "/uploads/receipts/slip.jpg"
	pendingWithReceipt.ReceiptStatus = model.ReceiptPending

	failed := bw(model.PaymentFailed, 1, 5000, day2)

	d := ComputeDashboard([]model.BookingWithUser{paid1, paid2, paid3, pendingWithReceipt, failed})

	assert.Equal(t, 5, d.TotalBookings)
	assert.Equal(t, 5, d.TicketsSold)
	assert.Equal(t, int64(25000), d.TotalRevenue)
	assert.Equal(t, 1, d.PendingReceipts)
	assert.Equal(t, 1, d.CheckedIn)

	assert.Equal(t, []DailyRevenue{
		{Day: "2026-11-01", Revenue: 15000},
		{Day: "2026-11-02", Revenue: 10000},
	}, d.DailyRevenue)
}

func TestComputeDashboardEmpty(t *testing.T) {
	d := ComputeDashboard(nil)
	assert.Equal(t, 0, d.TotalBookings)
	assert.Equal(t, int64(0), d.TotalRevenue)
	assert.Empty(t, d.DailyRevenue)
}

func TestComputeDashboardReceiptOnPaidBookingNotPending(t *testing.T) {
	day := time.Date(2026, 11, 3, 12, 0, 0, 0, time.UTC)
	paid := bw(model.PaymentPaid, 1, 5000, day)
	paid.ReceiptURL = "/uploads/receipts/slip.jpg"
	paid.ReceiptStatus = model.ReceiptVerified

	d := ComputeDashboard([]model.BookingWithUser{paid})
	assert.Equal(t, 0, d.PendingReceipts)
}
