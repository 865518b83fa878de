package service

import (
	"sort"

	"github.com/ksrnb/reunion-ticketing/internal/model"
)

// Dashboard aggregates the admin overview figures from the full
// booking list. Revenue and tickets count paid bookings only.
type Dashboard struct {
	TotalBookings   int            `json:"total_bookings"`
	TicketsSold     int            `json:"tickets_sold"`
	TotalRevenue    int64          `json:"total_revenue"`
	PendingReceipts int            `json:"pending_receipts"`
	CheckedIn       int            `json:"checked_in"`
	DailyRevenue    []DailyRevenue `json:"daily_revenue"`
}

// DailyRevenue is paid revenue grouped by booking creation day.
type DailyRevenue struct {
	Day     string `json:"day"`
	Revenue int64  `json:"revenue"`
}

// ComputeDashboard folds the booking list into dashboard figures.
// A receipt counts as pending while it is uploaded but the booking
// has not been paid.
func ComputeDashboard(bookings []model.BookingWithUser) Dashboard {
	d := Dashboard{TotalBookings: len(bookings)}
	byDay := make(map[string]int64)

	for i := range bookings {
		b := &bookings[i].Booking
		if b.ReceiptURL != "" && b.PaymentStatus != model.PaymentPaid {
			d.PendingReceipts++
		}
		if b.UsedAt != nil {
			d.CheckedIn++
		}
		if b.PaymentStatus != model.PaymentPaid {
			continue
		}
		d.TicketsSold += b.Tickets
		d.TotalRevenue += b.Amount
		byDay[b.CreatedAt.Format("2006-01-02")] += b.Amount
	}

	for day, revenue := range byDay {
		d.DailyRevenue = append(d.DailyRevenue, DailyRevenue{Day: day, Revenue: revenue})
	}
	sort.Slice(d.DailyRevenue, func(i, j int) bool {
		return d.DailyRevenue[i].Day < d.DailyRevenue[j].Day
	})
	return d
}
