package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksrnb/reunion-ticketing/internal/model"
)

func ticketFixtures(t *testing.T) (*model.Booking, *model.Event, *model.User) {
	t.Helper()
	s := NewSigner("test-secret")
	qr, err := s.Sign("RB-ABCDEF123456", 1700000000000)
	require.NoError(t, err)

	b := &model.Booking{
		AttendeeName:  "Nuwan Perera",
		Plus1Name:     "Sanduni Perera",
		Tickets:       2,
		Amount:        10000,
		BookingRef:    "RB-ABCDEF123456",
		PaymentStatus: model.PaymentPaid,
		QRData:        qr,
	}
	e := &model.Event{
		Title: "Grand Reunion 2026",
		Date:  time.Date(2026, 12, 19, 18, 30, 0, 0, time.UTC),
		Venue: "Mount Lavinia Hotel, Colombo",
		Price: 5000,
	}
	u := &model.User{FirstName: "Nuwan", LastName: "Perera", Email: "nuwan@example.com"}
	return b, e, u
}

func TestRenderPDF(t *testing.T) {
	b, e, u := ticketFixtures(t)

	out, err := RenderPDF(b, e, u)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderPDFSoloBooking(t *testing.T) {
	b, e, u := ticketFixtures(t)
	b.Plus1Name = ""
	b.Tickets = 1
	b.Amount = 5000

	out, err := RenderPDF(b, e, u)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderPDFMissingData(t *testing.T) {
	b, e, u := ticketFixtures(t)

	_, err := RenderPDF(nil, e, u)
	assert.ErrorIs(t, err, ErrMissingData)

	_, err = RenderPDF(b, nil, u)
	assert.ErrorIs(t, err, ErrMissingData)

	blank := *b
	blank.AttendeeName = ""
	_, err = RenderPDF(&blank, e, u)
	assert.ErrorIs(t, err, ErrMissingData)

	noQR := *b
	noQR.QRData = ""
	_, err = RenderPDF(&noQR, e, u)
	assert.ErrorIs(t, err, ErrMissingData)
}
