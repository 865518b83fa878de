package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ksrnb/reunion-ticketing/internal/model"
	"github.com/ksrnb/reunion-ticketing/internal/service"
)

// maxReceiptBytes caps receipt uploads. Bank slips are photos or
// small PDFs; anything larger is rejected before it hits storage.
const maxReceiptBytes = 10 << 20

// BookingHandler exposes the purchaser-facing booking endpoints.
type BookingHandler struct {
	Svc *service.BookingService
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{Svc: svc}
}

// ----- DTOs -----

type createBookingReq struct {
	AttendeeName  string `json:"attendee_name"`
	ContactNumber string `json:"contact_number"`
	Tickets       int    `json:"tickets"`
	Plus1Name     string `json:"plus1_name"`
}

type plusOneReq struct {
	Plus1Name string `json:"plus1_name"`
}

type bookingPart struct {
	ID                uint64     `json:"id"`
	AttendeeName      string     `json:"attendee_name"`
	ContactNumber     string     `json:"contact_number"`
	Plus1Name         string     `json:"plus1_name,omitempty"`
	Tickets           int        `json:"tickets"`
	Amount            int64      `json:"amount"`
	BookingRef        string     `json:"booking_ref"`
	PaymentStatus     string     `json:"payment_status"`
	TransactionID     string     `json:"transaction_id,omitempty"`
	ReceiptStatus     string     `json:"receipt_status"`
	ReceiptURL        string     `json:"receipt_url,omitempty"`
	ReceiptNote       string     `json:"receipt_note,omitempty"`
	ReceiptUploadedAt *time.Time `json:"receipt_uploaded_at,omitempty"`
	QRData            string     `json:"qr_data,omitempty"`
	UsedAt            *time.Time `json:"used_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toBookingPart(b *model.Booking) bookingPart {
	p := bookingPart{
		ID:                b.ID,
		AttendeeName:      b.AttendeeName,
		ContactNumber:     b.ContactNumber,
		Plus1Name:         b.Plus1Name,
		Tickets:           b.Tickets,
		Amount:            b.Amount,
		BookingRef:        b.BookingRef,
		PaymentStatus:     string(b.PaymentStatus),
		TransactionID:     b.TransactionID,
		ReceiptStatus:     string(b.ReceiptStatus),
		ReceiptURL:        b.ReceiptURL,
		ReceiptNote:       b.ReceiptNote,
		ReceiptUploadedAt: b.ReceiptUploadedAt,
		UsedAt:            b.UsedAt,
		CreatedAt:         b.CreatedAt,
	}
	// The QR payload only matters once the ticket is valid at the
	// gate.
	if b.PaymentStatus == model.PaymentPaid {
		p.QRData = b.QRData
	}
	return p
}

// Create opens a booking for the authenticated user.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.AttendeeName = strings.TrimSpace(req.AttendeeName)
	if req.AttendeeName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "attendee_name required"})
	}
	if req.Tickets == 2 && strings.TrimSpace(req.Plus1Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plus1_name required for two tickets"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.Create(ctx, currentUserID(c), service.CreateInput{
		AttendeeName:  req.AttendeeName,
		ContactNumber: strings.TrimSpace(req.ContactNumber),
		Tickets:       req.Tickets,
		Plus1Name:     strings.TrimSpace(req.Plus1Name),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": toBookingPart(b)})
}

// ListMine returns the authenticated user's bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	bs, err := h.Svc.ListMine(ctx, currentUserID(c))
	if err != nil {
		return fail(c, err)
	}
	parts := make([]bookingPart, 0, len(bs))
	for i := range bs {
		parts = append(parts, toBookingPart(&bs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": parts})
}

// Get returns one booking, owner or admin only.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.Get(ctx, id, currentUserID(c), currentIsAdmin(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": toBookingPart(b)})
}

// PlusOne upgrades a booking to two attendees.
func (h *BookingHandler) PlusOne(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req plusOneReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Plus1Name = strings.TrimSpace(req.Plus1Name)
	if req.Plus1Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plus1_name required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.AddPlusOne(ctx, id, currentUserID(c), currentIsAdmin(c), req.Plus1Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": toBookingPart(b)})
}

// UploadReceipt accepts a multipart bank-slip upload from the
// booking's owner and marks the receipt pending review.
func (h *BookingHandler) UploadReceipt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	fh, err := c.FormFile("receipt")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "receipt file required"})
	}
	if fh.Size > maxReceiptBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "receipt file too large"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read receipt file"})
	}
	defer src.Close()

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.UploadReceipt(ctx, id, currentUserID(c), fh.Filename, src)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": toBookingPart(b)})
}

// Ticket streams the PDF ticket as a download.
func (h *BookingHandler) Ticket(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pdf, b, err := h.Svc.TicketPDF(ctx, id, currentUserID(c), currentIsAdmin(c))
	if err != nil {
		return fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="ticket_%s.pdf"`, b.BookingRef))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// SendTicket re-emails the ticket to the purchaser.
func (h *BookingHandler) SendTicket(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.ResendTicket(ctx, id, currentUserID(c), currentIsAdmin(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ticket sent"})
}
