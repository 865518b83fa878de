package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ksrnb/reunion-ticketing/internal/model"
	"github.com/ksrnb/reunion-ticketing/internal/repository"
	"github.com/ksrnb/reunion-ticketing/internal/service"
)

// AdminHandler exposes the organizer tooling: booking oversight,
// receipt review, attendee listing, gate scanning and the
// dashboard. Every route is mounted behind JWTAuth + RequireAdmin.
type AdminHandler struct {
	Svc   *service.BookingService
	Users *repository.UserRepo
}

func NewAdminHandler(svc *service.BookingService, users *repository.UserRepo) *AdminHandler {
	return &AdminHandler{Svc: svc, Users: users}
}

type adminBookingPart struct {
	bookingPart
	Purchaser   string `json:"purchaser"`
	Email       string `json:"email"`
	UserClass   string `json:"user_class,omitempty"`
	UserContact string `json:"user_contact,omitempty"`
}

func toAdminBookingPart(bw *model.BookingWithUser) adminBookingPart {
	p := adminBookingPart{
		bookingPart: toBookingPart(&bw.Booking),
		Email:       bw.Email,
		UserClass:   bw.UserClass,
		UserContact: bw.UserContact,
	}
	p.Purchaser = strings.TrimSpace(bw.FirstName + " " + bw.LastName)
	return p
}

// ListBookings returns every booking with purchaser identity.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	bws, err := h.Svc.ListAll(ctx)
	if err != nil {
		return fail(c, err)
	}
	parts := make([]adminBookingPart, 0, len(bws))
	for i := range bws {
		parts = append(parts, toAdminBookingPart(&bws[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": parts})
}

type verdictReq struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// Approve marks a manual-payment booking paid after the admin has
// checked its receipt. A booking without an uploaded receipt
// cannot be approved.
func (h *AdminHandler) Approve(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req verdictReq
	_ = c.Bind(&req)

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Svc.VerifyReceipt(ctx, id, true, strings.TrimSpace(req.Note))
	if err != nil {
		return fail(c, err)
	}
	resp := echo.Map{"booking": toBookingPart(res.Booking), "ticket_emailed": res.NotifyErr == nil}
	if res.NotifyErr != nil {
		resp["message"] = "booking approved but the ticket email failed; use resend"
	}
	return c.JSON(http.StatusOK, resp)
}

// VerifyReceipt records the admin verdict on an uploaded receipt.
// A rejection leaves the payment status untouched so the purchaser
// can re-upload; an approval behaves like Approve.
func (h *AdminHandler) VerifyReceipt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req verdictReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Svc.VerifyReceipt(ctx, id, req.Approve, strings.TrimSpace(req.Note))
	if err != nil {
		return fail(c, err)
	}
	resp := echo.Map{"booking": toBookingPart(res.Booking)}
	if req.Approve {
		resp["ticket_emailed"] = res.NotifyErr == nil
	}
	return c.JSON(http.StatusOK, resp)
}

type adminUserPart struct {
	userPart
	CreatedAt time.Time `json:"created_at"`
}

// ListUsers returns every registered attendee account.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.ListNonAdmins(ctx)
	if err != nil {
		return fail(c, err)
	}
	parts := make([]adminUserPart, 0, len(users))
	for i := range users {
		parts = append(parts, adminUserPart{userPart: toUserPart(&users[i]), CreatedAt: users[i].CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": parts})
}

// ValidateQR consumes a scanned QR payload at the gate. The body
// is the raw payload exactly as encoded in the QR image.
func (h *AdminHandler) ValidateQR(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "qr payload required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Svc.Redeem(ctx, raw)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Dashboard returns the aggregate sales figures.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	bws, err := h.Svc.ListAll(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, service.ComputeDashboard(bws))
}
