package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ksrnb/reunion-ticketing/internal/config"
	"github.com/ksrnb/reunion-ticketing/internal/model"
	"github.com/ksrnb/reunion-ticketing/internal/payment"
	"github.com/ksrnb/reunion-ticketing/internal/service"
)

// PaymentHandler drives the active checkout strategy and receives
// the bank's asynchronous callback. Gateway is nil unless the
// deployment runs in gateway mode.
type PaymentHandler struct {
	Svc      *service.BookingService
	Strategy payment.Strategy
	Gateway  *payment.GatewayStrategy
	Mode     config.PaymentMode
}

func NewPaymentHandler(svc *service.BookingService, strategy payment.Strategy, gateway *payment.GatewayStrategy, mode config.PaymentMode) *PaymentHandler {
	return &PaymentHandler{Svc: svc, Strategy: strategy, Gateway: gateway, Mode: mode}
}

type checkoutReq struct {
	BookingID uint64 `json:"booking_id"`
}

// Checkout begins payment for a pending booking and returns what
// the frontend needs to continue: gateway POST parameters, a dev
// redirect, or manual transfer instructions.
func (h *PaymentHandler) Checkout(c echo.Context) error {
	var req checkoutReq
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.Get(ctx, req.BookingID, currentUserID(c), currentIsAdmin(c))
	if err != nil {
		return fail(c, err)
	}
	if b.PaymentStatus == model.PaymentPaid {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already paid"})
	}

	co, err := h.Strategy.Checkout(ctx, b)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"mode":     h.Strategy.Name(),
		"checkout": co,
	})
}

// Callback is the bank's asynchronous payment notification. It is
// unauthenticated; the HMAC signature over the callback fields is
// the only trust anchor. The raw body is stored on the booking for
// audit regardless of outcome.
func (h *PaymentHandler) Callback(c echo.Context) error {
	if h.Gateway == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "gateway mode not active"})
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read body"})
	}
	c.Request().Body = io.NopCloser(bytes.NewReader(raw))

	var f payment.CallbackFields
	if err := c.Bind(&f); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid callback body"})
	}
	if err := h.Gateway.VerifyCallback(f); err != nil {
		if errors.Is(err, payment.ErrBadCallbackSignature) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "signature mismatch"})
		}
		return fail(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.GetByRef(ctx, f.OrderID)
	if err != nil {
		return fail(c, err)
	}

	if !f.Succeeded() {
		if _, err := h.Svc.MarkFailed(ctx, b.ID, raw); err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "recorded"})
	}

	res, err := h.Svc.MarkPaid(ctx, b.ID, f.TransactionID, raw)
	if err != nil {
		return fail(c, err)
	}
	if res.NotifyErr != nil {
		// The bank only needs the 200; delivery is retried via the
		// resend endpoint.
		c.Logger().Errorf("ticket delivery failed for %s: %v", b.BookingRef, res.NotifyErr)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "recorded"})
}

// DevConfirm simulates a successful payment. Active only in dev
// mode so a production deployment cannot expose it.
func (h *PaymentHandler) DevConfirm(c echo.Context) error {
	if h.Mode != config.PaymentModeDev {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "dev mode not active"})
	}
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
	if b.PaymentStatus == model.PaymentPaid {
		return c.JSON(http.StatusOK, echo.Map{"booking": toBookingPart(b), "message": "already paid"})
	}

	res, err := h.Svc.MarkPaid(ctx, b.ID, fmt.Sprintf("DEV-%d", time.Now().UnixMilli()), nil)
	if err != nil {
		return fail(c, err)
	}
	resp := echo.Map{"booking": toBookingPart(res.Booking), "ticket_emailed": res.NotifyErr == nil}
	if res.NotifyErr != nil {
		resp["message"] = "payment recorded but the ticket email failed; use resend"
	}
	return c.JSON(http.StatusOK, resp)
}
