// Package service implements the booking lifecycle: creation,
// plus-one upgrades, payment transitions, receipt verification,
// ticket issuance and QR redemption. Handlers stay thin and the
// stores are interfaces so the lifecycle is testable without a
// database.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ksrnb/reunion-ticketing/internal/model"
	"github.com/ksrnb/reunion-ticketing/internal/queue"
	"github.com/ksrnb/reunion-ticketing/internal/repository"
	"github.com/ksrnb/reunion-ticketing/internal/storage"
	"github.com/ksrnb/reunion-ticketing/internal/ticket"
	"github.com/ksrnb/reunion-ticketing/internal/utils"
)

// ErrAlreadyUpgraded is returned when a plus-one is added to a
// booking that already has one.
var ErrAlreadyUpgraded = errors.New("booking already has a plus one")

// ErrNotPaid is returned when a ticket is requested for a booking
// that has not reached the paid state.
var ErrNotPaid = errors.New("booking not paid")

// ErrReceiptMissing is returned when an admin approves a booking
// that has no uploaded receipt.
var ErrReceiptMissing = errors.New("receipt not uploaded yet")

// BookingStore is the persistence surface the service needs for
// bookings. *repository.BookingRepo satisfies it.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByRef(ctx context.Context, ref string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListWithUsers(ctx context.Context) ([]model.BookingWithUser, error)
	ApplyPlusOne(ctx context.Context, b *model.Booking) error
	SetPayment(ctx context.Context, id uint64, status model.PaymentStatus, txnID string, raw []byte) error
	SetReceiptPending(ctx context.Context, id uint64, url string, at time.Time) error
	SetReceiptVerdict(ctx context.Context, id uint64, status model.ReceiptStatus, note string) error
	Redeem(ctx context.Context, ref string, at time.Time) (bool, error)
}

// EventStore provides the singleton event. *repository.EventRepo
// satisfies it.
type EventStore interface {
	Get(ctx context.Context) (*model.Event, error)
}

// UserStore provides purchaser lookups. *repository.UserRepo
// satisfies it.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// Notifier delivers rendered tickets. *notifier.Mailer satisfies
// it.
type Notifier interface {
	Ready() bool
	Send(ctx context.Context, to, subject, body string, pdf []byte, pdfName string) error
}

// Publisher emits a domain event after ticket issuance. May be
// nil; publish failures are never propagated to the purchaser.
type Publisher func(ctx context.Context, ev queue.TicketIssuedEvent) error

// BookingService coordinates the booking lifecycle across the
// stores, the QR signer, the receipt store and the notifier.
type BookingService struct {
	bookings BookingStore
	events   EventStore
	users    UserStore
	receipts storage.Store
	signer   *ticket.Signer
	mailer   Notifier
	publish  Publisher
	now      func() time.Time
	newRef   func() (string, error)
}

func NewBookingService(b BookingStore, e EventStore, u UserStore, receipts storage.Store, signer *ticket.Signer, mailer Notifier, publish Publisher) *BookingService {
	if b == nil || e == nil || u == nil || signer == nil {
		panic("nil dependency passed to NewBookingService")
	}
	return &BookingService{
		bookings: b,
		events:   e,
		users:    u,
		receipts: receipts,
		signer:   signer,
		mailer:   mailer,
		publish:  publish,
		now:      func() time.Time { return time.Now().UTC() },
		newRef:   utils.NewBookingRef,
	}
}

// CreateInput carries the purchase form fields.
type CreateInput struct {
	AttendeeName  string
	ContactNumber string
	Tickets       int
	Plus1Name     string
}

// Create opens a booking for the configured event: it freezes the
// amount at the current price, generates the unique reference and
// signs the initial QR payload. The booking starts pending.
func (s *BookingService) Create(ctx context.Context, userID uint64, in CreateInput) (*model.Booking, error) {
	event, err := s.events.Get(ctx)
	if err != nil {
		return nil, err
	}

	tickets := 1
	plus1 := ""
	if in.Tickets == 2 {
		tickets = 2
		plus1 = in.Plus1Name
	}

	ref, err := s.newRef()
	if err != nil {
		return nil, fmt.Errorf("generate booking ref: %w", err)
	}
	qrData, err := s.signer.Sign(ref, s.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("sign qr payload: %w", err)
	}

	b := &model.Booking{
		UserID:        userID,
		AttendeeName:  in.AttendeeName,
		ContactNumber: in.ContactNumber,
		Plus1Name:     plus1,
		Tickets:       tickets,
		Amount:        event.Price * int64(tickets),
		BookingRef:    ref,
		PaymentStatus: model.PaymentPending,
		ReceiptStatus: model.ReceiptNone,
		QRData:        qrData,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns a booking visible to the requester: the owner or an
// administrator.
func (s *BookingService) Get(ctx context.Context, id, requesterID uint64, isAdmin bool) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != requesterID && !isAdmin {
		return nil, repository.ErrForbidden
	}
	return b, nil
}

// AddPlusOne upgrades a party-size-1 booking to 2 attendees. The
// amount is recomputed at the current price, payment drops back to
// pending (the new amount must be paid), the QR payload is
// re-signed for the same reference, and any uploaded receipt is
// invalidated with an audit note.
func (s *BookingService) AddPlusOne(ctx context.Context, id, requesterID uint64, isAdmin bool, plus1Name string) (*model.Booking, error) {
	b, err := s.Get(ctx, id, requesterID, isAdmin)
	if err != nil {
		return nil, err
	}
	if b.Tickets == 2 {
		return nil, ErrAlreadyUpgraded
	}
	event, err := s.events.Get(ctx)
	if err != nil {
		return nil, err
	}

	// The new payload must differ from the one already issued, so
	// the signing timestamp is forced past the prior one even when
	// both fall in the same millisecond.
	ts := s.now().UnixMilli()
	if prior, err := s.signer.Validate([]byte(b.QRData)); err == nil && prior.TS >= ts {
		ts = prior.TS + 1
	}
	qrData, err := s.signer.Sign(b.BookingRef, ts)
	if err != nil {
		return nil, fmt.Errorf("sign qr payload: %w", err)
	}

	b.Plus1Name = plus1Name
	b.Amount = event.Price * 2
	b.QRData = qrData
	if b.ReceiptURL != "" {
		b.ReceiptNote = "receipt invalidated: plus-one added, amount changed"
	}
	if err := s.bookings.ApplyPlusOne(ctx, b); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyUpgraded
		}
		return nil, err
	}
	return b, nil
}

// GetByRef resolves a booking by its reference, as gateway
// callbacks identify orders by booking reference.
func (s *BookingService) GetByRef(ctx context.Context, ref string) (*model.Booking, error) {
	return s.bookings.GetByRef(ctx, ref)
}

// ListMine returns the requester's own bookings, newest first.
func (s *BookingService) ListMine(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// ListAll returns every booking with purchaser identity for the
// admin views.
func (s *BookingService) ListAll(ctx context.Context) ([]model.BookingWithUser, error) {
	return s.bookings.ListWithUsers(ctx)
}

// PaymentResult reports a payment transition plus the outcome of
// the best-effort ticket delivery. NotifyErr being non-nil means
// the payment committed but the purchaser has not received the
// ticket email; it is reported, never rolled back.
type PaymentResult struct {
	Booking   *model.Booking
	NotifyErr error
}

// MarkPaid transitions a booking to paid, storing the transaction
// reference and the raw gateway response, then issues and emails
// the ticket as a side effect.
func (s *BookingService) MarkPaid(ctx context.Context, id uint64, txnID string, raw []byte) (PaymentResult, error) {
	if err := s.bookings.SetPayment(ctx, id, model.PaymentPaid, txnID, raw); err != nil {
		return PaymentResult{}, err
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return PaymentResult{}, err
	}
	return PaymentResult{Booking: b, NotifyErr: s.IssueTicket(ctx, b)}, nil
}

// MarkFailed records a failed payment attempt; amount and
// reference stay intact so the purchaser can retry.
func (s *BookingService) MarkFailed(ctx context.Context, id uint64, raw []byte) (*model.Booking, error) {
	if err := s.bookings.SetPayment(ctx, id, model.PaymentFailed, "", raw); err != nil {
		return nil, err
	}
	return s.bookings.GetByID(ctx, id)
}

// IssueTicket renders the PDF, emails it to the purchaser and
// publishes a ticket.issued event. Any failure is returned to the
// caller for reporting but the paid state is already committed.
func (s *BookingService) IssueTicket(ctx context.Context, b *model.Booking) error {
	pdf, event, user, err := s.renderTicket(ctx, b)
	if err != nil {
		return err
	}

	if s.mailer == nil || !s.mailer.Ready() {
		return ErrNotifierMissing
	}
	subject := "Your Ticket - " + event.Title
	body := fmt.Sprintf("Hi %s,\n\nYour ticket for %s is attached.\nShow the QR code at the entrance.\n\nThank you.",
		b.AttendeeName, event.Title)
	if err := s.mailer.Send(ctx, user.Email, subject, body, pdf, "ticket_"+b.BookingRef+".pdf"); err != nil {
		return fmt.Errorf("email ticket: %w", err)
	}

	if s.publish != nil {
		// Audit trail only; a broker outage must not fail issuance.
		_ = s.publish(ctx, queue.TicketIssuedEvent{
			BookingRef:   b.BookingRef,
			AttendeeName: b.AttendeeName,
			Plus1Name:    b.Plus1Name,
			Email:        user.Email,
			Tickets:      b.Tickets,
			Amount:       b.Amount,
			EventTitle:   event.Title,
			IssuedAt:     s.now().Format(time.RFC3339),
		})
	}
	return nil
}

// ErrNotifierMissing is returned when no notifier was injected at
// construction time.
var ErrNotifierMissing = errors.New("no notifier configured")

// TicketPDF renders the ticket for direct download. Only paid
// bookings have tickets.
func (s *BookingService) TicketPDF(ctx context.Context, id, requesterID uint64, isAdmin bool) ([]byte, *model.Booking, error) {
	b, err := s.Get(ctx, id, requesterID, isAdmin)
	if err != nil {
		return nil, nil, err
	}
	if b.PaymentStatus != model.PaymentPaid {
		return nil, nil, ErrNotPaid
	}
	pdf, _, _, err := s.renderTicket(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	return pdf, b, nil
}

// ResendTicket re-issues and emails the ticket for a paid booking.
func (s *BookingService) ResendTicket(ctx context.Context, id, requesterID uint64, isAdmin bool) error {
	b, err := s.Get(ctx, id, requesterID, isAdmin)
	if err != nil {
		return err
	}
	if b.PaymentStatus != model.PaymentPaid {
		return ErrNotPaid
	}
	return s.IssueTicket(ctx, b)
}

func (s *BookingService) renderTicket(ctx context.Context, b *model.Booking) ([]byte, *model.Event, *model.User, error) {
	event, err := s.events.Get(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	user, err := s.users.GetByID(ctx, b.UserID)
	if err != nil {
		return nil, nil, nil, err
	}
	pdf, err := ticket.RenderPDF(b, event, user)
	if err != nil {
		return nil, nil, nil, err
	}
	return pdf, event, user, nil
}

// UploadReceipt stores the purchaser's proof of payment and moves
// the receipt status to pending. Only the booking's owner may
// upload.
func (s *BookingService) UploadReceipt(ctx context.Context, id, requesterID uint64, filename string, file io.Reader) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != requesterID {
		return nil, repository.ErrForbidden
	}
	url, err := s.receipts.Save(ctx, filename, file)
	if err != nil {
		return nil, fmt.Errorf("store receipt: %w", err)
	}
	if err := s.bookings.SetReceiptPending(ctx, id, url, s.now()); err != nil {
		return nil, err
	}
	return s.bookings.GetByID(ctx, id)
}

// VerifyReceipt records the admin decision on an uploaded receipt.
// Approval marks the booking paid under a synthetic manual
// transaction id and issues the ticket; rejection leaves the
// payment status untouched so the purchaser can re-upload. The
// note is always recorded, empty string included.
func (s *BookingService) VerifyReceipt(ctx context.Context, id uint64, approve bool, note string) (PaymentResult, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return PaymentResult{}, err
	}
	if b.ReceiptURL == "" {
		return PaymentResult{}, ErrReceiptMissing
	}

	if !approve {
		if err := s.bookings.SetReceiptVerdict(ctx, id, model.ReceiptRejected, note); err != nil {
			return PaymentResult{}, err
		}
		b, err := s.bookings.GetByID(ctx, id)
		return PaymentResult{Booking: b}, err
	}

	if err := s.bookings.SetReceiptVerdict(ctx, id, model.ReceiptVerified, note); err != nil {
		return PaymentResult{}, err
	}
	return s.MarkPaid(ctx, id, "MAN-"+uuid.NewString(), nil)
}
