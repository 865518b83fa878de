package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksrnb/reunion-ticketing/internal/model"
	"github.com/ksrnb/reunion-ticketing/internal/queue"
	"github.com/ksrnb/reunion-ticketing/internal/repository"
	"github.com/ksrnb/reunion-ticketing/internal/ticket"
)

// memBookingStore is an in-memory BookingStore with the same
// conditional-update semantics as the SQL repository, so the
// lifecycle and concurrency behavior can be tested without a
// database.
type memBookingStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.Booking
}

func newMemBookingStore() *memBookingStore {
	return &memBookingStore{rows: make(map[uint64]*model.Booking)}
}

func (m *memBookingStore) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	b.Version = 1
	b.CreatedAt = time.Now().UTC()
	cp := *b
	m.rows[b.ID] = &cp
	return nil
}

func (m *memBookingStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBookingStore) GetByRef(_ context.Context, ref string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.BookingRef == ref {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (m *memBookingStore) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.rows {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memBookingStore) ListWithUsers(_ context.Context) ([]model.BookingWithUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BookingWithUser
	for _, b := range m.rows {
		out = append(out, model.BookingWithUser{Booking: *b})
	}
	return out, nil
}

func (m *memBookingStore) ApplyPlusOne(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[b.ID]
	if !ok || cur.Version != b.Version || cur.Tickets != 1 {
		return repository.ErrConflict
	}
	cur.Plus1Name = b.Plus1Name
	cur.Tickets = 2
	cur.Amount = b.Amount
	cur.PaymentStatus = model.PaymentPending
	cur.QRData = b.QRData
	cur.ReceiptStatus = model.ReceiptNone
	cur.ReceiptURL = ""
	cur.ReceiptNote = b.ReceiptNote
	cur.ReceiptUploadedAt = nil
	cur.Version++
	*b = *cur
	return nil
}

func (m *memBookingStore) SetPayment(_ context.Context, id uint64, status model.PaymentStatus, txnID string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.PaymentStatus = status
	if txnID != "" {
		b.TransactionID = txnID
	}
	if raw != nil {
		b.PaymentResponse = raw
	}
	b.Version++
	return nil
}

func (m *memBookingStore) SetReceiptPending(_ context.Context, id uint64, url string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.ReceiptStatus = model.ReceiptPending
	b.ReceiptURL = url
	b.ReceiptUploadedAt = &at
	b.Version++
	return nil
}

func (m *memBookingStore) SetReceiptVerdict(_ context.Context, id uint64, status model.ReceiptStatus, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok || b.ReceiptStatus != model.ReceiptPending {
		return repository.ErrConflict
	}
	b.ReceiptStatus = status
	b.ReceiptNote = note
	b.Version++
	return nil
}

func (m *memBookingStore) Redeem(_ context.Context, ref string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.BookingRef == ref {
			if b.UsedAt != nil || b.PaymentStatus != model.PaymentPaid {
				return false, nil
			}
			t := at
			b.UsedAt = &t
			b.Version++
			return true, nil
		}
	}
	return false, nil
}

type memEventStore struct{ event *model.Event }

func (m *memEventStore) Get(context.Context) (*model.Event, error) {
	if m.event == nil {
		return nil, repository.ErrEventNotConfigured
	}
	cp := *m.event
	return &cp, nil
}

type memUserStore struct{ users map[uint64]*model.User }

func (m *memUserStore) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

type memReceiptStore struct {
	saved []string
}

func (m *memReceiptStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	url := "/uploads/receipts/" + filename
	m.saved = append(m.saved, url)
	return url, nil
}

type memNotifier struct {
	mu    sync.Mutex
	sent  []string // recipient addresses
	ready bool
	fail  bool
}

func (m *memNotifier) Ready() bool { return m.ready }

func (m *memNotifier) Send(_ context.Context, to, _, _ string, pdf []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp connection refused")
	}
	if len(pdf) == 0 {
		return errors.New("empty attachment")
	}
	m.sent = append(m.sent, to)
	return nil
}

type fixture struct {
	svc       *BookingService
	bookings  *memBookingStore
	events    *memEventStore
	notifier  *memNotifier
	receipts  *memReceiptStore
	published []queue.TicketIssuedEvent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bookings: newMemBookingStore(),
		events: &memEventStore{event: &model.Event{
			ID:    1,
			Title: "Grand Reunion 2026",
			Date:  time.Date(2026, 12, 19, 18, 30, 0, 0, time.UTC),
			Venue: "Mount Lavinia Hotel",
			Price: 5000,
		}},
		notifier: &memNotifier{ready: true},
		receipts: &memReceiptStore{},
	}
	users := &memUserStore{users: map[uint64]*model.User{
		1: {ID: 1, FirstName: "Nuwan", LastName: "Perera", Email: "nuwan@example.com"},
		2: {ID: 2, FirstName: "Sanduni", Email: "sanduni@example.com"},
	}}
	var mu sync.Mutex
	publish := func(_ context.Context, ev queue.TicketIssuedEvent) error {
		mu.Lock()
		defer mu.Unlock()
		f.published = append(f.published, ev)
		return nil
	}
	f.svc = NewBookingService(f.bookings, f.events, users, f.receipts,
		ticket.NewSigner("test-secret"), f.notifier, publish)
	return f
}

// slip is a stand-in receipt file body.
func slip() io.Reader { return strings.NewReader("fake bank slip bytes") }

func mustCreate(t *testing.T, f *fixture, userID uint64, tickets int, plus1 string) *model.Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), userID, CreateInput{
		AttendeeName:  "Nuwan Perera",
		ContactNumber: "0771234567",
		Tickets:       tickets,
		Plus1Name:     plus1,
	})
	require.NoError(t, err)
	return b
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	assert.Equal(t, 1, b.Tickets)
	assert.Equal(t, int64(5000), b.Amount)
	assert.Equal(t, model.PaymentPending, b.PaymentStatus)
	assert.Equal(t, model.ReceiptNone, b.ReceiptStatus)
	assert.Regexp(t, `^RB-[0-9A-F]{12}$`, b.BookingRef)

	// The QR payload must verify against the booking reference.
	p, err := ticket.NewSigner("test-secret").Validate([]byte(b.QRData))
	require.NoError(t, err)
	assert.Equal(t, b.BookingRef, p.BookingRef)
}

func TestCreateBookingWithPlusOne(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 2, "Sanduni Perera")

	assert.Equal(t, 2, b.Tickets)
	assert.Equal(t, int64(10000), b.Amount)
	assert.Equal(t, "Sanduni Perera", b.Plus1Name)
}

func TestCreateBookingNormalizesPartySize(t *testing.T) {
	f := newFixture(t)
	// Anything other than 2 collapses to a single ticket and the
	// plus-one name is dropped.
	b := mustCreate(t, f, 1, 5, "Ignored")
	assert.Equal(t, 1, b.Tickets)
	assert.Empty(t, b.Plus1Name)
	assert.Equal(t, int64(5000), b.Amount)
}

func TestCreateBookingRequiresEvent(t *testing.T) {
	f := newFixture(t)
	f.events.event = nil

	_, err := f.svc.Create(context.Background(), 1, CreateInput{AttendeeName: "X", Tickets: 1})
	assert.ErrorIs(t, err, repository.ErrEventNotConfigured)
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	_, err := f.svc.Get(context.Background(), b.ID, 2, false)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	got, err := f.svc.Get(context.Background(), b.ID, 2, true)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestAddPlusOne(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")
	oldQR := b.QRData

	up, err := f.svc.AddPlusOne(context.Background(), b.ID, 1, false, "Sanduni Perera")
	require.NoError(t, err)

	assert.Equal(t, 2, up.Tickets)
	assert.Equal(t, int64(10000), up.Amount)
	assert.Equal(t, model.PaymentPending, up.PaymentStatus)
	assert.Equal(t, b.BookingRef, up.BookingRef, "reference must survive the upgrade")
	assert.NotEqual(t, oldQR, up.QRData, "QR payload must be re-signed")
}

func TestAddPlusOneResignsWithinSameMillisecond(t *testing.T) {
	f := newFixture(t)
	frozen := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return frozen }
	b := mustCreate(t, f, 1, 1, "")

	// Creation and upgrade share a signing instant; the payload
	// must still change.
	up, err := f.svc.AddPlusOne(context.Background(), b.ID, 1, false, "Sanduni Perera")
	require.NoError(t, err)
	assert.NotEqual(t, b.QRData, up.QRData, "QR payload must be re-signed")

	p, err := ticket.NewSigner("test-secret").Validate([]byte(up.QRData))
	require.NoError(t, err)
	assert.Equal(t, frozen.UnixMilli()+1, p.TS)
}

func TestAddPlusOneOnPaidBookingResetsPayment(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")
	_, err := f.svc.MarkPaid(context.Background(), b.ID, "TXN-1", nil)
	require.NoError(t, err)

	up, err := f.svc.AddPlusOne(context.Background(), b.ID, 1, false, "Jane")
	require.NoError(t, err)
	assert.Equal(t, 2, up.Tickets)
	assert.Equal(t, int64(10000), up.Amount)
	assert.Equal(t, model.PaymentPending, up.PaymentStatus, "the new amount must be paid")
}

func TestManualPaymentRejectThenApproveReupload(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	_, err := f.svc.UploadReceipt(context.Background(), b.ID, 1, "blurry.jpg", slip())
	require.NoError(t, err)
	res, err := f.svc.VerifyReceipt(context.Background(), b.ID, false, "unreadable")
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptRejected, res.Booking.ReceiptStatus)
	assert.Equal(t, model.PaymentPending, res.Booking.PaymentStatus)

	_, err = f.svc.UploadReceipt(context.Background(), b.ID, 1, "clear.jpg", slip())
	require.NoError(t, err)
	res, err = f.svc.VerifyReceipt(context.Background(), b.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptVerified, res.Booking.ReceiptStatus)
	assert.Equal(t, model.PaymentPaid, res.Booking.PaymentStatus)
	assert.Contains(t, res.Booking.TransactionID, "MAN-")
}

func TestAddPlusOneTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	_, err := f.svc.AddPlusOne(context.Background(), b.ID, 1, false, "First")
	require.NoError(t, err)

	_, err = f.svc.AddPlusOne(context.Background(), b.ID, 1, false, "Second")
	assert.ErrorIs(t, err, ErrAlreadyUpgraded)

	// The stored booking is unchanged by the losing attempt.
	got, err := f.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Plus1Name)
	assert.Equal(t, int64(10000), got.Amount)
}

func TestAddPlusOneInvalidatesReceipt(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	_, err := f.svc.UploadReceipt(context.Background(), b.ID, 1, "slip.jpg", slip())
	require.NoError(t, err)

	up, err := f.svc.AddPlusOne(context.Background(), b.ID, 1, false, "Sanduni")
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptNone, up.ReceiptStatus)
	assert.Empty(t, up.ReceiptURL)
	assert.Contains(t, up.ReceiptNote, "invalidated")
}

func TestMarkPaidIssuesTicket(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	res, err := f.svc.MarkPaid(context.Background(), b.ID, "TXN-1", []byte(`{"status":"SUCCESS"}`))
	require.NoError(t, err)
	require.NoError(t, res.NotifyErr)

	assert.Equal(t, model.PaymentPaid, res.Booking.PaymentStatus)
	assert.Equal(t, "TXN-1", res.Booking.TransactionID)
	assert.JSONEq(t, `{"status":"SUCCESS"}`, string(res.Booking.PaymentResponse))

	assert.Equal(t, []string{"nuwan@example.com"}, f.notifier.sent)
	require.Len(t, f.published, 1)
	assert.Equal(t, b.BookingRef, f.published[0].BookingRef)
	assert.Equal(t, "Grand Reunion 2026", f.published[0].EventTitle)
}

func TestMarkPaidSurvivesEmailFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = true
	b := mustCreate(t, f, 1, 1, "")

	res, err := f.svc.MarkPaid(context.Background(), b.ID, "TXN-1", nil)
	require.NoError(t, err)
	require.Error(t, res.NotifyErr)

	// The paid state is committed even though delivery failed.
	got, err := f.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
}

func TestMarkFailedKeepsAmountAndRef(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	got, err := f.svc.MarkFailed(context.Background(), b.ID, []byte(`{"status":"FAILED"}`))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, got.PaymentStatus)
	assert.Equal(t, b.BookingRef, got.BookingRef)
	assert.Equal(t, b.Amount, got.Amount)
}

func TestUploadReceipt(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	got, err := f.svc.UploadReceipt(context.Background(), b.ID, 1, "slip.jpg", slip())
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptPending, got.ReceiptStatus)
	assert.NotEmpty(t, got.ReceiptURL)
	assert.NotNil(t, got.ReceiptUploadedAt)
}

func TestUploadReceiptOwnerOnly(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	_, err := f.svc.UploadReceipt(context.Background(), b.ID, 2, "slip.jpg", slip())
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.Empty(t, f.receipts.saved)
}

func TestVerifyReceiptApprove(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")
	_, err := f.svc.UploadReceipt(context.Background(), b.ID, 1, "slip.jpg", slip())
	require.NoError(t, err)

	res, err := f.svc.VerifyReceipt(context.Background(), b.ID, true, "matches the transfer")
	require.NoError(t, err)
	require.NoError(t, res.NotifyErr)

	assert.Equal(t, model.PaymentPaid, res.Booking.PaymentStatus)
	assert.Equal(t, model.ReceiptVerified, res.Booking.ReceiptStatus)
	assert.Contains(t, res.Booking.TransactionID, "MAN-")
	assert.Equal(t, []string{"nuwan@example.com"}, f.notifier.sent)
}

func TestVerifyReceiptReject(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")
	_, err := f.svc.UploadReceipt(context.Background(), b.ID, 1, "slip.jpg", slip())
	require.NoError(t, err)

	res, err := f.svc.VerifyReceipt(context.Background(), b.ID, false, "amount does not match")
	require.NoError(t, err)

	assert.Equal(t, model.PaymentPending, res.Booking.PaymentStatus, "rejection must not touch payment status")
	assert.Equal(t, model.ReceiptRejected, res.Booking.ReceiptStatus)
	assert.Equal(t, "amount does not match", res.Booking.ReceiptNote)
	assert.Empty(t, f.notifier.sent)
}

func TestVerifyReceiptWithoutUpload(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	_, err := f.svc.VerifyReceipt(context.Background(), b.ID, true, "")
	assert.ErrorIs(t, err, ErrReceiptMissing)
}

func TestVerifyReceiptDoubleDecisionConflicts(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")
	_, err := f.svc.UploadReceipt(context.Background(), b.ID, 1, "slip.jpg", slip())
	require.NoError(t, err)

	_, err = f.svc.VerifyReceipt(context.Background(), b.ID, false, "first look")
	require.NoError(t, err)

	_, err = f.svc.VerifyReceipt(context.Background(), b.ID, true, "second look")
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestResendTicketRequiresPaid(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	err := f.svc.ResendTicket(context.Background(), b.ID, 1, false)
	assert.ErrorIs(t, err, ErrNotPaid)
}

func TestTicketPDFRequiresPaid(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	_, _, err := f.svc.TicketPDF(context.Background(), b.ID, 1, false)
	assert.ErrorIs(t, err, ErrNotPaid)

	_, err = f.svc.MarkPaid(context.Background(), b.ID, "TXN-1", nil)
	require.NoError(t, err)

	pdf, got, err := f.svc.TicketPDF(context.Background(), b.ID, 1, false)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
	assert.Equal(t, b.BookingRef, got.BookingRef)
}

func TestRedeemLifecycle(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")

	// Unpaid tickets never admit.
	res, err := f.svc.Redeem(context.Background(), []byte(b.QRData))
	require.NoError(t, err)
	assert.Equal(t, RedeemInvalid, res.Status)

	_, err = f.svc.MarkPaid(context.Background(), b.ID, "TXN-1", nil)
	require.NoError(t, err)

	res, err = f.svc.Redeem(context.Background(), []byte(b.QRData))
	require.NoError(t, err)
	assert.Equal(t, RedeemValid, res.Status)
	require.NotNil(t, res.UsedAt)

	// A second scan of the same ticket reports the original time.
	again, err := f.svc.Redeem(context.Background(), []byte(b.QRData))
	require.NoError(t, err)
	assert.Equal(t, RedeemUsed, again.Status)
	require.NotNil(t, again.UsedAt)
	assert.Equal(t, res.UsedAt.Unix(), again.UsedAt.Unix())
}

func TestRedeemRejectsForgedPayload(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")
	_, err := f.svc.MarkPaid(context.Background(), b.ID, "TXN-1", nil)
	require.NoError(t, err)

	forged, err := ticket.NewSigner("wrong-secret").Sign(b.BookingRef, time.Now().UnixMilli())
	require.NoError(t, err)

	res, err := f.svc.Redeem(context.Background(), []byte(forged))
	require.NoError(t, err)
	assert.Equal(t, RedeemInvalid, res.Status)
}

func TestRedeemUnknownReference(t *testing.T) {
	f := newFixture(t)

	payload, err := ticket.NewSigner("test-secret").Sign("RB-DEADBEEF0000", time.Now().UnixMilli())
	require.NoError(t, err)

	res, err := f.svc.Redeem(context.Background(), []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, RedeemInvalid, res.Status)
}

func TestRedeemConcurrentScansAdmitOnce(t *testing.T) {
	f := newFixture(t)
	b := mustCreate(t, f, 1, 1, "")
	_, err := f.svc.MarkPaid(context.Background(), b.ID, "TXN-1", nil)
	require.NoError(t, err)

	const scanners = 8
	results := make(chan string, scanners)
	var wg sync.WaitGroup
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Redeem(context.Background(), []byte(b.QRData))
			if err != nil {
				results <- fmt.Sprintf("error: %v", err)
				return
			}
			results <- res.Status
		}()
	}
	wg.Wait()
	close(results)

	counts := map[string]int{}
	for s := range results {
		counts[s]++
	}
	assert.Equal(t, 1, counts[RedeemValid], "exactly one scan admits")
	assert.Equal(t, scanners-1, counts[RedeemUsed])
}
