package model

import "time"

// PaymentStatus is the primary booking state machine. It is a
// closed type: transition sites switch on these constants instead
// of comparing raw strings.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Valid reports whether s is one of the defined payment statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// ReceiptStatus tracks the manual-payment receipt lifecycle. It is
// independent of PaymentStatus: a rejected receipt leaves the
// payment status untouched so the purchaser can re-upload.
type ReceiptStatus string

const (
	ReceiptNone     ReceiptStatus = "none"
	ReceiptPending  ReceiptStatus = "pending"
	ReceiptVerified ReceiptStatus = "verified"
	ReceiptRejected ReceiptStatus = "rejected"
)

// Valid reports whether s is one of the defined receipt statuses.
func (s ReceiptStatus) Valid() bool {
	switch s {
	case ReceiptNone, ReceiptPending, ReceiptVerified, ReceiptRejected:
		return true
	}
	return false
}

// Booking is the aggregate root of the system: one row per ticket
// purchase attempt in the `bookings` table. Bookings are never
// deleted; they form the audit trail of every purchase attempt.
//
// Fields:
//  ID                – primary key identifier.
//  UserID            – purchaser (references users.id).
//  AttendeeName      – primary attendee name printed on the ticket.
//  ContactNumber     – contact number captured at purchase time.
//  Plus1Name         – optional second attendee; empty when Tickets is 1.
//  Tickets           – party size, 1 or 2.
//  Amount            – event price × Tickets, frozen at last (re)computation.
//  BookingRef        – unique human-readable reference ("RB-..."), stable for life.
//  PaymentStatus     – pending/paid/failed/cancelled.
//  TransactionID     – external or synthetic payment transaction reference.
//  PaymentResponse   – raw gateway callback body, for audit.
//  ReceiptStatus     – none/pending/verified/rejected (manual payment only).
//  ReceiptURL        – stored receipt object URL; empty when no upload.
//  ReceiptNote       – admin free-text note recorded at verification.
//  ReceiptUploadedAt – when the receipt file was uploaded (nullable).
//  QRData            – signed QR payload JSON bound to BookingRef.
//  UsedAt            – set exactly once when redeemed at the gate (nullable).
//  Version           – optimistic concurrency counter; bumped on every mutation.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Booking struct {
	ID                uint64        // bookings.id
	UserID            uint64        // bookings.user_id
	AttendeeName      string        // bookings.attendee_name
	ContactNumber     string        // bookings.contact_number
	Plus1Name         string        // bookings.plus1_name
	Tickets           int           // bookings.tickets
	Amount            int64         // bookings.amount
	BookingRef        string        // bookings.booking_ref
	PaymentStatus     PaymentStatus // bookings.payment_status
	TransactionID     string        // bookings.transaction_id
	PaymentResponse   []byte        // bookings.payment_response (raw JSON)
	ReceiptStatus     ReceiptStatus // bookings.receipt_status
	ReceiptURL        string        // bookings.receipt_url
	ReceiptNote       string        // bookings.receipt_note
	ReceiptUploadedAt *time.Time    // bookings.receipt_uploaded_at (nullable)
	QRData            string        // bookings.qr_data
	UsedAt            *time.Time    // bookings.used_at (nullable)
	Version           uint64        // bookings.version
	CreatedAt         time.Time     // bookings.created_at
	UpdatedAt         time.Time     // bookings.updated_at
}

// Redeemed reports whether the ticket has already been scanned at
// the gate.
func (b *Booking) Redeemed() bool { return b.UsedAt != nil }

// BookingWithUser joins a booking with its purchaser's identity
// for admin listings. Credentials are deliberately not included.
type BookingWithUser struct {
	Booking
	FirstName     string
	LastName      string
	Email         string
	UserClass     string
	UserContact   string
}
