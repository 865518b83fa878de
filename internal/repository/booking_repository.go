package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ksrnb/reunion-ticketing/internal/model"
)

// BookingRepo provides persistence for bookings. Every
// state-changing statement is a single conditional UPDATE guarded
// by the version counter or by the current status, so two
// concurrent mutations of the same booking cannot both win
// silently: the loser sees zero affected rows and gets
// ErrConflict.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingColumns = `id, user_id, attendee_name, contact_number, plus1_name, tickets, amount,
	booking_ref, payment_status, transaction_id, payment_response, receipt_status, receipt_url,
	receipt_note, receipt_uploaded_at, qr_data, used_at, version, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var paymentResponse sql.NullString
	var receiptUploadedAt, usedAt sql.NullTime
	err := row.Scan(&b.ID, &b.UserID, &b.AttendeeName, &b.ContactNumber, &b.Plus1Name,
		&b.Tickets, &b.Amount, &b.BookingRef, &b.PaymentStatus, &b.TransactionID,
		&paymentResponse, &b.ReceiptStatus, &b.ReceiptURL, &b.ReceiptNote,
		&receiptUploadedAt, &b.QRData, &usedAt, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paymentResponse.Valid {
		b.PaymentResponse = []byte(paymentResponse.String)
	}
	if receiptUploadedAt.Valid {
		t := receiptUploadedAt.Time
		b.ReceiptUploadedAt = &t
	}
	if usedAt.Valid {
		t := usedAt.Time
		b.UsedAt = &t
	}
	return &b, nil
}

// Create inserts a new booking and populates the generated ID.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO bookings (user_id, attendee_name, contact_number, plus1_name, tickets, amount,
			booking_ref, payment_status, receipt_status, qr_data)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		b.UserID, b.AttendeeName, b.ContactNumber, b.Plus1Name, b.Tickets, b.Amount,
		b.BookingRef, b.PaymentStatus, b.ReceiptStatus, b.QRData)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Version = 1
	return nil
}

// GetByID fetches a booking by primary key.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.DB.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetByRef fetches a booking by its reference string, the lookup
// used during QR redemption and gateway callbacks.
func (r *BookingRepo) GetByRef(ctx context.Context, ref string) (*model.Booking, error) {
	b, err := scanBooking(r.DB.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE booking_ref=? LIMIT 1", ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// ListByUser returns every booking the given user owns, newest
// first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE user_id=? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// ListWithUsers returns every booking joined with its purchaser's
// identity, newest first, for the admin dashboard.
func (r *BookingRepo) ListWithUsers(ctx context.Context) ([]model.BookingWithUser, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT b.id, b.user_id, b.attendee_name, b.contact_number, b.plus1_name, b.tickets, b.amount,
			b.booking_ref, b.payment_status, b.transaction_id, b.payment_response, b.receipt_status,
			b.receipt_url, b.receipt_note, b.receipt_uploaded_at, b.qr_data, b.used_at, b.version,
			b.created_at, b.updated_at,
			u.first_name, u.last_name, u.email, u.class, u.contact_number
		 FROM bookings b
		 JOIN users u ON u.id = b.user_id
		 ORDER BY b.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BookingWithUser
	for rows.Next() {
		var bw model.BookingWithUser
		var paymentResponse sql.NullString
		var receiptUploadedAt, usedAt sql.NullTime
		err := rows.Scan(&bw.ID, &bw.UserID, &bw.AttendeeName, &bw.ContactNumber, &bw.Plus1Name,
			&bw.Tickets, &bw.Amount, &bw.BookingRef, &bw.PaymentStatus, &bw.TransactionID,
			&paymentResponse, &bw.ReceiptStatus, &bw.ReceiptURL, &bw.ReceiptNote,
			&receiptUploadedAt, &bw.QRData, &usedAt, &bw.Version, &bw.CreatedAt, &bw.UpdatedAt,
			&bw.FirstName, &bw.LastName, &bw.Email, &bw.UserClass, &bw.UserContact)
		if err != nil {
			return nil, err
		}
		if paymentResponse.Valid {
			bw.PaymentResponse = []byte(paymentResponse.String)
		}
		if receiptUploadedAt.Valid {
			t := receiptUploadedAt.Time
			bw.ReceiptUploadedAt = &t
		}
		if usedAt.Valid {
			t := usedAt.Time
			bw.UsedAt = &t
		}
		out = append(out, bw)
	}
	return out, rows.Err()
}

// ApplyPlusOne writes the upgraded state of a party-size-1 booking
// in one conditional statement: tickets become 2, the amount and
// QR payload are replaced, payment returns to pending and any
// uploaded receipt is invalidated with an audit note. The change
// lands only if the version still matches and the booking has not
// been upgraded in the meantime.
func (r *BookingRepo) ApplyPlusOne(ctx context.Context, b *model.Booking) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE bookings
		 SET plus1_name=?, tickets=2, amount=?, payment_status=?, qr_data=?,
		     receipt_status=?, receipt_url='', receipt_note=?, receipt_uploaded_at=NULL,
		     version=version+1
		 WHERE id=? AND version=? AND tickets=1`,
		b.Plus1Name, b.Amount, model.PaymentPending, b.QRData,
		model.ReceiptNone, b.ReceiptNote, b.ID, b.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	b.Tickets = 2
	b.PaymentStatus = model.PaymentPending
	b.ReceiptStatus = model.ReceiptNone
	b.ReceiptURL = ""
	b.ReceiptUploadedAt = nil
	b.Version++
	return nil
}

// SetPayment records a payment status transition together with the
// transaction reference and the raw gateway response, if any.
func (r *BookingRepo) SetPayment(ctx context.Context, id uint64, status model.PaymentStatus, txnID string, raw []byte) error {
	var rawArg any
	if len(raw) > 0 {
		rawArg = string(raw)
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE bookings
		 SET payment_status=?, transaction_id=IF(?='', transaction_id, ?),
		     payment_response=COALESCE(?, payment_response), version=version+1
		 WHERE id=?`,
		status, txnID, txnID, rawArg, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// SetReceiptPending stores the uploaded receipt reference and
// moves the receipt status to pending.
func (r *BookingRepo) SetReceiptPending(ctx context.Context, id uint64, url string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE bookings
		 SET receipt_status=?, receipt_url=?, receipt_uploaded_at=?, version=version+1
		 WHERE id=?`,
		model.ReceiptPending, url, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// SetReceiptVerdict records the admin's approve/reject decision.
// The verdict only lands while the receipt is still pending, so
// two admins reviewing the same receipt cannot overwrite each
// other: the second decision gets ErrConflict.
func (r *BookingRepo) SetReceiptVerdict(ctx context.Context, id uint64, status model.ReceiptStatus, note string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE bookings
		 SET receipt_status=?, receipt_note=?, version=version+1
		 WHERE id=? AND receipt_status=?`,
		status, note, id, model.ReceiptPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Redeem stamps used_at in a single conditional write: the update
// succeeds only while used_at is still NULL and the booking is
// paid. The returned bool reports whether this call won the stamp;
// false means the ticket was already redeemed (or concurrently
// redeemed by another scanner) and the caller should re-read the
// booking for the original usage time.
func (r *BookingRepo) Redeem(ctx context.Context, ref string, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE bookings
		 SET used_at=?, version=version+1
		 WHERE booking_ref=? AND used_at IS NULL AND payment_status=?`,
		at, ref, model.PaymentPaid)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
