package ticket

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/ksrnb/reunion-ticketing/internal/model"
)

// ErrMissingData is returned when a required ticket field is
// absent. Rendering fails fast rather than emitting a partial
// document.
var ErrMissingData = errors.New("missing required ticket data")

// RenderPDF produces the A4 ticket as a byte slice: event title
// header, attendee details on the left, formatted date/time/venue,
// and the signed QR code on the right with an instructional
// caption. The function is pure apart from reading its inputs.
func RenderPDF(b *model.Booking, e *model.Event, u *model.User) ([]byte, error) {
	if b == nil || e == nil || u == nil {
		return nil, ErrMissingData
	}
	if b.AttendeeName == "" || e.Title == "" || b.QRData == "" || b.BookingRef == "" {
		return nil, ErrMissingData
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 22)
	pdf.Cell(0, 15, e.Title)
	pdf.Ln(20)

	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(8)

	// Left column: attendee details
	yStart := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, yStart, 115, 70, "F")

	pdf.SetXY(20, yStart+7)
	detail := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, 5, label, "", 1, "L", false, 0, "")
		pdf.SetX(20)
		pdf.SetFont("Helvetica", "B", 15)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
		pdf.SetX(20)
		pdf.Ln(2)
	}
	detail("PRIMARY ATTENDEE", b.AttendeeName)
	if b.Plus1Name != "" {
		detail("PLUS ONE", b.Plus1Name)
	}
	detail("TICKETS", fmt.Sprintf("%d", b.Tickets))
	detail("AMOUNT PAID", fmt.Sprintf("LKR %d", b.Amount))

	// Right column: QR for gate validation
	qrBytes, err := qrcode.Encode(b.QRData, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(qrBytes))
	pdf.ImageOptions("qr", 140, yStart+5, 50, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

	pdf.SetXY(135, yStart+58)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(60, 6, "Present this QR code at the entrance", "", 1, "C", false, 0, "")

	// Event details
	pdf.SetY(yStart + 80)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(0, 9, "EVENT DETAILS", "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "", 12)
	if !e.Date.IsZero() {
		pdf.CellFormat(0, 8, "Date & Time: "+e.Date.Format("Monday, 2 January 2006 at 3:04 PM"), "", 1, "L", false, 0, "")
	}
	if e.Venue != "" {
		pdf.CellFormat(0, 8, "Venue: "+e.Venue, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 8, "Booking Ref: "+b.BookingRef, "", 1, "L", false, 0, "")

	// Footer
	pdf.Line(15, 285, 195, 285)
	pdf.SetY(288)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, "This ticket admits the named attendees once. Duplicate scans are rejected at the gate.", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
