// Package ticket implements the signed QR payload and the PDF
// ticket renderer. The QR payload is the JSON triple
// {booking_ref, ts, sig} where sig is an HMAC-SHA256 over the
// canonical encoding of the first two fields, so a scanned code
// can be authenticated offline before any database lookup.
package ticket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// ErrBadPayload is returned when a scanned payload is not the
// expected JSON shape.
var ErrBadPayload = errors.New("malformed qr payload")

// ErrBadSignature is returned when the embedded signature does not
// match the recomputed one.
var ErrBadSignature = errors.New("qr signature mismatch")

// Payload is the wire format embedded in the QR image.
type Payload struct {
	BookingRef string `json:"booking_ref"`
	TS         int64  `json:"ts"` // epoch milliseconds at signing time
	Sig        string `json:"sig"`
}

// Signer signs and validates QR payloads with a server-held
// secret.
type Signer struct{ secret []byte }

func NewSigner(secret string) *Signer { return &Signer{secret: []byte(secret)} }

// canonical is the byte string the MAC covers: the JSON encoding
// of the reference and timestamp with fixed field order. Any
// change here invalidates every ticket already issued.
func (s *Signer) canonical(ref string, ts int64) []byte {
	b, _ := json.Marshal(struct {
		BookingRef string `json:"booking_ref"`
		TS         int64  `json:"ts"`
	}{ref, ts})
	return b
}

// Sign produces the full QR payload JSON for a booking reference
// at the given timestamp.
func (s *Signer) Sign(ref string, ts int64) (string, error) {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(s.canonical(ref, ts))
	p := Payload{BookingRef: ref, TS: ts, Sig: hex.EncodeToString(mac.Sum(nil))}
	out, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Validate parses a scanned payload and authenticates its
// signature with a constant-time comparison. It returns the
// embedded payload on success; the booking itself is checked by
// the caller.
func (s *Signer) Validate(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, ErrBadPayload
	}
	if p.BookingRef == "" || p.Sig == "" {
		return Payload{}, ErrBadPayload
	}
	got, err := hex.DecodeString(p.Sig)
	if err != nil {
		return Payload{}, ErrBadSignature
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(s.canonical(p.BookingRef, p.TS))
	if !hmac.Equal(got, mac.Sum(nil)) {
		return Payload{}, ErrBadSignature
	}
	return p, nil
}
