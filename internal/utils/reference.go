package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// refPrefix marks booking references; the full form is
// "RB-" followed by 12 uppercase hex characters.
const refPrefix = "RB-"

// NewBookingRef returns a random booking reference. Six bytes of
// entropy keep collisions out of reach for a single-event system
// while the reference stays short enough to read over the phone.
func NewBookingRef() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return refPrefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}
