package ticket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignValidateRoundTrip(t *testing.T) {
	s := NewSigner("test-secret")

	raw, err := s.Sign("RB-ABCDEF123456", 1700000000000)
	require.NoError(t, err)

	p, err := s.Validate([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "RB-ABCDEF123456", p.BookingRef)
	assert.Equal(t, int64(1700000000000), p.TS)
	assert.NotEmpty(t, p.Sig)
}

func TestValidateRejectsTamperedReference(t *testing.T) {
	s := NewSigner("test-secret")

	raw, err := s.Sign("RB-ABCDEF123456", 1700000000000)
	require.NoError(t, err)

	var p Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	p.BookingRef = "RB-000000000000"
	tampered, err := json.Marshal(p)
	require.NoError(t, err)

	_, err = s.Validate(tampered)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	s := NewSigner("test-secret")

	raw, err := s.Sign("RB-ABCDEF123456", 1700000000000)
	require.NoError(t, err)

	var p Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	// Flip the first nibble of the hex signature.
	if p.Sig[0] == 'a' {
		p.Sig = "b" + p.Sig[1:]
	} else {
		p.Sig = "a" + p.Sig[1:]
	}
	tampered, err := json.Marshal(p)
	require.NoError(t, err)

	_, err = s.Validate(tampered)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	raw, err := NewSigner("secret-a").Sign("RB-ABCDEF123456", 42)
	require.NoError(t, err)

	_, err = NewSigner("secret-b").Validate([]byte(raw))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestValidateRejectsMalformedPayload(t *testing.T) {
	s := NewSigner("test-secret")

	for name, raw := range map[string]string{
		"not json":     "not json at all",
		"empty object": "{}",
		"missing sig":  `{"booking_ref":"RB-ABCDEF123456","ts":42}`,
		"missing ref":  `{"ts":42,"sig":"abcd"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Validate([]byte(raw))
			assert.ErrorIs(t, err, ErrBadPayload)
		})
	}
}
