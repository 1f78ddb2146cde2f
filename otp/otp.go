// Package otp implements the one-time-password primitives from RFC 4226
// (HOTP) and RFC 6238 (TOTP): Base32 secret handling, HMAC-based code
// generation with dynamic truncation, and the countdown arithmetic for
// time-stepped codes. It is pure computation with no I/O.
package otp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"strings"
	"time"
)

const (
	DefaultDigits = 6
	DefaultPeriod = 30
)

var ErrInvalidEncoding = errors.New("otp: invalid base32 secret")

// Algorithm selects the HMAC hash used for code generation.
type Algorithm uint8

const (
	SHA1 Algorithm = iota
	SHA256
	SHA512
)

func (a Algorithm) String() string {
	switch a {
	case SHA256:
		return "SHA256"
	case SHA512:
		return "SHA512"
	default:
		return "SHA1"
	}
}

// ParseAlgorithm accepts the names used in otpauth URIs and import files,
// case-insensitively. Unknown names are an error rather than a silent SHA1.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "SHA1":
		return SHA1, nil
	case "SHA256":
		return SHA256, nil
	case "SHA512":
		return SHA512, nil
	default:
		return SHA1, fmt.Errorf("otp: unknown algorithm %q", s)
	}
}

func (a Algorithm) hashFunc() func() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New
	case SHA512:
		return sha512.New
	default:
		return sha1.New
	}
}

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// DecodeSecret decodes a Base32 shared secret as handed out by enrollment
// flows: case-insensitive, optional padding, embedded spaces tolerated.
// An empty result counts as invalid.
func DecodeSecret(text string) ([]byte, error) {
	s := strings.ToUpper(strings.ReplaceAll(text, " ", ""))
	s = strings.TrimRight(s, "=")
	raw, err := b32.DecodeString(s)
	if err != nil || len(raw) == 0 {
		return nil, ErrInvalidEncoding
	}
	return raw, nil
}

// EncodeSecret renders raw key material as canonical unpadded Base32.
func EncodeSecret(secret []byte) string {
	return b32.EncodeToString(secret)
}

// Code computes the TOTP code for the given instant: the RFC 6238 counter
// floor(unix/period) fed through RFC 4226 HMAC + dynamic truncation,
// reduced modulo 10^digits and zero-padded to digits width. The truncated
// value has at most 10 decimal digits, so digits is clamped to [1, 10];
// non-positive digits or period fall back to the defaults.
func Code(secret []byte, t time.Time, period, digits int, alg Algorithm) string {
	if period <= 0 {
		period = DefaultPeriod
	}
	if digits <= 0 {
		digits = DefaultDigits
	}
	if digits > 10 {
		digits = 10
	}
	counter := uint64(t.Unix() / int64(period))

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	mac := hmac.New(alg.hashFunc(), secret)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := uint64(binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff)

	mod := uint64(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, code%mod)
}

// TimeRemaining reports the seconds left in the current code window.
// At an exact period boundary the new window has just begun, so the
// result is period, never a resting 0.
func TimeRemaining(t time.Time, period int) int {
	if period <= 0 {
		period = DefaultPeriod
	}
	return period - int(t.Unix()%int64(period))
}
