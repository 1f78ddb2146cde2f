// Package vault persists TOTP credentials as a single encrypted blob:
// argon2id-derived key, XChaCha20-Poly1305 authenticated encryption, and a
// small versioned binary header carrying the KDF parameters, salt and nonce.
package vault

import (
	"errors"

	"otpvault/otp"
)

const (
	KeyLen   = 32
	SaltLen  = 16
	NonceLen = 24
	Magic    = "OTPV"
	Version  = 0x01

	kdfArgon2id = 0x01
)

var (
	ErrNotFound   = errors.New("vault: no vault file")
	ErrCorrupt    = errors.New("vault: corrupt file")
	ErrAuthFailed = errors.New("vault: authentication failed")
)

// Credential is one TOTP entry. Secret holds the raw decoded key material,
// never its Base32 text form. Insertion order is display order.
type Credential struct {
	ID     string `json:"id"`
	Issuer string `json:"issuer"`
	Name   string `json:"name"`
	Secret []byte `json:"secret"`

	Algorithm otp.Algorithm `json:"algorithm"`
	Digits    int           `json:"digits"`
	Period    int           `json:"period"`
}

// Params are the argon2id cost parameters stored in the file header so a
// vault stays readable after the defaults change.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

func DefaultParams() Params { return Params{Time: 3, Memory: 256 * 1024, Threads: 1} }

// File is the decoded persisted form: header fields plus the ciphertext
// (including its authentication tag). Header keeps the exact encoded header
// bytes, which are the associated data of the seal, so any header tamper
// fails authentication.
type File struct {
	Params     Params
	Salt       []byte
	Nonce      []byte
	Header     []byte
	Ciphertext []byte
}
