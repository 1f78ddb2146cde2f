package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// keyInfo binds derived keys to this file format generation.
var keyInfo = []byte("otpvault v1")

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// NewSalt draws the per-vault salt. Generated once at vault creation and
// never changed afterwards.
func NewSalt() ([]byte, error) {
	return randBytes(SaltLen)
}

// DeriveKey turns the master password into the file encryption key:
// argon2id over password+salt, then HKDF-SHA256 expansion. Deterministic
// for a given password, salt and cost parameters. The intermediate master
// key is wiped before returning; the caller owns the password bytes.
func DeriveKey(password, salt []byte, p Params) ([]byte, error) {
	master := argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, KeyLen)
	defer zero(master)

	h := hkdf.New(sha256.New, master, nil, keyInfo)
	key := make([]byte, KeyLen)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}
	return key, nil
}

// seal encrypts plaintext, binding aad into the authentication tag. The
// caller supplies the nonce so it can also record it in the file header;
// reusing a nonce under the same key is forbidden, so every persist draws
// a fresh one.
func seal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

func open(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		// Wrong password and a tampered file are deliberately
		// indistinguishable here.
		return nil, ErrAuthFailed
	}
	return pt, nil
}

// Zero wipes sensitive byte slices, e.g. password buffers after use.
func Zero(b []byte) { zero(b) }
