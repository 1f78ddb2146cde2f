package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// payload is the plaintext serialized inside the ciphertext.
type payload struct {
	Entries []Credential `json:"entries"`
}

// Store reads and writes one vault file. It performs no key derivation and
// holds no plaintext state; callers pass keys in.
type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

func (s *Store) Path() string { return s.path }

// Exists reports whether the vault file is present, which drives the
// first-run flow.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the vault file and structurally validates its header.
// A missing file is ErrNotFound; anything unreadable as format v1 is
// ErrCorrupt and must never be silently reinitialized.
func (s *Store) Load() (*File, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("vault: read %s: %w", s.path, err)
	}

	h, ct, err := decodeHeader(raw)
	if err != nil {
		return nil, ErrCorrupt
	}
	if len(h.Salt) == 0 || len(h.Nonce) != NonceLen || len(ct) == 0 {
		return nil, ErrCorrupt
	}

	return &File{
		Params:     Params{Time: h.ArgonTime, Memory: h.ArgonMemory, Threads: h.ArgonThreads},
		Salt:       h.Salt,
		Nonce:      h.Nonce,
		Header:     raw[:len(raw)-len(ct)],
		Ciphertext: ct,
	}, nil
}

// Decrypt opens the ciphertext with the derived key and deserializes the
// entry list. The file header is the associated data, so any tag mismatch,
// wrong password or a flipped bit anywhere in the file alike, is
// ErrAuthFailed.
func (s *Store) Decrypt(f *File, key []byte) ([]Credential, error) {
	pt, err := open(key, f.Nonce, f.Header, f.Ciphertext)
	if err != nil {
		return nil, err
	}
	defer zero(pt)

	var p payload
	if err := json.Unmarshal(pt, &p); err != nil {
		return nil, ErrCorrupt
	}
	if p.Entries == nil {
		p.Entries = []Credential{}
	}
	return p.Entries, nil
}

// Persist serializes, encrypts under a fresh nonce, and atomically replaces
// the vault file. A crash mid-write leaves either the old or the new
// complete file on disk, never a partial one.
func (s *Store) Persist(entries []Credential, key, salt []byte, p Params) error {
	pt, err := json.Marshal(payload{Entries: entries})
	if err != nil {
		return fmt.Errorf("vault: encode entries: %w", err)
	}
	defer zero(pt)

	nonce, err := randBytes(NonceLen)
	if err != nil {
		return fmt.Errorf("vault: draw nonce: %w", err)
	}

	// The header is encoded before sealing because its exact bytes are the
	// associated data: flipping any header bit must fail authentication.
	hdr, err := encodeHeader(fileHeader{
		KDFAlgo:      kdfArgon2id,
		ArgonTime:    p.Time,
		ArgonMemory:  p.Memory,
		ArgonThreads: p.Threads,
		Salt:         salt,
		Nonce:        nonce,
	})
	if err != nil {
		return err
	}

	ct, err := seal(key, nonce, pt, hdr)
	if err != nil {
		return fmt.Errorf("vault: encrypt: %w", err)
	}

	return atomicWriteFile(s.path, append(hdr, ct...), 0o600)
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "otpv-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	_ = syncDir(dir)
	_ = os.Chmod(path, perm)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
