package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"otpvault/otp"
	"otpvault/vault"
)

// importRecord is one credential descriptor in an import file. Only secret
// is required; unknown extra fields are ignored by the JSON decoder.
type importRecord struct {
	Issuer    string `json:"issuer"`
	Name      string `json:"name"`
	Secret    string `json:"secret"`
	Algorithm string `json:"algorithm"`
	Digits    int    `json:"digits"`
	Period    int    `json:"period"`
}

// ImportFromFile reads a JSON export and appends every credential it can
// find: descriptor objects carrying a secret field, and otpauth://totp URI
// strings anywhere in the document. Records that fail to decode are skipped
// individually; an unreadable file fails the import as a whole. The vault
// is persisted once at the end. Returns the number of entries imported.
func (m *Model) ImportFromFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("model: read import file: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("model: parse import file: %w", err)
	}

	var found []vault.Credential
	collectCredentials(doc, &found)
	if len(found) == 0 {
		return 0, nil
	}

	m.mu.Lock()
	if m.state != Unlocked || m.closed {
		m.mu.Unlock()
		return 0, fmt.Errorf("model: vault is locked")
	}
	m.entries = append(m.entries, found...)
	req := m.snapshotReq(nil)
	m.mu.Unlock()

	m.enqueue(req)
	m.log.Info("imported credentials", zap.Int("count", len(found)), zap.String("path", path))
	return len(found), nil
}

// collectCredentials walks the decoded JSON document. An object with a
// "secret" key is treated as a credential descriptor; strings are checked
// for provisioning URIs; arrays and other objects are descended into.
func collectCredentials(node any, out *[]vault.Credential) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			collectCredentials(item, out)
		}
	case map[string]any:
		if _, ok := v["secret"]; ok {
			if c, ok := credentialFromRecord(v); ok {
				*out = append(*out, c)
			}
			return
		}
		for _, item := range v {
			collectCredentials(item, out)
		}
	case string:
		if strings.HasPrefix(v, "otpauth://totp") {
			if k, err := otp.ParseURI(v); err == nil {
				*out = append(*out, credentialFromKey(k))
			}
		}
	}
}

func credentialFromRecord(obj map[string]any) (vault.Credential, bool) {
	data, err := json.Marshal(obj)
	if err != nil {
		return vault.Credential{}, false
	}
	var rec importRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return vault.Credential{}, false
	}

	secret, err := otp.DecodeSecret(rec.Secret)
	if err != nil {
		return vault.Credential{}, false
	}
	alg, err := otp.ParseAlgorithm(rec.Algorithm)
	if err != nil {
		return vault.Credential{}, false
	}
	digits := rec.Digits
	if digits == 0 {
		digits = otp.DefaultDigits
	}
	if digits != 6 && digits != 8 {
		return vault.Credential{}, false
	}
	period := rec.Period
	if period == 0 {
		period = otp.DefaultPeriod
	}
	if period < 0 {
		return vault.Credential{}, false
	}

	return vault.Credential{
		ID:        uuid.New().String(),
		Issuer:    rec.Issuer,
		Name:      rec.Name,
		Secret:    secret,
		Algorithm: alg,
		Digits:    digits,
		Period:    period,
	}, true
}

func credentialFromKey(k otp.Key) vault.Credential {
	return vault.Credential{
		ID:        uuid.New().String(),
		Issuer:    k.Issuer,
		Name:      k.Name,
		Secret:    k.Secret,
		Algorithm: k.Algorithm,
		Digits:    k.Digits,
		Period:    k.Period,
	}
}
