package otp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Key is a parsed otpauth://totp provisioning URI: the issuer/account
// label plus the generation parameters for one credential.
type Key struct {
	Issuer string
	Name   string
	Secret []byte

	Algorithm Algorithm
	Digits    int
	Period    int
}

// ParseURI parses an otpauth://totp/ provisioning URI. The label may be
// "issuer:account" or just "account"; an issuer query parameter wins over
// the label prefix. Missing parameters take the usual defaults (SHA1,
// 6 digits, 30 s).
func ParseURI(raw string) (Key, error) {
	var k Key

	u, err := url.Parse(raw)
	if err != nil {
		return k, fmt.Errorf("otp: parse uri: %w", err)
	}
	if u.Scheme != "otpauth" || u.Host != "totp" {
		return k, fmt.Errorf("otp: not a totp uri: %q", raw)
	}

	label := strings.TrimPrefix(u.Path, "/")
	if issuer, name, ok := strings.Cut(label, ":"); ok {
		k.Issuer = strings.TrimSpace(issuer)
		k.Name = strings.TrimSpace(name)
	} else {
		k.Name = strings.TrimSpace(label)
	}

	q := u.Query()
	if issuer := q.Get("issuer"); issuer != "" {
		k.Issuer = issuer
	}

	k.Secret, err = DecodeSecret(q.Get("secret"))
	if err != nil {
		return k, err
	}

	k.Algorithm, err = ParseAlgorithm(q.Get("algorithm"))
	if err != nil {
		return k, err
	}

	k.Digits = DefaultDigits
	if s := q.Get("digits"); s != "" {
		d, err := strconv.Atoi(s)
		if err != nil || (d != 6 && d != 8) {
			return k, fmt.Errorf("otp: bad digits %q", s)
		}
		k.Digits = d
	}

	k.Period = DefaultPeriod
	if s := q.Get("period"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil || p <= 0 {
			return k, fmt.Errorf("otp: bad period %q", s)
		}
		k.Period = p
	}

	return k, nil
}

// URI renders the key back into provisioning form, suitable for export
// to other authenticator apps.
func (k Key) URI() string {
	label := url.PathEscape(k.Name)
	if k.Issuer != "" {
		label = url.PathEscape(k.Issuer) + ":" + label
	}

	q := url.Values{}
	q.Set("secret", EncodeSecret(k.Secret))
	if k.Issuer != "" {
		q.Set("issuer", k.Issuer)
	}
	if k.Algorithm != SHA1 {
		q.Set("algorithm", k.Algorithm.String())
	}
	if k.Digits != 0 && k.Digits != DefaultDigits {
		q.Set("digits", strconv.Itoa(k.Digits))
	}
	if k.Period != 0 && k.Period != DefaultPeriod {
		q.Set("period", strconv.Itoa(k.Period))
	}

	return "otpauth://totp/" + label + "?" + q.Encode()
}
