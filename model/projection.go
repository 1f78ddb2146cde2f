package model

import (
	"time"

	"github.com/atotto/clipboard"

	"otpvault/otp"
	"otpvault/vault"
)

// Projection is the live view over the model's selected credential: the
// current code and the countdown to its rotation. Every read recomputes
// from the wall clock rather than decrementing a counter, so it stays
// correct across clock jumps and suspend/resume. A periodic tick in the
// presentation layer just re-reads it.
type Projection struct {
	model *Model
	now   func() time.Time
	clip  func(string) error
}

// NewProjection binds a view to the model's selection. The clock and
// clipboard sink default to time.Now and the OS clipboard.
func NewProjection(m *Model) *Projection {
	return &Projection{model: m, now: time.Now, clip: clipboard.WriteAll}
}

func (p *Projection) entry() (vault.Credential, bool) {
	idx := p.model.Selection()
	if idx == -1 {
		return vault.Credential{}, false
	}
	return p.model.At(idx)
}

// Name is the selected entry's display label, empty when nothing is
// selected.
func (p *Projection) Name() string {
	idx := p.model.Selection()
	if idx == -1 {
		return ""
	}
	return p.model.DisplayString(idx)
}

// Issuer is the selected entry's issuer.
func (p *Projection) Issuer() string {
	c, ok := p.entry()
	if !ok {
		return ""
	}
	return c.Issuer
}

// CurrentCode is the code for the current time window, empty when nothing
// is selected.
func (p *Projection) CurrentCode() string {
	c, ok := p.entry()
	if !ok {
		return ""
	}
	return otp.Code(c.Secret, p.now(), c.Period, c.Digits, c.Algorithm)
}

// TimeLeft is the seconds remaining in the current window, 0 when nothing
// is selected.
func (p *Projection) TimeLeft() int {
	c, ok := p.entry()
	if !ok {
		return 0
	}
	return otp.TimeRemaining(p.now(), c.Period)
}

// TimeInterval is the selected entry's period, so a countdown display can
// scale per entry. 0 when nothing is selected.
func (p *Projection) TimeInterval() int {
	c, ok := p.entry()
	if !ok {
		return 0
	}
	return c.Period
}

// Copy pushes the current code to the clipboard. A no-op when nothing is
// selected.
func (p *Projection) Copy() error {
	code := p.CurrentCode()
	if code == "" {
		return nil
	}
	return p.clip(code)
}
