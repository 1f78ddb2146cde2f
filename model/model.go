// Package model owns the in-memory credential list and its lock/unlock
// state machine. It is the surface the presentation layer binds to: unlock
// runs in the background (key derivation is deliberately slow), mutations
// are serialized onto a single vault writer, and failures surface as the
// flags and sentinel values the UI polls rather than as panics.
package model

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"otpvault/otp"
	"otpvault/vault"
)

// State is the lock state machine. FirstRun means no vault file exists yet;
// the first unlock creates one under the chosen password.
type State int

const (
	FirstRun State = iota
	Locked
	Unlocked
)

var ErrUnlockPending = errors.New("model: an unlock attempt is already in flight")

type persistReq struct {
	entries   []vault.Credential
	key, salt []byte
	params    vault.Params
	done      chan struct{}
}

// Model is the credential model plus its selection state. All methods are
// safe for the single interactive caller with the background unlock and
// persist goroutines running alongside.
type Model struct {
	store  *vault.Store
	params vault.Params
	log    *zap.Logger

	mu           sync.Mutex
	state        State
	failedToLoad bool
	entries      []vault.Credential
	selected     int
	unlocking    bool
	closed       bool
	key          []byte
	salt         []byte

	persistCh      chan persistReq
	persistDone    chan struct{}
	senders        sync.WaitGroup
	closeOnce      sync.Once
	lastPersistErr error
}

// New builds a model over the given store. The logger may be nil.
func New(store *vault.Store, params vault.Params, log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Model{
		store:       store,
		params:      params,
		log:         log,
		selected:    -1,
		persistCh:   make(chan persistReq, 8),
		persistDone: make(chan struct{}),
	}
	if store.Exists() {
		m.state = Locked
	}
	go m.persistLoop()
	return m
}

// Close stops the persist writer after draining queued work. Safe to call
// more than once; mutations after Close are rejected rather than queued.
func (m *Model) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		m.senders.Wait()
		close(m.persistCh)
	})
	<-m.persistDone
}

// persistLoop is the single writer for the vault file. Serializing all
// persistence through one goroutine keeps writes ordered and the atomic
// replace meaningful.
func (m *Model) persistLoop() {
	defer close(m.persistDone)
	for req := range m.persistCh {
		err := m.store.Persist(req.entries, req.key, req.salt, req.params)
		m.mu.Lock()
		m.lastPersistErr = err
		m.mu.Unlock()
		if err != nil {
			m.log.Error("vault persist failed", zap.Error(err))
		}
		if req.done != nil {
			close(req.done)
		}
	}
}

// snapshotReq captures entries and key material for the writer goroutine.
// Callers hold m.mu and must send the request via enqueue after releasing
// it, so a full queue never blocks a mutation that holds the lock.
func (m *Model) snapshotReq(done chan struct{}) persistReq {
	snapshot := make([]vault.Credential, len(m.entries))
	copy(snapshot, m.entries)
	return persistReq{entries: snapshot, key: m.key, salt: m.salt, params: m.params, done: done}
}

// enqueue hands a request to the writer goroutine. The sender is counted
// under the mutex so Close can wait for in-flight sends before closing the
// channel; after Close the request is dropped and false returned.
func (m *Model) enqueue(req persistReq) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.senders.Add(1)
	m.mu.Unlock()

	m.persistCh <- req
	m.senders.Done()
	return true
}

// Flush blocks until all persistence queued so far has hit the disk and
// returns the outcome of the last write.
func (m *Model) Flush() error {
	done := make(chan struct{})
	m.mu.Lock()
	if m.state != Unlocked || m.closed {
		m.mu.Unlock()
		return nil
	}
	req := m.snapshotReq(done)
	m.mu.Unlock()
	if !m.enqueue(req) {
		return nil
	}
	<-done

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPersistErr
}

// Unlock attempts to open the vault with the given password, or to create
// it on first run. The expensive key derivation runs on a background
// goroutine; the result arrives on the returned channel. Only one attempt
// may be in flight: a concurrent call yields ErrUnlockPending. Unlocking an
// already unlocked model is a no-op.
func (m *Model) Unlock(password string) <-chan error {
	result := make(chan error, 1)

	m.mu.Lock()
	switch {
	case m.state == Unlocked:
		m.mu.Unlock()
		result <- nil
		return result
	case m.unlocking:
		m.mu.Unlock()
		result <- ErrUnlockPending
		return result
	}
	m.unlocking = true
	m.failedToLoad = false
	firstRun := m.state == FirstRun
	m.mu.Unlock()

	go func() {
		err := m.unlock([]byte(password), firstRun)

		m.mu.Lock()
		m.unlocking = false
		if err != nil {
			// failedToLoad describes a failed load of an existing vault;
			// on first run there is nothing to load, keeping the flag
			// mutually exclusive with FirstTime.
			if !firstRun {
				m.failedToLoad = true
			}
			m.log.Warn("unlock failed", zap.Error(err))
		}
		m.mu.Unlock()
		result <- err
	}()
	return result
}

func (m *Model) unlock(password []byte, firstRun bool) error {
	defer vault.Zero(password)

	if firstRun {
		salt, err := vault.NewSalt()
		if err != nil {
			return err
		}
		key, err := vault.DeriveKey(password, salt, m.params)
		if err != nil {
			return err
		}
		if err := m.store.Persist([]vault.Credential{}, key, salt, m.params); err != nil {
			return err
		}

		m.mu.Lock()
		m.key, m.salt = key, salt
		m.entries = []vault.Credential{}
		m.state = Unlocked
		m.mu.Unlock()
		m.log.Info("vault created", zap.String("path", m.store.Path()))
		return nil
	}

	f, err := m.store.Load()
	if err != nil {
		return err
	}
	key, err := vault.DeriveKey(password, f.Salt, f.Params)
	if err != nil {
		return err
	}
	entries, err := m.store.Decrypt(f, key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.key, m.salt = key, f.Salt
	m.params = f.Params
	m.entries = entries
	m.state = Unlocked
	m.mu.Unlock()
	m.log.Info("vault unlocked", zap.Int("entries", len(entries)))
	return nil
}

// Add decodes the secret text and appends a credential with the default
// SHA1 / 6 digits / 30 s parameters. It returns the new entry's index, or
// -1 when the model is locked or the secret is not valid Base32; -1 is a
// normal result for the UI's validation message, not a fault, and leaves
// both memory and disk untouched.
func (m *Model) Add(issuer, name, secretText string) int {
	secret, err := otp.DecodeSecret(secretText)
	if err != nil {
		return -1
	}

	m.mu.Lock()
	if m.state != Unlocked || m.closed {
		m.mu.Unlock()
		return -1
	}

	m.entries = append(m.entries, vault.Credential{
		ID:        uuid.New().String(),
		Issuer:    issuer,
		Name:      name,
		Secret:    secret,
		Algorithm: otp.SHA1,
		Digits:    otp.DefaultDigits,
		Period:    otp.DefaultPeriod,
	})
	index := len(m.entries) - 1
	req := m.snapshotReq(nil)
	m.mu.Unlock()

	m.enqueue(req)
	return index
}

// Remove deletes the entry at index and re-persists. Out-of-range indexes
// are ignored. Removing the selected entry, or any entry before it, keeps
// the selection pointing at a valid position or resets it to none.
func (m *Model) Remove(index int) bool {
	m.mu.Lock()
	if m.state != Unlocked || m.closed || index < 0 || index >= len(m.entries) {
		m.mu.Unlock()
		return false
	}

	m.entries = append(m.entries[:index], m.entries[index+1:]...)
	switch {
	case m.selected == index:
		m.selected = -1
	case m.selected > index:
		m.selected--
	}
	req := m.snapshotReq(nil)
	m.mu.Unlock()

	m.enqueue(req)
	return true
}

// Unlocked reports whether the entries are resident in memory.
func (m *Model) Unlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Unlocked
}

// FirstTime reports that no vault file existed when the model was built,
// so the next unlock will create one.
func (m *Model) FirstTime() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == FirstRun
}

// FailedToLoad reports whether the most recent unlock attempt failed.
func (m *Model) FailedToLoad() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failedToLoad
}

// LastPersistErr exposes the outcome of the most recent background write.
func (m *Model) LastPersistErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPersistErr
}

// Len returns the number of entries, zero while locked.
func (m *Model) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// At returns a copy of the entry at index.
func (m *Model) At(index int) (vault.Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		return vault.Credential{}, false
	}
	return m.entries[index], true
}

// DisplayString is the row label: "issuer for name" when both are set,
// otherwise whichever is present.
func (m *Model) DisplayString(index int) string {
	c, ok := m.At(index)
	if !ok {
		return ""
	}
	switch {
	case c.Issuer != "" && c.Name != "":
		return c.Issuer + " for " + c.Name
	case c.Issuer != "":
		return c.Issuer
	default:
		return c.Name
	}
}

// Selection returns the selected index, -1 for none.
func (m *Model) Selection() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// Select sets the selection. Anything outside [0, Len) is clamped to -1
// rather than faulting.
func (m *Model) Select(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		index = -1
	}
	m.selected = index
}
