package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiosk-nfc/nfc-bridge-core/internal/logging"
	"github.com/kiosk-nfc/nfc-bridge-core/ndef"
)

// Controller is the subset of pn532.Device the worker drives. Session never
// touches a Transport directly, keeping the "controller operations are
// serialized through one worker" invariant structural rather than
// mutex-enforced (spec §5).
type Controller interface {
	InitAsTarget(ctx context.Context, ndefMessage []byte) (bool, error)
	WaitForTag(ctx context.Context, timeout time.Duration) (bool, error)
	Reinitialize(ctx context.Context) error
}

// Notifier is the subset of redirect.Client the worker calls once a tap is
// detected, letting the cloud redirect API's "latest" row move to scanned
// without the bridge core serving any of that API itself (spec §6's Cloud
// redirect API is a collaborator, "consumed by it or by a parallel code
// path"). A nil Notifier (the default) disables this entirely.
type Notifier interface {
	PostScanComplete(ctx context.Context, orderID string) error
}

// ErrShutdown is returned by CreateSession once Shutdown has been called.
var ErrShutdown = errors.New("session: manager is shut down")

// Config bounds a Manager's timing behavior. Zero-value fields fall back to
// DefaultConfig's values via NewManager.
type Config struct {
	// SessionTimeout is the per-session lifetime bound, armed at creation.
	SessionTimeout time.Duration
	// TaggingTimeout bounds wait_for_tag once tagging begins.
	TaggingTimeout time.Duration
	// ReaperInterval is how often terminal, expired sessions are swept.
	ReaperInterval time.Duration
	// ReinitializeTimeout bounds a controller reinitialize() call between
	// sessions.
	ReinitializeTimeout time.Duration
	// DefaultReceiptURL replaces a caller-omitted receipt URL. Per spec
	// §9's design note, one legacy code path hardcodes this to a fixed
	// test/debug URL; here it is an explicit configuration knob instead
	// of normative behavior.
	DefaultReceiptURL string
}

// DefaultConfig returns the bridge's stock timing configuration.
func DefaultConfig() Config {
	return Config{
		SessionTimeout:      60 * time.Second,
		TaggingTimeout:      20 * time.Second,
		ReaperInterval:      5 * time.Second,
		ReinitializeTimeout: 5 * time.Second,
		DefaultReceiptURL:   "https://abc.com",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.TaggingTimeout <= 0 {
		c.TaggingTimeout = d.TaggingTimeout
	}
	if c.ReaperInterval <= 0 {
		c.ReaperInterval = d.ReaperInterval
	}
	if c.ReinitializeTimeout <= 0 {
		c.ReinitializeTimeout = d.ReinitializeTimeout
	}
	if c.DefaultReceiptURL == "" {
		c.DefaultReceiptURL = d.DefaultReceiptURL
	}
	return c
}

// Manager owns the session map, the FIFO queue, and the single worker
// goroutine that serializes every controller operation (spec §4.E, §5).
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	queue      []string
	controller Controller
	config     Config
	notifier   Notifier
	wake       chan struct{}
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     bool
}

// ManagerOption configures optional Manager collaborators.
type ManagerOption func(*Manager)

// WithNotifier wires a Notifier (typically a *redirect.Client) that the
// worker calls after a session completes.
func WithNotifier(n Notifier) ManagerOption {
	return func(m *Manager) { m.notifier = n }
}

// NewManager starts a Manager backed by controller, along with its worker
// and reaper goroutines. Call Shutdown to stop both cleanly.
func NewManager(controller Controller, config Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:   make(map[string]*Session),
		controller: controller,
		config:     config.withDefaults(),
		wake:       make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.wg.Add(2)
	go m.workerLoop()
	go m.reapLoop()
	return m
}

// CreateSession allocates a new session, enqueues it, and wakes the worker.
func (m *Manager) CreateSession(orderID, receiptURL string) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrShutdown
	}

	now := time.Now()
	if receiptURL == "" {
		receiptURL = m.config.DefaultReceiptURL
	}
	sess := &Session{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		ReceiptURL: receiptURL,
		Status:     StatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.config.SessionTimeout),
	}
	m.sessions[sess.ID] = sess
	m.queue = append(m.queue, sess.ID)
	snapshot := sess.clone()
	m.mu.Unlock()

	m.signalWork()
	return snapshot, nil
}

// GetSession returns a snapshot of the session with the given ID.
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.clone(), true
}

// ListSessions returns a snapshot of every live session.
func (m *Manager) ListSessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess.clone())
	}
	return out
}

// Stats summarizes the session population by status.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Stats
	for _, sess := range m.sessions {
		s.Total++
		switch sess.Status {
		case StatusPending:
			s.Pending++
		case StatusReady:
			s.Ready++
		case StatusTagging:
			s.Tagging++
		case StatusCompleted:
			s.Completed++
		case StatusExpired:
			s.Expired++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Shutdown stops the worker and reaper goroutines and clears all session
// state. No new sessions are accepted afterward. An in-flight wait_for_tag
// is allowed to run to its natural timeout before the worker exits, per
// spec §5's cancellation policy.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()

	m.mu.Lock()
	m.sessions = make(map[string]*Session)
	m.queue = nil
	m.mu.Unlock()
}

func (m *Manager) signalWork() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// popQueued removes and returns the head of the queue, or ok=false if the
// queue is empty or the manager has been shut down.
func (m *Manager) popQueued() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || len(m.queue) == 0 {
		return "", false
	}
	id := m.queue[0]
	m.queue = m.queue[1:]
	return id, true
}

// workerLoop is the single worker draining the queue (spec §4.E). Every
// controller operation for every session runs here, one at a time.
func (m *Manager) workerLoop() {
	defer m.wg.Done()
	for {
		id, ok := m.popQueued()
		if !ok {
			select {
			case <-m.stopCh:
				return
			case <-m.wake:
				continue
			}
		}
		select {
		case <-m.stopCh:
			return
		default:
		}
		m.processSession(id)
	}
}

// processSession runs the seven-step worker loop body for one session.
func (m *Manager) processSession(id string) {
	sess, ok := m.GetSession(id)
	if !ok {
		return
	}

	if time.Now().After(sess.ExpiresAt) {
		m.setStatus(id, StatusExpired, "")
		return
	}

	m.setStatus(id, StatusReady, "")

	ndefMessage, err := ndef.EncodeURI(sess.ReceiptURL)
	if err != nil {
		m.setStatus(id, StatusFailed, err.Error())
		return
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), m.config.TaggingTimeout)
	activated, err := m.controller.InitAsTarget(initCtx, ndefMessage)
	initCancel()
	if err != nil || !activated {
		m.failAndReinitialize(id, initFailureMessage(err))
		return
	}

	m.setStatus(id, StatusTagging, "")

	waitCtx, waitCancel := context.WithTimeout(context.Background(), m.config.TaggingTimeout)
	defer waitCancel()
	detected, err := m.controller.WaitForTag(waitCtx, m.config.TaggingTimeout)
	switch {
	case err != nil:
		m.failAndReinitialize(id, err.Error())
	case !detected:
		m.setStatus(id, StatusExpired, "Tagging timeout")
	default:
		m.markCompleted(id)
		m.notifyScanComplete(id, sess.OrderID)
	}
}

// notifyScanComplete tells the cloud redirect API's collaborator that this
// order's tag was scanned, if a Notifier was configured. A failure here
// does not change the session's own status: the tap already succeeded from
// the bridge's point of view, and the redirect API's "latest" row is best
// effort from here.
func (m *Manager) notifyScanComplete(id, orderID string) {
	if m.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.config.ReinitializeTimeout)
	defer cancel()
	if err := m.notifier.PostScanComplete(ctx, orderID); err != nil {
		logging.Warnf("session %s: notify scan complete failed: %v", id, err)
	}
}

func initFailureMessage(err error) string {
	if err != nil {
		return err.Error()
	}
	return "controller did not confirm target registration"
}

// failAndReinitialize marks the session failed and reinitializes the
// controller before the next session is processed, per spec §7.
func (m *Manager) failAndReinitialize(id, message string) {
	m.setStatus(id, StatusFailed, message)

	ctx, cancel := context.WithTimeout(context.Background(), m.config.ReinitializeTimeout)
	defer cancel()
	if err := m.controller.Reinitialize(ctx); err != nil {
		logging.Warnf("session %s: controller reinitialize failed: %v", id, err)
	}
}

func (m *Manager) setStatus(id string, status Status, errMessage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return
	}
	sess.Status = status
	sess.Error = errMessage
}

func (m *Manager) markCompleted(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return
	}
	now := time.Now()
	sess.Status = StatusCompleted
	sess.CompletedAt = &now
}

