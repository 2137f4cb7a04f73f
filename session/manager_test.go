package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	defer goleak.VerifyTestMain(m)
	m.Run()
}

// fakeController is a hand-rolled Controller test double: fast, deterministic,
// and independently able to simulate every branch processSession takes.
type fakeController struct {
	mu               sync.Mutex
	initResult       bool
	initErr          error
	waitResult       bool
	waitErr          error
	reinitializeErr  error
	reinitializeCall int
	initDelay        time.Duration
	waitDelay        time.Duration
}

func newFakeController() *fakeController {
	return &fakeController{initResult: true, waitResult: true}
}

func (f *fakeController) InitAsTarget(ctx context.Context, _ []byte) (bool, error) {
	if f.initDelay > 0 {
		select {
		case <-time.After(f.initDelay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initResult, f.initErr
}

func (f *fakeController) WaitForTag(ctx context.Context, _ time.Duration) (bool, error) {
	if f.waitDelay > 0 {
		select {
		case <-time.After(f.waitDelay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waitResult, f.waitErr
}

func (f *fakeController) Reinitialize(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reinitializeCall++
	return f.reinitializeErr
}

func (f *fakeController) reinitializeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reinitializeCall
}

func testConfig() Config {
	return Config{
		SessionTimeout:      2 * time.Second,
		TaggingTimeout:      200 * time.Millisecond,
		ReaperInterval:      30 * time.Millisecond,
		ReinitializeTimeout: time.Second,
		DefaultReceiptURL:   "https://example.com/default",
	}
}

func awaitStatus(t *testing.T, mgr *Manager, id string, want Status, within time.Duration) *Session {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		sess, ok := mgr.GetSession(id)
		require.True(t, ok, "session %s disappeared", id)
		if sess.Status == want {
			return sess
		}
		time.Sleep(2 * time.Millisecond)
	}
	sess, _ := mgr.GetSession(id)
	t.Fatalf("session %s did not reach status %s within %s (last status %s)", id, want, within, sess.Status)
	return nil
}

func TestManager_HappyPath(t *testing.T) {
	t.Parallel()
	ctrl := newFakeController()
	mgr := NewManager(ctrl, testConfig())
	defer mgr.Shutdown()

	sess, err := mgr.CreateSession("order-1", "https://example.com/r/abc")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, sess.Status)

	completed := awaitStatus(t, mgr, sess.ID, StatusCompleted, 2*time.Second)
	assert.NotNil(t, completed.CompletedAt)
	assert.Empty(t, completed.Error)

	stats := mgr.Stats()
	assert.Equal(t, 1, stats.Completed)
}

func TestManager_TaggingTimeout(t *testing.T) {
	t.Parallel()
	ctrl := newFakeController()
	ctrl.waitResult = false
	mgr := NewManager(ctrl, testConfig())
	defer mgr.Shutdown()

	sess, err := mgr.CreateSession("order-2", "https://example.com/r/xyz")
	require.NoError(t, err)

	expired := awaitStatus(t, mgr, sess.ID, StatusExpired, 2*time.Second)
	assert.Equal(t, "Tagging timeout", expired.Error)
	assert.Zero(t, ctrl.reinitializeCount(), "controller must not reinitialize after a tagging timeout")
}

func TestManager_SyntaxErrorRecovery(t *testing.T) {
	t.Parallel()
	ctrl := newFakeController()
	ctrl.waitErr = errors.New("simulated syntax error")
	mgr := NewManager(ctrl, testConfig())
	defer mgr.Shutdown()

	failed := mustCreate(t, mgr, "order-3", "https://example.com/r/fail")
	sess := awaitStatus(t, mgr, failed.ID, StatusFailed, 2*time.Second)
	assert.NotEmpty(t, sess.Error)

	deadline := time.Now().Add(time.Second)
	for ctrl.reinitializeCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	assert.Equal(t, 1, ctrl.reinitializeCount())

	// A session created afterward proceeds normally on the now-healthy
	// controller.
	ctrl.mu.Lock()
	ctrl.waitErr = nil
	ctrl.mu.Unlock()

	next := mustCreate(t, mgr, "order-4", "https://example.com/r/ok")
	completed := awaitStatus(t, mgr, next.ID, StatusCompleted, 2*time.Second)
	assert.Empty(t, completed.Error)
}

func TestManager_InitFailureReinitializes(t *testing.T) {
	t.Parallel()
	ctrl := newFakeController()
	ctrl.initResult = false
	mgr := NewManager(ctrl, testConfig())
	defer mgr.Shutdown()

	sess := mustCreate(t, mgr, "order-5", "https://example.com/r/init-fail")
	failed := awaitStatus(t, mgr, sess.ID, StatusFailed, 2*time.Second)
	assert.NotEmpty(t, failed.Error)
	assert.Equal(t, 1, ctrl.reinitializeCount())
}

func TestManager_UrlTooLong(t *testing.T) {
	t.Parallel()
	ctrl := newFakeController()
	mgr := NewManager(ctrl, testConfig())
	defer mgr.Shutdown()

	longURL := "https://example.com/" + string(make([]byte, 280))
	sess := mustCreate(t, mgr, "order-6", longURL)

	failed := awaitStatus(t, mgr, sess.ID, StatusFailed, time.Second)
	assert.NotEmpty(t, failed.Error)
	assert.Zero(t, ctrl.reinitializeCount(), "a too-long URL must fail before any controller call")
}

// TestManager_QueueIsFIFO verifies two concurrent sessions are processed in
// creation order and never both occupy {ready, tagging} simultaneously.
func TestManager_QueueIsFIFO(t *testing.T) {
	t.Parallel()
	ctrl := newFakeController()
	ctrl.initDelay = 40 * time.Millisecond
	ctrl.waitDelay = 40 * time.Millisecond
	mgr := NewManager(ctrl, testConfig())
	defer mgr.Shutdown()

	a := mustCreate(t, mgr, "order-A", "https://example.com/r/a")
	b := mustCreate(t, mgr, "order-B", "https://example.com/r/b")

	// B must remain pending until A reaches a terminal state.
	time.Sleep(10 * time.Millisecond)
	bSess, ok := mgr.GetSession(b.ID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, bSess.Status)

	aFinal := awaitStatus(t, mgr, a.ID, StatusCompleted, 2*time.Second)
	assert.NotNil(t, aFinal.CompletedAt)

	bFinal := awaitStatus(t, mgr, b.ID, StatusCompleted, 2*time.Second)
	assert.NotNil(t, bFinal.CompletedAt)
	assert.True(t, bFinal.CompletedAt.After(*aFinal.CompletedAt) || bFinal.CompletedAt.Equal(*aFinal.CompletedAt))
}

func TestManager_ReaperRemovesExpiredTerminalSession(t *testing.T) {
	t.Parallel()
	ctrl := newFakeController()
	cfg := testConfig()
	cfg.SessionTimeout = 30 * time.Millisecond
	cfg.ReaperInterval = 10 * time.Millisecond
	mgr := NewManager(ctrl, cfg)
	defer mgr.Shutdown()

	sess := mustCreate(t, mgr, "order-7", "https://example.com/r/reap")
	awaitStatus(t, mgr, sess.ID, StatusCompleted, time.Second)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := mgr.GetSession(sess.ID); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("reaper did not remove the terminal, expired session in time")
}

func TestManager_CreateSessionAfterShutdown(t *testing.T) {
	t.Parallel()
	ctrl := newFakeController()
	mgr := NewManager(ctrl, testConfig())
	mgr.Shutdown()

	_, err := mgr.CreateSession("order-8", "https://example.com/r/late")
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestManager_DefaultReceiptURL(t *testing.T) {
	t.Parallel()
	ctrl := newFakeController()
	cfg := testConfig()
	cfg.DefaultReceiptURL = "https://abc.com"
	mgr := NewManager(ctrl, cfg)
	defer mgr.Shutdown()

	sess, err := mgr.CreateSession("order-9", "")
	require.NoError(t, err)
	assert.Equal(t, "https://abc.com", sess.ReceiptURL)
}

type fakeNotifier struct {
	mu       sync.Mutex
	err      error
	orderIDs []string
}

func (n *fakeNotifier) PostScanComplete(_ context.Context, orderID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orderIDs = append(n.orderIDs, orderID)
	return n.err
}

func (n *fakeNotifier) calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.orderIDs...)
}

func TestManager_NotifiesOnCompletion(t *testing.T) {
	t.Parallel()
	ctrl := newFakeController()
	notifier := &fakeNotifier{}
	mgr := NewManager(ctrl, testConfig(), WithNotifier(notifier))
	defer mgr.Shutdown()

	sess := mustCreate(t, mgr, "order-10", "https://example.com/r/notify")
	awaitStatus(t, mgr, sess.ID, StatusCompleted, 2*time.Second)

	deadline := time.Now().Add(time.Second)
	for len(notifier.calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	assert.Equal(t, []string{"order-10"}, notifier.calls())
}

func TestManager_NoNotifierIsOptional(t *testing.T) {
	t.Parallel()
	ctrl := newFakeController()
	mgr := NewManager(ctrl, testConfig())
	defer mgr.Shutdown()

	sess := mustCreate(t, mgr, "order-11", "https://example.com/r/no-notify")
	completed := awaitStatus(t, mgr, sess.ID, StatusCompleted, 2*time.Second)
	assert.Empty(t, completed.Error)
}

func TestManager_NotifierFailureDoesNotChangeStatus(t *testing.T) {
	t.Parallel()
	ctrl := newFakeController()
	notifier := &fakeNotifier{err: errors.New("redirect api unreachable")}
	mgr := NewManager(ctrl, testConfig(), WithNotifier(notifier))
	defer mgr.Shutdown()

	sess := mustCreate(t, mgr, "order-12", "https://example.com/r/notify-fail")
	completed := awaitStatus(t, mgr, sess.ID, StatusCompleted, 2*time.Second)
	assert.Empty(t, completed.Error)
}

func mustCreate(t *testing.T, mgr *Manager, orderID, url string) *Session {
	t.Helper()
	sess, err := mgr.CreateSession(orderID, url)
	require.NoError(t, err)
	return sess
}
