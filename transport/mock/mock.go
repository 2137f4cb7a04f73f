// Package mock implements Component G, a hardware-free stand-in for the
// PN532 controller with the same contract as transport/i2c, grounded on
// the teacher's BlockingMockTransport. It is used as the bridge's runtime
// transport when USE_MOCK_PN532 is set and by this package's own tests; the
// session package's tests use their own Controller test double instead.
package mock

import (
	"math/rand"
	"sync"
	"time"

	"github.com/kiosk-nfc/nfc-bridge-core/internal/frame"
	pn532 "github.com/kiosk-nfc/nfc-bridge-core/pn532"
)

// initDelay is the fixed settle time InitAsTarget simulates, per spec §4.G
// ("init_as_target resolves after ~1s").
const initDelay = 1 * time.Second

// tagDelayMin and tagDelayMax bound the uniform random delay WaitForTag
// simulates before resolving true, per spec §4.G.
const (
	tagDelayMin = 3 * time.Second
	tagDelayMax = 7 * time.Second
)

// Transport is the hardware-free mock controller.
type Transport struct {
	mu               sync.Mutex
	connected        bool
	firmwareResponse []byte
	forceSyntaxError bool
	forceAckErr      error
	forceAwaitErr    error
	rng              *rand.Rand
}

// New returns a ready-to-use mock transport reporting a plausible firmware
// version.
func New() *Transport {
	return &Transport{
		connected:        true,
		firmwareResponse: []byte{0x32, 0x01, 0x06, 0x07},
		rng:              rand.New(rand.NewSource(1)), //nolint:gosec // test fixture, not security-sensitive
	}
}

// InjectSyntaxError makes the next AwaitFrame call (and hence the next
// WaitForTag) return a syntax-error frame instead of resolving normally —
// spec scenario 7's fault injection.
func (t *Transport) InjectSyntaxError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.forceSyntaxError = true
}

// InjectAckFailure makes the next SendFrameAckOnly call fail, simulating a
// missing ACK.
func (t *Transport) InjectAckFailure(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.forceAckErr = err
}

// SendCommand answers GetFirmwareVersion and SAMConfiguration immediately;
// any other command is treated as an ordinary ACK-only exchange with an
// empty reply.
func (t *Transport) SendCommand(cmd byte, _ []byte) ([]byte, error) {
	t.mu.Lock()
	fw := t.firmwareResponse
	t.mu.Unlock()

	switch cmd {
	case 0x02: // GetFirmwareVersion
		return append([]byte(nil), fw...), nil
	default:
		return nil, nil
	}
}

// SendFrameAckOnly simulates TgInitAsTarget's ACK-then-settle behavior:
// after initDelay, the registration is considered acknowledged.
func (t *Transport) SendFrameAckOnly(byte, []byte) error {
	t.mu.Lock()
	ackErr := t.forceAckErr
	t.forceAckErr = nil
	t.mu.Unlock()
	if ackErr != nil {
		return ackErr
	}

	time.Sleep(initDelay)
	return nil
}

// AwaitFrame simulates the delayed activation response: a uniform random
// delay in [tagDelayMin, tagDelayMax], clamped to timeout-500ms so the
// caller's own timeout budget is always respected, per spec §4.G.
func (t *Transport) AwaitFrame(timeout time.Duration) (*frame.Frame, error) {
	t.mu.Lock()
	syntaxErr := t.forceSyntaxError
	t.forceSyntaxError = false
	awaitErr := t.forceAwaitErr
	t.mu.Unlock()
	if awaitErr != nil {
		return nil, awaitErr
	}

	delay := tagDelayMin + time.Duration(t.rng.Int63n(int64(tagDelayMax-tagDelayMin)))
	if cap := timeout - 500*time.Millisecond; delay > cap {
		delay = cap
	}
	if delay < 0 {
		delay = 0
	}
	time.Sleep(delay)

	if syntaxErr {
		return &frame.Frame{Kind: frame.KindSyntaxError, Payload: []byte{0x7F}}, nil
	}
	return &frame.Frame{Kind: frame.KindResponse, Payload: []byte{0x00}}, nil
}

// Close is a no-op, mirroring transport/i2c's Close: periph.io leaves the
// bus handle open for the process lifetime, so there is nothing to release,
// and Device.Reinitialize (device.go) calls Close then re-runs InitContext
// expecting the transport to be immediately usable again. A mock that
// latched a permanent "closed" error here would recover real hardware after
// a failed session but never recover itself, breaking the reinitialize
// contract spec §7 relies on.
func (*Transport) Close() error {
	return nil
}

// SetTimeout is a no-op; the mock's own delays are configured directly.
func (*Transport) SetTimeout(time.Duration) error { return nil }

// IsConnected always reports true once constructed, matching
// transport/i2c's IsConnected (true once the bus handle is set, and Close
// never clears it).
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Type reports TransportMock.
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportMock
}

// HasCapability reports CapabilityAckOnlyDetection: the mock's
// SendFrameAckOnly already fully simulates registration, so AckOnlyStrategy
// is the natural fit for it.
func (*Transport) HasCapability(capability pn532.TransportCapability) bool {
	return capability == pn532.CapabilityAckOnlyDetection
}

var (
	_ pn532.Transport                  = (*Transport)(nil)
	_ pn532.TargetAckSender            = (*Transport)(nil)
	_ pn532.TargetFrameWaiter          = (*Transport)(nil)
	_ pn532.TransportCapabilityChecker = (*Transport)(nil)
)
