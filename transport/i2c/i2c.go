// Package i2c implements the PN532 transport (spec's Component A) over an
// I2C bus using periph.io.
package i2c

import (
	"bytes"
	"context"
	"fmt"
	"time"

	pn532 "github.com/kiosk-nfc/nfc-bridge-core/pn532"

	"github.com/kiosk-nfc/nfc-bridge-core/internal/frame"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	pn532WriteAddr = 0x24

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	// ackTimeout is the fixed budget for observing a command's ACK,
	// per spec §4.C's pre-command hygiene ("await ACK within 100 ms").
	ackTimeout = 100 * time.Millisecond

	// flushReads is the number of discard reads performed before every
	// command while the controller reports ready.
	flushReads = 3

	// preCommandSettle is the minimum wait after flushing, per spec §4.C.
	preCommandSettle = 50 * time.Millisecond

	// readChunkSize bounds a single raw I2C read used while polling for an
	// unsolicited response frame (AwaitFrame).
	readChunkSize = 64

	// pollCadence is the maximum delay between ready polls in AwaitFrame,
	// per spec §4.C's wait_for_tag ("≤ 500 ms between polls").
	pollCadence = 200 * time.Millisecond
)

// Transport implements pn532.Transport, pn532.TargetAckSender, and
// pn532.TargetFrameWaiter over an I2C bus.
type Transport struct {
	dev     *i2c.Dev
	busName string
	timeout time.Duration
	framer  *frame.Framer
}

// New opens busName and returns a Transport bound to the PN532's default
// 7-bit address (0x24).
func New(busName string) (*Transport, error) {
	return NewWithAddress(busName, pn532WriteAddr)
}

// NewWithAddress opens busName and returns a Transport bound to a
// caller-supplied 7-bit I2C address, per spec §6's I2C_ADDRESS option.
func NewWithAddress(busName string, addr uint16) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	dev := &i2c.Dev{Addr: addr, Bus: bus}
	_ = bus.SetSpeed(maxClockFreq) // best effort; continue at bus default on failure

	return &Transport{
		dev:     dev,
		busName: busName,
		timeout: 3 * time.Second,
		framer:  frame.NewFramer(),
	}, nil
}

// SendCommand sends cmd/args and returns the response data after the
// response code (cmd+1), per spec §4.C's ordinary command round trip (used
// by GetFirmwareVersion and SAMConfiguration, whose responses always arrive
// promptly).
func (t *Transport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	if err := t.SendFrameAckOnly(cmd, args); err != nil {
		return nil, err
	}
	resp, err := t.receiveFrame()
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 || resp[0] != cmd+1 {
		return nil, pn532.NewFrameCorruptedError("SendCommand", t.busName)
	}
	return resp[1:], nil
}

// SendCommandWithContext is SendCommand with an early cancellation check.
func (t *Transport) SendCommandWithContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return t.SendCommand(cmd, args)
}

// SendFrameAckOnly sends cmd/args and returns once its ACK is observed,
// without waiting for a response frame. This is what TgInitAsTarget uses:
// its response may only arrive once an external reader activates the
// target, arbitrarily later than any sane command timeout.
func (t *Transport) SendFrameAckOnly(cmd byte, args []byte) error {
	t.preCommandHygiene()

	if err := t.sendFrame(cmd, args); err != nil {
		return err
	}
	return t.waitAck()
}

// AwaitFrame polls the bus for an unsolicited response or syntax-error
// frame — the delayed TgInitAsTarget confirmation, or a subsequent
// tag-presence signal — for up to timeout. It returns (nil, nil) if
// nothing arrives in time.
func (t *Transport) AwaitFrame(timeout time.Duration) (*frame.Frame, error) {
	deadline := time.Now().Add(timeout)
	chunk := frame.GetSmallBuffer(readChunkSize)
	defer frame.PutBuffer(chunk)

	for time.Now().Before(deadline) {
		if err := t.checkReady(); err != nil {
			time.Sleep(pollCadence)
			continue
		}
		if err := t.dev.Tx(nil, chunk); err != nil {
			return nil, pn532.NewTransportError("AwaitFrame", t.busName, err, pn532.ErrorTypeTransient)
		}
		t.framer.Feed(chunk)

		t.framer.TryExtractAck() // discard any bare ACK mixed into the stream
		if f, ok := t.framer.TryExtractFrame(); ok {
			return f, nil
		}
	}
	return nil, nil
}

// SetTimeout sets the read timeout for the transport.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.timeout = timeout
	return nil
}

// Close releases the underlying bus. periph.io handles the OS handle
// itself; there is nothing further to release here.
func (*Transport) Close() error {
	return nil
}

// IsConnected reports whether the device handle was ever established.
func (t *Transport) IsConnected() bool {
	return t.dev != nil
}

// Type reports TransportI2C.
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportI2C
}

// preCommandHygiene clears any stale bytes left over from a previous
// exchange before issuing a new command, per spec §4.C: up to three
// discard reads while the controller reports ready, then a settle wait.
func (t *Transport) preCommandHygiene() {
	t.framer.Reset()
	discard := frame.GetSmallBuffer(1)
	defer frame.PutBuffer(discard)

	for i := 0; i < flushReads && t.checkReady() == nil; i++ {
		_ = t.dev.Tx(nil, discard)
	}
	time.Sleep(preCommandSettle)
}

// checkReady reads the single ready-status byte; bit 0 set means ready.
func (t *Transport) checkReady() error {
	ready := frame.GetSmallBuffer(1)
	defer frame.PutBuffer(ready)

	if err := t.dev.Tx(nil, ready); err != nil {
		return fmt.Errorf("I2C ready check failed: %w", err)
	}
	if ready[0]&0x01 == 0 {
		return pn532.NewTransportError("checkReady", t.busName, pn532.ErrCommunicationFailed, pn532.ErrorTypeTransient)
	}
	return nil
}

// sendFrame builds an information frame for cmd/args and writes it to the
// bus in one transaction.
func (t *Transport) sendFrame(cmd byte, args []byte) error {
	if len(args)+1 > 255 {
		return pn532.NewDataTooLargeError("sendFrame", t.busName)
	}
	payload := make([]byte, 0, 1+len(args))
	payload = append(payload, cmd)
	payload = append(payload, args...)

	frm := frame.BuildInformationFrame(payload)
	defer frame.PutBuffer(frm)

	if err := t.dev.Tx(frm, nil); err != nil {
		return fmt.Errorf("failed to send I2C frame: %w", err)
	}
	return nil
}

// waitAck polls for the fixed six-byte ACK literal within ackTimeout.
func (t *Transport) waitAck() error {
	deadline := time.Now().Add(ackTimeout)
	ackBuf := frame.GetSmallBuffer(len(frame.AckFrame))
	defer frame.PutBuffer(ackBuf)

	for time.Now().Before(deadline) {
		if err := t.checkReady(); err != nil {
			time.Sleep(time.Millisecond)
			continue
		}
		if err := t.dev.Tx(nil, ackBuf); err != nil {
			return fmt.Errorf("I2C ACK read failed: %w", err)
		}
		if bytes.Equal(ackBuf, frame.AckFrame) {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	return pn532.NewTransportError("waitAck", t.busName, pn532.ErrNoACK, pn532.ErrorTypeTransient)
}

// receiveFrame reads the immediate response to the last command. Checksum
// and TFI violations are resynced silently by the Framer; a NACK is only
// warranted for a genuinely undecodable stream, which the deadline above
// converts into a plain timeout.
func (t *Transport) receiveFrame() ([]byte, error) {
	deadline := time.Now().Add(t.timeout)
	t.framer.Reset()
	chunk := frame.GetSmallBuffer(readChunkSize)
	defer frame.PutBuffer(chunk)

	for time.Now().Before(deadline) {
		if err := t.checkReady(); err != nil {
			time.Sleep(time.Millisecond)
			continue
		}
		if err := t.dev.Tx(nil, chunk); err != nil {
			return nil, fmt.Errorf("I2C frame data read failed: %w", err)
		}
		t.framer.Feed(chunk)

		f, ok := t.framer.TryExtractFrame()
		if !ok {
			continue
		}
		switch f.Kind {
		case frame.KindResponse:
			return f.Payload, nil
		case frame.KindSyntaxError:
			return nil, pn532.ErrSyntaxError
		}
	}

	return nil, pn532.NewTimeoutError("receiveFrame", t.busName)
}

var (
	_ pn532.Transport         = (*Transport)(nil)
	_ pn532.TargetAckSender   = (*Transport)(nil)
	_ pn532.TargetFrameWaiter = (*Transport)(nil)
)
