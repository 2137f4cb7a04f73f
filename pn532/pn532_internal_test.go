package pn532

import (
	"time"

	"github.com/kiosk-nfc/nfc-bridge-core/internal/frame"
)

// fakeTransport is a minimal in-package Transport used by device_test.go
// and target_test.go. transport/mock provides the fuller, spec-accurate
// Component G used by the session package; this one exists only to drive
// Device's own unit tests without importing a package that itself imports
// pn532 (which would cycle).
type fakeTransport struct {
	responses      map[byte][]byte
	sendErr        error
	ackErr         error
	awaitFrame     *frame.Frame
	awaitErr       error
	connected      bool
	closeCalled    bool
	sentCommands   []byte
	sentAckOnlyCmd []byte
	lastTimeout    time.Duration
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		responses: map[byte][]byte{
			cmdGetFirmwareVersion: {0x32, 0x01, 0x06, 0x07},
			cmdSamConfiguration:   {},
		},
		connected: true,
	}
}

func (f *fakeTransport) SendCommand(cmd byte, _ []byte) ([]byte, error) {
	f.sentCommands = append(f.sentCommands, cmd)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return f.responses[cmd], nil
}

func (f *fakeTransport) SendFrameAckOnly(cmd byte, _ []byte) error {
	f.sentAckOnlyCmd = append(f.sentAckOnlyCmd, cmd)
	return f.ackErr
}

func (f *fakeTransport) AwaitFrame(time.Duration) (*frame.Frame, error) {
	return f.awaitFrame, f.awaitErr
}

func (f *fakeTransport) Close() error {
	f.closeCalled = true
	f.connected = false
	return nil
}

func (f *fakeTransport) SetTimeout(timeout time.Duration) error {
	f.lastTimeout = timeout
	return nil
}

func (f *fakeTransport) IsConnected() bool { return f.connected }

func (f *fakeTransport) Type() TransportType { return TransportMock }
