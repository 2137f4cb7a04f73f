package pn532

import (
	"context"
	"fmt"
	"time"

	"github.com/kiosk-nfc/nfc-bridge-core/internal/frame"
)

// Transport defines the interface for communication with a PN532 device.
// Implemented by the I2C backend and by the hardware-free mock controller.
type Transport interface {
	// SendCommand sends a command frame and waits for the response,
	// returning the response data with the leading TFI byte and the
	// response code (cmd+1) stripped.
	SendCommand(cmd byte, args []byte) ([]byte, error)
	// Close closes the underlying connection.
	Close() error
	// SetTimeout sets the read timeout used while waiting for ACKs and
	// responses.
	SetTimeout(timeout time.Duration) error
	// IsConnected reports whether the transport believes it is connected.
	IsConnected() bool
	// Type reports the transport's kind.
	Type() TransportType
}

// TransportType identifies a Transport implementation.
type TransportType string

const (
	// TransportI2C is the real periph.io-backed I2C bus transport.
	TransportI2C TransportType = "i2c"
	// TransportMock is the hardware-free mock controller.
	TransportMock TransportType = "mock"
)

// TransportCapability names a behavior a Transport implementation may or
// may not support.
type TransportCapability string

const (
	// CapabilityAckOnlyDetection indicates the transport's TgInitAsTarget
	// can be treated as successful once the ACK is observed, without
	// waiting for the delayed response frame.
	CapabilityAckOnlyDetection TransportCapability = "ack_only_detection"
)

// TransportCapabilityChecker lets a Device query optional Transport
// behaviors without a type switch.
type TransportCapabilityChecker interface {
	HasCapability(capability TransportCapability) bool
}

// TransportWithRetry wraps a Transport, retrying SendCommand according to a
// RetryConfig. This is what MAX_RETRIES / the session manager's controller
// retry budget (spec §7) is built on.
type TransportWithRetry struct {
	transport Transport
	config    *RetryConfig
}

// NewTransportWithRetry wraps transport with retry logic. A nil config uses
// DefaultRetryConfig.
func NewTransportWithRetry(transport Transport, config *RetryConfig) *TransportWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &TransportWithRetry{transport: transport, config: config}
}

// SendCommand sends cmd/args, retrying per the wrapped RetryConfig.
func (t *TransportWithRetry) SendCommand(cmd byte, args []byte) ([]byte, error) {
	var result []byte
	err := RetryWithConfig(context.Background(), t.config, func() error {
		var sendErr error
		result, sendErr = t.transport.SendCommand(cmd, args)
		if sendErr != nil {
			return &TransportError{
				Op:        "SendCommand",
				Err:       sendErr,
				Type:      GetErrorType(sendErr),
				Retryable: IsRetryable(sendErr),
			}
		}
		return nil
	})
	return result, err
}

func (t *TransportWithRetry) Close() error {
	if err := t.transport.Close(); err != nil {
		return fmt.Errorf("failed to close underlying transport: %w", err)
	}
	return nil
}

func (t *TransportWithRetry) SetTimeout(timeout time.Duration) error {
	if err := t.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on underlying transport: %w", err)
	}
	return nil
}

func (t *TransportWithRetry) IsConnected() bool {
	return t.transport.IsConnected()
}

func (t *TransportWithRetry) Type() TransportType {
	return t.transport.Type()
}

// HasCapability forwards to the wrapped transport when it implements
// TransportCapabilityChecker.
func (t *TransportWithRetry) HasCapability(capability TransportCapability) bool {
	if checker, ok := t.transport.(TransportCapabilityChecker); ok {
		return checker.HasCapability(capability)
	}
	return false
}

// SetRetryConfig replaces the wrapper's retry configuration.
func (t *TransportWithRetry) SetRetryConfig(config *RetryConfig) {
	t.config = config
}

// SendFrameAckOnly forwards to the wrapped transport's TargetAckSender,
// retrying per the wrapper's RetryConfig, the same AckTimeout retry budget
// SendCommand applies to the initiator-mode command path (spec §7). Missing
// this forward left every real (I2C) target-mode session failing the
// InitAsTarget type assertion the moment cmd/bridge wrapped its transport in
// retry logic.
func (t *TransportWithRetry) SendFrameAckOnly(cmd byte, args []byte) error {
	sender, ok := t.transport.(TargetAckSender)
	if !ok {
		return ErrNotInitialized
	}
	return RetryWithConfig(context.Background(), t.config, func() error {
		sendErr := sender.SendFrameAckOnly(cmd, args)
		if sendErr != nil {
			return &TransportError{
				Op:        "SendFrameAckOnly",
				Err:       sendErr,
				Type:      GetErrorType(sendErr),
				Retryable: IsRetryable(sendErr),
			}
		}
		return nil
	})
}

// AwaitFrame forwards to the wrapped transport's TargetFrameWaiter. Unlike
// SendFrameAckOnly this is not retried: it is itself a wait with its own
// caller-supplied timeout (WaitForTag's tagging window), and retrying it
// would silently multiply that timeout.
func (t *TransportWithRetry) AwaitFrame(timeout time.Duration) (*frame.Frame, error) {
	waiter, ok := t.transport.(TargetFrameWaiter)
	if !ok {
		return nil, ErrNotInitialized
	}
	return waiter.AwaitFrame(timeout)
}
