// Package pn532 implements the controller-facing half of the NFC bridge:
// a Device that speaks the PN532's target/card-emulation command surface
// over a pluggable Transport, with retry and detection-strategy behavior
// generalized from github.com/ZaparooProject/go-pn532's initiator-mode
// Device.
package pn532

import (
	"context"
	"fmt"
	"time"
)

// FirmwareVersion is the reply payload of GetFirmwareVersion (cmd 0x02).
type FirmwareVersion struct {
	IC      byte
	Ver     byte
	Rev     byte
	Support byte
}

// DeviceConfig holds Device-level configuration independent of the
// transport in use.
type DeviceConfig struct {
	RetryConfig *RetryConfig
	Timeout     time.Duration
}

// DefaultDeviceConfig returns the default device configuration: a 3-second
// timeout (spec §4.C's initialization timeout) and the default retry
// budget.
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		RetryConfig: DefaultRetryConfig(),
		Timeout:     3 * time.Second,
	}
}

// Device represents a PN532 controller operated in target/card-emulation
// mode.
//
// Thread Safety: Device is NOT thread-safe, matching the teacher's own
// Device. The session manager's worker goroutine is the only caller, which
// keeps the "at most one in-flight command" invariant structural.
type Device struct {
	transport       Transport
	config          *DeviceConfig
	detection       TargetDetectionStrategy
	firmwareVersion *FirmwareVersion
	initialized     bool
}

// New creates a Device over transport, applying opts in declaration order.
func New(transport Transport, opts ...Option) (*Device, error) {
	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
		detection: AckOnlyStrategy{},
	}
	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}
	return device, nil
}

// Transport returns the underlying transport.
func (d *Device) Transport() Transport {
	return d.transport
}

// Init initializes the device: GetFirmwareVersion with a short timeout,
// then SAMConfiguration, per spec §4.C. Failure at either step leaves the
// device in a closed, uninitialized state.
func (d *Device) Init() error {
	return d.InitContext(context.Background())
}

// InitContext is Init with caller-supplied cancellation.
func (d *Device) InitContext(ctx context.Context) error {
	fw, err := d.getFirmwareVersionContext(ctx)
	if err != nil {
		d.initialized = false
		_ = d.transport.Close()
		return fmt.Errorf("GetFirmwareVersion failed: %w", err)
	}
	d.firmwareVersion = fw

	if err := d.samConfigurationContext(ctx); err != nil {
		d.initialized = false
		_ = d.transport.Close()
		return fmt.Errorf("SAMConfiguration failed: %w", err)
	}

	d.initialized = true
	return nil
}

// GetFirmwareVersion returns the controller's firmware identification,
// re-querying the transport rather than returning the value cached at
// Init.
func (d *Device) GetFirmwareVersion() (*FirmwareVersion, error) {
	return d.getFirmwareVersionContext(context.Background())
}

func (d *Device) getFirmwareVersionContext(_ context.Context) (*FirmwareVersion, error) {
	resp, err := d.transport.SendCommand(cmdGetFirmwareVersion, nil)
	if err != nil {
		return nil, err
	}
	if len(resp) < 4 {
		return nil, fmt.Errorf("%w: GetFirmwareVersion response too short (%d bytes)", ErrCommunicationFailed, len(resp))
	}
	return &FirmwareVersion{IC: resp[0], Ver: resp[1], Rev: resp[2], Support: resp[3]}, nil
}

// SAMConfiguration configures the SAM in normal mode (spec §4.C).
func (d *Device) SAMConfiguration() error {
	return d.samConfigurationContext(context.Background())
}

func (d *Device) samConfigurationContext(_ context.Context) error {
	_, err := d.transport.SendCommand(cmdSamConfiguration, samConfigurationArgs)
	return err
}

// SetTimeout sets the default timeout for device operations, propagating
// it to the transport.
func (d *Device) SetTimeout(timeout time.Duration) error {
	d.config.Timeout = timeout
	if err := d.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on transport: %w", err)
	}
	return nil
}

// SetRetryConfig updates the retry configuration, propagating it to the
// transport when it supports retries.
func (d *Device) SetRetryConfig(config *RetryConfig) {
	d.config.RetryConfig = config
	if tr, ok := d.transport.(*TransportWithRetry); ok {
		tr.SetRetryConfig(config)
	}
}

// Reinitialize closes the transport, waits a second, and reinitializes —
// spec's reinitialize(), used by the session manager after a failed
// session.
func (d *Device) Reinitialize(ctx context.Context) error {
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport during reinitialize: %w", err)
	}
	select {
	case <-time.After(1 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}
	return d.InitContext(ctx)
}

// Close closes the underlying transport.
func (d *Device) Close() error {
	d.initialized = false
	return d.transport.Close()
}
