package pn532

import (
	"context"
	"time"

	"github.com/kiosk-nfc/nfc-bridge-core/internal/frame"
)

// TargetFrameWaiter is implemented by transports that can wait for an
// unsolicited response or syntax-error frame to arrive on the bus, without
// having sent a command that expects one. It backs both WaitForTag and the
// FullResponseStrategy's synchronous confirmation.
type TargetFrameWaiter interface {
	AwaitFrame(timeout time.Duration) (*frame.Frame, error)
}

// TargetDetectionStrategy resolves spec's open question about how
// TgInitAsTarget's success should be judged: on the ACK alone, or only once
// a full response frame confirms an initiator is present. Both are valid
// PN532 firmware behaviors; the bridge picks one via device configuration
// rather than guessing.
type TargetDetectionStrategy interface {
	// ConfirmInit is called after the TgInitAsTarget command's ACK has
	// already been observed. It decides whether that alone counts as a
	// successful target registration, or whether to additionally wait for
	// the (possibly very late) response frame.
	ConfirmInit(transport Transport, taggingTimeout time.Duration) (bool, error)
}

// AckOnlyStrategy treats the ACK as sufficient confirmation; the response,
// if it ever arrives, only comes once an external reader activates the
// target, which may be well outside the bridge's interest at init time.
type AckOnlyStrategy struct{}

func (AckOnlyStrategy) ConfirmInit(Transport, time.Duration) (bool, error) {
	return true, nil
}

// FullResponseStrategy blocks until both the ACK and the delayed response
// frame arrive, treating the response as proof an initiator is present.
type FullResponseStrategy struct{}

func (FullResponseStrategy) ConfirmInit(transport Transport, taggingTimeout time.Duration) (bool, error) {
	waiter, ok := transport.(TargetFrameWaiter)
	if !ok {
		return false, ErrNotInitialized
	}
	f, err := waiter.AwaitFrame(taggingTimeout)
	if err != nil {
		return false, err
	}
	if f == nil {
		return false, nil
	}
	switch f.Kind {
	case frame.KindResponse:
		return true, nil
	case frame.KindSyntaxError:
		return false, ErrSyntaxError
	default:
		return false, nil
	}
}

// TargetAckSender is implemented by transports that can send a command
// frame and return once its ACK is observed, without waiting for a
// response — TgInitAsTarget's response may never come within the bridge's
// interest, so it cannot go through the ordinary SendCommand round trip.
type TargetAckSender interface {
	SendFrameAckOnly(cmd byte, args []byte) error
}

// InitAsTarget builds and sends the TgInitAsTarget descriptor for
// ndefMessage (spec §4.C) and applies the device's configured detection
// strategy to decide whether registration succeeded.
func (d *Device) InitAsTarget(ctx context.Context, ndefMessage []byte) (bool, error) {
	if !d.initialized {
		return false, ErrNotInitialized
	}
	sender, ok := d.transport.(TargetAckSender)
	if !ok {
		return false, ErrNotInitialized
	}
	if len(ndefMessage) > maxGeneralBytesLen {
		return false, ErrDataTooLarge
	}

	payload := buildTgInitAsTargetPayload(ndefMessage)
	if err := sender.SendFrameAckOnly(cmdTgInitAsTarget, payload); err != nil {
		return false, err
	}

	taggingTimeout := d.config.Timeout
	if ctxDeadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(ctxDeadline); remaining > 0 {
			taggingTimeout = remaining
		}
	}
	return d.detection.ConfirmInit(d.transport, taggingTimeout)
}

// maxGeneralBytesLen is TgInitAsTarget's general-bytes TLV length cap: the
// field is a single length byte, so anything longer than 255 bytes would
// silently wrap mod 256 instead of being rejected. Spec §6 additionally
// caps the whole NDEF message at 256 bytes to fit this descriptor.
const maxGeneralBytesLen = 255

// buildTgInitAsTargetPayload assembles the fixed target descriptor spec
// §4.C requires: mode, SENS_RES, NFCID1t, SEL_RES, FeliCa params, NFCID3t,
// then the general-bytes TLV carrying the NDEF message, then an empty
// historical-bytes TLV. Callers must ensure len(ndefMessage) <=
// maxGeneralBytesLen; InitAsTarget checks this before calling in.
func buildTgInitAsTargetPayload(ndefMessage []byte) []byte {
	payload := make([]byte, 0, 1+2+3+1+18+10+1+len(ndefMessage)+1)
	payload = append(payload, initAsTargetMode)
	payload = append(payload, 0x04, 0x00) // SENS_RES
	payload = append(payload, 0x12, 0x34, 0x56) // NFCID1t
	payload = append(payload, 0x20) // SEL_RES
	payload = append(payload, make([]byte, 18)...) // FeliCa params
	payload = append(payload, make([]byte, 10)...) // NFCID3t
	payload = append(payload, byte(len(ndefMessage)))
	payload = append(payload, ndefMessage...)
	payload = append(payload, 0x00) // L_tk: no historical bytes
	return payload
}

// WaitForTag waits for the initiator's activation response within timeout,
// per spec §4.C. It returns true once a well-formed response frame
// arrives, false (with a nil error) on timeout, and ErrSyntaxError if a
// 0x7F frame is observed — the caller must treat that as transient and may
// retry after reinitializing the controller. The transport is responsible
// for the actual poll cadence (≤500ms between reads, per spec).
func (d *Device) WaitForTag(ctx context.Context, timeout time.Duration) (bool, error) {
	waiter, ok := d.transport.(TargetFrameWaiter)
	if !ok {
		return false, ErrNotInitialized
	}
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	f, err := waiter.AwaitFrame(timeout)
	if err != nil {
		return false, err
	}
	if f == nil {
		return false, nil
	}
	switch f.Kind {
	case frame.KindResponse:
		return true, nil
	case frame.KindSyntaxError:
		return false, ErrSyntaxError
	default:
		return false, nil
	}
}
