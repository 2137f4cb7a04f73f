package pn532

import "time"

// Option is a functional option for configuring a Device.
type Option func(*Device) error

// WithRetryConfig sets the retry configuration for the device's transport.
func WithRetryConfig(config *RetryConfig) Option {
	return func(d *Device) error {
		d.SetRetryConfig(config)
		return nil
	}
}

// WithTimeout sets the default timeout for device operations.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		return d.SetTimeout(timeout)
	}
}

// WithMaxRetries overrides the retry budget's attempt count.
func WithMaxRetries(maxAttempts int) Option {
	return func(d *Device) error {
		if d.config.RetryConfig == nil {
			d.config.RetryConfig = DefaultRetryConfig()
		}
		d.config.RetryConfig.MaxAttempts = maxAttempts
		if tr, ok := d.transport.(*TransportWithRetry); ok {
			tr.SetRetryConfig(d.config.RetryConfig)
		}
		return nil
	}
}

// WithRetryBackoff overrides the retry budget's initial backoff.
func WithRetryBackoff(initialBackoff time.Duration) Option {
	return func(d *Device) error {
		if d.config.RetryConfig == nil {
			d.config.RetryConfig = DefaultRetryConfig()
		}
		d.config.RetryConfig.InitialBackoff = initialBackoff
		if tr, ok := d.transport.(*TransportWithRetry); ok {
			tr.SetRetryConfig(d.config.RetryConfig)
		}
		return nil
	}
}

// WithDetectionStrategy selects how InitAsTarget decides a target
// registration succeeded — resolves spec §9's open question explicitly.
func WithDetectionStrategy(strategy TargetDetectionStrategy) Option {
	return func(d *Device) error {
		d.detection = strategy
		return nil
	}
}

// NewWithOptions is an alias for New, kept for parity with the teacher's
// two constructor names.
func NewWithOptions(transport Transport, opts ...Option) (*Device, error) {
	return New(transport, opts...)
}
