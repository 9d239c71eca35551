package services

import "time"

// MinMasterPasswordLength is the shortest accepted master password, in
// characters.
const MinMasterPasswordLength = 8

// Option customizes a service.
type Option func(*options)

type options struct {
	now func() time.Time
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source used for timestamps and statuses.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
