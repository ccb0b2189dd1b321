package pubsub

import "time"

// Options configures the retry/timeout policy for Connect and Message
// round trips, left open by the spec ("implementations should make it
// configurable") — see SPEC_FULL.md §9.1.
type Options struct {
	// AckTimeout bounds how long a single Connect or Message attempt waits
	// for its ack before retrying: the first retransmit after the initial
	// publish waits this long, on the assumption that an ack this slow is
	// still in flight rather than lost.
	AckTimeout time.Duration
	// MaxRetries caps retransmission attempts before a Connect gives up
	// (0 means retry forever, matching the spec's "indefinite wait"
	// baseline contract). Message sends always retry indefinitely, since
	// the spec's reliability contract requires eventual success-or-
	// Disconnected and a capped message retry would violate that.
	MaxRetries int
	// RetryMinSleep and RetryMaxSleep bound the exponential backoff applied
	// to retransmits after the first (AckTimeout-gated) one.
	RetryMinSleep time.Duration
	RetryMaxSleep time.Duration
}

// DefaultOptions mirrors the teacher's lib/pacer.NewDefault constants in
// spirit: a short minimum sleep, a bounded maximum, indefinite retry.
func DefaultOptions() Options {
	return Options{
		AckTimeout:    2 * time.Second,
		MaxRetries:    0,
		RetryMinSleep: 10 * time.Millisecond,
		RetryMaxSleep: 2 * time.Second,
	}
}
