package indexer

import "time"

// Backoff computes a bounded exponential reconnect delay (spec.md §4.12,
// §7's IndexerDisconnected after exhausting a configured retry budget).
// Grounded on the teacher's WebSocketRPCClient.reconnect doubling loop
// (src/chainadapter/rpc/websocket.go), generalized into a standalone,
// test-friendly value instead of inline mutable fields on the client.
type Backoff struct {
	initial    time.Duration
	max        time.Duration
	maxRetries int

	current time.Duration
	retries int
}

// NewBackoff returns a Backoff starting at initial, doubling up to max,
// giving up after maxRetries consecutive failures (0 means unbounded).
func NewBackoff(initial, max time.Duration, maxRetries int) *Backoff {
	return &Backoff{initial: initial, max: max, maxRetries: maxRetries, current: initial}
}

// Next returns the delay to wait before the next reconnect attempt and
// whether the retry budget is exhausted.
func (b *Backoff) Next() (delay time.Duration, exhausted bool) {
	if b.maxRetries > 0 && b.retries >= b.maxRetries {
		return 0, true
	}
	delay = b.current
	b.retries++
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return delay, false
}

// Reset restores the backoff to its initial state after a successful
// reconnect.
func (b *Backoff) Reset() {
	b.current = b.initial
	b.retries = 0
}
