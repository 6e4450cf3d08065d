package websocket

import "time"

// MessageType mirrors the websocket frame opcodes the manager handles.
type MessageType uint8

const (
	MessageText   MessageType = 1
	MessageBinary MessageType = 2
	MessagePing   MessageType = 9
)

// Backoff defines reconnect backoff behavior.
type Backoff struct {
	// Min is the minimum backoff duration.
	Min time.Duration
	// Max is the maximum backoff duration.
	Max time.Duration
	// Factor multiplies the delay for each retry attempt.
	Factor float64
	// Jitter adds randomization as a fraction of the delay (0-1).
	Jitter float64
}

func (b Backoff) isZero() bool {
	return b.Min == 0 && b.Max == 0 && b.Factor == 0 && b.Jitter == 0
}
