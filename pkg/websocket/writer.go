package websocket

import "sync/atomic"

type outbound struct {
	msgType MessageType
	payload []byte
}

// Writer queues outbound frames for the connected session.
type Writer struct {
	queue     chan outbound
	connected atomic.Bool
}

// NewWriter creates a writer holding up to capacity frames.
func NewWriter(capacity int) *Writer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Writer{queue: make(chan outbound, capacity)}
}

// Send enqueues a frame. It returns false when disconnected or full.
func (w *Writer) Send(msgType MessageType, payload []byte) bool {
	if !w.connected.Load() {
		return false
	}
	select {
	case w.queue <- outbound{msgType: msgType, payload: payload}:
		return true
	default:
		return false
	}
}

// Connected reports whether a session is up.
func (w *Writer) Connected() bool {
	return w.connected.Load()
}

func (w *Writer) setConnected(v bool) {
	w.connected.Store(v)
}

func (w *Writer) drain() {
	for {
		select {
		case <-w.queue:
		default:
			return
		}
	}
}
