// Package websocket runs a reconnecting websocket session.
package websocket

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
)

var (
	ErrNilDialer    = errors.New("websocket: nil dialer")
	ErrBadConfig    = errors.New("websocket: invalid config")
	ErrNotConnected = errors.New("websocket: not connected")
	ErrGiveUp       = errors.New("websocket: reconnect attempts exhausted")
)

// Config defines the manager runtime configuration.
type Config struct {
	Dialer         Dialer
	WriteQueueSize int
	PingInterval   time.Duration
	Backoff        Backoff
	// MaxAttempts bounds consecutive failed connects. Zero retries forever.
	MaxAttempts int
	// OnConnect runs after every successful dial, before reading.
	// Subscriptions are replayed here.
	OnConnect    func(ctx context.Context, w *Writer) error
	OnMessage    func(payload []byte)
	OnDisconnect func(err error)
}

// Manager owns the websocket lifecycle.
type Manager struct {
	cfg    Config
	writer *Writer
}

// NewManager validates config and builds a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dialer == nil {
		return nil, ErrNilDialer
	}
	if cfg.OnMessage == nil {
		return nil, errors.Wrap(ErrBadConfig, "nil message handler")
	}
	if cfg.WriteQueueSize <= 0 {
		cfg.WriteQueueSize = 64
	}
	if cfg.Backoff.isZero() {
		cfg.Backoff = DefaultBackoff()
	}
	return &Manager{cfg: cfg, writer: NewWriter(cfg.WriteQueueSize)}, nil
}

// Writer returns the outbound queue.
func (m *Manager) Writer() *Writer {
	return m.writer
}

// Send enqueues a text frame.
func (m *Manager) Send(payload []byte) error {
	if !m.writer.Send(MessageText, payload) {
		return ErrNotConnected
	}
	return nil
}

// Run connects and reconnects until ctx is done. It returns ErrGiveUp
// when MaxAttempts consecutive connects failed.
func (m *Manager) Run(ctx context.Context) error {
	attempt := 0
	var lastErr error
	for {
		if ctx.Err() != nil {
			return nil
		}
		if m.cfg.MaxAttempts > 0 && attempt >= m.cfg.MaxAttempts {
			return errors.Wrapf(ErrGiveUp, "last err: %v", lastErr)
		}
		if attempt > 0 && !m.cfg.Backoff.Sleep(ctx, attempt) {
			return nil
		}

		conn, err := m.cfg.Dialer.Dial(ctx)
		if err != nil {
			attempt++
			lastErr = err
			continue
		}

		m.writer.setConnected(true)
		if m.cfg.OnConnect != nil {
			if err := m.cfg.OnConnect(ctx, m.writer); err != nil {
				m.closeSession(conn)
				attempt++
				lastErr = err
				continue
			}
		}

		attempt = 0
		err = m.runSession(ctx, conn)
		m.closeSession(conn)
		if m.cfg.OnDisconnect != nil {
			m.cfg.OnDisconnect(err)
		}
		if ctx.Err() != nil {
			return nil
		}
		attempt++
		lastErr = err
	}
}

func (m *Manager) closeSession(conn *websocket.Conn) {
	m.writer.setConnected(false)
	m.writer.drain()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session_end"),
		time.Now().Add(time.Second))
	_ = conn.Close()
}

func (m *Manager) runSession(ctx context.Context, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	go m.readLoop(conn, errCh)

	var ping <-chan time.Time
	if m.cfg.PingInterval > 0 {
		ticker := time.NewTicker(m.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case frame := <-m.writer.queue:
			if err := conn.WriteMessage(int(frame.msgType), frame.payload); err != nil {
				return errors.Wrap(err, "write message")
			}
		case <-ping:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return errors.Wrap(err, "write ping")
			}
		}
	}
}

func (m *Manager) readLoop(conn *websocket.Conn, errCh chan<- error) {
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			errCh <- err
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		m.cfg.OnMessage(payload)
	}
}
