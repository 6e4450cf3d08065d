package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
)

const DefaultDialerTimeout = 10 * time.Second

// Dialer opens a websocket connection.
type Dialer interface {
	Dial(ctx context.Context) (*websocket.Conn, error)
}

type dialer struct {
	url    string
	header func(ctx context.Context) (http.Header, error)
	ws     *websocket.Dialer
}

// NewDialer creates a dialer for url. header, when set, is called on every
// dial so that credentials can be refreshed between reconnects.
func NewDialer(url string, header func(ctx context.Context) (http.Header, error)) Dialer {
	return &dialer{
		url:    url,
		header: header,
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultDialerTimeout,
		},
	}
}

func (d *dialer) Dial(ctx context.Context) (*websocket.Conn, error) {
	var h http.Header
	if d.header != nil {
		var err error
		if h, err = d.header(ctx); err != nil {
			return nil, errors.Wrap(err, "build handshake header")
		}
	}

	conn, resp, err := d.ws.DialContext(ctx, d.url, h)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial %s, status: %d", d.url, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "dial %s", d.url)
	}
	return conn, nil
}
