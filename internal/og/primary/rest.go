package primary

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"carrytrader/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

const (
	_headerUsername = "X-Username"
	_headerPassword = "X-Password"
	_headerToken    = "X-Auth-Token"
)

// statusResponse is the envelope of every REST answer.
type statusResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (r statusResponse) err() error {
	if r.Status == "OK" {
		return nil
	}
	return errors.Wrapf(exception.ErrInResponseError, "status: %s, message: %s, description: %s", r.Status, r.Message, r.Description)
}

type rest struct {
	cfg    Config
	client *http.Client

	mu    sync.Mutex
	token string
}

func newRest(cfg Config, client *http.Client) *rest {
	if client == nil {
		client = &http.Client{}
	}
	return &rest{cfg: cfg, client: client}
}

// Token returns the session token, authenticating on first use.
func (r *rest) Token(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != "" {
		return r.token, nil
	}
	token, err := r.authenticate(ctx)
	if err != nil {
		return "", err
	}
	r.token = token
	return token, nil
}

func (r *rest) resetToken() {
	r.mu.Lock()
	r.token = ""
	r.mu.Unlock()
}

func (r *rest) authenticate(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"auth/getToken", nil)
	if err != nil {
		return "", errors.Wrap(err, "new auth request")
	}
	req.Header.Set(_headerUsername, r.cfg.Username)
	req.Header.Set(_headerPassword, r.cfg.Password)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", errors.Wrap(exception.ErrGatewayAuth, err.Error())
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	token := resp.Header.Get(_headerToken)
	if resp.StatusCode != http.StatusOK || token == "" {
		return "", errors.Wrapf(exception.ErrGatewayAuth, "status code: %d", resp.StatusCode)
	}
	return token, nil
}

// get calls an authenticated endpoint and decodes the body into out.
// A 401 answer re-authenticates once.
func (r *rest) get(ctx context.Context, path string, query url.Values, out any) error {
	for attempt := 0; ; attempt++ {
		status, err := r.getOnce(ctx, path, query, out)
		if status == http.StatusUnauthorized && attempt == 0 {
			r.resetToken()
			continue
		}
		return err
	}
}

func (r *rest) getOnce(ctx context.Context, path string, query url.Values, out any) (int, error) {
	token, err := r.Token(ctx)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	u := r.cfg.BaseURL + path
	if len(query) != 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "new request %s", path)
	}
	req.Header.Set(_headerToken, token)

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "do request %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, errors.Wrapf(exception.ErrGatewayAuth, "path: %s", path)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, errors.Wrapf(err, "read body %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, errors.Wrapf(exception.ErrInResponseError, "path: %s, status code: %d, body: %s", path, resp.StatusCode, body)
	}
	if err := sonic.ConfigFastest.Unmarshal(body, out); err != nil {
		return resp.StatusCode, errors.Wrap(err, "unmarshal response").With("path", path).With("body", string(body))
	}
	return resp.StatusCode, nil
}
