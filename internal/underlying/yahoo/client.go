// Package yahoo reads reference quotes from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com/v8/finance/chart/"
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency             string  `json:"currency"`
				Symbol               string  `json:"symbol"`
				ExchangeName         string  `json:"exchangeName"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				RegularMarketTime    int64   `json:"regularMarketTime"`
				ChartPreviousClose   float64 `json:"chartPreviousClose"`
				PreviousClose        float64 `json:"previousClose"`
				RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
				RegularMarketVolume  float64 `json:"regularMarketVolume"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Open []*float64 `json:"open"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Config configures a Client.
type Config struct {
	BaseURL string
	// Suffix maps a local ticker to its Yahoo listing, e.g. ".BA".
	Suffix    string
	UserAgent string
	Timeout   time.Duration
}

// Client is an underlying.Source backed by the chart API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Fetch implements underlying.Source. Symbols that fail are logged and
// omitted; an error is returned only when nothing resolved.
func (c *Client) Fetch(ctx context.Context, symbols []string) (map[string]schema.UnderlyingSpec, error) {
	out := make(map[string]schema.UnderlyingSpec, len(symbols))
	var lastErr error
	for _, sym := range symbols {
		spec, err := c.quote(ctx, sym)
		if err != nil {
			lastErr = err
			logs.Warnf("fetch reference quote %s, err: %+v", sym, err)
			continue
		}
		out[sym] = spec
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (c *Client) quote(ctx context.Context, symbol string) (schema.UnderlyingSpec, error) {
	u := c.cfg.BaseURL + url.PathEscape(symbol+c.cfg.Suffix) + "?interval=1d&range=1d"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return schema.UnderlyingSpec{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return schema.UnderlyingSpec{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return schema.UnderlyingSpec{}, errors.Wrap(err, "read body")
	}

	var data chartResponse
	if err := sonic.Unmarshal(body, &data); err != nil {
		if resp.StatusCode != http.StatusOK {
			return schema.UnderlyingSpec{}, errors.Wrapf(exception.ErrReferenceFetch, "status: %d", resp.StatusCode)
		}
		return schema.UnderlyingSpec{}, errors.Wrap(err, "unmarshal chart")
	}
	if e := data.Chart.Error; e != nil {
		return schema.UnderlyingSpec{}, errors.Wrapf(exception.ErrReferenceFetch, "%s: %s", e.Code, e.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return schema.UnderlyingSpec{}, errors.Wrapf(exception.ErrReferenceFetch, "status: %d", resp.StatusCode)
	}
	if len(data.Chart.Result) == 0 {
		return schema.UnderlyingSpec{}, exception.ErrReferenceNoResults
	}

	res := data.Chart.Result[0]
	meta := res.Meta
	if meta.RegularMarketPrice <= 0 {
		return schema.UnderlyingSpec{}, errors.Wrapf(exception.ErrReferenceNoResults, "no price for %s", symbol)
	}
	prev := meta.PreviousClose
	if prev == 0 {
		prev = meta.ChartPreviousClose
	}
	var open float64
	if len(res.Indicators.Quote) > 0 {
		for _, v := range res.Indicators.Quote[0].Open {
			if v != nil {
				open = *v
				break
			}
		}
	}
	updated := time.Now().UTC()
	if meta.RegularMarketTime > 0 {
		updated = time.Unix(meta.RegularMarketTime, 0).UTC()
	}

	return schema.UnderlyingSpec{
		Symbol:        symbol,
		LastPrice:     meta.RegularMarketPrice,
		PreviousClose: prev,
		DayHigh:       meta.RegularMarketDayHigh,
		DayLow:        meta.RegularMarketDayLow,
		DayOpen:       open,
		Volume:        meta.RegularMarketVolume,
		Currency:      meta.Currency,
		Exchange:      meta.ExchangeName,
		UpdatedAt:     updated,
	}, nil
}
