package underlying

import (
	"context"
	"time"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Poster hands work to the dispatcher loop without blocking.
type Poster interface {
	Post(fn func()) error
}

// RefresherConfig controls the refresh cadence.
type RefresherConfig struct {
	Every   time.Duration
	Timeout time.Duration
	Retries int
}

// Refresher periodically fetches the underlyings off the loop and applies
// the result through the loop. A failed fetch keeps the previous values.
type Refresher struct {
	cfg     RefresherConfig
	source  Source
	book    *Book
	symbols func() []string
	poster  Poster

	onApplied func(n int)
}

// NewRefresher creates a refresher of the symbols returned by symbols.
// A nil poster applies results directly under the book lock.
func NewRefresher(cfg RefresherConfig, source Source, book *Book, symbols func() []string, poster Poster) *Refresher {
	if cfg.Every <= 0 {
		cfg.Every = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}
	return &Refresher{
		cfg:     cfg,
		source:  source,
		book:    book,
		symbols: symbols,
		poster:  poster,
	}
}

// OnApplied registers a callback run after each applied refresh, on the same goroutine as the apply.
func (r *Refresher) OnApplied(fn func(n int)) {
	r.onApplied = fn
}

// Run refreshes immediately, then on every period until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		logs.Warnf("refresh underlyings, err: %+v", err)
	}

	ticker := time.NewTicker(r.cfg.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				logs.Warnf("refresh underlyings, err: %+v", err)
			}
		}
	}
}

// Refresh fetches once with retries and applies the result.
func (r *Refresher) Refresh(ctx context.Context) error {
	symbols := r.symbols()
	if len(symbols) == 0 {
		return nil
	}

	var (
		specs map[string]schema.UnderlyingSpec
		err   error
	)
	for i := 0; i < r.cfg.Retries; i++ {
		if i > 0 {
			delay := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		specs, err = r.fetch(ctx, symbols)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return errors.Wrapf(exception.ErrReferenceNoResults, "symbols: %v", symbols)
	}

	apply := func() {
		r.book.Apply(specs)
		if r.onApplied != nil {
			r.onApplied(len(specs))
		}
	}
	if r.poster == nil {
		apply()
		return nil
	}
	return r.poster.Post(apply)
}

func (r *Refresher) fetch(ctx context.Context, symbols []string) (map[string]schema.UnderlyingSpec, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	specs, err := r.source.Fetch(ctx, symbols)
	if err != nil {
		return nil, errors.Wrap(err, "fetch reference quotes")
	}
	return specs, nil
}
