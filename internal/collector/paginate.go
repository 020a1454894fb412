package collector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IshaanNene/newsgoat/internal/types"
)

// Pager performs one "load more" action on an open search page.
type Pager interface {
	Advance(ctx context.Context) error
}

// StopReason records why the pagination loop ended.
type StopReason string

const (
	StopEndOfResults  StopReason = "end_of_results"
	StopLookupTimeout StopReason = "lookup_timeout"
	StopAdvanceError  StopReason = "advance_error"
	StopMaxClicks     StopReason = "max_clicks"
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the default SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Paginator drives a Pager until results are exhausted.
type Paginator struct {
	// MaxClicks bounds the loop. Zero means unlimited.
	MaxClicks int
	// SettleDelay is slept after every successful click.
	SettleDelay time.Duration
	// LookupRetries is how many consecutive lookup timeouts are retried
	// before giving up.
	LookupRetries int
	Sleep         SleepFunc

	logger *slog.Logger
}

// NewPaginator creates a Paginator with SleepContext as its sleeper.
func NewPaginator(maxClicks int, settle time.Duration, lookupRetries int, logger *slog.Logger) *Paginator {
	return &Paginator{
		MaxClicks:     maxClicks,
		SettleDelay:   settle,
		LookupRetries: lookupRetries,
		Sleep:         SleepContext,
		logger:        logger.With("component", "paginator"),
	}
}

// ExpandResult summarises a pagination run.
type ExpandResult struct {
	Clicks int
	Stop   StopReason
	// Err is the advance error that ended the loop, if any.
	Err error
}

// Expand clicks until the pager reports end of results, the lookup keeps
// timing out, an advance fails, or MaxClicks is reached. None of these
// is fatal; only context cancellation is returned as an error.
func (p *Paginator) Expand(ctx context.Context, pager Pager) (ExpandResult, error) {
	var res ExpandResult
	timeouts := 0

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if p.MaxClicks > 0 && res.Clicks >= p.MaxClicks {
			res.Stop = StopMaxClicks
			p.logger.Info("pagination click limit reached", "clicks", res.Clicks)
			return res, nil
		}

		err := pager.Advance(ctx)
		switch {
		case err == nil:
			res.Clicks++
			timeouts = 0
			p.logger.Debug("loaded more results", "clicks", res.Clicks)
			if err := p.Sleep(ctx, p.SettleDelay); err != nil {
				return res, err
			}

		case errors.Is(err, types.ErrEndOfResults):
			res.Stop = StopEndOfResults
			p.logger.Info("no more results to load", "clicks", res.Clicks)
			return res, nil

		case errors.Is(err, types.ErrControlLookup):
			timeouts++
			if timeouts > p.LookupRetries {
				res.Stop = StopLookupTimeout
				res.Err = err
				p.logger.Warn("pagination control lookup kept timing out, results may be incomplete",
					"clicks", res.Clicks,
					"attempts", timeouts,
					"error", err,
				)
				return res, nil
			}
			p.logger.Debug("pagination control lookup timed out, retrying", "attempt", timeouts)

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			fallthrough

		default:
			res.Stop = StopAdvanceError
			res.Err = err
			p.logger.Warn("pagination stopped on advance error", "clicks", res.Clicks, "error", err)
			return res, nil
		}
	}
}
