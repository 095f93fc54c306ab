package generator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Recorder receives one observation per generation attempt.
type Recorder interface {
	RecordGeneration(source, outcome string, duration time.Duration)
}

// Outcomes reported to the Recorder.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeUnparsable  = "unparsable"
	OutcomeTimeout     = "timeout"
	OutcomeRateLimited = "rate_limited"
)

// Chain tries a primary generator and falls back to a deterministic one. The primary
// may be nil, in which case every request goes straight to the fallback.
type Chain struct {
	primary  Generator
	fallback Generator
	timeout  time.Duration
	limiter  *rate.Limiter
	recorder Recorder
}

// Option configures a Chain.
type Option func(*Chain)

// WithTimeout bounds each primary call.
func WithTimeout(d time.Duration) Option {
	return func(c *Chain) { c.timeout = d }
}

// WithRateLimit caps primary calls at perMinute with the given burst. Requests over the
// limit are answered by the fallback.
func WithRateLimit(perMinute float64, burst int) Option {
	return func(c *Chain) {
		if perMinute <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perMinute/60), burst)
	}
}

// WithRecorder reports each attempt to r.
func WithRecorder(r Recorder) Option {
	return func(c *Chain) { c.recorder = r }
}

// NewChain creates a Chain. fallback must not be nil.
func NewChain(primary, fallback Generator, opts ...Option) *Chain {
	c := &Chain{
		primary:  primary,
		fallback: fallback,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns the primary's answer when it produces a valid workflow in time and
// the fallback's answer otherwise. Only fallback errors are returned.
func (c *Chain) Generate(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	if c.primary != nil {
		if resp, ok := c.tryPrimary(ctx, req); ok {
			return resp, nil
		}
	}

	start := time.Now()
	resp, err := c.fallback.Generate(ctx, req)
	if err == nil {
		err = checkResponse(resp)
	}
	if err != nil {
		c.record(SourceTemplate, outcomeOf(err), time.Since(start))
		return nil, err
	}
	resp.Source = SourceTemplate
	c.record(SourceTemplate, OutcomeSuccess, time.Since(start))
	return resp, nil
}

func (c *Chain) tryPrimary(ctx context.Context, req Request) (*Response, bool) {
	if c.limiter != nil && !c.limiter.Allow() {
		slog.Warn("Generator rate limited, using template fallback")
		c.record(SourceAI, OutcomeRateLimited, 0)
		return nil, false
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.primary.Generate(callCtx, req)
	if err == nil {
		err = checkResponse(resp)
	}
	if err != nil {
		slog.Warn("AI generation failed, using template fallback", "error", err)
		c.record(SourceAI, outcomeOf(err), time.Since(start))
		return nil, false
	}

	resp.Source = SourceAI
	c.record(SourceAI, OutcomeSuccess, time.Since(start))
	return resp, true
}

func (c *Chain) record(source Source, outcome string, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordGeneration(string(source), outcome, d)
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrUnparsable):
		return OutcomeUnparsable
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}
