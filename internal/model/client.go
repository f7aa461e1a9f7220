// Package model turns a prompt into normalized recommendations by calling
// the generation service with a bounded retry loop.
package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/actuallystonmai/flick-found/internal/llm"
	"github.com/actuallystonmai/flick-found/internal/logging"
	"github.com/actuallystonmai/flick-found/internal/metrics"
	"github.com/actuallystonmai/flick-found/internal/prompt"
)

// RetryPolicy bounds the attempt loop. RequestTimeout applies to each
// attempt separately; the caller's context bounds the whole loop.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RequestTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    5,
		BaseDelay:      200 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = max(d.MaxDelay, p.BaseDelay)
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = d.RequestTimeout
	}
	return p
}

// Backoff returns the delay after the given 1-based attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

type Client struct {
	gen    llm.Generator
	policy RetryPolicy
	log    zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewClient(gen llm.Generator, policy RetryPolicy) *Client {
	return &Client{
		gen:    gen,
		policy: policy.withDefaults(),
		log:    logging.Component("model"),
		sleep:  sleepCtx,
	}
}

func (c *Client) Policy() RetryPolicy { return c.policy }

// Generate asks the service for recommendations. Transport failures and
// unusable replies are retried with the same prompt; credential failures,
// rejected requests and cancellation stop the loop at once.
func (c *Client) Generate(ctx context.Context, p prompt.Prompt) ([]domain.Recommendation, error) {
	start := time.Now()
	defer func() { metrics.GenerationDuration.Observe(time.Since(start).Seconds()) }()

	var last error
	attempts := 0
	for attempts < c.policy.MaxAttempts {
		attempts++
		recs, err := c.attempt(ctx, p)
		if err == nil {
			metrics.RecordGenerationAttempt("success")
			if attempts > 1 {
				c.log.Info().Int("attempt", attempts).Str("backend", c.gen.Name()).Msg("generation succeeded after retry")
			}
			return recs, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.RecordGenerationAttempt("canceled")
			return nil, fmt.Errorf("generate recommendations: %w", ctxErr)
		}
		if llm.IsAuthError(err) {
			metrics.RecordGenerationAttempt("auth")
			return nil, fmt.Errorf("%w: %v", domain.ErrGenerationAuth, err)
		}
		if llm.IsRequestError(err) {
			metrics.RecordGenerationAttempt("rejected")
			c.log.Warn().Err(err).Int("attempt", attempts).Str("backend", c.gen.Name()).Msg("generation request rejected")
			return nil, &UnavailableError{Attempts: attempts, Last: err}
		}

		last = err
		kind := "transport"
		if IsContentError(err) {
			kind = "content"
		}
		metrics.RecordGenerationAttempt(kind)
		c.log.Warn().Err(err).Int("attempt", attempts).Int("max_attempts", c.policy.MaxAttempts).
			Str("kind", kind).Str("backend", c.gen.Name()).Msg("generation attempt failed")

		if attempts == c.policy.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, c.policy.Backoff(attempts)); err != nil {
			metrics.RecordGenerationAttempt("canceled")
			return nil, fmt.Errorf("generate recommendations: %w", err)
		}
	}

	if IsContentError(last) {
		return nil, &ExhaustedError{Attempts: attempts, Last: last}
	}
	return nil, &UnavailableError{Attempts: attempts, Last: last}
}

func (c *Client) attempt(ctx context.Context, p prompt.Prompt) ([]domain.Recommendation, error) {
	actx, cancel := context.WithTimeout(ctx, c.policy.RequestTimeout)
	defer cancel()

	text, err := c.gen.Complete(actx, p.System, p.User)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			return nil, &ContentError{Msg: "empty reply", Err: err}
		}
		return nil, err
	}

	recs, err := Normalize(text, p.Count)
	if err != nil {
		if IsContentError(err) {
			return nil, err
		}
		return nil, &ContentError{Msg: "normalize reply", Err: err}
	}
	if p.Count > 0 && len(recs) < p.Count {
		return nil, &ContentError{Msg: fmt.Sprintf("reply has %d recommendations, want %d", len(recs), p.Count)}
	}
	return recs, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
