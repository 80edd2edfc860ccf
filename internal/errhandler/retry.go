package errhandler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts int           // Total attempts including the first.
	BaseDelay   time.Duration // Delay before the second attempt.
	MaxDelay    time.Duration // Backoff ceiling.
}

// DefaultPolicy is three attempts starting at one second.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	return p
}

// Backoff returns the delay before retry n (0-indexed) with jitter.
func (p Policy) Backoff(n int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	base := p.BaseDelay << uint(n)
	if base > p.MaxDelay || base <= 0 {
		base = p.MaxDelay
	}
	half := int64(base) / 2
	if half <= 0 {
		return base
	}
	return base + time.Duration(rand.Int64N(half))
}

type outcomeKind int

const (
	kindOK outcomeKind = iota
	kindRetryable
	kindFatal
)

// Outcome is the result of one attempt: success, a retryable failure, or
// a fatal failure that stops the loop.
type Outcome[T any] struct {
	Value T
	Err   error
	kind  outcomeKind
}

func Ok[T any](v T) Outcome[T]             { return Outcome[T]{Value: v} }
func Retryable[T any](err error) Outcome[T] { return Outcome[T]{Err: err, kind: kindRetryable} }
func Fatal[T any](err error) Outcome[T]     { return Outcome[T]{Err: err, kind: kindFatal} }

// Retry runs fn under the handler's default policy.
func Retry[T any](ctx context.Context, h *Handler, op string, fn func(ctx context.Context, attempt int) Outcome[T]) (T, error) {
	return RetryWith(ctx, h, op, h.policy, fn)
}

// RetryWith runs fn until it succeeds, returns a fatal outcome, or the
// policy's attempts are exhausted. attempt is 0 for the first call. The
// operation's retry count is reset on success.
func RetryWith[T any](ctx context.Context, h *Handler, op string, p Policy, fn func(ctx context.Context, attempt int) Outcome[T]) (T, error) {
	p = p.normalized()
	var zero T
	var lastErr error

	for attempt := range p.MaxAttempts {
		out := fn(ctx, attempt)
		switch out.kind {
		case kindOK:
			if out.Err == nil {
				h.ResetRetryCount(op)
				return out.Value, nil
			}
			lastErr = out.Err
		case kindFatal:
			return zero, out.Err
		case kindRetryable:
			lastErr = out.Err
		}

		if attempt == p.MaxAttempts-1 {
			break
		}
		n := h.noteRetry(op)
		h.log.Warn("operation failed, retrying", "op", op, "attempt", n, "error", lastErr)

		select {
		case <-time.After(p.Backoff(attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	h.log.Error("operation failed after retries", "op", op, "attempts", p.MaxAttempts, "error", lastErr)
	return zero, fmt.Errorf("%s failed after %d attempts: %w", op, p.MaxAttempts, lastErr)
}
