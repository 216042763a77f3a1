// Package guard bounds store operations with per-kind time budgets and
// converts infrastructure failures into typed results or fallback values.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/recallhq/recall/internal/domain"
)

// Kind identifies an operation class with its own time budget.
type Kind string

// Operation kinds.
const (
	Save      Kind = "save"
	Search    Kind = "search"
	Delete    Kind = "delete"
	Edit      Kind = "edit"
	BatchSave Kind = "batch_save"
	List      Kind = "list"
	Test      Kind = "test"
)

// DefaultBudget applies to kinds without an explicit entry.
const DefaultBudget = 3 * time.Second

// Policy is a budget table keyed by operation kind.
type Policy struct {
	budgets map[Kind]time.Duration
	logger  *zap.Logger
}

// NewPolicy creates a policy with the default per-kind budgets.
func NewPolicy(logger *zap.Logger) *Policy {
	return &Policy{
		budgets: map[Kind]time.Duration{
			Search:    5 * time.Second,
			Save:      3 * time.Second,
			Delete:    2 * time.Second,
			Edit:      4 * time.Second,
			BatchSave: 8 * time.Second,
			List:      5 * time.Second,
			Test:      3 * time.Second,
		},
		logger: logger,
	}
}

// WithBudget overrides the budget for one kind.
func (p *Policy) WithBudget(kind Kind, budget time.Duration) *Policy {
	if budget > 0 {
		p.budgets[kind] = budget
	}
	return p
}

// Budget returns the time budget for a kind.
func (p *Policy) Budget(kind Kind) time.Duration {
	if d, ok := p.budgets[kind]; ok {
		return d
	}
	return DefaultBudget
}

// Option configures fallback behavior for a single Do call.
type Option[T any] func(*settings[T])

type settings[T any] struct {
	fallback     T
	hasFallback  bool
	fallbackFunc func() T
}

// WithFallback substitutes a static value when the operation times out or
// fails with an infrastructure error.
func WithFallback[T any](v T) Option[T] {
	return func(s *settings[T]) {
		s.fallback = v
		s.hasFallback = true
	}
}

// WithFallbackFunc substitutes the producer's value on failure.
func WithFallbackFunc[T any](fn func() T) Option[T] {
	return func(s *settings[T]) {
		s.fallbackFunc = fn
	}
}

type outcome[T any] struct {
	val T
	err error
}

// Do runs op under the kind's time budget. The op receives a context carrying
// the deadline; even an op that ignores its context cannot block the caller
// past the budget, because Do selects on the deadline independently. An
// abandoned op runs to completion in the background.
//
// Business errors (not-found, ownership, validation) pass through untouched.
// Timeouts and every other error collapse into domain.ErrStoreUnavailable, or
// into the configured fallback value when one is present.
func Do[T any](ctx context.Context, p *Policy, kind Kind, op func(context.Context) (T, error), opts ...Option[T]) (T, error) {
	var s settings[T]
	for _, o := range opts {
		o(&s)
	}

	budget := p.Budget(kind)
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), budget)

	done := make(chan outcome[T], 1)
	go func() {
		defer cancel()
		val, err := op(opCtx)
		done <- outcome[T]{val: val, err: err}
	}()

	select {
	case out := <-done:
		return resolve(p, kind, budget, s, out)

	case <-opCtx.Done():
		// The op goroutine cancels opCtx right after its buffered send, so a
		// completed outcome can race the deadline. A ready result always wins.
		select {
		case out := <-done:
			return resolve(p, kind, budget, s, out)
		default:
		}
		p.logger.Warn("Store operation timed out",
			zap.String("operation", string(kind)),
			zap.Duration("budget", budget),
		)
		return failed(s, fmt.Errorf(
			"%s exceeded %s budget: %w", kind, budget, domain.ErrStoreUnavailable))
	}
}

func resolve[T any](p *Policy, kind Kind, budget time.Duration, s settings[T], out outcome[T]) (T, error) {
	if out.err == nil {
		return out.val, nil
	}
	if domain.IsBusinessError(out.err) {
		return out.val, out.err
	}
	if errors.Is(out.err, context.DeadlineExceeded) {
		return failed(s, fmt.Errorf(
			"%s exceeded %s budget: %w", kind, budget, domain.ErrStoreUnavailable))
	}
	p.logger.Error("Store operation failed",
		zap.String("operation", string(kind)),
		zap.Error(out.err),
	)
	return failed(s, fmt.Errorf("%s: %w: %w", kind, domain.ErrStoreUnavailable, out.err))
}

func failed[T any](s settings[T], err error) (T, error) {
	if s.fallbackFunc != nil {
		return s.fallbackFunc(), nil
	}
	if s.hasFallback {
		return s.fallback, nil
	}
	var zero T
	return zero, err
}
