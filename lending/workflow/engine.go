package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookshare/lending/lending"
)

// Engine runs the lending workflow against a lending.Store.
type Engine struct {
	store            lending.Store
	clock            func() time.Time
	validate         *validator.Validate
	bcryptCost       int
	retryOptions     []RetryOption
	logger           lending.Logger
	contextualLogger lending.ContextualLogger
	metricsCollector lending.MetricsCollector
	tracingCollector lending.TracingCollector
}

// Option defines a functional option for configuring Engine.
type Option func(*Engine) error

// WithRetryOptions sets a custom retry configuration for all mutating operations.
func WithRetryOptions(opts ...RetryOption) Option {
	return func(e *Engine) error {
		e.retryOptions = opts
		return nil
	}
}

// WithClock sets the time source for CreatedAt timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) error {
		if clock == nil {
			return errors.New("clock must not be nil")
		}

		e.clock = clock

		return nil
	}
}

// WithBcryptCost sets the bcrypt cost used by RegisterUser.
func WithBcryptCost(cost int) Option {
	return func(e *Engine) error {
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return bcrypt.InvalidCostError(cost)
		}

		e.bcryptCost = cost

		return nil
	}
}

// WithLogger sets the logger for the Engine.
// Info level: command started, completed and failed with outcome and duration.
func WithLogger(logger lending.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger; it takes precedence over the plain Logger.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine. It also instruments the retries.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine.
func WithTracing(collector lending.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}

// NewEngine creates a new Engine with optional configuration.
func NewEngine(store lending.Store, options ...Option) (*Engine, error) {
	if store == nil {
		return nil, lending.ErrNilStore
	}

	e := &Engine{
		store:      store,
		clock:      time.Now,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		bcryptCost: bcrypt.DefaultCost,
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// now returns the current time in UTC with the precision every supported database keeps.
func (e *Engine) now() time.Time {
	return e.clock().UTC().Truncate(time.Microsecond)
}

// execute runs fn in a store transaction with bounded optimistic retry and observability.
func (e *Engine) execute(ctx context.Context, command string, attrs map[string]string, fn lending.TxFunc) error {
	ctx, span := e.startSpan(ctx, command, attrs)
	start := time.Now()
	e.logCommandStarted(ctx, command, attrs)

	retryOptions := e.retryOptions
	if e.metricsCollector != nil {
		retryOptions = append(append([]RetryOption{}, e.retryOptions...), WithRetryMetrics(e.metricsCollector, command))
	}

	err := RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		return e.store.WithinTx(ctx, fn)
	}, retryOptions...)

	e.finishCommand(ctx, span, command, time.Since(start), err)

	return err
}

// findPending returns the incomplete entry of a book, if any.
func findPending(ctx context.Context, ledger lending.LedgerStore, bookID uuid.UUID) (pendingRequest, error) {
	entry, err := ledger.FindIncompleteEntryAnyOwner(ctx, bookID)
	if errors.Is(err, lending.ErrNotFound) {
		return pendingRequest{}, nil
	}

	if err != nil {
		return pendingRequest{}, err
	}

	return pendingRequest{entry: entry, found: true}, nil
}

func bookAttrs(bookID uuid.UUID, callerID uuid.UUID) map[string]string {
	return map[string]string{
		LogAttrBookID:   bookID.String(),
		LogAttrCallerID: callerID.String(),
	}
}
