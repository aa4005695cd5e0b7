package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	goretry "github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// maxExponent caps the backoff exponent so the shift cannot overflow
const maxExponent = 30

var retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "conformal_retries_total",
	Help: "Retries of transient failures, by operation.",
}, []string{"op"})

// transient is implemented by errors that know whether a retry may succeed
type transient interface {
	Transient() bool
}

// IsTransient reports whether err, or any error it wraps, declares itself transient
func IsTransient(err error) bool {
	var t transient
	if errors.As(err, &t) {
		return t.Transient()
	}
	return false
}

// ExhaustedError is returned when every attempt of an operation failed transiently
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: exceeded maximum retry attempts (%d): %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Policy retries transient failures with exponential backoff and jitter.
// The n-th retry waits base*2^n plus up to one base unit of jitter.
// Each Execute call starts with a fresh budget of Retries retries.
type Policy struct {
	retries int
	base    time.Duration
	logger  *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Policy
type Option func(*Policy)

// WithSeed makes the jitter sequence reproducible
func WithSeed(seed uint64) Option {
	return func(p *Policy) {
		p.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// NewPolicy creates a policy allowing retries retries after the first attempt
func NewPolicy(retries int, base time.Duration, logger *zap.Logger, opts ...Option) *Policy {
	if retries < 0 {
		retries = 0
	}
	p := &Policy{
		retries: retries,
		base:    base,
		logger:  logger,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Delay returns the wait before the n-th retry (n starts at 1)
func (p *Policy) Delay(n int) time.Duration {
	if n > maxExponent {
		n = maxExponent
	}
	if n < 0 {
		n = 0
	}
	p.mu.Lock()
	jitter := p.rng.Float64()
	p.mu.Unlock()
	return p.base*time.Duration(1<<uint(n)) + time.Duration(jitter*float64(p.base))
}

// Execute runs fn until it succeeds, fails with a non-transient error, or the
// budget is spent. Non-transient errors are returned unchanged after one
// attempt; exhaustion returns *ExhaustedError.
func (p *Policy) Execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := 0
	retriesUsed := 0

	backoff := goretry.WithMaxRetries(uint64(p.retries), goretry.BackoffFunc(func() (time.Duration, bool) {
		retriesUsed++
		return p.Delay(retriesUsed), false
	}))

	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		if attempts <= p.retries {
			retriesTotal.WithLabelValues(op).Inc()
			p.logger.Warn("transient failure, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempts),
				zap.Int("retries_left", p.retries-attempts+1),
				zap.Error(err),
			)
		}
		return goretry.RetryableError(err)
	})
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}

	if IsTransient(err) {
		exhausted := &ExhaustedError{Op: op, Attempts: attempts, Err: err}
		p.logger.Error("retry budget exhausted",
			zap.String("op", op),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return exhausted
	}

	return err
}
