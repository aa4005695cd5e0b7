package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type kindError struct {
	transient bool
}

func (e *kindError) Error() string   { return fmt.Sprintf("kind error (transient=%v)", e.transient) }
func (e *kindError) Transient() bool { return e.transient }

var (
	errTransient = &kindError{transient: true}
	errPermanent = &kindError{transient: false}
)

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errTransient))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", errTransient)))
	assert.False(t, IsTransient(errPermanent))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.False(t, IsTransient(nil))
}

func TestDelay_BoundsWithSeed(t *testing.T) {
	p := NewPolicy(3, time.Second, zap.NewNop(), WithSeed(42))

	for n := 1; n <= 6; n++ {
		d := p.Delay(n)
		lower := time.Duration(1<<uint(n)) * time.Second
		assert.GreaterOrEqual(t, d, lower, "retry %d", n)
		assert.Less(t, d, lower+time.Second, "retry %d", n)
	}
}

func TestDelay_SeedIsReproducible(t *testing.T) {
	a := NewPolicy(3, time.Second, zap.NewNop(), WithSeed(7))
	b := NewPolicy(3, time.Second, zap.NewNop(), WithSeed(7))

	for n := 1; n <= 4; n++ {
		assert.Equal(t, a.Delay(n), b.Delay(n))
	}
}

func TestDelay_CapsExponent(t *testing.T) {
	// sub-nanosecond jitter truncates to zero
	p := NewPolicy(3, time.Nanosecond, zap.NewNop(), WithSeed(1))
	assert.Equal(t, time.Duration(1<<maxExponent), p.Delay(1000))
}

func TestExecute_SucceedsFirstTry(t *testing.T) {
	p := NewPolicy(3, time.Millisecond, zap.NewNop(), WithSeed(1))

	calls := 0
	err := p.Execute(context.Background(), "receive", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecute_RecoversAfterTransient(t *testing.T) {
	p := NewPolicy(3, time.Millisecond, zap.NewNop(), WithSeed(1))

	calls := 0
	err := p.Execute(context.Background(), "receive", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecute_ExhaustsAfterRetryCountPlusOne(t *testing.T) {
	for _, retries := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("retries=%d", retries), func(t *testing.T) {
			p := NewPolicy(retries, time.Millisecond, zap.NewNop(), WithSeed(1))

			calls := 0
			err := p.Execute(context.Background(), "receive", func(ctx context.Context) error {
				calls++
				return errTransient
			})

			var exhausted *ExhaustedError
			require.ErrorAs(t, err, &exhausted)
			assert.Equal(t, retries+1, calls)
			assert.Equal(t, retries+1, exhausted.Attempts)
			assert.Equal(t, "receive", exhausted.Op)
			assert.ErrorIs(t, err, errTransient)
		})
	}
}

func TestExecute_BudgetIsPerCall(t *testing.T) {
	p := NewPolicy(2, time.Millisecond, zap.NewNop(), WithSeed(1))

	for i := 0; i < 3; i++ {
		calls := 0
		err := p.Execute(context.Background(), "send", func(ctx context.Context) error {
			calls++
			if calls <= 2 {
				return errTransient
			}
			return nil
		})
		require.NoError(t, err, "call %d", i)
		assert.Equal(t, 3, calls)
	}
}

func TestExecute_DoesNotRetryPermanent(t *testing.T) {
	p := NewPolicy(3, time.Millisecond, zap.NewNop(), WithSeed(1))

	calls := 0
	err := p.Execute(context.Background(), "delete", func(ctx context.Context) error {
		calls++
		return errPermanent
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errPermanent)
	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestExecute_StopsOnCancel(t *testing.T) {
	p := NewPolicy(5, time.Hour, zap.NewNop(), WithSeed(1))

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Execute(ctx, "receive", func(ctx context.Context) error {
			calls++
			return errTransient
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after cancel")
	}
}
