package queue

import (
	"context"
	"fmt"
	"time"
)

// Message is a received message leased to this worker until it is deleted
// or its visibility timeout expires.
type Message struct {
	ID         string
	AckToken   string
	Body       []byte
	Attributes map[string]any
}

// ReceiveOptions bounds a single receive call
type ReceiveOptions struct {
	MaxMessages       int
	WaitTime          time.Duration
	VisibilityTimeout time.Duration
}

// Client is the queue service capability used by the worker
type Client interface {
	// Receive long-polls the source queue. An empty slice means no messages.
	Receive(ctx context.Context, opts ReceiveOptions) ([]Message, error)
	// Send publishes body to the queue identified by queueID.
	Send(ctx context.Context, queueID string, body []byte) error
	// Delete acknowledges a received message.
	Delete(ctx context.Context, ackToken string) error
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	Close() error
}

// Kind classifies queue failures for the retry policy
type Kind int

const (
	// KindPermanent failures are returned without retrying
	KindPermanent Kind = iota
	// KindTransient failures (unreachable, throttled) may succeed on retry
	KindTransient
)

func (k Kind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "permanent"
}

// Error is the typed result of a failed queue operation
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("queue %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether a retry may succeed
func (e *Error) Transient() bool {
	return e.Kind == KindTransient
}

func newError(op string, err error, classify func(error) bool) error {
	if err == nil {
		return nil
	}
	kind := KindPermanent
	if classify(err) {
		kind = KindTransient
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
