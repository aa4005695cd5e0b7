package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/dago-node-conformal/internal/config"
	"github.com/aescanero/dago-node-conformal/internal/queue"
	"github.com/aescanero/dago-node-conformal/internal/retry"
	"github.com/aescanero/dago-node-conformal/internal/router"
	"github.com/aescanero/dago-node-conformal/internal/scoring"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the position of the worker loop
type State string

const (
	StateIdle       State = "idle"
	StateReceiving  State = "receiving"
	StateProcessing State = "processing"
	// StateDraining means the deadline passed mid-batch; the batch still completes
	StateDraining   State = "draining"
	StateTerminated State = "terminated"
)

// Options bounds one run of the worker
type Options struct {
	MaxRuntime        time.Duration
	BatchSize         int
	WaitTime          time.Duration
	VisibilityTimeout time.Duration

	// Targets maps every decision to its downstream queue
	Targets map[router.Decision]string
}

// OptionsFromConfig builds run options from the configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxRuntime:        cfg.MaxRuntime(),
		BatchSize:         cfg.BatchSize,
		WaitTime:          cfg.WaitTime(),
		VisibilityTimeout: cfg.VisibilityTimeout(),
		Targets: map[router.Decision]string{
			router.DecisionSafe:          cfg.SafeQueue,
			router.DecisionStandard:      cfg.StandardQueue,
			router.DecisionLowConfidence: cfg.LowConfidenceQueue,
		},
	}
}

// Stats summarizes a run
type Stats struct {
	Batches    int
	Processed  int
	ByDecision map[router.Decision]int
}

// Worker drains the source queue: receive, decode, score, route, dispatch,
// then acknowledge. Messages are handled one at a time in receipt order.
type Worker struct {
	id     string
	opts   Options
	queue  queue.Client
	scorer *scoring.Scorer
	router *router.Router
	retry  *retry.Policy
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	state State
	stats Stats
}

// Option customizes a Worker
type Option func(*Worker)

// WithClock replaces the wall clock used for the run deadline
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		w.now = now
	}
}

// NewWorker creates a new worker
func NewWorker(
	id string,
	opts Options,
	queueClient queue.Client,
	scorer *scoring.Scorer,
	routerInstance *router.Router,
	retryPolicy *retry.Policy,
	logger *zap.Logger,
	options ...Option,
) (*Worker, error) {
	for _, d := range router.Decisions {
		if opts.Targets[d] == "" {
			return nil, fmt.Errorf("no target queue for decision %s", d)
		}
	}
	if opts.MaxRuntime <= 0 {
		return nil, fmt.Errorf("max runtime must be positive")
	}

	w := &Worker{
		id:     id,
		opts:   opts,
		queue:  queueClient,
		scorer: scorer,
		router: routerInstance,
		retry:  retryPolicy,
		logger: logger,
		now:    time.Now,
		state:  StateIdle,
		stats:  Stats{ByDecision: make(map[router.Decision]int)},
	}
	for _, opt := range options {
		opt(w)
	}
	return w, nil
}

// State returns the current loop state
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Stats returns a copy of the run statistics
func (w *Worker) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	byDecision := make(map[router.Decision]int, len(w.stats.ByDecision))
	for k, v := range w.stats.ByDecision {
		byDecision[k] = v
	}
	return Stats{Batches: w.stats.Batches, Processed: w.stats.Processed, ByDecision: byDecision}
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Run drains the queue until the deadline passes, the queue is empty, or a
// message fails. The deadline and ctx are checked once per iteration, so a
// batch in progress always completes or fails as a whole. A nil return means
// a graceful stop; any error leaves the failing message and the rest of its
// batch unacknowledged for redelivery.
func (w *Worker) Run(ctx context.Context) error {
	logger := w.logger.With(
		zap.String("worker_id", w.id),
		zap.String("run_id", uuid.NewString()),
	)

	w.setState(StateIdle)
	defer w.setState(StateTerminated)

	deadline := w.now().Add(w.opts.MaxRuntime)
	logger.Info("worker run started",
		zap.Time("deadline", deadline),
		zap.Int("batch_size", w.opts.BatchSize),
	)

	for {
		if w.now().After(deadline) {
			logger.Info("run deadline reached, stopping", zap.Any("stats", w.Stats()))
			return nil
		}
		if ctx.Err() != nil {
			logger.Info("run cancelled, stopping", zap.Any("stats", w.Stats()))
			return nil
		}

		w.setState(StateReceiving)
		messages, err := w.receive(ctx)
		if err != nil {
			logger.Error("failed to receive messages", zap.Error(err))
			return fmt.Errorf("failed to receive messages: %w", err)
		}

		if len(messages) == 0 {
			logger.Info("queue drained, stopping", zap.Any("stats", w.Stats()))
			return nil
		}

		batchesReceived.Inc()
		w.mu.Lock()
		w.stats.Batches++
		w.mu.Unlock()

		w.setState(StateProcessing)
		logger.Debug("processing batch", zap.Int("messages", len(messages)))

		for _, msg := range messages {
			if w.State() == StateProcessing && w.now().After(deadline) {
				logger.Info("run deadline passed mid-batch, draining current batch")
				w.setState(StateDraining)
			}
			if err := w.handleMessage(ctx, logger, msg); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) receive(ctx context.Context) ([]queue.Message, error) {
	var messages []queue.Message
	err := w.retry.Execute(ctx, "receive", func(ctx context.Context) error {
		var err error
		messages, err = w.queue.Receive(ctx, queue.ReceiveOptions{
			MaxMessages:       w.opts.BatchSize,
			WaitTime:          w.opts.WaitTime,
			VisibilityTimeout: w.opts.VisibilityTimeout,
		})
		return err
	})
	return messages, err
}

// handleMessage runs the full chain for one message and deletes it only
// after the annotated copy has been dispatched
func (w *Worker) handleMessage(ctx context.Context, logger *zap.Logger, msg queue.Message) error {
	logger = logger.With(zap.String("message_id", msg.ID))

	payload, err := DecodePayload(msg.Body)
	if err != nil {
		derr := &DecodeError{MessageID: msg.ID, Err: err}
		messageFailures.WithLabelValues("decode").Inc()
		logger.Error("failed to decode message", zap.Error(derr))
		return derr
	}

	start := time.Now()
	result, err := w.scorer.Score(ctx, payload.Text)
	scoringLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		messageFailures.WithLabelValues("score").Inc()
		logger.Error("failed to score message", zap.Error(err))
		return fmt.Errorf("message %s: %w", msg.ID, err)
	}
	pValues.Observe(result.PValue)

	decision, annotation := w.router.Route(result.PValue)
	target := w.opts.Targets[decision]

	body, err := payload.Encode(annotation)
	if err != nil {
		messageFailures.WithLabelValues("encode").Inc()
		logger.Error("failed to encode message", zap.Error(err))
		return fmt.Errorf("message %s: %w", msg.ID, err)
	}

	err = w.retry.Execute(ctx, "send", func(ctx context.Context) error {
		return w.queue.Send(ctx, target, body)
	})
	if err != nil {
		messageFailures.WithLabelValues("send").Inc()
		logger.Error("failed to dispatch message",
			zap.String("target", target),
			zap.Error(err),
		)
		return fmt.Errorf("message %s: failed to dispatch: %w", msg.ID, err)
	}

	err = w.retry.Execute(ctx, "delete", func(ctx context.Context) error {
		return w.queue.Delete(ctx, msg.AckToken)
	})
	if err != nil {
		messageFailures.WithLabelValues("delete").Inc()
		logger.Error("failed to acknowledge message", zap.Error(err))
		return fmt.Errorf("message %s: failed to acknowledge: %w", msg.ID, err)
	}

	messagesRouted.WithLabelValues(string(decision)).Inc()
	w.mu.Lock()
	w.stats.Processed++
	w.stats.ByDecision[decision]++
	w.mu.Unlock()

	logger.Info("message routed",
		zap.Float64("log_likelihood", result.LogLikelihood),
		zap.Float64("p_value", result.PValue),
		zap.String("decision", string(decision)),
		zap.String("target", target),
	)
	return nil
}
