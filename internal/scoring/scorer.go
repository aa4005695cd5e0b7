package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/aescanero/dago-node-conformal/internal/baseline"
	"go.uber.org/zap"
)

// Capability computes the log-likelihood of a text under a language model
type Capability interface {
	Score(ctx context.Context, text string) (float64, error)
}

// CapabilityFunc adapts a function to Capability
type CapabilityFunc func(ctx context.Context, text string) (float64, error)

// Score calls f
func (f CapabilityFunc) Score(ctx context.Context, text string) (float64, error) {
	return f(ctx, text)
}

// ScoringError wraps any failure of the scoring capability. It is never retried.
type ScoringError struct {
	Err error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failed: %v", e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

// Result is the score of one message
type Result struct {
	LogLikelihood float64
	PValue        float64
}

// Scorer scores texts against a fixed baseline distribution
type Scorer struct {
	capability Capability
	baseline   *baseline.Distribution
	logger     *zap.Logger
}

// NewScorer creates a scorer; the baseline is shared read-only
func NewScorer(capability Capability, dist *baseline.Distribution, logger *zap.Logger) *Scorer {
	return &Scorer{
		capability: capability,
		baseline:   dist,
		logger:     logger,
	}
}

// ComputeLogLikelihood delegates to the capability. NaN results are rejected.
func (s *Scorer) ComputeLogLikelihood(ctx context.Context, text string) (float64, error) {
	ll, err := s.capability.Score(ctx, text)
	if err != nil {
		s.logger.Error("failed to compute log-likelihood", zap.Error(err))
		return 0, &ScoringError{Err: err}
	}
	if math.IsNaN(ll) {
		err := fmt.Errorf("capability returned NaN")
		s.logger.Error("failed to compute log-likelihood", zap.Error(err))
		return 0, &ScoringError{Err: err}
	}
	return ll, nil
}

// ComputePValue returns the empirical p-value of ll against dist
func ComputePValue(ll float64, dist *baseline.Distribution) float64 {
	return dist.PValue(ll)
}

// Score computes the log-likelihood of text and its p-value
func (s *Scorer) Score(ctx context.Context, text string) (Result, error) {
	ll, err := s.ComputeLogLikelihood(ctx, text)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		LogLikelihood: ll,
		PValue:        ComputePValue(ll, s.baseline),
	}

	s.logger.Debug("scored text",
		zap.Float64("log_likelihood", result.LogLikelihood),
		zap.Float64("p_value", result.PValue),
	)
	return result, nil
}
