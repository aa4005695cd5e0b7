package router

import (
	"fmt"

	"github.com/aescanero/dago-node-conformal/internal/eval/cel"
	"github.com/aescanero/dago-node-conformal/internal/eval/template"
	"go.uber.org/zap"
)

// Decision is the confidence band a message falls into
type Decision string

const (
	// DecisionSafe means p-value >= confidence_high; no annotation
	DecisionSafe Decision = "safe"

	// DecisionStandard means confidence_low <= p-value < confidence_high
	DecisionStandard Decision = "standard"

	// DecisionLowConfidence means p-value < confidence_low
	DecisionLowConfidence Decision = "low_confidence"
)

// Decisions lists every decision in band order
var Decisions = []Decision{DecisionSafe, DecisionStandard, DecisionLowConfidence}

// Rule maps a CEL condition to a decision
type Rule struct {
	Condition string
	Decision  Decision
}

// Band rules, evaluated in order; the first match wins
var defaultRules = []Rule{
	{Condition: "p_value >= confidence_high", Decision: DecisionSafe},
	{Condition: "p_value >= confidence_low", Decision: DecisionStandard},
}

// Config holds the thresholds and annotation templates
type Config struct {
	ConfidenceHigh float64
	ConfidenceLow  float64

	// Handlebars templates; rendered once with confidence_low_pct,
	// confidence_high_pct and error_odds
	StandardAnnotation      string
	LowConfidenceAnnotation string
}

// Router maps p-values to decisions. Route is a pure function of its input.
type Router struct {
	celEvaluator *cel.Evaluator
	rules        []Rule
	fallback     Decision
	vars         map[string]interface{}
	annotations  map[Decision]string
	logger       *zap.Logger
}

// NewRouter compiles the band rules and renders the annotations
func NewRouter(cfg Config, logger *zap.Logger) (*Router, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}
	for i, rule := range defaultRules {
		if err := evaluator.Compile(rule.Condition); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}

	engine := template.NewEngine()
	data := map[string]interface{}{
		"confidence_low":      cfg.ConfidenceLow,
		"confidence_high":     cfg.ConfidenceHigh,
		"confidence_low_pct":  template.Percent(cfg.ConfidenceLow),
		"confidence_high_pct": template.Percent(cfg.ConfidenceHigh),
		"error_odds":          template.ErrorOdds(cfg.ConfidenceLow),
	}

	standard, err := engine.Render(cfg.StandardAnnotation, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render standard annotation: %w", err)
	}
	low, err := engine.Render(cfg.LowConfidenceAnnotation, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render low confidence annotation: %w", err)
	}

	return &Router{
		celEvaluator: evaluator,
		rules:        defaultRules,
		fallback:     DecisionLowConfidence,
		vars: map[string]interface{}{
			cel.VarConfidenceHigh: cfg.ConfidenceHigh,
			cel.VarConfidenceLow:  cfg.ConfidenceLow,
		},
		annotations: map[Decision]string{
			DecisionSafe:          "",
			DecisionStandard:      standard,
			DecisionLowConfidence: low,
		},
		logger: logger,
	}, nil
}

// validateConfig validates the routing configuration
func validateConfig(cfg Config) error {
	if cfg.ConfidenceLow < 0 || cfg.ConfidenceHigh > 1 {
		return fmt.Errorf("thresholds must lie in [0, 1]")
	}
	if cfg.ConfidenceLow > cfg.ConfidenceHigh {
		return fmt.Errorf("confidence_low (%g) exceeds confidence_high (%g)", cfg.ConfidenceLow, cfg.ConfidenceHigh)
	}
	if cfg.StandardAnnotation == "" {
		return fmt.Errorf("standard annotation is required")
	}
	if cfg.LowConfidenceAnnotation == "" {
		return fmt.Errorf("low confidence annotation is required")
	}
	return nil
}

// Route returns the decision for pValue and the annotation to append
// (empty for DecisionSafe). Bands are half-open on their upper bound.
func (r *Router) Route(pValue float64) (Decision, string) {
	vars := make(map[string]interface{}, len(r.vars)+1)
	for k, v := range r.vars {
		vars[k] = v
	}
	vars[cel.VarPValue] = pValue

	decision := r.fallback
	for i, rule := range r.rules {
		matched, err := r.celEvaluator.Evaluate(rule.Condition, vars)
		if err != nil {
			// conditions are compiled and typed up front; treat a failure as the lowest band
			r.logger.Warn("rule evaluation error",
				zap.Int("rule_index", i),
				zap.String("condition", rule.Condition),
				zap.Error(err),
			)
			break
		}
		if matched {
			decision = rule.Decision
			break
		}
	}

	return decision, r.annotations[decision]
}
