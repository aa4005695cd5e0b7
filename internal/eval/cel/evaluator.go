package cel

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Variables available to band conditions
const (
	VarPValue         = "p_value"
	VarConfidenceHigh = "confidence_high"
	VarConfidenceLow  = "confidence_low"
)

// Evaluator evaluates boolean CEL conditions over a p-value and the configured thresholds
type Evaluator struct {
	env   *cel.Env
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewEvaluator creates a new CEL evaluator
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarPValue, cel.DoubleType),
		cel.Variable(VarConfidenceHigh, cel.DoubleType),
		cel.Variable(VarConfidenceLow, cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Evaluate evaluates a condition with the given variables
func (e *Evaluator) Evaluate(expression string, vars map[string]interface{}) (bool, error) {
	program, err := e.getProgram(expression)
	if err != nil {
		return false, fmt.Errorf("failed to compile expression: %w", err)
	}

	out, _, err := program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluation failed: %w", err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q did not return a boolean", expression)
	}

	return matched, nil
}

// Compile checks a condition and caches its program
func (e *Evaluator) Compile(expression string) error {
	_, err := e.getProgram(expression)
	return err
}

// getProgram gets a compiled program from cache or compiles it
func (e *Evaluator) getProgram(expression string) (cel.Program, error) {
	e.mu.RLock()
	if program, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return program, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Check again in case another goroutine compiled it
	if program, ok := e.cache[expression]; ok {
		return program, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("parse error: %w", issues.Err())
	}

	if ast.OutputType().String() != cel.BoolType.String() {
		return nil, fmt.Errorf("expression %q must return bool, got %s", expression, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program generation error: %w", err)
	}

	e.cache[expression] = program

	return program, nil
}
