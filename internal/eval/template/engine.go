package template

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/aymerick/raymond"
)

// raymond keeps helpers in a global registry that panics on duplicates
var registerOnce sync.Once

// Engine renders Handlebars templates
type Engine struct {
	cache map[string]*raymond.Template
	mu    sync.RWMutex
}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	registerOnce.Do(registerHelpers)

	return &Engine{
		cache: make(map[string]*raymond.Template),
	}
}

// Render renders a template with the given data
func (e *Engine) Render(templateStr string, data interface{}) (string, error) {
	tmpl, err := e.getTemplate(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to compile template: %w", err)
	}

	result, err := tmpl.Exec(data)
	if err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return result, nil
}

// getTemplate gets a compiled template from cache or compiles it
func (e *Engine) getTemplate(templateStr string) (*raymond.Template, error) {
	e.mu.RLock()
	if tmpl, ok := e.cache[templateStr]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.cache[templateStr]; ok {
		return tmpl, nil
	}

	tmpl, err := raymond.Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	e.cache[templateStr] = tmpl

	return tmpl, nil
}

// Percent formats a probability as a percentage with at most one decimal (0.95 -> "95")
func Percent(p float64) string {
	return strconv.FormatFloat(math.Round(p*1000)/10, 'f', -1, 64)
}

// ErrorOdds formats the complement of a confidence level as "1/N" (0.95 -> "1/20")
func ErrorOdds(confidence float64) string {
	if confidence >= 1 {
		return "0"
	}
	return "1/" + strconv.FormatFloat(math.Round(1/(1-confidence)), 'f', -1, 64)
}

func registerHelpers() {
	// percent helper - 0.95 -> 95
	raymond.RegisterHelper("percent", func(p float64) string {
		return Percent(p)
	})

	// odds helper - 0.95 -> 1/20
	raymond.RegisterHelper("odds", func(p float64) string {
		return ErrorOdds(p)
	})
}
