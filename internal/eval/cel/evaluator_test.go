package cel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vars(p float64) map[string]interface{} {
	return map[string]interface{}{
		VarPValue:         p,
		VarConfidenceHigh: 0.99,
		VarConfidenceLow:  0.95,
	}
}

func TestEvaluate(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		expr string
		p    float64
		want bool
	}{
		{"p_value >= confidence_high", 0.99, true},
		{"p_value >= confidence_high", 0.9899999, false},
		{"p_value >= confidence_low", 0.95, true},
		{"p_value >= confidence_low", 0.9499999, false},
		{"p_value >= confidence_low && p_value < confidence_high", 0.97, true},
	}

	for _, tt := range tests {
		got, err := e.Evaluate(tt.expr, vars(tt.p))
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, got, "%s with p=%v", tt.expr, tt.p)
	}
}

func TestCompile_RejectsBadExpressions(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	assert.Error(t, e.Compile("p_value >="))
	assert.Error(t, e.Compile("unknown_var > 1.0"))
	assert.Error(t, e.Compile("p_value + 1.0"))
	assert.NoError(t, e.Compile("p_value < 0.5"))
}

func TestEvaluate_CachesPrograms(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	_, err = e.Evaluate("p_value > 0.5", vars(0.7))
	require.NoError(t, err)
	_, err = e.Evaluate("p_value > 0.5", vars(0.2))
	require.NoError(t, err)

	assert.Len(t, e.cache, 1)
}
