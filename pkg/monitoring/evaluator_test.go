package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_SimpleComparison(t *testing.T) {
	ok, err := Evaluate("error_rate > 0.5", map[string]float64{"error_rate": 0.8})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_FalseWhenBelowThreshold(t *testing.T) {
	ok, err := Evaluate("error_rate > 0.5", map[string]float64{"error_rate": 0.2})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_BooleanCombinators(t *testing.T) {
	metrics := map[string]float64{"queue_depth": 120, "failed_jobs": 3}
	ok, err := Evaluate("queue_depth > 100 && failed_jobs >= 1", metrics)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_Arithmetic(t *testing.T) {
	metrics := map[string]float64{"succeeded": 90, "total": 100}
	ok, err := Evaluate("succeeded / total < 0.95", metrics)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_UnknownMetricErrors(t *testing.T) {
	_, err := Evaluate("missing > 1", map[string]float64{})
	assert.Error(t, err)
}

func TestEvaluate_NonBooleanExpressionErrors(t *testing.T) {
	_, err := Evaluate("1 + 2", map[string]float64{})
	assert.Error(t, err)
}

func TestEvaluate_RejectsNonArithmeticSyntax(t *testing.T) {
	_, err := Evaluate(`fmt.Println("x")`, map[string]float64{})
	assert.Error(t, err)
}
