package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int { return &n }

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertOpCount,
		Expected: "resolve called 2 times",
		Actual:   "called 1 times",
		Trace: []TraceEvent{
			{Seq: 1, Op: "resolve", Access: "read", Elements: []ElementOutcome{{Index: 0, OK: true}}},
			{Seq: 2, Op: "policy", Access: "read", Error: "boom"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: op_count")
	assert.Contains(t, msg, "Expected: resolve called 2 times")
	assert.Contains(t, msg, "Actual: called 1 times")
	assert.Contains(t, msg, "[1] resolve (read) 1 elements")
	assert.Contains(t, msg, "[2] policy (read) 0 elements error: boom")
}

func TestAssertOpCount(t *testing.T) {
	trace := []TraceEvent{{Op: OpResolve}, {Op: OpExists}, {Op: OpResolve}}

	assert.NoError(t, assertOpCount(trace, Assertion{Type: AssertOpCount, Op: OpResolve, Count: intPtr(2)}))
	assert.NoError(t, assertOpCount(trace, Assertion{Type: AssertOpCount, Op: OpRegister, Count: intPtr(0)}))

	err := assertOpCount(trace, Assertion{Type: AssertOpCount, Op: OpExists, Count: intPtr(3)})
	var ae *AssertionError
	assert.ErrorAs(t, err, &ae)
	assert.Equal(t, "called 1 times", ae.Actual)
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: "vibes"}}, nil)
	assert.Equal(t, []string{"assertion 0: unknown assertion type: vibes"}, errs)
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual([]string{"a"}, []any{"a"}))
	assert.True(t, valuesEqual(map[string]any{"n": 1}, map[string]any{"n": 1.0}))
	assert.False(t, valuesEqual(true, false))
	assert.False(t, valuesEqual(map[string]any{}, []any{}))
}
