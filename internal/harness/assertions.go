package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/bal/internal/manager"
	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/store"
	"github.com/roach88/bal/internal/trait"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s (%s) %d elements", event.Seq, event.Op, event.Access, len(event.Elements))
			if event.Error != "" {
				fmt.Fprintf(&buf, " error: %s", event.Error)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext carries what final-state assertions query.
type AssertionContext struct {
	Ctx     context.Context
	Manager *manager.Manager
	Journal *store.Store
}

// assertOpCount checks the op was called exactly the specified number of times.
func assertOpCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == assertion.Op {
			count++
		}
	}

	if count != *assertion.Count {
		return &AssertionError{
			Type:     AssertOpCount,
			Expected: fmt.Sprintf("%s called %d times", assertion.Op, *assertion.Count),
			Actual:   fmt.Sprintf("called %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertPublished checks the journal.
func assertPublished(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	pubs, err := actx.Journal.ReadAll(actx.Ctx)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	if assertion.Count != nil && len(pubs) != *assertion.Count {
		return &AssertionError{
			Type:     AssertPublished,
			Expected: fmt.Sprintf("%d publications", *assertion.Count),
			Actual:   fmt.Sprintf("%d publications", len(pubs)),
			Trace:    trace,
		}
	}

	if assertion.Entity == "" {
		return nil
	}
	var seen []string
	for _, p := range pubs {
		if p.Name == assertion.Entity && (assertion.Version == 0 || p.Version == assertion.Version) {
			return nil
		}
		seen = append(seen, p.Locator().String())
	}
	want := assertion.Entity
	if assertion.Version != 0 {
		want = fmt.Sprintf("%s version %d", assertion.Entity, assertion.Version)
	}
	return &AssertionError{
		Type:     AssertPublished,
		Expected: "publication of " + want,
		Actual:   fmt.Sprintf("published %v", seen),
		Trace:    trace,
	}
}

// assertResolves resolves one reference for read and compares the data.
func assertResolves(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	var (
		got    trait.Data
		failed *manager.BatchElementError
	)
	err := actx.Manager.Resolve(actx.Ctx, []string{assertion.Ref}, trait.NewSet(assertion.Traits...), ref.Read,
		func(_ int, d trait.Data) { got = d },
		func(_ int, e manager.BatchElementError) { failed = &e })
	if err != nil {
		return fmt.Errorf("resolve %s: %w", assertion.Ref, err)
	}

	if failed != nil {
		return &AssertionError{
			Type:     AssertResolves,
			Expected: fmt.Sprintf("%s resolves to %s", assertion.Ref, render(assertion.Expect)),
			Actual:   failed.Error(),
			Trace:    trace,
		}
	}
	if !valuesEqual(got, assertion.Expect) {
		return &AssertionError{
			Type:     AssertResolves,
			Expected: fmt.Sprintf("%s resolves to %s", assertion.Ref, render(assertion.Expect)),
			Actual:   render(got),
			Trace:    trace,
		}
	}
	return nil
}

// assertExists checks existence for read. Expect defaults to true.
func assertExists(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	want := true
	if b, ok := assertion.Expect.(bool); ok {
		want = b
	}

	var (
		got    bool
		failed *manager.BatchElementError
	)
	err := actx.Manager.EntityExists(actx.Ctx, []string{assertion.Ref}, ref.Read,
		func(_ int, exists bool) { got = exists },
		func(_ int, e manager.BatchElementError) { failed = &e })
	if err != nil {
		return fmt.Errorf("exists %s: %w", assertion.Ref, err)
	}
	if failed != nil {
		return &AssertionError{Type: AssertExists, Expected: fmt.Sprintf("exists=%t", want), Actual: failed.Error(), Trace: trace}
	}
	if got != want {
		return &AssertionError{
			Type:     AssertExists,
			Expected: fmt.Sprintf("%s exists=%t", assertion.Ref, want),
			Actual:   fmt.Sprintf("exists=%t", got),
			Trace:    trace,
		}
	}
	return nil
}

// EvaluateAssertions runs all assertions and collects their failures.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOpCount:
			err = assertOpCount(result.Trace, assertion)
		case AssertPublished:
			err = assertPublished(actx, result.Trace, assertion)
		case AssertResolves:
			err = assertResolves(actx, result.Trace, assertion)
		case AssertExists:
			err = assertExists(actx, result.Trace, assertion)
		default:
			err = fmt.Errorf("unknown assertion type: %s", assertion.Type)
		}

		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}

	return errors
}
