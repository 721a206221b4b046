package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/bal/internal/manager"
	"github.com/roach88/bal/internal/store"
	"github.com/roach88/bal/internal/subst"
	"github.com/roach88/bal/internal/testutil"
	"github.com/roach88/bal/internal/trait"
)

// Harness runs scenario steps against one manager.
// Batch ids are fixed and simulated latency is recorded, never slept, so
// the same scenario always yields the same trace.
type Harness struct {
	manager *manager.Manager
	journal *store.Store
	sleeper *testutil.RecordingSleeper
	batchID string
	seq     int64
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh manager and an in-memory journal.
// A returned error means the scenario could not be executed at all; a
// scenario that ran but failed its expectations returns a Result with
// Pass false.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer st.Close()

	ids := testutil.NewFixedIDGenerator(scenario.BatchID)
	sleeper := testutil.NewRecordingSleeper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	m := manager.New(
		manager.WithLogger(logger),
		manager.WithSleeper(sleeper.Sleep),
		manager.WithIDGenerator(ids),
		manager.WithJournal(st),
		manager.WithEnvironment(subst.MapEnvironment(scenario.Env)),
		manager.WithLookupEnv(func(string) (string, bool) { return "", false }),
	)

	settings := make(map[string]any, len(scenario.Settings)+1)
	maps.Copy(settings, scenario.Settings)
	if scenario.LibraryJSON != "" {
		settings[manager.SettingLibraryJSON] = scenario.LibraryJSON
	} else {
		settings[manager.SettingLibraryPath] = scenario.Library
	}
	if err := m.Initialize(settings); err != nil {
		return nil, fmt.Errorf("failed to initialize manager: %w", err)
	}

	h := &Harness{
		manager: m,
		journal: st,
		sleeper: sleeper,
		batchID: ids.Generate(),
		logger:  logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.addEvent(ev)
		for _, msg := range checkStep(i, step, ev) {
			result.AddError(msg)
		}
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Manager: m,
		Journal: st,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// collector gathers the callbacks of one batch call.
type collector struct {
	out map[int]ElementOutcome
}

func newCollector() *collector {
	return &collector{out: map[int]ElementOutcome{}}
}

func (c *collector) ok(idx int, v any) {
	c.out[idx] = ElementOutcome{Index: idx, OK: v}
}

func (c *collector) fail(idx int, err manager.BatchElementError) {
	c.out[idx] = ElementOutcome{Index: idx, Error: &ErrorOutcome{Code: string(err.Code), Message: err.Message}}
}

func (c *collector) elements() []ElementOutcome {
	out := make([]ElementOutcome, 0, len(c.out))
	for _, idx := range slices.Sorted(maps.Keys(c.out)) {
		out = append(out, c.out[idx])
	}
	return out
}

// execute makes the batch call for step. A failed call is recorded in
// the event; only malformed step data is returned as an error.
func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	h.seq++
	access := step.access()
	ev := TraceEvent{Seq: h.seq, Op: step.Op, Access: string(access), BatchID: h.batchID}
	c := newCollector()

	var callErr error
	switch step.Op {
	case OpExists:
		callErr = h.manager.EntityExists(ctx, step.Refs, access,
			func(i int, exists bool) { c.ok(i, exists) }, c.fail)

	case OpResolve:
		callErr = h.manager.Resolve(ctx, step.Refs, trait.NewSet(step.Traits...), access,
			func(i int, d trait.Data) { c.ok(i, d) }, c.fail)

	case OpPreflight, OpRegister:
		data := make([]trait.Data, len(step.Data))
		for i, m := range step.Data {
			d, err := toTraitData(m)
			if err != nil {
				return ev, fmt.Errorf("data[%d]: %w", i, err)
			}
			data[i] = d
		}
		onSuccess := func(i int, reference string) { c.ok(i, reference) }
		if step.Op == OpPreflight {
			callErr = h.manager.Preflight(ctx, step.Refs, data, access, onSuccess, c.fail)
		} else {
			callErr = h.manager.Register(ctx, step.Refs, data, access, onSuccess, c.fail)
		}

	case OpPolicy:
		var policies []trait.Data
		policies, callErr = h.manager.ManagementPolicy(ctx, toTraitSets(step.TraitSets), access)
		for i, p := range policies {
			c.ok(i, p)
		}

	case OpEntityTraits:
		callErr = h.manager.EntityTraits(ctx, step.Refs, access,
			func(i int, set trait.Set) { c.ok(i, set) }, c.fail)

	case OpDefaultEntity:
		callErr = h.manager.DefaultEntityReference(ctx, toTraitSets(step.TraitSets), access,
			func(i int, reference string) { c.ok(i, reference) }, c.fail)

	case OpRelated:
		patterns := make([]trait.Data, len(step.Relationships))
		for i, m := range step.Relationships {
			d, err := toTraitData(m)
			if err != nil {
				return ev, fmt.Errorf("relationships[%d]: %w", i, err)
			}
			if d == nil {
				d = trait.Data{}
			}
			patterns[i] = d
		}
		onSuccess := func(i int, p *manager.Pager) { c.ok(i, p.All()) }
		filter := trait.NewSet(step.Traits...)
		if len(patterns) == 1 {
			callErr = h.manager.GetWithRelationship(ctx, step.Refs, patterns[0], step.pageSize(),
				access, filter, onSuccess, c.fail)
		} else {
			callErr = h.manager.GetWithRelationships(ctx, step.Refs[0], patterns, step.pageSize(),
				access, filter, onSuccess, c.fail)
		}

	default:
		return ev, fmt.Errorf("unknown op %q", step.Op)
	}

	if callErr != nil {
		ev.Error = callErr.Error()
		h.logger.Info("step failed", "seq", ev.Seq, "op", step.Op, "error", callErr)
		return ev, nil
	}
	ev.Elements = c.elements()
	h.logger.Info("step completed", "seq", ev.Seq, "op", step.Op, "elements", len(ev.Elements))
	return ev, nil
}

// checkStep compares the recorded event with the step's expectations.
func checkStep(index int, step Step, ev TraceEvent) []string {
	var errs []string
	prefix := fmt.Sprintf("step %d (%s)", index, step.Op)

	if step.ExpectError != "" {
		switch {
		case ev.Error == "":
			errs = append(errs, fmt.Sprintf("%s: expected call to fail with %q, but it succeeded", prefix, step.ExpectError))
		case !strings.Contains(ev.Error, step.ExpectError):
			errs = append(errs, fmt.Sprintf("%s: expected error containing %q, got %q", prefix, step.ExpectError, ev.Error))
		}
		return errs
	}
	if ev.Error != "" {
		return append(errs, fmt.Sprintf("%s: call failed: %s", prefix, ev.Error))
	}
	if step.Expect == nil {
		return nil
	}

	if len(step.Expect) != len(ev.Elements) {
		return append(errs, fmt.Sprintf("%s: expected %d element outcomes, got %d", prefix, len(step.Expect), len(ev.Elements)))
	}

	for i, want := range step.Expect {
		got := ev.Elements[i]
		where := fmt.Sprintf("%s element %d", prefix, i)

		if want.Error != nil {
			if got.Error == nil {
				errs = append(errs, fmt.Sprintf("%s: expected error %s, got ok %v", where, want.Error.Code, got.OK))
				continue
			}
			if got.Error.Code != want.Error.Code {
				errs = append(errs, fmt.Sprintf("%s: expected error code %s, got %s (%s)", where, want.Error.Code, got.Error.Code, got.Error.Message))
			}
			if want.Error.Message != "" && got.Error.Message != want.Error.Message {
				errs = append(errs, fmt.Sprintf("%s: expected message %q, got %q", where, want.Error.Message, got.Error.Message))
			}
			continue
		}

		if got.Error != nil {
			errs = append(errs, fmt.Sprintf("%s: expected ok, got %s: %s", where, got.Error.Code, got.Error.Message))
			continue
		}
		var expected any
		if err := want.OK.Decode(&expected); err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid expected value: %v", where, err))
			continue
		}
		if !valuesEqual(got.OK, expected) {
			errs = append(errs, fmt.Sprintf("%s: expected %s, got %s", where, render(expected), render(got.OK)))
		}
	}
	return errs
}

// valuesEqual compares values through their JSON form, so trait values
// compare equal to the plain YAML values that describe them.
func valuesEqual(actual, expected any) bool {
	a, errA := normalize(actual)
	e, errE := normalize(expected)
	if errA != nil || errE != nil {
		return false
	}
	return reflect.DeepEqual(a, e)
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func render(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
