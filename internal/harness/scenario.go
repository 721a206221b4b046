package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

// Scenario defines a conformance test scenario.
// A scenario loads one library, runs a sequence of batch calls against a
// manager and checks the per-element outcomes and the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Library is the path of a library document, relative to the
	// scenario file. Exactly one of Library and LibraryJSON is set.
	Library string `yaml:"library,omitempty"`

	// LibraryJSON is an inline library document.
	LibraryJSON string `yaml:"library_json,omitempty"`

	// Settings are passed to Initialize in addition to the library.
	Settings map[string]any `yaml:"settings,omitempty"`

	// Env holds the variables visible to ${name} substitution.
	// The process environment is never consulted.
	Env map[string]string `yaml:"env,omitempty"`

	// BatchID is the fixed batch id used for every call.
	// If empty, defaults to "test-batch-default".
	BatchID string `yaml:"batch_id,omitempty"`

	// Steps are the batch calls, executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one batch call.
type Step struct {
	// Op is the call to make. See the Op constants.
	Op string `yaml:"op"`

	// Access is the access mode. Defaults to "read".
	Access string `yaml:"access,omitempty"`

	// Refs are the references of the call (all ops except policy and
	// default_entity).
	Refs []string `yaml:"refs,omitempty"`

	// Traits is the trait set to resolve, or the result filter of a
	// related query.
	Traits []string `yaml:"traits,omitempty"`

	// Data holds per-reference trait data for register and preflight.
	Data []map[string]map[string]any `yaml:"data,omitempty"`

	// TraitSets are the sets queried by policy and default_entity.
	TraitSets [][]string `yaml:"trait_sets,omitempty"`

	// Relationships are the patterns of a related query. With one
	// pattern every ref is queried with it; with several, Refs must hold
	// exactly one reference.
	Relationships []map[string]map[string]any `yaml:"relationships,omitempty"`

	// PageSize is the page size of a related query. Defaults to 10.
	PageSize int `yaml:"page_size,omitempty"`

	// Expect lists the expected outcome of each element, by index.
	// If nil, element outcomes are recorded but not checked.
	Expect []ElementExpect `yaml:"expect,omitempty"`

	// ExpectError is a substring of the error expected to fail the whole
	// call.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ElementExpect is the expected outcome of one element. Exactly one of
// OK and Error is set.
type ElementExpect struct {
	// OK is the expected success value.
	OK yaml.Node `yaml:"ok"`

	// Error is the expected failure.
	Error *ErrorExpect `yaml:"error,omitempty"`
}

// hasOK reports whether an ok value was given. An explicit `ok: false`
// counts.
func (e ElementExpect) hasOK() bool {
	return e.OK.Kind != 0
}

// ErrorExpect describes an expected per-element failure.
type ErrorExpect struct {
	// Code is the expected batch error code.
	Code string `yaml:"code"`

	// Message, if set, must equal the error message.
	Message string `yaml:"message,omitempty"`
}

// Op names.
const (
	OpExists        = "exists"
	OpResolve       = "resolve"
	OpPreflight     = "preflight"
	OpRegister      = "register"
	OpPolicy        = "policy"
	OpEntityTraits  = "entity_traits"
	OpDefaultEntity = "default_entity"
	OpRelated       = "related"
)

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "op_count": Check the op was called exactly Count times
	// - "published": Check the journal holds Count publications, or the
	//   given Entity and Version
	// - "resolves": Resolve Ref for Traits and compare with Expect
	// - "exists": Check Ref exists (or not, with Expect false)
	Type string `yaml:"type"`

	// Op is the op name (used by op_count).
	Op string `yaml:"op,omitempty"`

	// Count is the expected number (used by op_count and published).
	Count *int `yaml:"count,omitempty"`

	// Entity and Version select a publication (used by published).
	Entity  string `yaml:"entity,omitempty"`
	Version int    `yaml:"version,omitempty"`

	// Ref is the reference to check (used by resolves and exists).
	Ref string `yaml:"ref,omitempty"`

	// Traits is the trait set to resolve (used by resolves).
	Traits []string `yaml:"traits,omitempty"`

	// Expect is the expected value (used by resolves and exists).
	Expect any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertOpCount   = "op_count"
	AssertPublished = "published"
	AssertResolves  = "resolves"
	AssertExists    = "exists"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// A relative Library path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Library != "" && !filepath.IsAbs(scenario.Library) {
		scenario.Library = filepath.Join(filepath.Dir(path), scenario.Library)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Library paths are left as given.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if (s.Library == "") == (s.LibraryJSON == "") {
		return fmt.Errorf("exactly one of library and library_json is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	if step.Access != "" {
		if _, err := ref.ParseAccess(step.Access); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	if step.PageSize < 0 {
		return fmt.Errorf("steps[%d]: page_size must be non-negative", index)
	}
	if step.ExpectError != "" && step.Expect != nil {
		return fmt.Errorf("steps[%d]: expect and expect_error are mutually exclusive", index)
	}
	for j, e := range step.Expect {
		if e.hasOK() == (e.Error != nil) {
			return fmt.Errorf("steps[%d].expect[%d]: exactly one of ok and error is required", index, j)
		}
	}

	switch step.Op {
	case OpExists, OpResolve, OpEntityTraits:
		if len(step.Refs) == 0 {
			return fmt.Errorf("steps[%d]: refs are required for %s", index, step.Op)
		}
	case OpPreflight, OpRegister:
		if len(step.Refs) == 0 {
			return fmt.Errorf("steps[%d]: refs are required for %s", index, step.Op)
		}
	case OpPolicy, OpDefaultEntity:
		if len(step.TraitSets) == 0 {
			return fmt.Errorf("steps[%d]: trait_sets are required for %s", index, step.Op)
		}
	case OpRelated:
		if len(step.Refs) == 0 || len(step.Relationships) == 0 {
			return fmt.Errorf("steps[%d]: refs and relationships are required for related", index)
		}
		if len(step.Relationships) > 1 && len(step.Refs) != 1 {
			return fmt.Errorf("steps[%d]: several relationships need exactly one ref", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOpCount:
		if a.Op == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: op and count are required for op_count", index)
		}
	case AssertPublished:
		if a.Count == nil && a.Entity == "" {
			return fmt.Errorf("assertions[%d]: count or entity is required for published", index)
		}
	case AssertResolves:
		if a.Ref == "" || a.Expect == nil {
			return fmt.Errorf("assertions[%d]: ref and expect are required for resolves", index)
		}
	case AssertExists:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for exists", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}

// access returns the step's access mode, defaulting to read.
func (s Step) access() ref.Access {
	if s.Access == "" {
		return ref.Read
	}
	a, _ := ref.ParseAccess(s.Access)
	return a
}

func (s Step) pageSize() int {
	if s.PageSize == 0 {
		return 10
	}
	return s.PageSize
}

func toTraitData(m map[string]map[string]any) (trait.Data, error) {
	if m == nil {
		return nil, nil
	}
	return trait.FromMap(m)
}

func toTraitSets(sets [][]string) []trait.Set {
	out := make([]trait.Set, len(sets))
	for i, s := range sets {
		out[i] = trait.NewSet(s...)
	}
	return out
}
