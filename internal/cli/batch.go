package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/bal/internal/manager"
	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

// ElementResult is the outcome of one element of a batch command.
type ElementResult struct {
	Index int       `json:"index"`
	Input string    `json:"input"`
	OK    bool      `json:"ok"`
	Value any       `json:"value"`
	Error *CLIError `json:"error,omitempty"`
}

// BatchResult holds the outcome of a batch command, one element per input
// in input order.
type BatchResult struct {
	Op       string          `json:"op"`
	Access   ref.Access      `json:"access"`
	Elements []ElementResult `json:"elements"`
	Failed   int             `json:"failed"`
}

func newBatchResult(op string, access ref.Access, inputs []string) *BatchResult {
	r := &BatchResult{Op: op, Access: access, Elements: make([]ElementResult, len(inputs))}
	for i, in := range inputs {
		r.Elements[i] = ElementResult{Index: i, Input: in}
	}
	return r
}

func (r *BatchResult) ok(idx int, v any) {
	r.Elements[idx].OK = true
	r.Elements[idx].Value = v
}

func (r *BatchResult) fail(idx int, err manager.BatchElementError) {
	r.Elements[idx].Error = &CLIError{Code: string(err.Code), Message: err.Message}
	r.Failed++
}

// writeBatch prints r and turns element failures into exit code 1.
func writeBatch(out *OutputFormatter, r *BatchResult) error {
	if out.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: r}
		if r.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeBatch,
				Message: fmt.Sprintf("%d of %d element(s) failed", r.Failed, len(r.Elements)),
			}
		}
		if err := out.encode(resp); err != nil {
			return err
		}
	} else {
		for _, el := range r.Elements {
			if el.OK {
				fmt.Fprintf(out.Writer, "✓ %s %s\n", el.Input, render(el.Value))
				continue
			}
			fmt.Fprintf(out.Writer, "✗ %s [%s] %s\n", el.Input, el.Error.Code, el.Error.Message)
		}
	}

	if r.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d element(s) failed", r.Failed, len(r.Elements)))
	}
	return nil
}

// render formats a value for text output: strings raw, everything else as
// canonical JSON.
func render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := trait.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// parseAccess validates an --access flag value.
func parseAccess(s string) (ref.Access, error) {
	a, err := ref.ParseAccess(s)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid --access", err)
	}
	return a, nil
}

// parseTraitData decodes a JSON object of trait id to properties.
func parseTraitData(flag, s string) (trait.Data, error) {
	var d trait.Data
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s", flag), err)
	}
	if d == nil {
		d = trait.Data{}
	}
	return d, nil
}

// parseTraitSets splits each argument on commas into a trait set.
// "a,b" and "c" give {a, b} and {c}.
func parseTraitSets(args []string) []trait.Set {
	sets := make([]trait.Set, len(args))
	for i, arg := range args {
		sets[i] = splitTraits(arg)
	}
	return sets
}

func splitTraits(s string) trait.Set {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return trait.NewSet(ids...)
}
