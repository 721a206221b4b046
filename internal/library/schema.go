package library

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/cockroachdb/errors"
)

//go:embed schema.cue
var schemaSource string

// Schema returns the CUE source of the library document schema.
func Schema() string {
	return schemaSource
}

// Validate checks a JSON document against the library schema.
func Validate(data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return errors.Wrap(err, "compile library schema")
	}
	def := schema.LookupPath(cue.ParsePath("#Library"))

	doc := ctx.CompileBytes(data, cue.Filename("library.json"))
	if err := doc.Err(); err != nil {
		return formatCUEError(err)
	}
	if doc.IncompleteKind() != cue.StructKind {
		return errors.New("library document must be a JSON object")
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError flattens CUE's error list into one error, one line per
// problem, each prefixed with its path.
func formatCUEError(err error) error {
	var lines []string
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := strings.Join(e.Path(), "."); path != "" {
			msg = path + ": " + msg
		}
		lines = append(lines, msg)
	}
	if len(lines) == 0 {
		return err
	}
	return errors.Newf("schema: %s", strings.Join(lines, "; "))
}
