package library

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ConfigError reports a library source that cannot be used: missing,
// unreadable, not JSON, or rejected by the schema. It is fatal to
// initialization and never reported per element.
type ConfigError struct {
	// Source is the file path, or "<inline>" for documents given as text.
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid library %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

const inlineSource = "<inline>"

func configError(source string, err error, hint string) error {
	ce := &ConfigError{Source: source, Err: err}
	if hint == "" {
		return errors.WithStack(ce)
	}
	return errors.WithHint(errors.WithStack(ce), hint)
}
