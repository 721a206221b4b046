package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testLibrary = "testdata/library.json"

// executeCommand runs the root command with args and returns its stdout
// and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCommand()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// query runs a batch command against the test library with no latency.
func query(t *testing.T, args ...string) (string, error) {
	t.Helper()
	args = append(args, "--library", testLibrary, "--latency", "0")
	out, _, err := executeCommand(t, args...)
	return out, err
}

type batchResponse struct {
	Status string      `json:"status"`
	Data   BatchResult `json:"data"`
	Error  *CLIError   `json:"error"`
}

func decodeBatch(t *testing.T, out string) batchResponse {
	t.Helper()
	var resp batchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func values(resp batchResponse) []any {
	out := make([]any, len(resp.Data.Elements))
	for i, el := range resp.Data.Elements {
		out[i] = el.Value
	}
	return out
}

// writeFile writes content to name under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// clearEnv hides BAL_* variables of the developer's shell from a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BAL_LIBRARY_PATH", "BAL_JOURNAL_PATH",
		"BAL_ENTITY_REFERENCE_URL_SCHEME", "BAL_SIMULATED_QUERY_LATENCY_MS"} {
		t.Setenv(key, "")
	}
}
