package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FindScenarios returns the scenario files at path. A file is returned
// as is; a directory yields its *.yaml and *.yml files, sorted, without
// descending into subdirectories.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	slices.Sort(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", path)
	}
	return files, nil
}
