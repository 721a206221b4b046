package library

import (
	"bytes"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

// document mirrors the JSON layout of a library file.
type document struct {
	Variables        map[string]string          `json:"variables"`
	Capabilities     []string                   `json:"capabilities"`
	ManagementPolicy map[string]PolicyRules     `json:"managementPolicy"`
	DefaultEntities  map[string][]DefaultEntity `json:"defaultEntities"`
	Entities         map[string]*Entity         `json:"entities"`
}

// Load reads the library at path. An empty path yields Empty().
//
// The implicit variables bal_library_path, bal_library_dir and
// bal_library_dir_url describe the file's location. Variables declared in
// the document are layered on top and win on collision.
func Load(path string) (*Library, error) {
	if path == "" {
		return Empty(), nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, configError(path, errors.Wrap(err, "resolve path"), "")
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, configError(abs, errors.Wrap(err, "read"),
			"check that library_path (or BAL_LIBRARY_PATH) points at a readable JSON file")
	}

	lib, err := decode(abs, data)
	if err != nil {
		return nil, err
	}
	lib.Path = abs
	return lib, nil
}

// Parse decodes an inline JSON document. Implicit variables are present
// but empty.
func Parse(data []byte) (*Library, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, configError(inlineSource, errors.New("document is empty"),
			"provide library_json or library_path")
	}
	return decode("", data)
}

func decode(path string, data []byte) (*Library, error) {
	source := path
	if source == "" {
		source = inlineSource
	}

	if err := Validate(data); err != nil {
		return nil, configError(source, err, "see `bal validate --schema` for the document schema")
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, configError(source, errors.Wrap(err, "decode"), "")
	}

	lib := &Library{
		Entities:         doc.Entities,
		ManagementPolicy: make(map[ref.Access]PolicyRules, len(doc.ManagementPolicy)),
		DefaultEntities:  make(map[ref.Access][]DefaultEntity, len(doc.DefaultEntities)),
		Capabilities:     doc.Capabilities,
	}
	if lib.Entities == nil {
		lib.Entities = map[string]*Entity{}
	}

	for key, rules := range doc.ManagementPolicy {
		access, err := ref.ParseAccess(key)
		if err != nil {
			return nil, configError(source, errors.Wrap(err, "managementPolicy"), "")
		}
		lib.ManagementPolicy[access] = rules
	}
	for key, defaults := range doc.DefaultEntities {
		access, err := ref.ParseAccess(key)
		if err != nil {
			return nil, configError(source, errors.Wrap(err, "defaultEntities"), "")
		}
		lib.DefaultEntities[access] = defaults
	}

	for name, e := range lib.Entities {
		if e == nil {
			return nil, configError(source, errors.Newf("entity %q is null", name), "")
		}
		if e.Versions == nil {
			e.Versions = []*Version{}
		}
		for access := range e.OverrideByAccess {
			if _, err := ref.ParseAccess(string(access)); err != nil {
				return nil, configError(source, errors.Wrapf(err, "entity %q overrideByAccess", name), "")
			}
		}
		for i := range e.Relations {
			if e.Relations[i].Traits == nil {
				e.Relations[i].Traits = trait.Data{}
			}
		}
	}

	lib.Variables = implicitVariables(path)
	for k, v := range doc.Variables {
		lib.Variables[k] = v
	}
	return lib, nil
}

func implicitVariables(path string) map[string]string {
	vars := map[string]string{
		VarLibraryPath:   "",
		VarLibraryDir:    "",
		VarLibraryDirURL: "",
	}
	if path == "" {
		return vars
	}
	dir := filepath.Dir(path)
	vars[VarLibraryPath] = path
	vars[VarLibraryDir] = dir
	vars[VarLibraryDirURL] = (&url.URL{Scheme: "file", Path: filepath.ToSlash(dir)}).String()
	return vars
}
