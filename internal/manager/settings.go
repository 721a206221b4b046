package manager

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/bal/internal/ref"
)

// Setting keys.
const (
	SettingLibraryPath              = "library_path"
	SettingLibraryJSON              = "library_json"
	SettingSimulatedQueryLatency    = "simulated_query_latency_ms"
	SettingEntityReferenceURLScheme = "entity_reference_url_scheme"
)

// DefaultSimulatedQueryLatencyMS is the latency applied when none is set.
const DefaultSimulatedQueryLatencyMS = 10

// LibraryPathEnv is consulted when no library source is configured.
const LibraryPathEnv = "BAL_LIBRARY_PATH"

// Settings is the validated manager configuration.
type Settings struct {
	LibraryPath              string
	LibraryJSON              string
	SimulatedQueryLatencyMS  float64
	EntityReferenceURLScheme string
}

// DefaultSettings returns the settings of an uninitialized manager.
func DefaultSettings() Settings {
	return Settings{
		SimulatedQueryLatencyMS:  DefaultSimulatedQueryLatencyMS,
		EntityReferenceURLScheme: ref.DefaultScheme,
	}
}

// Map returns the settings in their flat map form.
func (s Settings) Map() map[string]any {
	return map[string]any{
		SettingLibraryPath:              s.LibraryPath,
		SettingLibraryJSON:              s.LibraryJSON,
		SettingSimulatedQueryLatency:    s.SimulatedQueryLatencyMS,
		SettingEntityReferenceURLScheme: s.EntityReferenceURLScheme,
	}
}

// Keys lists every recognized setting in sorted order.
func Keys() []string {
	return slices.Sorted(maps.Keys(DefaultSettings().Map()))
}

// Apply validates in and returns s updated with its values. Keys absent
// from in keep their current values. s is not modified.
func (s Settings) Apply(in map[string]any) (Settings, error) {
	for _, key := range slices.Sorted(maps.Keys(in)) {
		value := in[key]
		switch key {
		case SettingLibraryPath:
			str, err := stringSetting(key, value)
			if err != nil {
				return s, err
			}
			s.LibraryPath = str

		case SettingLibraryJSON:
			str, err := stringSetting(key, value)
			if err != nil {
				return s, err
			}
			s.LibraryJSON = str

		case SettingSimulatedQueryLatency:
			ms, ok := numberSetting(value)
			if !ok {
				return s, fmt.Errorf("%s must be a number", key)
			}
			if ms < 0 {
				return s, fmt.Errorf("%s must not be negative", key)
			}
			s.SimulatedQueryLatencyMS = ms

		case SettingEntityReferenceURLScheme:
			str, err := stringSetting(key, value)
			if err != nil {
				return s, err
			}
			if err := ref.ValidateScheme(str); err != nil {
				return s, fmt.Errorf("%s: %w", key, err)
			}
			s.EntityReferenceURLScheme = str

		default:
			return s, fmt.Errorf("Unknown setting '%s'", key)
		}
	}
	return s, nil
}

func stringSetting(key string, value any) (string, error) {
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return str, nil
}

// numberSetting accepts Go numeric types and json.Number. Booleans and
// nil are not numbers.
func numberSetting(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
