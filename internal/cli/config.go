package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/bal/internal/manager"
)

// Config keys. Each is also read from BAL_<KEY> and from the config file.
const (
	keyLibraryPath = manager.SettingLibraryPath
	keyScheme      = manager.SettingEntityReferenceURLScheme
	keyLatency     = manager.SettingSimulatedQueryLatency
	keyJournal     = "journal_path"
)

// EnvPrefix is the prefix of environment variables read as configuration.
const EnvPrefix = "BAL"

// Config is the resolved CLI configuration.
type Config struct {
	LibraryPath string  `mapstructure:"library_path"`
	Scheme      string  `mapstructure:"entity_reference_url_scheme"`
	LatencyMS   float64 `mapstructure:"simulated_query_latency_ms"`
	JournalPath string  `mapstructure:"journal_path"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// Settings returns the manager settings for c.
func (c *Config) Settings() map[string]any {
	settings := map[string]any{
		keyScheme:  c.Scheme,
		keyLatency: c.LatencyMS,
	}
	if c.LibraryPath != "" {
		settings[keyLibraryPath] = c.LibraryPath
	}
	return settings
}

// newViper sets up defaults, environment binding and the config file.
// Precedence (lowest to highest): defaults < config file < env < flags.
func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault(keyScheme, manager.DefaultSettings().EntityReferenceURLScheme)
	v.SetDefault(keyLatency, float64(manager.DefaultSimulatedQueryLatencyMS))
	v.SetDefault(keyLibraryPath, "")
	v.SetDefault(keyJournal, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("bal")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// loadConfig resolves the configuration for cmd, letting flags the user
// actually set override everything else.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*Config, error) {
	v, err := newViper(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	flags := map[string]string{
		keyLibraryPath: "library",
		keyScheme:      "scheme",
		keyLatency:     "latency",
		keyJournal:     "journal",
	}
	for key, name := range flags {
		if f := lookupFlag(cmd, name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return &cfg, nil
}

// lookupFlag finds a local or inherited flag, whether or not cobra has
// merged the persistent flags yet.
func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.InheritedFlags().Lookup(name)
}
