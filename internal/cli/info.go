package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bal/internal/manager"
)

// InfoResult describes an initialized manager.
type InfoResult struct {
	Identifier   string         `json:"identifier"`
	DisplayName  string         `json:"display_name"`
	Info         map[string]any `json:"info"`
	Settings     map[string]any `json:"settings"`
	Capabilities []string       `json:"capabilities"`
	Entities     int            `json:"entities"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "info",
		Short:         "Show manager identity, settings and capabilities",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, cmd)
		},
	}

	return cmd
}

func runInfo(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	settings := s.manager.Settings()
	// Inline documents can be large and add nothing here.
	delete(settings, manager.SettingLibraryJSON)

	result := InfoResult{
		Identifier:   s.manager.Identifier(),
		DisplayName:  s.manager.DisplayName(),
		Info:         s.manager.Info(),
		Settings:     settings,
		Capabilities: []string{},
		Entities:     len(s.manager.Engine().Library().Entities),
	}
	for _, c := range manager.AllCapabilities {
		if s.manager.HasCapability(c) {
			result.Capabilities = append(result.Capabilities, string(c))
		}
	}

	if s.out.Format == "json" {
		return s.out.Success(result)
	}

	w := s.out.Writer
	fmt.Fprintf(w, "%s (%s)\n", result.DisplayName, result.Identifier)
	for _, key := range manager.Keys() {
		if v, ok := settings[key]; ok {
			fmt.Fprintf(w, "  %s: %v\n", key, v)
		}
	}
	fmt.Fprintf(w, "  entities: %d\n", result.Entities)
	fmt.Fprintf(w, "  capabilities: %s\n", strings.Join(result.Capabilities, ", "))
	return nil
}
