// Package cli exposes the lookup session as terminal commands.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomhuang/CepLookup/internal/platform/config"
)

// ErrReported marks failures already shown to the user.
var ErrReported = errors.New("already reported")

// NewRootCommand builds the command tree. Flags default to the values in cfg.
func NewRootCommand(cfg config.Config) *cobra.Command {
	s := &settings{cfg: cfg}

	root := &cobra.Command{
		Use:           "ceplookup",
		Short:         "ceplookup - look up Brazilian addresses by postal code (CEP)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *s)
			if err != nil {
				return err
			}
			defer a.Close()
			out := cmd.OutOrStdout()
			return runInteractive(cmd.Context(), a.ctrl, surveyPrompter{}, out, func(fn func()) {
				withSpinner(cmd.ErrOrStderr(), fn)
			})
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.cfg.Variant, "variant", cfg.Variant, "screen iteration preset: v1, v2, v3 or v4")
	flags.StringVar(&s.cfg.LookupURL, "lookup-url", cfg.LookupURL, "base URL of the ViaCEP service")
	flags.DurationVar(&s.cfg.LookupTimeout, "timeout", cfg.LookupTimeout, "lookup timeout, 0 waits forever")
	flags.StringVar(&s.cfg.StorePath, "store", cfg.StorePath, "SQLite file for saved addresses, empty keeps them in memory")
	flags.StringVar(&s.cfg.LogFile, "log-file", cfg.LogFile, "log file, empty disables logging")
	flags.StringVar(&s.cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	flags.StringVar(&s.scheme, "scheme", "", "storage key scheme, single or multi (overrides the preset)")
	flags.BoolVar(&s.autoSave, "auto-save", false, "save every successful lookup (overrides the preset)")
	flags.BoolVar(&s.autoLoad, "auto-load", false, "open the saved list at start (overrides the preset)")

	root.AddCommand(
		newSearchCommand(s),
		newSavedCommand(s),
		newNearbyCommand(s),
	)
	return root
}

// resolve fills the preset-controlled settings that were not set by flags.
func (s *settings) resolve(cmd *cobra.Command) error {
	preset, err := config.PresetFor(s.cfg.Variant)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("scheme") {
		s.scheme = preset.KeyScheme
	}
	if !flags.Changed("auto-save") {
		s.autoSave = preset.AutoSave
	}
	if !flags.Changed("auto-load") {
		s.autoLoad = preset.AutoLoad
	}
	return nil
}

func exactlyOnePostalCode(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected one postal code, got %d arguments", len(args))
	}
	return nil
}
