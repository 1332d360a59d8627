package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomhuang/CepLookup/internal/gazetteer"
	"github.com/thomhuang/CepLookup/internal/postalcode"
	"github.com/thomhuang/CepLookup/internal/session"
)

func newSearchCommand(s *settings) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "search <cep>",
		Short: "Look up one postal code",
		Args:  exactlyOnePostalCode,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *s)
			if err != nil {
				return err
			}
			defer a.Close()
			out := cmd.OutOrStdout()

			// saved addresses must be known before saving so duplicates are skipped
			a.ctrl.Load(cmd.Context())
			a.ctrl.SetInput(args[0])

			var submitErr error
			withSpinner(cmd.ErrOrStderr(), func() { submitErr = a.ctrl.Submit(cmd.Context()) })
			if errors.Is(submitErr, postalcode.ErrInvalidFormat) {
				renderAlert(cmd.ErrOrStderr(), session.MsgInvalidFormat)
				return ErrReported
			}

			st := a.ctrl.State()
			renderState(out, st)
			if st.Phase() == session.PhaseSearchError {
				return ErrReported
			}
			if save {
				if err := a.ctrl.Save(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out)
				renderState(out, a.ctrl.State())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "save the address after a successful lookup")
	return cmd
}

func newSavedCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "saved",
		Short: "List saved addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *s)
			if err != nil {
				return err
			}
			defer a.Close()

			a.ctrl.Load(cmd.Context())
			a.ctrl.ShowSaved()
			renderState(cmd.OutOrStdout(), a.ctrl.State())
			return nil
		},
	}
}

func newNearbyCommand(s *settings) *cobra.Command {
	var radius float64
	cmd := &cobra.Command{
		Use:   "nearby <cep>",
		Short: "List saved addresses within a radius of a postal code",
		Args:  exactlyOnePostalCode,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := postalcode.Validate(args[0])
			if err != nil {
				renderAlert(cmd.ErrOrStderr(), session.MsgInvalidFormat)
				return ErrReported
			}
			a, err := newApp(cmd.Context(), *s)
			if err != nil {
				return err
			}
			defer a.Close()

			a.ctrl.Load(cmd.Context())

			var places []gazetteer.Place
			var fetchErr error
			withSpinner(cmd.ErrOrStderr(), func() {
				places, fetchErr = gazetteer.Fetch(cmd.Context(), gazetteer.Source{
					URL:       s.cfg.GazetteerURL,
					CacheFile: s.cfg.GazetteerCache,
				}, a.log)
			})
			if fetchErr != nil {
				renderError(cmd.ErrOrStderr(), "Não foi possível carregar a base de CEPs.")
				return ErrReported
			}

			matches, err := gazetteer.New(places).Near(code, a.ctrl.State().Saved, radius)
			if errors.Is(err, gazetteer.ErrUnknownPostalCode) {
				renderError(cmd.ErrOrStderr(), session.MsgNotFound)
				return ErrReported
			}
			if err != nil {
				return err
			}
			renderMatches(cmd.OutOrStdout(), matches)
			return nil
		},
	}
	cmd.Flags().Float64Var(&radius, "radius", 25, "search radius in kilometers")
	return cmd
}
