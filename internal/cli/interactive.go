package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/thomhuang/CepLookup/internal/postalcode"
	"github.com/thomhuang/CepLookup/internal/session"
)

// Menu entries of the interactive session.
const (
	actionSearch    = "Buscar endereço"
	actionSave      = "Salvar endereço"
	actionShowSaved = "Ver endereços salvos"
	actionNewSearch = "Nova busca"
	actionQuit      = "Sair"
)

// Prompter asks the user for input.
type Prompter interface {
	Input(message, defaultValue string) (string, error)
	Select(message string, options []string) (string, error)
}

type surveyPrompter struct {
	opts []survey.AskOpt
}

func (p surveyPrompter) Input(message, defaultValue string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Input{Message: message, Default: defaultValue}, &answer, p.opts...)
	return answer, err
}

func (p surveyPrompter) Select(message string, options []string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Select{Message: message, Options: options}, &answer, p.opts...)
	return answer, err
}

func actionsFor(st session.State) []string {
	if st.View == session.ViewSaved {
		return []string{actionNewSearch, actionQuit}
	}
	actions := []string{actionSearch}
	if st.Result != nil {
		actions = append(actions, actionSave)
	}
	return append(actions, actionShowSaved, actionQuit)
}

// runInteractive drives the controller from prompts until the user quits.
// busy wraps each lookup, typically with a spinner.
func runInteractive(ctx context.Context, ctrl *session.Controller, p Prompter, out io.Writer, busy func(func())) error {
	if busy == nil {
		busy = func(fn func()) { fn() }
	}
	ctrl.Mount(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		st := ctrl.State()
		renderState(out, st)
		fmt.Fprintln(out)

		choice, err := p.Select("O que deseja fazer?", actionsFor(st))
		if errors.Is(err, terminal.InterruptErr) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case actionSearch:
			text, err := p.Input("Digite o CEP", st.Input)
			if errors.Is(err, terminal.InterruptErr) {
				continue
			}
			if err != nil {
				return err
			}
			ctrl.SetInput(text)
			var submitErr error
			busy(func() { submitErr = ctrl.Submit(ctx) })
			if errors.Is(submitErr, postalcode.ErrInvalidFormat) {
				renderAlert(out, session.MsgInvalidFormat)
			}
		case actionSave:
			if err := ctrl.Save(ctx); errors.Is(err, session.ErrNoResult) {
				renderAlert(out, "Nenhum endereço para salvar")
			}
		case actionShowSaved:
			ctrl.ShowSaved()
		case actionNewSearch:
			ctrl.NewSearch()
		case actionQuit:
			return nil
		}
	}
}
