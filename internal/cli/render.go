package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/thomhuang/CepLookup/internal/address"
	"github.com/thomhuang/CepLookup/internal/gazetteer"
	"github.com/thomhuang/CepLookup/internal/session"
)

const title = "Buscador de endereço"

var recordHeader = []string{"Cep", "Rua", "Complemento", "Bairro", "Cidade", "UF", "DDD"}

func renderState(w io.Writer, st session.State) {
	fmt.Fprintln(w, title)
	switch st.Phase() {
	case session.PhaseSavedList:
		renderSaved(w, st.Saved)
		return
	case session.PhaseSearchLoading:
		fmt.Fprintln(w, session.MsgLoading)
	case session.PhaseSearchResult:
		renderRecord(w, *st.Result)
	case session.PhaseSearchError:
		renderError(w, st.ErrorMessage)
	}
}

func renderRecord(w io.Writer, rec address.Record) {
	fmt.Fprintf(w, "Cep: %s\n", rec.PostalCode)
	fmt.Fprintf(w, "Rua: %s\n", rec.Street)
	fmt.Fprintf(w, "Complemento: %s\n", rec.Complement)
	fmt.Fprintf(w, "Bairro: %s\n", rec.Neighborhood)
	fmt.Fprintf(w, "Cidade: %s\n", rec.City)
	fmt.Fprintf(w, "UF: %s\n", rec.StateCode)
	fmt.Fprintf(w, "DDD: %s\n", rec.AreaCode)
}

func recordRow(rec address.Record) []string {
	return []string{rec.PostalCode, rec.Street, rec.Complement, rec.Neighborhood, rec.City, rec.StateCode, rec.AreaCode}
}

func renderSaved(w io.Writer, records []address.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "Nenhum endereço salvo.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(recordHeader)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	for _, rec := range records {
		table.Append(recordRow(rec))
	}
	table.Render()
}

func renderMatches(w io.Writer, matches []gazetteer.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "Nenhum endereço salvo nas proximidades.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(append(append([]string{}, recordHeader...), "Km"))
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	for _, m := range matches {
		table.Append(append(recordRow(m.Record), strconv.FormatFloat(m.Km, 'f', 1, 64)))
	}
	table.Render()
}

func renderError(w io.Writer, msg string) {
	_, _ = color.New(color.FgRed).Fprintln(w, msg)
}

// renderAlert stands in for the blocking alert of the original screen.
func renderAlert(w io.Writer, msg string) {
	_, _ = color.New(color.FgYellow, color.Bold).Fprintln(w, "! "+msg)
}

// withSpinner shows the loading indicator on w while fn runs.
func withSpinner(w io.Writer, fn func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + session.MsgLoading
	s.Start()
	defer s.Stop()
	fn()
}
