package session

import "github.com/thomhuang/CepLookup/internal/address"

// View is the screen currently shown.
type View int

const (
	ViewSearch View = iota
	ViewSaved
)

func (v View) String() string {
	if v == ViewSaved {
		return "SAVED"
	}
	return "SEARCH"
}

// Phase is the state of the session as seen by the user.
type Phase string

const (
	PhaseSearchIdle    Phase = "SEARCH_IDLE"
	PhaseSearchLoading Phase = "SEARCH_LOADING"
	PhaseSearchResult  Phase = "SEARCH_RESULT"
	PhaseSearchError   Phase = "SEARCH_ERROR"
	PhaseSavedList     Phase = "SAVED_LIST"
)

// User-facing messages.
const (
	MsgInvalidFormat = "Cep Inválido"
	MsgNotFound      = "Cep não encontrado!"
	MsgNetwork       = "Ocorreu um erro ao buscar o endereço!"
	MsgLoading       = "Carregando..."
)

// State is a snapshot of the session. Result and ErrorMessage are never both set.
type State struct {
	Input        string
	Result       *address.Record
	Loading      bool
	ErrorMessage string
	Saved        []address.Record
	View         View
}

// Phase derives the current phase from the snapshot.
func (s State) Phase() Phase {
	switch {
	case s.View == ViewSaved:
		return PhaseSavedList
	case s.Loading:
		return PhaseSearchLoading
	case s.ErrorMessage != "":
		return PhaseSearchError
	case s.Result != nil:
		return PhaseSearchResult
	}
	return PhaseSearchIdle
}
