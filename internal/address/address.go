// Package address holds the resolved address model and the de-duplicated
// collection of saved addresses.
package address

import "github.com/thomhuang/CepLookup/internal/postalcode"

// Record is one resolved postal code. JSON names follow the ViaCEP payload,
// which is also the persisted form.
type Record struct {
	PostalCode   string `json:"cep"`
	Street       string `json:"logradouro"`
	Complement   string `json:"complemento"`
	Neighborhood string `json:"bairro"`
	City         string `json:"localidade"`
	StateCode    string `json:"uf"`
	AreaCode     string `json:"ddd"`
}

// Key is the de-duplication key: the postal code in canonical form.
func (r Record) Key() string {
	return postalcode.Normalize(r.PostalCode)
}

// SavedSet keeps records in insertion order, unique by Key.
// A capacity of zero means unbounded; when full, the oldest record is evicted.
type SavedSet struct {
	capacity int
	records  []Record
	index    map[string]struct{}
}

func NewSavedSet(capacity int) *SavedSet {
	if capacity < 0 {
		capacity = 0
	}
	return &SavedSet{
		capacity: capacity,
		index:    make(map[string]struct{}),
	}
}

// Contains reports whether a record with the same postal code is present.
func (s *SavedSet) Contains(code string) bool {
	_, ok := s.index[postalcode.Normalize(code)]
	return ok
}

// Add appends rec unless its postal code is already present. It reports
// whether the set changed.
func (s *SavedSet) Add(rec Record) bool {
	key := rec.Key()
	if key == "" {
		return false
	}
	if _, ok := s.index[key]; ok {
		return false
	}
	if s.capacity > 0 && len(s.records) >= s.capacity {
		evicted := s.records[0]
		delete(s.index, evicted.Key())
		s.records = append(s.records[:0:0], s.records[1:]...)
	}
	s.records = append(s.records, rec)
	s.index[key] = struct{}{}
	return true
}

// Records returns a copy of the saved records in insertion order.
func (s *SavedSet) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *SavedSet) Len() int {
	return len(s.records)
}
