// Package gazetteer places postal codes on the map and finds the ones within
// a radius of each other.
package gazetteer

import (
	"errors"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/umahmood/haversine"

	"github.com/thomhuang/CepLookup/internal/address"
	"github.com/thomhuang/CepLookup/internal/postalcode"
)

// prefixLength is the CEP "sector": the first five digits.
const prefixLength = 5

// kmPerDegree approximates one degree of latitude.
const kmPerDegree = 111.0

// ErrUnknownPostalCode means the code could not be placed on the map.
var ErrUnknownPostalCode = errors.New("postal code not in gazetteer")

// Gazetteer indexes places in an r-tree keyed by longitude/latitude.
type Gazetteer struct {
	tree     *rtreego.Rtree
	byCode   map[string]*postalCodeItem
	byPrefix map[string]*postalCodeItem
}

// New builds the spatial index. The first row wins for repeated codes.
func New(places []Place) *Gazetteer {
	g := &Gazetteer{
		tree:     rtreego.NewTree(2, 25, 50),
		byCode:   make(map[string]*postalCodeItem),
		byPrefix: make(map[string]*postalCodeItem),
	}
	for _, p := range places {
		g.create(p)
	}
	return g
}

func (g *Gazetteer) create(p Place) {
	code := postalcode.Normalize(p.PostalCode)
	if code == "" {
		return
	}
	if _, ok := g.byCode[code]; ok {
		return
	}
	// store points as tiny rectangles
	rect, err := rtreego.NewRect(rtreego.Point{p.Longitude, p.Latitude}, []float64{0.01, 0.01})
	if err != nil {
		return
	}
	item := &postalCodeItem{Rect: rect, Code: code, Place: p}
	g.tree.Insert(item)
	g.byCode[code] = item
	if len(code) >= prefixLength {
		if _, ok := g.byPrefix[code[:prefixLength]]; !ok {
			g.byPrefix[code[:prefixLength]] = item
		}
	}
}

func (g *Gazetteer) Len() int {
	return len(g.byCode)
}

// Locate finds a code exactly, or else the first place sharing its five-digit prefix.
func (g *Gazetteer) Locate(code string) (Place, bool) {
	code = postalcode.Normalize(code)
	if item, ok := g.byCode[code]; ok {
		return item.Place, true
	}
	if len(code) >= prefixLength {
		if item, ok := g.byPrefix[code[:prefixLength]]; ok {
			return item.Place, true
		}
	}
	return Place{}, false
}

// Within lists the places within km of code, nearest first.
func (g *Gazetteer) Within(code string, km float64) ([]Neighbor, error) {
	origin, ok := g.Locate(code)
	if !ok {
		return nil, ErrUnknownPostalCode
	}
	return g.within(origin, km), nil
}

func (g *Gazetteer) within(origin Place, km float64) []Neighbor {
	if km < 0 {
		km = 0
	}
	// bounding box first, exact haversine distance second so the area is a circle
	dLat := km / kmPerDegree
	dLon := km / (kmPerDegree * math.Max(math.Cos(origin.Latitude*math.Pi/180), 0.01))
	searchRect, err := rtreego.NewRect(
		rtreego.Point{origin.Longitude - dLon, origin.Latitude - dLat},
		[]float64{2*dLon + 0.01, 2*dLat + 0.01},
	)
	if err != nil {
		return nil
	}

	from := haversine.Coord{Lat: origin.Latitude, Lon: origin.Longitude}
	var out []Neighbor
	for _, spatial := range g.tree.SearchIntersect(searchRect) {
		item := spatial.(*postalCodeItem)
		_, dist := haversine.Distance(from, haversine.Coord{Lat: item.Place.Latitude, Lon: item.Place.Longitude})
		if dist <= km {
			out = append(out, Neighbor{Place: item.Place, Km: dist})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Km != out[j].Km {
			return out[i].Km < out[j].Km
		}
		return out[i].Place.PostalCode < out[j].Place.PostalCode
	})
	return out
}

// Match is a saved record located within the search radius.
type Match struct {
	Record address.Record
	Km     float64
}

// Near returns the records lying within km of code, nearest first. Records
// the gazetteer cannot place are left out.
func (g *Gazetteer) Near(code string, records []address.Record, km float64) ([]Match, error) {
	origin, ok := g.Locate(code)
	if !ok {
		return nil, ErrUnknownPostalCode
	}
	from := haversine.Coord{Lat: origin.Latitude, Lon: origin.Longitude}

	nearby := make(map[string]bool)
	for _, n := range g.within(origin, km) {
		nearby[postalcode.Normalize(n.Place.PostalCode)] = true
	}

	var matches []Match
	for _, rec := range records {
		place, ok := g.Locate(rec.PostalCode)
		if !ok || !nearby[postalcode.Normalize(place.PostalCode)] {
			continue
		}
		_, dist := haversine.Distance(from, haversine.Coord{Lat: place.Latitude, Lon: place.Longitude})
		matches = append(matches, Match{Record: rec, Km: dist})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Km < matches[j].Km })
	return matches, nil
}
