package gazetteer

import "github.com/dhconnelly/rtreego"

// Place is one row of the geonames postal code export.
type Place struct {
	PostalCode string
	City       string
	StateCode  string
	Latitude   float64
	Longitude  float64
}

// Neighbor is a place found within a search radius.
type Neighbor struct {
	Place Place
	Km    float64
}

// postalCodeItem is the r-tree entry for one place.
type postalCodeItem struct {
	Rect  rtreego.Rect
	Code  string
	Place Place
}

func (p *postalCodeItem) Bounds() rtreego.Rect {
	return p.Rect
}
