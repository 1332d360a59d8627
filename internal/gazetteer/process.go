package gazetteer

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"
)

const fieldsPerRecord = 12

// Parse reads the tab-separated geonames export. Rows that cannot be read or
// carry bad coordinates are logged and skipped.
func Parse(reader io.Reader, log logrus.FieldLogger) []Place {
	if log == nil {
		log = logrus.StandardLogger()
	}
	var places []Place

	csvReader := csv.NewReader(reader)
	csvReader.Comma = '\t'
	csvReader.FieldsPerRecord = fieldsPerRecord
	csvReader.LazyQuotes = true

	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.WithError(err).Warn("could not read gazetteer record")
			continue
		}

		postalCode := record[1]
		latitude, err := strconv.ParseFloat(record[9], 64)
		if err != nil {
			log.WithError(err).WithField("postal_code", postalCode).Warn("could not parse latitude")
			continue
		}
		longitude, err := strconv.ParseFloat(record[10], 64)
		if err != nil {
			log.WithError(err).WithField("postal_code", postalCode).Warn("could not parse longitude")
			continue
		}

		places = append(places, Place{
			PostalCode: postalCode,
			City:       record[2],
			StateCode:  record[4],
			Latitude:   latitude,
			Longitude:  longitude,
		})
	}

	return places
}
