package parse

import (
	"strconv"
	"strings"
	"time"
)

// serialEpoch is day zero of spreadsheet serial dates (1899-12-30, so that
// serial 1 lands on 1900-01-01 and the sheet's off-by-one leap-year quirk
// is absorbed).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxSerial keeps obviously non-date numbers (order ids, phone numbers)
// from resolving to far-future calendar dates.
const maxSerial = 200000

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006",
}

// Date parses the timestamp shapes the channels emit: ISO-8601,
// day/month/year literals and spreadsheet serial numbers. Input that fails
// every format yields nil, never an error.
func Date(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return SerialDate(serial)
	}
	return nil
}

// SerialDate resolves a spreadsheet serial-date number against the sheet
// epoch. The fractional part is time of day.
func SerialDate(serial float64) *time.Time {
	if serial <= 0 || serial > maxSerial {
		return nil
	}
	days := int(serial)
	frac := serial - float64(days)
	t := serialEpoch.AddDate(0, 0, days).Add(time.Duration(frac * float64(24*time.Hour)))
	return &t
}
