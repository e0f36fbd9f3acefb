package airquality

import (
	"time"
)

// Coordinates is a station position reported by the measurement service.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RawTimestamps carries the timestamp strings of one measurement exactly as
// the service sent them, one field per name they can arrive under. An empty
// string means the field was absent from the payload.
type RawTimestamps struct {
	Datetime  string `json:"datetime,omitempty"`
	DateUTC   string `json:"date.utc,omitempty"`
	DateLocal string `json:"dateLocal,omitempty"`
	Date      string `json:"date,omitempty"`
}

// valueOf returns the raw string stored under a candidate field name.
func (t RawTimestamps) valueOf(name string) string {
	switch name {
	case "datetime":
		return t.Datetime
	case "date.utc":
		return t.DateUTC
	case "dateLocal":
		return t.DateLocal
	case "date":
		return t.Date
	}
	return ""
}

// Measurement is one observation as decoded from the remote payload. Value
// is nil when the service reported no reading; zero is a legitimate measured
// value and never stands in for missing.
type Measurement struct {
	Parameter   string        `json:"parameter"`
	Value       *float64      `json:"value"`
	Unit        string        `json:"unit,omitempty"`
	Location    string        `json:"location,omitempty"`
	Coordinates *Coordinates  `json:"coordinates,omitempty"`
	Timestamps  RawTimestamps `json:"timestamps"`
}

// RawTable is a fetch result before cleaning. Its column set is whatever the
// response carried: a timestamp candidate counts as present when any row
// holds a non-empty value for it.
type RawTable struct {
	Rows []Measurement `json:"rows"`
}

// Empty reports whether the table has no rows.
func (t RawTable) Empty() bool {
	return len(t.Rows) == 0
}

// DataPoint is one cleaned observation with a canonical UTC timestamp.
type DataPoint struct {
	Time        time.Time    `json:"datetime"`
	Parameter   string       `json:"parameter"`
	Value       *float64     `json:"value"`
	Unit        string       `json:"unit,omitempty"`
	Location    string       `json:"location,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// CleanTable is a cleaned dataset. HasTimestamps reports whether the raw
// table carried a usable timestamp column; when false the points keep their
// zero Time and the set is unordered.
type CleanTable struct {
	Points        []DataPoint `json:"points"`
	HasTimestamps bool        `json:"hasTimestamps"`
}

// CacheEntry is what the result cache holds per (location, time bucket): the
// raw table, when it was fetched, and an ID for correlating responses and
// exports with log lines.
type CacheEntry struct {
	ID        string
	Table     RawTable
	FetchedAt time.Time
}
