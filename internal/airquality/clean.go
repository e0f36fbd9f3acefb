package airquality

import (
	"errors"
	"sort"
	"time"
)

// timestampCandidates is the fixed priority order for selecting a table's
// timestamp column: the fully qualified instant first, the bare date last.
var timestampCandidates = [...]string{"datetime", "date.utc", "dateLocal", "date"}

// timeLayouts are tried in order when normalizing raw timestamp strings.
// Layouts without a zone are taken as UTC.
var timeLayouts = [...]string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

var errNoTimestamp = errors.New("no timestamp value")

// Clean runs the cleaning pipeline over a raw table and returns a new clean
// table; the input is never modified. Stages run in a fixed order: duplicate
// removal first, then timestamp normalization, then mean imputation of
// missing values. An empty table cleans to an empty table.
func Clean(raw RawTable) CleanTable {
	if raw.Empty() {
		return CleanTable{}
	}

	column := timestampColumn(raw.Rows)

	rows := raw.Rows
	if column != "" {
		rows = dedupe(rows, column)
	}

	points := normalize(rows, column)
	imputeMissing(points)

	if column != "" {
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Time.Before(points[j].Time)
		})
	}

	return CleanTable{Points: points, HasTimestamps: column != ""}
}

// timestampColumn picks the timestamp column for the whole table: the first
// candidate any row carries a value for. Empty string means the table has no
// timestamp column at all.
func timestampColumn(rows []Measurement) string {
	for _, name := range timestampCandidates {
		for _, row := range rows {
			if row.Timestamps.valueOf(name) != "" {
				return name
			}
		}
	}
	return ""
}

// dedupe drops rows that repeat an earlier (raw timestamp, parameter) pair,
// keeping the first occurrence in input order.
func dedupe(rows []Measurement, column string) []Measurement {
	type key struct {
		ts        string
		parameter string
	}

	seen := make(map[key]struct{}, len(rows))
	out := make([]Measurement, 0, len(rows))
	for _, row := range rows {
		k := key{ts: row.Timestamps.valueOf(column), parameter: row.Parameter}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	return out
}

// normalize converts rows into data points with a canonical UTC time. Rows
// whose timestamp is absent or unparseable are dropped, as are rows whose
// parsed (instant, parameter) pair was already produced by a differently
// formatted string. When the table has no timestamp column, rows pass
// through untimed.
func normalize(rows []Measurement, column string) []DataPoint {
	points := make([]DataPoint, 0, len(rows))

	if column == "" {
		for _, row := range rows {
			points = append(points, toPoint(row, time.Time{}))
		}
		return points
	}

	type key struct {
		unixNano  int64
		parameter string
	}

	seen := make(map[key]struct{}, len(rows))
	for _, row := range rows {
		ts, err := parseTimestamp(row.Timestamps.valueOf(column))
		if err != nil {
			continue
		}
		k := key{unixNano: ts.UnixNano(), parameter: row.Parameter}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		points = append(points, toPoint(row, ts))
	}
	return points
}

// toPoint copies one row into a DataPoint. Pointer fields are deep-copied so
// later stages never write through into the caller's table.
func toPoint(row Measurement, ts time.Time) DataPoint {
	p := DataPoint{
		Time:      ts,
		Parameter: row.Parameter,
		Unit:      row.Unit,
		Location:  row.Location,
	}
	if row.Value != nil {
		v := *row.Value
		p.Value = &v
	}
	if row.Coordinates != nil {
		c := *row.Coordinates
		p.Coordinates = &c
	}
	return p
}

// parseTimestamp parses a raw timestamp string into UTC.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errNoTimestamp
	}
	var lastErr error
	for _, layout := range timeLayouts {
		ts, err := time.Parse(layout, raw)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// imputeMissing fills missing values with the mean of the present ones,
// computed after deduplication. A column with no present values stays
// missing: zero is never substituted for unknown.
func imputeMissing(points []DataPoint) {
	var sum float64
	var n int
	for _, p := range points {
		if p.Value != nil {
			sum += *p.Value
			n++
		}
	}
	if n == 0 || n == len(points) {
		return
	}

	mean := sum / float64(n)
	for i := range points {
		if points[i].Value == nil {
			v := mean
			points[i].Value = &v
		}
	}
}
