package airquality

import (
	"sort"
	"time"
)

// Reading is the freshest cleaned value seen for one parameter.
type Reading struct {
	Value float64   `json:"value"`
	Unit  string    `json:"unit,omitempty"`
	Time  time.Time `json:"datetime"`
}

// Summary carries the dataset metrics the presentation layer surfaces:
// totals, the distinct parameters and stations, and the latest reading per
// parameter.
type Summary struct {
	City         string             `json:"city"`
	Measurements int                `json:"measurements"`
	Parameters   []string           `json:"parameters"`
	Stations     int                `json:"stations"`
	LatestUpdate time.Time          `json:"latestUpdate"`
	Latest       map[string]Reading `json:"latest"`
}

// Summarize derives the summary metrics from a clean table. Points are
// expected in time-ascending order, as Clean produces them, so the last
// valued point per parameter wins the Latest slot. Parameters whose column
// stayed entirely missing appear in Parameters but not in Latest.
func Summarize(city string, table CleanTable) Summary {
	sum := Summary{
		City:         city,
		Measurements: len(table.Points),
		Latest:       make(map[string]Reading),
	}

	parameters := make(map[string]struct{})
	stations := make(map[string]struct{})

	for _, p := range table.Points {
		parameters[p.Parameter] = struct{}{}
		if p.Location != "" {
			stations[p.Location] = struct{}{}
		}
		if p.Time.After(sum.LatestUpdate) {
			sum.LatestUpdate = p.Time
		}
		if p.Value != nil {
			sum.Latest[p.Parameter] = Reading{Value: *p.Value, Unit: p.Unit, Time: p.Time}
		}
	}

	sum.Parameters = make([]string, 0, len(parameters))
	for name := range parameters {
		sum.Parameters = append(sum.Parameters, name)
	}
	sort.Strings(sum.Parameters)
	sum.Stations = len(stations)

	return sum
}
