// Package clean implements the second pipeline stage: normalizing raw
// incident records into the cleaned dataset the analysis stage consumes.
package clean

import (
	"sort"
	"strconv"
	"strings"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
)

// Stats tallies what happened to the input rows during normalization.
type Stats struct {
	Input                int
	Kept                 int
	Duplicates           int
	BadCoordinates       int // rows kept without a point
	FilteredJurisdiction int
	BadYear              int
}

// Normalize converts raw incident records into cleaned incidents. Rows from
// other jurisdictions are dropped, duplicate incident numbers keep their
// first occurrence, and every kept row gets a category. Rows whose location
// string does not parse are kept with HasPoint=false so they can still join
// by response-area code, and tallied in BadCoordinates.
func Normalize(raw []*domain.RawIncident, jurisdiction string) ([]*domain.Incident, Stats) {
	stats := Stats{Input: len(raw)}
	seen := make(map[string]bool, len(raw))
	out := make([]*domain.Incident, 0, len(raw))

	for _, r := range raw {
		// Vintages that lack the jurisdiction column pass through.
		if r.Jurisdiction != "" && !strings.EqualFold(r.Jurisdiction, jurisdiction) {
			stats.FilteredJurisdiction++
			continue
		}

		num := strings.TrimSpace(r.IncidentNumber)
		if num != "" {
			if seen[num] {
				stats.Duplicates++
				continue
			}
			seen[num] = true
		}

		inc := &domain.Incident{
			IncidentNumber: num,
			Problem:        strings.TrimSpace(r.Problem),
			Jurisdiction:   strings.TrimSpace(r.Jurisdiction),
			ResponseArea:   strings.TrimSpace(r.ResponseArea),
		}
		inc.Category = domain.Categorize(inc.Problem)

		if year, err := strconv.Atoi(strings.TrimSpace(r.CalendarYear)); err == nil {
			inc.CalendarYear = year
		} else {
			stats.BadYear++
		}

		if lat, lon, ok := domain.ParseLocation(r.Location); ok {
			inc.Latitude, inc.Longitude, inc.HasPoint = lat, lon, true
		} else {
			stats.BadCoordinates++
		}

		out = append(out, inc)
	}

	stats.Kept = len(out)
	return out, stats
}

// CategorySummary is one row of the incident type summary output.
type CategorySummary struct {
	Category string  `csv:"category"`
	Count    int     `csv:"count"`
	Percent  float64 `csv:"percent"`
}

// Summarize counts cleaned incidents per category, ordered by descending
// count with category name as the tiebreak.
func Summarize(incidents []*domain.Incident) []*CategorySummary {
	counts := make(map[string]int)
	for _, inc := range incidents {
		counts[inc.Category]++
	}

	out := make([]*CategorySummary, 0, len(counts))
	for cat, n := range counts {
		row := &CategorySummary{Category: cat, Count: n}
		if len(incidents) > 0 {
			row.Percent = float64(n) / float64(len(incidents)) * 100
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
