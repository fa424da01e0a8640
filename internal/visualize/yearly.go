package visualize

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/atxcivic/fire-analysis-etl/internal/analyze"
	"github.com/atxcivic/fire-analysis-etl/internal/domain"
)

// Year series colors: blue, green, orange, recycling past three years.
var yearColors = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
}

func yearColor(i int) color.Color { return yearColors[i%len(yearColors)] }

// incidentYears returns the distinct parsed calendar years, ascending.
func incidentYears(incidents []*analyze.JoinedIncident) []int {
	seen := make(map[int]bool)
	for _, inc := range incidents {
		if inc.CalendarYear > 0 {
			seen[inc.CalendarYear] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// groupedYearBars adds one bar series per year, grouped over the x slots.
func groupedYearBars(p *plot.Plot, years []int, rates func(year int) plotter.Values) error {
	width := vg.Points(15)
	for yi, year := range years {
		bars, err := plotter.NewBarChart(rates(year), width)
		if err != nil {
			return fmt.Errorf("yearly bars: %w", err)
		}
		bars.Color = yearColor(yi)
		bars.Offset = width * vg.Length(yi-len(years)/2)
		p.Add(bars)
		p.Legend.Add(strconv.Itoa(year), bars)
	}
	p.Legend.Top = true
	return nil
}

// ChartUrbanComparisonYearly renders per-capita incident rates per urban
// class, one bar per year, from the joined incident records.
func ChartUrbanComparisonYearly(incidents []*analyze.JoinedIncident, areas []*analyze.MergedArea, dest string) error {
	classes := []string{domain.UrbanCore, domain.InnerSuburban, domain.OuterSuburban}
	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}

	pop := make([]float64, len(classes))
	for _, a := range areas {
		if i, ok := classIndex[a.UrbanClass]; ok {
			pop[i] += a.Population
		}
	}

	counts := make(map[int][]int)
	for _, inc := range incidents {
		i, ok := classIndex[inc.UrbanClass]
		if !ok || inc.CalendarYear <= 0 {
			continue
		}
		if counts[inc.CalendarYear] == nil {
			counts[inc.CalendarYear] = make([]int, len(classes))
		}
		counts[inc.CalendarYear][i]++
	}

	p := plot.New()
	p.Title.Text = "Fire Incident Rates by Urban Class and Year"
	p.Y.Label.Text = "Incidents per 1,000 Population"

	err := groupedYearBars(p, incidentYears(incidents), func(year int) plotter.Values {
		vals := make(plotter.Values, len(classes))
		for i := range classes {
			if pop[i] > 0 && counts[year] != nil {
				vals[i] = float64(counts[year][i]) / pop[i] * 1000
			}
		}
		return vals
	})
	if err != nil {
		return err
	}

	p.NominalX("Urban Core", "Inner Suburban", "Outer Suburban")
	return save(p, dest)
}

// ChartBuildingAgeYearly renders per-capita incident rates by building age
// class, one bar per year.
func ChartBuildingAgeYearly(incidents []*analyze.JoinedIncident, areas []*analyze.MergedArea, dest string) error {
	ages := []string{analyze.AgeNewer, analyze.AgeOlder}
	ageIndex := map[string]int{analyze.AgeNewer: 0, analyze.AgeOlder: 1}

	pop := make([]float64, len(ages))
	for _, a := range areas {
		if a.Population > 0 {
			pop[ageIndex[analyze.AgeClass(a.PctBuilt2010Plus)]] += a.Population
		}
	}

	counts := make(map[int][]int)
	for _, inc := range incidents {
		// UrbanClass doubles as the assigned-area marker; incidents outside
		// the layer have no age data to classify.
		if inc.UrbanClass == "" || inc.CalendarYear <= 0 {
			continue
		}
		if counts[inc.CalendarYear] == nil {
			counts[inc.CalendarYear] = make([]int, len(ages))
		}
		counts[inc.CalendarYear][ageIndex[analyze.AgeClass(inc.PctBuilt2010Plus)]]++
	}

	p := plot.New()
	p.Title.Text = "Fire Incident Rates by Building Age and Year"
	p.Y.Label.Text = "Incidents per 1,000 Population"

	err := groupedYearBars(p, incidentYears(incidents), func(year int) plotter.Values {
		vals := make(plotter.Values, len(ages))
		for i := range ages {
			if pop[i] > 0 && counts[year] != nil {
				vals[i] = float64(counts[year][i]) / pop[i] * 1000
			}
		}
		return vals
	})
	if err != nil {
		return err
	}

	p.NominalX(ages...)
	return save(p, dest)
}

// ChartIncidentTypesYearly renders per-capita rates per incident category,
// one bar per year, over the population of all classified areas.
func ChartIncidentTypesYearly(incidents []*analyze.JoinedIncident, areas []*analyze.MergedArea, dest string) error {
	categories := []string{
		domain.CategoryStructure,
		domain.CategoryVehicle,
		domain.CategoryOutdoor,
		domain.CategoryTrash,
		domain.CategoryOther,
	}
	catIndex := make(map[string]int, len(categories))
	for i, c := range categories {
		catIndex[c] = i
	}

	var pop float64
	for _, a := range areas {
		if a.UrbanClass != domain.UnknownClass {
			pop += a.Population
		}
	}

	counts := make(map[int][]int)
	for _, inc := range incidents {
		if inc.UrbanClass == "" || inc.UrbanClass == domain.UnknownClass || inc.CalendarYear <= 0 {
			continue
		}
		i, ok := catIndex[inc.Category]
		if !ok {
			i = catIndex[domain.CategoryOther]
		}
		if counts[inc.CalendarYear] == nil {
			counts[inc.CalendarYear] = make([]int, len(categories))
		}
		counts[inc.CalendarYear][i]++
	}

	p := plot.New()
	p.Title.Text = "Fire Incident Rates by Type and Year"
	p.Y.Label.Text = "Incidents per 1,000 Population"

	err := groupedYearBars(p, incidentYears(incidents), func(year int) plotter.Values {
		vals := make(plotter.Values, len(categories))
		for i := range categories {
			if pop > 0 && counts[year] != nil {
				vals[i] = float64(counts[year][i]) / pop * 1000
			}
		}
		return vals
	})
	if err != nil {
		return err
	}

	p.NominalX("Structure", "Vehicle", "Outdoor", "Trash", "Other")
	return save(p, dest)
}
