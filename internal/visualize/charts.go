// Package visualize implements the fifth pipeline stage: rendering the
// analysis outputs as PNG charts and interactive Leaflet maps.
package visualize

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/atxcivic/fire-analysis-etl/internal/analyze"
	"github.com/atxcivic/fire-analysis-etl/internal/domain"
)

// Class colors, matching the map legend: red core, orange inner, green outer.
var classColors = map[string]color.Color{
	domain.UrbanCore:     color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	domain.InnerSuburban: color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	domain.OuterSuburban: color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
}

var grayColor = color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff}

func classColor(class string) color.Color {
	if c, ok := classColors[class]; ok {
		return c
	}
	return grayColor
}

func classLabel(class string) string {
	switch class {
	case domain.UrbanCore:
		return "Urban Core"
	case domain.InnerSuburban:
		return "Inner Suburban"
	case domain.OuterSuburban:
		return "Outer Suburban"
	default:
		return "Unknown"
	}
}

// ChartUrbanComparison renders per-capita incident rates per urban class as
// a bar chart.
func ChartUrbanComparison(summary []*analyze.UrbanClassSummary, dest string) error {
	p := plot.New()
	p.Title.Text = "Per-Capita Fire Incident Rate by Urban Classification"
	p.Y.Label.Text = "Incidents per 1,000 Population"

	labels := make([]string, 0, len(summary))
	for i, s := range summary {
		bar, err := plotter.NewBarChart(oneValueAt(i, len(summary), s.IncidentsPer1000Pop), vg.Points(40))
		if err != nil {
			return fmt.Errorf("urban comparison bars: %w", err)
		}
		bar.Color = classColor(s.UrbanClass)
		p.Add(bar)
		labels = append(labels, classLabel(s.UrbanClass))
	}
	p.NominalX(labels...)

	return save(p, dest)
}

// oneValueAt builds a value series that is zero everywhere except slot i,
// letting each bar carry its own color.
func oneValueAt(i, n int, v float64) plotter.Values {
	vals := make(plotter.Values, n)
	vals[i] = v
	return vals
}

// ChartHousingCorrelation renders the percent-single-family vs incident-rate
// scatter with a least-squares trend line, one color per urban class.
func ChartHousingCorrelation(areas []*analyze.MergedArea, dest string) error {
	p := plot.New()
	p.Title.Text = "Fire Incident Rate vs Housing Typology"
	p.X.Label.Text = "% Single-Family Housing"
	p.Y.Label.Text = "Incidents per 1,000 Population"

	var xs, ys []float64
	byClass := make(map[string]plotter.XYs)
	for _, a := range areas {
		if a.Population <= 0 || a.UrbanClass == domain.UnknownClass {
			continue
		}
		byClass[a.UrbanClass] = append(byClass[a.UrbanClass],
			plotter.XY{X: a.PctSingleFamily, Y: a.IncidentsPer1000Pop})
		xs = append(xs, a.PctSingleFamily)
		ys = append(ys, a.IncidentsPer1000Pop)
	}
	if len(xs) == 0 {
		return fmt.Errorf("no populated areas to plot")
	}

	classes := make([]string, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		s, err := plotter.NewScatter(byClass[class])
		if err != nil {
			return fmt.Errorf("housing scatter: %w", err)
		}
		s.GlyphStyle.Color = classColor(class)
		s.GlyphStyle.Radius = vg.Points(3)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(classLabel(class), s)
	}

	// Least-squares trend over all classes.
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	minX, maxX := xs[0], xs[0]
	for _, x := range xs {
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
	}
	trend, err := plotter.NewLine(plotter.XYs{
		{X: minX, Y: alpha + beta*minX},
		{X: maxX, Y: alpha + beta*maxX},
	})
	if err != nil {
		return fmt.Errorf("trend line: %w", err)
	}
	trend.LineStyle.Width = vg.Points(1.5)
	trend.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(trend)
	p.Legend.Add("Trend", trend)
	p.Legend.Top = true

	return save(p, dest)
}

// ChartIncidentTypes renders annualized rates per incident category, grouped
// by urban class.
func ChartIncidentTypes(summary []*analyze.IncidentTypeSummary, dest string) error {
	p := plot.New()
	p.Title.Text = "Fire Incident Rates by Type and Urban Classification"
	p.Y.Label.Text = "Annual Incidents per 1,000 Population"

	width := vg.Points(15)
	for i, s := range summary {
		vals := plotter.Values{
			s.StructureAnnualPer1000,
			s.VehicleAnnualPer1000,
			s.OutdoorAnnualPer1000,
			s.TrashAnnualPer1000,
			s.OtherAnnualPer1000,
		}
		bars, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return fmt.Errorf("incident type bars: %w", err)
		}
		bars.Color = classColor(s.UrbanClass)
		bars.Offset = width * vg.Length(i-len(summary)/2)
		p.Add(bars)
		p.Legend.Add(classLabel(s.UrbanClass), bars)
	}
	p.NominalX("Structure", "Vehicle", "Outdoor", "Trash", "Other")
	p.Legend.Top = true

	return save(p, dest)
}

// ChartBuildingAge renders incident and structure-fire rates by building age
// class.
func ChartBuildingAge(summary []*analyze.BuildingAgeSummary, dest string) error {
	p := plot.New()
	p.Title.Text = "Fire Incident Rates by Building Age"
	p.Y.Label.Text = "Rate per 1,000"

	width := vg.Points(25)
	perPop := make(plotter.Values, len(summary))
	perUnits := make(plotter.Values, len(summary))
	labels := make([]string, len(summary))
	for i, s := range summary {
		perPop[i] = s.IncidentsPer1000Pop
		perUnits[i] = s.StructurePer1000Units
		labels[i] = s.BuildingAge
	}

	popBars, err := plotter.NewBarChart(perPop, width)
	if err != nil {
		return fmt.Errorf("building age bars: %w", err)
	}
	popBars.Color = classColors[domain.InnerSuburban]
	popBars.Offset = -width / 2

	unitBars, err := plotter.NewBarChart(perUnits, width)
	if err != nil {
		return fmt.Errorf("building age bars: %w", err)
	}
	unitBars.Color = classColors[domain.UrbanCore]
	unitBars.Offset = width / 2

	p.Add(popBars, unitBars)
	p.Legend.Add("Incidents per 1,000 pop", popBars)
	p.Legend.Add("Structure fires per 1,000 units", unitBars)
	p.Legend.Top = true
	p.NominalX(labels...)

	return save(p, dest)
}

// ChartTimeSeries renders yearly incident rates as lines.
func ChartTimeSeries(series []*analyze.YearSummary, dest string) error {
	p := plot.New()
	p.Title.Text = "Fire Incident Rates by Year"
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Incidents per 1,000 Population"

	total := make(plotter.XYs, len(series))
	structure := make(plotter.XYs, len(series))
	for i, s := range series {
		total[i] = plotter.XY{X: float64(s.Year), Y: s.IncidentsPer1000}
		structure[i] = plotter.XY{X: float64(s.Year), Y: s.StructurePer1000}
	}

	totalLine, err := plotter.NewLine(total)
	if err != nil {
		return fmt.Errorf("time series line: %w", err)
	}
	totalLine.LineStyle.Width = vg.Points(2)
	totalLine.LineStyle.Color = classColors[domain.InnerSuburban]

	structureLine, err := plotter.NewLine(structure)
	if err != nil {
		return fmt.Errorf("time series line: %w", err)
	}
	structureLine.LineStyle.Width = vg.Points(2)
	structureLine.LineStyle.Color = classColors[domain.UrbanCore]

	p.Add(totalLine, structureLine)
	p.Legend.Add("All incidents", totalLine)
	p.Legend.Add("Structure fires", structureLine)
	p.Legend.Top = true

	return save(p, dest)
}

func save(p *plot.Plot, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, dest); err != nil {
		return fmt.Errorf("save %s: %w", dest, err)
	}
	return nil
}
