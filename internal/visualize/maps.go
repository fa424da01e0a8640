package visualize

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atxcivic/fire-analysis-etl/internal/analyze"
	"github.com/atxcivic/fire-analysis-etl/internal/geo"
)

// Map center over the study area.
const (
	mapCenterLat = 30.27
	mapCenterLon = -97.74
	mapZoom      = 10
)

const mapTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
  html, body, #map { height: 100%; margin: 0; }
  .legend {
    background: white; padding: 10px; border: 2px solid grey;
    border-radius: 5px; line-height: 20px; font: 12px sans-serif;
  }
  .legend i { width: 18px; height: 12px; float: left; margin-right: 8px; }
</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], {{.Zoom}});
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);

var areas = {{.GeoJSON}};
{{.StyleJS}}

L.geoJSON(areas, {
  style: styleFeature,
  onEachFeature: function (feature, layer) {
    var p = feature.properties;
    layer.bindPopup(
      '<b>Response Area:</b> ' + p.response_area_id +
      '<br><b>Population:</b> ' + Math.round(p.population || 0) +
      '<br><b>Classification:</b> ' + (p.urban_class || 'unknown') +
      '<br><b>Annual incidents per 1,000 pop:</b> ' +
      (p.annual_incidents_per_1000_pop || 0).toFixed(2)
    );
  }
}).addTo(map);
{{.ExtraJS}}
var legend = L.control({position: 'bottomright'});
legend.onAdd = function () {
  var div = L.DomUtil.create('div', 'legend');
  div.innerHTML = {{.LegendHTML}};
  return div;
};
legend.addTo(map);
</script>
</body>
</html>
`

type mapParams struct {
	Title      string
	CenterLat  float64
	CenterLon  float64
	Zoom       int
	GeoJSON    template.JS
	StyleJS    template.JS
	ExtraJS    template.JS
	LegendHTML template.JS
}

var mapTmpl = template.Must(template.New("map").Parse(mapTemplate))

// YlOrRd ramp used by the graduated rate and density maps.
var heatColors = []string{"#ffffb2", "#fecc5c", "#fd8d3c", "#e31a1c"}

// gradedStyle builds the JS style function and legend for a graduated color
// map over the given feature property, with the given class breaks.
func gradedStyle(prop, title string, breaks []float64, colors []string) (style, legend string) {
	style = fmt.Sprintf(`function gradeColor(v) {
  return v > %[3]f ? '%[7]s' : v > %[2]f ? '%[6]s' : v > %[1]f ? '%[5]s' : '%[4]s';
}
function styleFeature(feature) {
  var v = feature.properties.%[8]s || 0;
  return {fillColor: gradeColor(v), fillOpacity: 0.7, color: '#000', weight: 0.5};
}`,
		breaks[0], breaks[1], breaks[2],
		colors[0], colors[1], colors[2], colors[3], prop)

	legend = fmt.Sprintf(`'<b>%s</b>'+
'<br><i style="background:%s"></i> &le; %.2f'+
'<br><i style="background:%s"></i> %.2f&ndash;%.2f'+
'<br><i style="background:%s"></i> %.2f&ndash;%.2f'+
'<br><i style="background:%s"></i> &gt; %.2f'`,
		title,
		colors[0], breaks[0],
		colors[1], breaks[0], breaks[1],
		colors[2], breaks[1], breaks[2],
		colors[3], breaks[2])
	return style, legend
}

// quartileBreaks returns the 25th, 50th and 75th percentile of values taken
// from the populated areas.
func quartileBreaks(areas []*analyze.MergedArea, value func(*analyze.MergedArea) float64) []float64 {
	var vals []float64
	for _, a := range areas {
		if a.Population > 0 {
			vals = append(vals, value(a))
		}
	}
	sort.Float64s(vals)

	quantile := func(q float64) float64 {
		if len(vals) == 0 {
			return 0
		}
		i := int(q * float64(len(vals)-1))
		return vals[i]
	}
	return []float64{quantile(0.25), quantile(0.5), quantile(0.75)}
}

// choroplethStyle builds the JS style function for a graduated color map
// over the annual per-capita rate, with breaks at the data quartiles.
func choroplethStyle(areas []*analyze.MergedArea) (style, legend string) {
	breaks := quartileBreaks(areas, func(a *analyze.MergedArea) float64 { return a.AnnualIncidentsPer1000Pop })
	return gradedStyle("annual_incidents_per_1000_pop", "Annual incidents per 1,000 pop", breaks, heatColors)
}

const classStyleJS = `var classColors = {
  'urban_core': '#d62728',
  'inner_suburban': '#ff7f0e',
  'outer_suburban': '#2ca02c'
};
function styleFeature(feature) {
  var c = classColors[feature.properties.urban_class] || '#7f7f7f';
  return {fillColor: c, fillOpacity: 0.6, color: '#000', weight: 0.5};
}`

const classLegendJS = `'<b>Urban Classification</b>'+
'<br><i style="background:#d62728"></i> Urban Core'+
'<br><i style="background:#ff7f0e"></i> Inner Suburban'+
'<br><i style="background:#2ca02c"></i> Outer Suburban'+
'<br><i style="background:#7f7f7f"></i> Unknown'`

// WriteChoroplethMap renders the per-capita incident rate map.
func WriteChoroplethMap(geoJSON []byte, areas []*analyze.MergedArea, dest string) error {
	style, legend := choroplethStyle(areas)
	return writeMap(mapParams{
		Title:      "Fire Incidents per Capita",
		GeoJSON:    template.JS(geoJSON),
		StyleJS:    template.JS(style),
		LegendHTML: template.JS(legend),
	}, dest)
}

// WriteClassificationMap renders the categorical urban classification map.
func WriteClassificationMap(geoJSON []byte, dest string) error {
	return writeMap(mapParams{
		Title:      "Urban Classification",
		GeoJSON:    template.JS(geoJSON),
		StyleJS:    template.JS(classStyleJS),
		LegendHTML: template.JS(classLegendJS),
	}, dest)
}

// Percentage breaks for the typology and building-age maps. Green-to-red for
// single-family share, red-to-green for newer construction.
var (
	pctBreaks      = []float64{25, 50, 75}
	greenToRed     = []string{"#1a9641", "#a6d96a", "#fdae61", "#d7191c"}
	redToGreen     = []string{"#d7191c", "#fdae61", "#a6d96a", "#1a9641"}
	fireDepartment = map[string]bool{"AFD": true, "AUSTIN": true, "AUSTIN FIRE": true}
)

// WriteHousingTypologyMap renders the single-family housing share map.
func WriteHousingTypologyMap(geoJSON []byte, dest string) error {
	style, legend := gradedStyle("pct_single_family", "Single-family share (%)", pctBreaks, greenToRed)
	return writeMap(mapParams{
		Title:      "Housing Typology",
		GeoJSON:    template.JS(geoJSON),
		StyleJS:    template.JS(style),
		LegendHTML: template.JS(legend),
	}, dest)
}

// WriteBuildingAgeMap renders the share of units built since 2010.
func WriteBuildingAgeMap(geoJSON []byte, dest string) error {
	style, legend := gradedStyle("pct_built_2010_plus", "Units built 2010+ (%)", pctBreaks, redToGreen)
	return writeMap(mapParams{
		Title:      "Building Age",
		GeoJSON:    template.JS(geoJSON),
		StyleJS:    template.JS(style),
		LegendHTML: template.JS(legend),
	}, dest)
}

// WriteStationMap renders population density with fire station markers. AFD
// stations are drawn red, stations run by other departments blue.
func WriteStationMap(geoJSON []byte, areas []*analyze.MergedArea, stations []geo.Point, dest string) error {
	breaks := quartileBreaks(areas, func(a *analyze.MergedArea) float64 { return a.PopDensity })
	style, legend := gradedStyle("pop_density", "Population per sq mile", breaks, heatColors)
	legend += ` +
'<br><i style="background:#d62728;border-radius:50%"></i> AFD station'+
'<br><i style="background:#1f77b4;border-radius:50%"></i> Other station'`

	return writeMap(mapParams{
		Title:      "Fire Stations",
		GeoJSON:    template.JS(geoJSON),
		StyleJS:    template.JS(style),
		ExtraJS:    template.JS(stationMarkersJS(stations)),
		LegendHTML: template.JS(legend),
	}, dest)
}

// stationMarkersJS emits circle markers for each station point.
func stationMarkersJS(stations []geo.Point) string {
	var b strings.Builder
	for _, s := range stations {
		name := geo.PropString(s.Props, "NAME", "name", "STATION_NUMBER")
		dept := strings.ToUpper(geo.PropString(s.Props, "DEPARTMENT", "department"))
		c := "#1f77b4"
		if fireDepartment[dept] {
			c = "#d62728"
		}
		label, err := json.Marshal("Station: " + name)
		if err != nil {
			label = []byte(`"Station"`)
		}
		fmt.Fprintf(&b, "L.circleMarker([%f, %f], {radius: 5, color: '%s', fillOpacity: 0.9}).bindPopup(%s).addTo(map);\n",
			s.Location.Lat(), s.Location.Lon(), c, label)
	}
	return b.String()
}

func writeMap(params mapParams, dest string) error {
	params.CenterLat = mapCenterLat
	params.CenterLon = mapCenterLon
	params.Zoom = mapZoom

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	if err := mapTmpl.Execute(f, params); err != nil {
		return fmt.Errorf("render map %s: %w", dest, err)
	}
	return nil
}
