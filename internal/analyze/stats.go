package analyze

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
)

// WelchTTest compares the means of two independent samples without assuming
// equal variances. Returns the t statistic and the two-sided p-value.
// Samples with fewer than two observations yield NaN.
func WelchTTest(a, b []float64) (t, p float64) {
	if len(a) < 2 || len(b) < 2 {
		return math.NaN(), math.NaN()
	}

	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))

	sa, sb := varA/na, varB/nb
	se := math.Sqrt(sa + sb)
	if se == 0 {
		return math.NaN(), math.NaN()
	}
	t = (meanA - meanB) / se

	// Welch-Satterthwaite degrees of freedom.
	df := (sa + sb) * (sa + sb) / (sa*sa/(na-1) + sb*sb/(nb-1))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.CDF(-math.Abs(t))
	return t, p
}

// OneWayANOVA tests whether the group means differ. Returns the F statistic
// and p-value. Needs at least two groups and more observations than groups.
func OneWayANOVA(groups ...[]float64) (f, p float64) {
	k := len(groups)
	if k < 2 {
		return math.NaN(), math.NaN()
	}

	var all []float64
	for _, g := range groups {
		all = append(all, g...)
	}
	n := float64(len(all))
	if n <= float64(k) {
		return math.NaN(), math.NaN()
	}
	grand := stat.Mean(all, nil)

	var ssBetween, ssWithin float64
	for _, g := range groups {
		m := stat.Mean(g, nil)
		ssBetween += float64(len(g)) * (m - grand) * (m - grand)
		for _, x := range g {
			ssWithin += (x - m) * (x - m)
		}
	}

	dfB := float64(k - 1)
	dfW := n - float64(k)
	if ssWithin == 0 {
		return math.NaN(), math.NaN()
	}
	f = (ssBetween / dfB) / (ssWithin / dfW)

	dist := distuv.F{D1: dfB, D2: dfW}
	p = 1 - dist.CDF(f)
	return f, p
}

// PearsonR computes the correlation between x and y with a two-sided p-value
// from the t distribution with n-2 degrees of freedom.
func PearsonR(x, y []float64) (r, p float64) {
	if len(x) != len(y) || len(x) < 3 {
		return math.NaN(), math.NaN()
	}

	r = stat.Correlation(x, y, nil)
	if math.Abs(r) >= 1 {
		return r, 0
	}

	n := float64(len(x))
	t := r * math.Sqrt((n-2)/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 2}
	p = 2 * dist.CDF(-math.Abs(t))
	return r, p
}

// minTestPopulation excludes barely-populated areas whose rates are noise.
const minTestPopulation = 100

// TestReport runs the statistical comparisons across urban classes and
// renders them as a plain-text report.
func TestReport(areas []*MergedArea) string {
	rates := make(map[string][]float64)
	var pctSF, sfRates []float64
	for _, a := range areas {
		if a.Population <= minTestPopulation || a.UrbanClass == domain.UnknownClass {
			continue
		}
		rates[a.UrbanClass] = append(rates[a.UrbanClass], a.IncidentsPer1000Pop)
		pctSF = append(pctSF, a.PctSingleFamily)
		sfRates = append(sfRates, a.IncidentsPer1000Pop)
	}

	urban := rates[domain.UrbanCore]
	inner := rates[domain.InnerSuburban]
	outer := rates[domain.OuterSuburban]

	var b strings.Builder

	writeTTest := func(title, compLabel string, comp []float64) {
		if len(urban) < 2 || len(comp) < 2 {
			return
		}
		t, p := WelchTTest(comp, urban)
		fmt.Fprintf(&b, "T-test: %s\n", title)
		fmt.Fprintf(&b, "  Urban mean: %.2f incidents per 1,000 pop\n", stat.Mean(urban, nil))
		fmt.Fprintf(&b, "  %s mean: %.2f incidents per 1,000 pop\n", compLabel, stat.Mean(comp, nil))
		fmt.Fprintf(&b, "  t-statistic: %.3f\n", t)
		fmt.Fprintf(&b, "  p-value: %.4f\n", p)
		fmt.Fprintf(&b, "  Significant at a=0.05: %s\n\n", yesNo(p < 0.05))
	}
	writeTTest("Inner Suburban vs Urban Core", "Inner Suburban", inner)
	writeTTest("Outer Suburban vs Urban Core", "Outer Suburban", outer)

	var groups [][]float64
	for _, g := range [][]float64{urban, inner, outer} {
		if len(g) > 0 {
			groups = append(groups, g)
		}
	}
	if len(groups) >= 2 {
		f, p := OneWayANOVA(groups...)
		fmt.Fprintf(&b, "ANOVA: All Urban Classifications\n")
		fmt.Fprintf(&b, "  F-statistic: %.3f\n", f)
		fmt.Fprintf(&b, "  p-value: %.4f\n", p)
		fmt.Fprintf(&b, "  Significant at a=0.05: %s\n\n", yesNo(p < 0.05))
	}

	if len(pctSF) >= 3 {
		r, p := PearsonR(pctSF, sfRates)
		direction := "Positive"
		if r < 0 {
			direction = "Negative"
		}
		fmt.Fprintf(&b, "Correlation: %% Single-Family vs Incident Rate\n")
		fmt.Fprintf(&b, "  Pearson r: %.3f\n", r)
		fmt.Fprintf(&b, "  p-value: %.4f\n", p)
		fmt.Fprintf(&b, "  Interpretation: %s correlation\n", direction)
	}

	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
