package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func TestBuildGEOID(t *testing.T) {
	assert.Equal(t, "48453001100", BuildGEOID("48", "453", "001100"))
	assert.Equal(t, "48453001100", BuildGEOID("48", "453", "1100"))
	assert.Equal(t, "01001000001", BuildGEOID("1", "1", "1"))
	assert.Equal(t, "48453001100", BuildGEOID(" 48", "453 ", " 001100 "))
}

func TestNormalizeGEOID(t *testing.T) {
	assert.Equal(t, "48453001100", NormalizeGEOID("001100", "48", "453"))
	assert.Equal(t, "48453001100", NormalizeGEOID("48453001100", "48", "453"))
}

func TestTractDemographicsScaleAdd(t *testing.T) {
	d := TractDemographics{
		GEOID:        "48453001100",
		Population:   1000,
		TotalUnits:   400,
		SingleFamily: 300,
		Multifamily:  100,
	}

	scaled := d.Scale(0.6)
	assert.InDelta(t, 600, scaled.Population, 1e-9)
	assert.InDelta(t, 240, scaled.TotalUnits, 1e-9)
	assert.InDelta(t, 180, scaled.SingleFamily, 1e-9)

	sum := d.Scale(0.6).Add(d.Scale(0.4))
	want := d
	if diff := cmp.Diff(want, sum, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("split allocation does not reassemble (-want +got):\n%s", diff)
	}
}
