package dosage

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroguru/internal/crop"
)

func fixture(t *testing.T) *Calculator {
	t.Helper()
	tbl, err := crop.NewTable(crop.Definition{
		ID:    "test",
		Tasks: []crop.TaskTemplate{{Title: "x"}},
		Stages: []crop.Stage{
			{Key: "before_flowering", Rates: []crop.Rate{{Nutrient: "N", PerM2: 20}, {Nutrient: "P", PerM2: 7.5}, {Nutrient: "K", PerM2: 0.3}}},
		},
		Soils: []crop.Soil{{Key: "sandy", Factor: 0.5}},
	})
	require.NoError(t, err)
	return New(tbl)
}

func TestComputeScalesByArea(t *testing.T) {
	t.Parallel()
	lines, err := fixture(t).Compute("test", "before_flowering", 4)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "N", lines[0].Nutrient)
	assert.Equal(t, int64(80), lines[0].Rounded())
	assert.Equal(t, []string{"N", "P", "K"}, []string{lines[0].Nutrient, lines[1].Nutrient, lines[2].Nutrient})
}

func TestComputeDefaultArea(t *testing.T) {
	t.Parallel()
	c := fixture(t)
	for _, area := range []float64{0, -3} {
		r, err := c.ComputeSoil("test", "before_flowering", area, "")
		require.NoError(t, err)
		assert.True(t, r.Defaulted)
		assert.Equal(t, 1.0, r.AreaM2)
		assert.Equal(t, 20.0, r.Lines[0].Amount)
	}
}

func TestComputeIsLinear(t *testing.T) {
	t.Parallel()
	c := fixture(t)
	for _, a := range []float64{0.7, 1, 3.3, 12.5, 1000} {
		one, err := c.Compute("test", "before_flowering", a)
		require.NoError(t, err)
		two, err := c.Compute("test", "before_flowering", 2*a)
		require.NoError(t, err)
		for i := range one {
			assert.Equal(t, 2*one[i].Amount, two[i].Amount, "area %v nutrient %s", a, one[i].Nutrient)
		}
	}
}

func TestRoundingIsPresentationOnly(t *testing.T) {
	t.Parallel()
	lines, err := fixture(t).Compute("test", "before_flowering", 5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, lines[2].Amount)
	assert.Equal(t, int64(2), lines[2].Rounded())
	assert.Equal(t, int64(38), lines[1].Rounded()) // 37.5
}

func TestComputeSoilFactor(t *testing.T) {
	t.Parallel()
	r, err := fixture(t).ComputeSoil("test", "before_flowering", 4, "sandy")
	require.NoError(t, err)
	assert.Equal(t, "sandy", r.Soil.Key)
	assert.Equal(t, int64(40), r.Lines[0].Rounded())

	r, err = fixture(t).ComputeSoil("test", "before_flowering", 4, "clay")
	require.NoError(t, err)
	assert.Equal(t, int64(80), r.Lines[0].Rounded())
}

func TestComputeErrors(t *testing.T) {
	t.Parallel()
	c := fixture(t)
	_, err := c.Compute("test", "after_flowering", 1)
	require.ErrorIs(t, err, ErrUnknownStage)

	_, err = c.Compute("nope", "before_flowering", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, crop.ErrUnknownCrop))
}

func TestBuiltinSandyLoamRates(t *testing.T) {
	t.Parallel()
	c := New(crop.Builtin())

	r, err := c.ComputeSoil(crop.IrisID, "before_flowering", 10, "sandy_loam")
	require.NoError(t, err)
	got := map[string]int64{}
	for _, l := range r.Lines {
		got[l.Nutrient] = l.Rounded()
	}
	assert.Equal(t, map[string]int64{
		crop.Manure:          10,
		crop.AmmoniumNitrate: 300,
		crop.Superphosphate:  500,
		crop.PotassiumSalt:   200,
	}, got)

	// No per-soil rate for this stage: the factor applies.
	r, err = c.ComputeSoil(crop.IrisID, "after_flowering", 10, "sandy_loam")
	require.NoError(t, err)
	assert.InDelta(t, 340.0, r.Lines[1].Amount, 1e-9)

	r, err = c.ComputeSoil(crop.IrisID, "before_flowering", 10, "loam")
	require.NoError(t, err)
	assert.Equal(t, "ведер", r.Lines[0].Unit)
	assert.Equal(t, int64(350), r.Lines[3].Rounded())
}

func TestSoilRateOverridesFactor(t *testing.T) {
	t.Parallel()
	tbl, err := crop.NewTable(crop.Definition{
		ID:    "test",
		Tasks: []crop.TaskTemplate{{Title: "x"}},
		Stages: []crop.Stage{
			{Key: "a", Rates: []crop.Rate{{Nutrient: "N", PerM2: 10}, {Nutrient: "K", PerM2: 10}}},
			{Key: "b", Rates: []crop.Rate{{Nutrient: "N", PerM2: 10}, {Nutrient: "K", PerM2: 10}}},
		},
		Soils: []crop.Soil{{Key: "s", Factor: 2, Rates: []crop.SoilRate{
			{Nutrient: "K", PerM2: 3},
			{Stage: "b", Nutrient: "K", PerM2: 7},
		}}},
	})
	require.NoError(t, err)
	c := New(tbl)

	r, err := c.ComputeSoil("test", "a", 1, "s")
	require.NoError(t, err)
	assert.Equal(t, 20.0, r.Lines[0].Amount)
	assert.Equal(t, 3.0, r.Lines[1].Amount)

	r, err = c.ComputeSoil("test", "b", 1, "s")
	require.NoError(t, err)
	assert.Equal(t, 7.0, r.Lines[1].Amount)
}

func TestRoundedSaturates(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int64(math.MaxInt64), Line{Amount: 1e300 * 35}.Rounded())
	assert.Equal(t, int64(math.MinInt64), Line{Amount: -1e300}.Rounded())
	assert.Equal(t, int64(math.MaxInt64), Line{Amount: math.Inf(1)}.Rounded())
	assert.Zero(t, Line{Amount: math.NaN()}.Rounded())

	lines, err := fixture(t).Compute("test", "before_flowering", MaxAreaM2)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_000), lines[0].Rounded())
}
