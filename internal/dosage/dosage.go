// Package dosage scales a crop's per-square-meter fertilizer rates by plot area.
package dosage

import (
	"errors"
	"fmt"
	"math"

	"agroguru/internal/crop"
)

// ErrUnknownStage is returned when the stage key has no rate table.
var ErrUnknownStage = errors.New("unknown fertilizer stage")

// DefaultAreaM2 is used when no area is set: the result restates the rates per m².
const DefaultAreaM2 = 1.0

// MaxAreaM2 is the largest plot area accepted from users (one km²).
const MaxAreaM2 = 1e6

// Line is one nutrient total in Unit, or in grams when Unit is empty.
// Amount is unrounded; use Rounded for display.
type Line struct {
	Nutrient string
	Amount   float64
	Unit     string
}

// Rounded returns Amount rounded to the nearest whole unit, saturating at the
// int64 range. NaN rounds to 0.
func (l Line) Rounded() int64 {
	g := math.Round(l.Amount)
	switch {
	case math.IsNaN(g):
		return 0
	case g >= math.MaxInt64:
		return math.MaxInt64
	case g <= math.MinInt64:
		return math.MinInt64
	}
	return int64(g)
}

// Result is a computed dosage for one stage.
type Result struct {
	Stage  crop.Stage
	AreaM2 float64
	// Defaulted is true when AreaM2 came from the default unit area.
	Defaulted bool
	Soil      crop.Soil
	Lines     []Line
}

type Calculator struct {
	Crops       *crop.Table
	DefaultArea float64
}

func New(crops *crop.Table) *Calculator {
	return &Calculator{Crops: crops, DefaultArea: DefaultAreaM2}
}

// Compute returns rate * area for every nutrient of the stage, in table order.
// A non-positive area means unset.
func (c *Calculator) Compute(cropID, stage string, areaM2 float64) ([]Line, error) {
	r, err := c.ComputeSoil(cropID, stage, areaM2, "")
	if err != nil {
		return nil, err
	}
	return r.Lines, nil
}

// ComputeSoil is Compute on the given soil: per-soil rates replace base rates,
// other nutrients are scaled by the soil factor. Unknown or empty soil keys use
// the base rates.
func (c *Calculator) ComputeSoil(cropID, stage string, areaM2 float64, soil string) (Result, error) {
	def, err := c.Crops.Lookup(cropID)
	if err != nil {
		return Result{}, err
	}
	st, ok := def.Stage(stage)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}

	res := Result{Stage: st, AreaM2: areaM2}
	if areaM2 <= 0 || math.IsNaN(areaM2) || math.IsInf(areaM2, 0) {
		res.AreaM2 = c.defaultArea()
		res.Defaulted = true
	}
	rateFor := func(r crop.Rate) float64 { return r.PerM2 }
	if s, ok := def.Soil(soil); ok {
		res.Soil = s
		rateFor = func(r crop.Rate) float64 { return s.RateFor(st.Key, r) }
	}

	res.Lines = make([]Line, 0, len(st.Rates))
	for _, r := range st.Rates {
		res.Lines = append(res.Lines, Line{Nutrient: r.Nutrient, Amount: rateFor(r) * res.AreaM2, Unit: r.Unit})
	}
	return res, nil
}

func (c *Calculator) defaultArea() float64 {
	if c.DefaultArea > 0 {
		return c.DefaultArea
	}
	return DefaultAreaM2
}
