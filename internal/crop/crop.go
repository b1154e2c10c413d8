// Package crop holds the static crop schedule table: per crop, the ordered
// task templates anchored on a planting date and the fertilizer rate tables
// keyed by growth stage.
//
// A Table is immutable once built. It is injected at startup so tests can
// substitute fixtures.
package crop

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownCrop is returned when a crop identifier is not present in the table.
// It is a configuration error, not a user input error.
var ErrUnknownCrop = errors.New("unknown crop")

// ErrInvalidDefinition is returned by NewTable for malformed definitions.
var ErrInvalidDefinition = errors.New("invalid crop definition")

// TaskTemplate is a single scheduled task relative to the planting date.
type TaskTemplate struct {
	OffsetDays int    `yaml:"offset" json:"offset"`
	Title      string `yaml:"title" json:"title"`
	Phase      string `yaml:"phase" json:"phase"`
	// Kind is a display hint (water, fertilize, pest, ...). Optional.
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`
}

// Rate is an application rate per square meter. Unit names the measure
// (for example "ведер"); empty means grams.
type Rate struct {
	Nutrient string  `yaml:"nutrient" json:"nutrient"`
	PerM2    float64 `yaml:"per_m2" json:"per_m2"`
	Unit     string  `yaml:"unit,omitempty" json:"unit,omitempty"`
}

// Stage is a fertilizer rate table selected by a stage key.
// Rates keep their declaration order.
type Stage struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
	Rates []Rate `yaml:"rates" json:"rates"`
}

// Soil adjusts a crop's rates. An entry in Rates replaces the base rate of its
// nutrient; nutrients without one are scaled by Factor.
type Soil struct {
	Key    string     `yaml:"key" json:"key"`
	Label  string     `yaml:"label" json:"label"`
	Factor float64    `yaml:"factor" json:"factor"`
	Rates  []SoilRate `yaml:"rates,omitempty" json:"rates,omitempty"`
}

// SoilRate is a per-soil rate for one nutrient. An empty Stage matches every stage.
type SoilRate struct {
	Stage    string  `yaml:"stage,omitempty" json:"stage,omitempty"`
	Nutrient string  `yaml:"nutrient" json:"nutrient"`
	PerM2    float64 `yaml:"per_m2" json:"per_m2"`
}

// RateFor returns the per-m² amount of r in stage on this soil. An override
// for the exact stage wins over a stage-less one.
func (s Soil) RateFor(stage string, r Rate) float64 {
	perM2, found := 0.0, false
	for _, o := range s.Rates {
		if o.Nutrient != r.Nutrient {
			continue
		}
		if o.Stage == stage {
			return o.PerM2
		}
		if o.Stage == "" && !found {
			perM2, found = o.PerM2, true
		}
	}
	if found {
		return perM2
	}
	return r.PerM2 * s.Factor
}

// Definition describes one crop.
type Definition struct {
	ID     string         `yaml:"id" json:"id"`
	Name   string         `yaml:"name" json:"name"`
	Tasks  []TaskTemplate `yaml:"tasks" json:"tasks"`
	Stages []Stage        `yaml:"stages" json:"stages"`
	Soils  []Soil         `yaml:"soils,omitempty" json:"soils,omitempty"`
}

// Stage returns the rate table for key.
func (d *Definition) Stage(key string) (Stage, bool) {
	for _, s := range d.Stages {
		if s.Key == key {
			return s, true
		}
	}
	return Stage{}, false
}

// Soil returns the soil entry for key.
func (d *Definition) Soil(key string) (Soil, bool) {
	for _, s := range d.Soils {
		if s.Key == key {
			return s, true
		}
	}
	return Soil{}, false
}

// Phases returns the distinct phase labels in declaration order.
func (d *Definition) Phases() []string {
	seen := make(map[string]struct{}, 8)
	out := make([]string, 0, 8)
	for _, t := range d.Tasks {
		if _, ok := seen[t.Phase]; ok {
			continue
		}
		seen[t.Phase] = struct{}{}
		out = append(out, t.Phase)
	}
	return out
}

// TasksInPhase returns the templates of one phase in declaration order.
func (d *Definition) TasksInPhase(phase string) []TaskTemplate {
	var out []TaskTemplate
	for _, t := range d.Tasks {
		if t.Phase == phase {
			out = append(out, t)
		}
	}
	return out
}

func (d *Definition) validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDefinition)
	}
	if len(d.Tasks) == 0 {
		return fmt.Errorf("%w: crop %q defines no tasks", ErrInvalidDefinition, d.ID)
	}
	for i, t := range d.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("%w: crop %q task #%d has empty title", ErrInvalidDefinition, d.ID, i)
		}
	}
	keys := map[string]struct{}{}
	for _, s := range d.Stages {
		if _, dup := keys[s.Key]; dup {
			return fmt.Errorf("%w: crop %q duplicate stage %q", ErrInvalidDefinition, d.ID, s.Key)
		}
		keys[s.Key] = struct{}{}
	}
	for _, s := range d.Soils {
		if s.Factor <= 0 {
			return fmt.Errorf("%w: crop %q soil %q factor must be > 0", ErrInvalidDefinition, d.ID, s.Key)
		}
		for _, o := range s.Rates {
			if o.PerM2 < 0 || strings.TrimSpace(o.Nutrient) == "" {
				return fmt.Errorf("%w: crop %q soil %q has an invalid rate for %q", ErrInvalidDefinition, d.ID, s.Key, o.Nutrient)
			}
			if _, ok := keys[o.Stage]; o.Stage != "" && !ok {
				return fmt.Errorf("%w: crop %q soil %q names unknown stage %q", ErrInvalidDefinition, d.ID, s.Key, o.Stage)
			}
		}
	}
	return nil
}

// Table is a read-only set of crop definitions.
type Table struct {
	byID  map[string]*Definition
	order []string
	def   string
}

// NewTable validates defs and builds a table. The first definition is the default crop.
func NewTable(defs ...Definition) (*Table, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no crops", ErrInvalidDefinition)
	}
	t := &Table{byID: make(map[string]*Definition, len(defs))}
	for i := range defs {
		d := defs[i]
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := t.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate crop %q", ErrInvalidDefinition, d.ID)
		}
		// Own the slices so callers can't mutate the table afterwards.
		d.Tasks = append([]TaskTemplate(nil), d.Tasks...)
		d.Stages = append([]Stage(nil), d.Stages...)
		d.Soils = append([]Soil(nil), d.Soils...)
		for j := range d.Soils {
			d.Soils[j].Rates = append([]SoilRate(nil), d.Soils[j].Rates...)
		}
		t.byID[d.ID] = &d
		t.order = append(t.order, d.ID)
	}
	t.def = t.order[0]
	return t, nil
}

// WithDefault returns a copy of the table using id as the default crop.
func (t *Table) WithDefault(id string) (*Table, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return t, nil
	}
	if _, ok := t.byID[id]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCrop, id)
	}
	cp := *t
	cp.def = id
	return &cp, nil
}

// Lookup returns the definition for id.
func (t *Table) Lookup(id string) (*Definition, error) {
	d, ok := t.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCrop, id)
	}
	return d, nil
}

// Default returns the crop new sessions start with.
func (t *Table) Default() string { return t.def }

// IDs returns crop identifiers in declaration order.
func (t *Table) IDs() []string { return append([]string(nil), t.order...) }

// StageKeys returns stage keys of a crop, sorted, for error hints.
func (d *Definition) StageKeys() []string {
	out := make([]string, 0, len(d.Stages))
	for _, s := range d.Stages {
		out = append(out, s.Key)
	}
	sort.Strings(out)
	return out
}
