// Package calendar anchors a crop's task templates on a session's planting
// date and selects the tasks that fall into a window starting today.
//
// Entries are derived on every call and never cached.
package calendar

import (
	"errors"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"agroguru/internal/crop"
	"agroguru/internal/session"
)

// ErrMissingPlantingDate is returned when the session has no anchor date.
var ErrMissingPlantingDate = errors.New("planting date is not set")

// Entry is one anchored task.
type Entry struct {
	Date  civil.Date
	Title string
	Phase string
	Kind  string
}

// Generator derives calendar entries. Now and Location decide what "today" is;
// both are read on every call.
type Generator struct {
	Crops    *crop.Table
	Now      func() time.Time
	Location *time.Location
}

// New returns a generator using the wall clock in loc (time.Local when nil).
func New(crops *crop.Table, loc *time.Location) *Generator {
	return &Generator{Crops: crops, Now: time.Now, Location: loc}
}

// Today returns the current calendar date.
func (g *Generator) Today() civil.Date {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	loc := g.Location
	if loc == nil {
		loc = time.Local
	}
	return civil.DateOf(now().In(loc))
}

// MaxWindowDays bounds the look-ahead of Generate. It is longer than any
// season, so clamping never hides a task.
const MaxWindowDays = 3660

// ClampWindow limits days to [0, MaxWindowDays].
func ClampWindow(days int) int {
	return min(max(days, 0), MaxWindowDays)
}

// Generate returns the session's tasks dated within [today, today+windowDays],
// ordered by date, ties kept in declaration order. The window is clamped with
// ClampWindow.
func (g *Generator) Generate(s session.Session, windowDays int) ([]Entry, error) {
	all, err := g.Season(s)
	if err != nil {
		return nil, err
	}
	windowDays = ClampWindow(windowDays)
	from := g.Today()
	to := from.AddDays(windowDays)

	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Season returns every task of the session's crop anchored on the planting date.
func (g *Generator) Season(s session.Session) ([]Entry, error) {
	if !s.HasPlantingDate() {
		return nil, ErrMissingPlantingDate
	}
	def, err := g.Crops.Lookup(s.CropID)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(def.Tasks))
	for _, t := range def.Tasks {
		out = append(out, Entry{
			Date:  s.PlantingDate.AddDays(t.OffsetDays),
			Title: t.Title,
			Phase: t.Phase,
			Kind:  t.Kind,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// PhaseGroup is a run of consecutive entries sharing a phase.
type PhaseGroup struct {
	Phase   string
	Entries []Entry
}

// Group splits an ordered entry list into consecutive phase runs. It does not
// reorder: a phase that reappears later starts a new group.
func Group(entries []Entry) []PhaseGroup {
	var out []PhaseGroup
	for _, e := range entries {
		if n := len(out); n > 0 && out[n-1].Phase == e.Phase {
			out[n-1].Entries = append(out[n-1].Entries, e)
			continue
		}
		out = append(out, PhaseGroup{Phase: e.Phase, Entries: []Entry{e}})
	}
	return out
}
