// Package dialog drives the conversation: it resolves commands, button
// presses and free-text replies against the user's session, mutates the
// session and decides what to show next.
//
// Usage errors (bad input, missing planting date, unknown stage) are turned
// into replies. Configuration errors such as crop.ErrUnknownCrop are returned
// to the caller unchanged.
package dialog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"cloud.google.com/go/civil"

	"agroguru/internal/calendar"
	"agroguru/internal/crop"
	"agroguru/internal/dosage"
	"agroguru/internal/session"
)

// DefaultWindowDays is the calendar look-ahead when none is configured.
const DefaultWindowDays = 30

type Machine struct {
	store session.Store
	crops *crop.Table
	cal   *calendar.Generator
	dose  *dosage.Calculator

	window atomic.Int64
}

func New(store session.Store, crops *crop.Table, cal *calendar.Generator, dose *dosage.Calculator, windowDays int) *Machine {
	m := &Machine{store: store, crops: crops, cal: cal, dose: dose}
	m.SetWindow(windowDays)
	return m
}

// SetWindow changes the default calendar look-ahead. 0 means today only;
// negative values are clamped to 0. Safe for concurrent use.
func (m *Machine) SetWindow(days int) {
	if days < 0 {
		days = 0
	}
	m.window.Store(int64(days))
}

func (m *Machine) Window() int { return int(m.window.Load()) }

// Store exposes the session store (read-only use: housekeeping, tests).
func (m *Machine) Store() session.Store { return m.store }

// HandleCommand handles a slash command. name is given without the leading slash.
func (m *Machine) HandleCommand(userID int64, name string, args []string) (Reply, error) {
	arg := strings.TrimSpace(strings.Join(args, " "))
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "start", "menu":
		return m.menu(userID), nil
	case "calendar":
		days := m.Window()
		if n, err := strconv.Atoi(arg); err == nil && n >= 0 {
			days = calendar.ClampWindow(n)
		}
		return m.calendarView(userID, days)
	case "season":
		return m.seasonView(userID)
	case "checklist":
		return m.checklistView(userID)
	case "dose":
		if arg == "" {
			return m.calculatorView(userID)
		}
		return m.doseView(userID, arg)
	case "settings":
		return m.settingsView(userID), nil
	case "setdate":
		r := m.ask(userID, inAskDate)
		if arg == "" {
			return r, nil
		}
		return m.HandleText(userID, arg)
	case "setarea":
		r := m.ask(userID, inAskArea)
		if arg == "" {
			return r, nil
		}
		return m.HandleText(userID, arg)
	case "reset":
		return m.reset(userID), nil
	case "help":
		return helpView(), nil
	default:
		r := helpView()
		r.Err = fmt.Errorf("%w: /%s", ErrUnknownCommand, name)
		r.Title = "Неизвестная команда"
		return r, nil
	}
}

// HandleCallback handles an inline button token (see Intent.Token).
func (m *Machine) HandleCallback(userID int64, token string) (Reply, error) {
	in := ParseIntent(token)
	switch in.Kind {
	case IntentMenu:
		return m.menu(userID), nil
	case IntentCalendar:
		return m.calendarView(userID, m.Window())
	case IntentSeason:
		return m.seasonView(userID)
	case IntentChecklist:
		return m.checklistView(userID)
	case IntentPhase:
		return m.phaseView(userID, in.Arg)
	case IntentCalculator:
		return m.calculatorView(userID)
	case IntentDose:
		return m.doseView(userID, in.Arg)
	case IntentSettings:
		return m.settingsView(userID), nil
	case IntentAskDate:
		return m.ask(userID, inAskDate), nil
	case IntentAskArea:
		return m.ask(userID, inAskArea), nil
	case IntentSoil:
		return m.setSoil(userID, in.Arg)
	case IntentDatePreset:
		return m.datePreset(userID, in.Arg), nil
	case IntentAreaPreset:
		return m.areaPreset(userID, in.Arg), nil
	case IntentReset:
		return m.reset(userID), nil
	case IntentHelp:
		return helpView(), nil
	default:
		r := m.menu(userID)
		r.Lines = append([]string{"Кнопка устарела, вот главное меню."}, r.Lines...)
		return r, nil
	}
}

// HandleText answers the pending question, if any.
func (m *Machine) HandleText(userID int64, raw string) (Reply, error) {
	var (
		was     session.DialogState
		useErr  error
		changed Change
	)
	s, _ := m.store.Update(userID, func(s *session.Session) error {
		was = s.State
		switch s.State {
		case session.StateAwaitingPlantingDate:
			d, err := ParseDate(raw)
			if err != nil {
				useErr = err
				s.State = next(s.State, inTextRejected)
				return nil
			}
			s.PlantingDate = d
			s.State = next(s.State, inTextAccepted)
			changed = Change{Field: "planting_date", Value: d.String()}
		case session.StateAwaitingArea:
			a, err := ParseArea(raw)
			if err != nil {
				useErr = err
				s.State = next(s.State, inTextRejected)
				return nil
			}
			s.AreaM2 = a
			s.State = next(s.State, inTextAccepted)
			changed = Change{Field: "area_m2", Value: formatArea(a)}
		default:
			useErr = ErrNoPendingDialog
			s.State = next(s.State, inTextRejected)
		}
		return nil
	})

	switch {
	case errors.Is(useErr, ErrNoPendingDialog):
		r := m.menu(userID)
		r.Err = useErr
		r.Title = "Воспользуйся меню"
		return r, nil
	case useErr != nil:
		r := askView(was)
		r.Err = useErr
		r.Lines = append([]string{"⚠️ " + usageHint(useErr)}, r.Lines...)
		return r, nil
	}

	r := Reply{Changes: []Change{changed}, Choices: [][]Choice{
		row(choice("📅 Календарь работ", IntentCalendar), choice("⚙️ Параметры", IntentSettings)),
		row(choice("◀️ Меню", IntentMenu)),
	}}
	if was == session.StateAwaitingPlantingDate {
		r.Title = "✅ Дата посадки установлена: " + formatDate(s.PlantingDate)
	} else {
		r.Title = "✅ Площадь установлена: " + formatArea(s.AreaM2) + " м²"
	}
	return r, nil
}

// ParseDate parses a Gregorian YYYY-MM-DD date.
func ParseDate(raw string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(raw))
	if err != nil || !d.IsValid() {
		return civil.Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, raw)
	}
	return d, nil
}

// ParseArea parses a positive real number up to dosage.MaxAreaM2; comma or
// period is accepted as the decimal separator.
func ParseArea(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "м²"), "m2"))
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || math.IsNaN(v) || v > dosage.MaxAreaM2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidArea, raw)
	}
	return v, nil
}

func (m *Machine) ask(userID int64, in input) Reply {
	s, _ := m.store.Update(userID, func(s *session.Session) error {
		s.State = next(s.State, in)
		return nil
	})
	return askView(s.State)
}

func (m *Machine) reset(userID int64) Reply {
	m.store.Reset(userID)
	s := m.store.GetOrCreate(userID)
	r := m.menu(userID)
	r.Title = "🔄 Параметры сброшены"
	r.Changes = []Change{{Field: "reset", Value: s.CropID}}
	return r
}

func (m *Machine) setSoil(userID int64, key string) (Reply, error) {
	s := m.store.GetOrCreate(userID)
	def, err := m.crops.Lookup(s.CropID)
	if err != nil {
		return Reply{}, err
	}
	soil, ok := def.Soil(key)
	if !ok {
		return m.settingsView(userID), nil
	}
	_, _ = m.store.Update(userID, func(s *session.Session) error {
		s.Soil = soil.Key
		return nil
	})
	r := m.settingsView(userID)
	r.Title = "✅ Тип почвы: " + soil.Label
	r.Changes = []Change{{Field: "soil", Value: soil.Key}}
	return r, nil
}

func (m *Machine) datePreset(userID int64, which string) Reply {
	d := m.cal.Today()
	switch which {
	case DatePresetToday:
	case DatePresetWeek:
		d = d.AddDays(7)
	default:
		return m.settingsView(userID)
	}
	_, _ = m.store.Update(userID, func(s *session.Session) error {
		s.PlantingDate = d
		s.State = next(s.State, inValueSet)
		return nil
	})
	r := m.settingsView(userID)
	r.Title = "✅ Дата посадки установлена: " + formatDate(d)
	r.Changes = []Change{{Field: "planting_date", Value: d.String()}}
	return r
}

func (m *Machine) areaPreset(userID int64, raw string) Reply {
	a, err := strconv.Atoi(raw)
	if err != nil || !isAreaPreset(a) {
		return m.settingsView(userID)
	}
	_, _ = m.store.Update(userID, func(s *session.Session) error {
		s.AreaM2 = float64(a)
		s.State = next(s.State, inValueSet)
		return nil
	})
	r := m.settingsView(userID)
	r.Title = "✅ Площадь установлена: " + strconv.Itoa(a) + " м²"
	r.Changes = []Change{{Field: "area_m2", Value: strconv.Itoa(a)}}
	return r
}

func isAreaPreset(a int) bool {
	for _, p := range AreaPresets {
		if p == a {
			return true
		}
	}
	return false
}
