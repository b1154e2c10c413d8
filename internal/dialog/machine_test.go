package dialog

import (
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroguru/internal/calendar"
	"agroguru/internal/crop"
	"agroguru/internal/dosage"
	"agroguru/internal/session"
)

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newMachine(t *testing.T, tbl *crop.Table) *Machine {
	t.Helper()
	if tbl == nil {
		tbl = crop.Builtin()
	}
	cal := calendar.New(tbl, time.UTC)
	cal.Now = func() time.Time { return now }
	return New(session.NewMemoryStore(tbl.Default()), tbl, cal, dosage.New(tbl), DefaultWindowDays)
}

func state(m *Machine, uid int64) session.Session { return m.Store().GetOrCreate(uid) }

func TestDateRoundTrip(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)

	r, err := m.HandleCallback(1, Intent{Kind: IntentAskDate}.Token())
	require.NoError(t, err)
	assert.NoError(t, r.Err)
	assert.Equal(t, session.StateAwaitingPlantingDate, state(m, 1).State)

	r, err = m.HandleText(1, "20.08.2025")
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, ErrInvalidDateFormat)
	assert.Equal(t, session.StateAwaitingPlantingDate, state(m, 1).State)
	assert.False(t, state(m, 1).HasPlantingDate())

	r, err = m.HandleText(1, " 2025-08-20 ")
	require.NoError(t, err)
	assert.NoError(t, r.Err)
	s := state(m, 1)
	assert.Equal(t, session.StateIdle, s.State)
	assert.Equal(t, civil.Date{Year: 2025, Month: 8, Day: 20}, s.PlantingDate)
	assert.Equal(t, []Change{{Field: "planting_date", Value: "2025-08-20"}}, r.Changes)
}

func TestInvalidDateKeepsPreviousValue(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	_, err := m.HandleCommand(1, "setdate", []string{"2025-08-20"})
	require.NoError(t, err)

	_, _ = m.HandleCommand(1, "setdate", nil)
	r, err := m.HandleText(1, "2025-02-30")
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, ErrInvalidDateFormat)
	assert.Equal(t, civil.Date{Year: 2025, Month: 8, Day: 20}, state(m, 1).PlantingDate)
	assert.Equal(t, session.StateAwaitingPlantingDate, state(m, 1).State)
}

func TestAreaDialog(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want float64
		err  bool
	}{
		{in: "12", want: 12},
		{in: "7,5", want: 7.5},
		{in: "7.25", want: 7.25},
		{in: "10 м²", want: 10},
		{in: "0", err: true},
		{in: "-4", err: true},
		{in: "abc", err: true},
		{in: "NaN", err: true},
		{in: "inf", err: true},
		{in: "1000000", want: dosage.MaxAreaM2},
		{in: "1000000,5", err: true},
		{in: "1e300", err: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			m := newMachine(t, nil)
			_, err := m.HandleCommand(3, "setarea", nil)
			require.NoError(t, err)
			require.Equal(t, session.StateAwaitingArea, state(m, 3).State)

			r, err := m.HandleText(3, tt.in)
			require.NoError(t, err)
			if tt.err {
				assert.ErrorIs(t, r.Err, ErrInvalidArea)
				assert.Equal(t, session.StateAwaitingArea, state(m, 3).State)
				assert.False(t, state(m, 3).HasArea())
				return
			}
			assert.NoError(t, r.Err)
			assert.Equal(t, tt.want, state(m, 3).AreaM2)
			assert.Equal(t, session.StateIdle, state(m, 3).State)
		})
	}
}

func TestTextWhileIdle(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	r, err := m.HandleText(9, "hello")
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, ErrNoPendingDialog)
	assert.True(t, IsUsageError(r.Err))
	assert.NotEmpty(t, r.Choices)
	assert.Equal(t, session.StateIdle, state(m, 9).State)
}

func TestAskSwitchesPendingSlot(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	_, _ = m.HandleCallback(1, "ask_date")
	_, _ = m.HandleCallback(1, "ask_area")
	assert.Equal(t, session.StateAwaitingArea, state(m, 1).State)

	// "2025-08-20" is not an area
	r, _ := m.HandleText(1, "2025-08-20")
	assert.ErrorIs(t, r.Err, ErrInvalidArea)
	assert.False(t, state(m, 1).HasPlantingDate())
}

func TestNavigationKeepsPendingState(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	_, _ = m.HandleCallback(1, "ask_date")
	_, _ = m.HandleCallback(1, "menu")
	_, _ = m.HandleCallback(1, "checklist")
	assert.Equal(t, session.StateAwaitingPlantingDate, state(m, 1).State)
}

func TestResetWipesSession(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	_, _ = m.HandleCommand(1, "setarea", []string{"20"})
	_, _ = m.HandleCallback(1, "ask_date")

	r, err := m.HandleCommand(1, "reset", nil)
	require.NoError(t, err)
	assert.Equal(t, "reset", r.Changes[0].Field)
	s := state(m, 1)
	assert.Equal(t, session.StateIdle, s.State)
	assert.False(t, s.HasArea())

	_, err = m.HandleCallback(1, "reset")
	require.NoError(t, err)
	assert.Equal(t, crop.IrisID, state(m, 1).CropID)
}

func TestPresets(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	_, _ = m.HandleCallback(1, "ask_area")

	r, err := m.HandleCallback(1, "area_preset:20")
	require.NoError(t, err)
	assert.Equal(t, 20.0, state(m, 1).AreaM2)
	assert.Equal(t, session.StateIdle, state(m, 1).State)
	assert.Len(t, r.Changes, 1)

	_, _ = m.HandleCallback(1, "date_preset:week")
	assert.Equal(t, civil.Date{Year: 2026, Month: 4, Day: 8}, state(m, 1).PlantingDate)

	r, _ = m.HandleCallback(1, "area_preset:13")
	assert.Empty(t, r.Changes)
	assert.Equal(t, 20.0, state(m, 1).AreaM2)

	r, _ = m.HandleCallback(1, "soil:sandy_loam")
	assert.Equal(t, "sandy_loam", state(m, 1).Soil)
	assert.Equal(t, []Change{{Field: "soil", Value: "sandy_loam"}}, r.Changes)
}

func TestCalendarRequiresPlantingDate(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	r, err := m.HandleCallback(1, "calendar")
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, calendar.ErrMissingPlantingDate)
	assert.True(t, IsUsageError(r.Err))
	assert.Equal(t, session.StateIdle, state(m, 1).State)
}

func TestCalendarView(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	_, _ = m.HandleCallback(1, "date_preset:today")

	r, err := m.HandleCommand(1, "calendar", []string{"10"})
	require.NoError(t, err)
	assert.NoError(t, r.Err)
	assert.Contains(t, r.Lines, "▪️ Посадка")
	assert.Contains(t, r.Lines, "🌿 01.04.2026 — Посадка корневищ")
	assert.Contains(t, r.Lines, "🥀 06.04.2026 — Мульчирование торфом/перегноем")

	r, err = m.HandleCommand(1, "calendar", []string{"0"})
	require.NoError(t, err)
	// blank, phase header, both planting-day tasks
	assert.Len(t, r.Lines, 4)
}

func TestCalendarHugeWindowKeepsFutureTasks(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	_, _ = m.HandleCallback(1, "date_preset:today")

	wide, err := m.HandleCommand(1, "calendar", []string{"400"})
	require.NoError(t, err)
	huge, err := m.HandleCommand(1, "calendar", []string{"1000000000000000"})
	require.NoError(t, err)

	assert.Contains(t, huge.Lines, "🌿 01.04.2026 — Посадка корневищ")
	assert.Equal(t, wide.Lines, huge.Lines)
	assert.Contains(t, huge.Title, "3660")
}

func TestQuietPeriod(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	_, _ = m.HandleCommand(1, "setdate", []string{"2026-03-20"})
	r, err := m.HandleCallback(1, "calendar")
	require.NoError(t, err)
	assert.NoError(t, r.Err)
	assert.Len(t, r.Lines, 1)
}

func TestDoseView(t *testing.T) {
	t.Parallel()
	tbl, err := crop.NewTable(crop.Definition{
		ID:     "test",
		Tasks:  []crop.TaskTemplate{{Title: "x", Phase: "p"}},
		Stages: []crop.Stage{{Key: "growth", Label: "Growth", Rates: []crop.Rate{{Nutrient: "N", PerM2: 20}}}},
	})
	require.NoError(t, err)
	m := newMachine(t, tbl)

	r, err := m.HandleCommand(1, "dose", []string{"growth"})
	require.NoError(t, err)
	assert.Contains(t, r.Lines, "• N: 20 г")

	_, _ = m.HandleCommand(1, "setarea", []string{"4"})
	r, err = m.HandleCallback(1, "dose:growth")
	require.NoError(t, err)
	assert.Contains(t, r.Lines, "• N: 80 г")

	r, err = m.HandleCallback(1, "dose:bloom")
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, dosage.ErrUnknownStage)
}

func TestIrisDoseOnSandyLoam(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	_, _ = m.HandleCommand(1, "setarea", []string{"2,5"})
	_, _ = m.HandleCallback(1, "soil:sandy_loam")

	r, err := m.HandleCallback(1, "dose:before_flowering")
	require.NoError(t, err)
	assert.Contains(t, r.Lines, "Тип почвы: Супесь")
	assert.Contains(t, r.Lines, "• Коровяк (1:15): 2.5 ведер")
	assert.Contains(t, r.Lines, "• Аммиачная селитра: 75 г")
	assert.Contains(t, r.Lines, "• Калийная соль: 50 г")
}

func TestDoseDefaultAreaIsStated(t *testing.T) {
	t.Parallel()
	tbl := crop.Builtin()
	cal := calendar.New(tbl, time.UTC)
	dose := dosage.New(tbl)
	dose.DefaultArea = 10
	m := New(session.NewMemoryStore(tbl.Default()), tbl, cal, dose, DefaultWindowDays)

	r, err := m.HandleCallback(1, "dose:before_flowering")
	require.NoError(t, err)
	assert.Contains(t, r.Title, "расчет на 10 м²")
	assert.Contains(t, r.Lines, "Площадь не указана — нормы на 10 м².")
	assert.Contains(t, r.Lines, "• Аммиачная селитра: 350 г")
}

func TestLargestAreaGivesPositiveAmounts(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	r, err := m.HandleCommand(1, "setarea", []string{"1e300"})
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, ErrInvalidArea)

	_, _ = m.HandleText(1, "1000000")
	r, err = m.HandleCallback(1, "dose:before_flowering")
	require.NoError(t, err)
	assert.Contains(t, r.Lines, "• Аммиачная селитра: 35000000 г")
	for _, ln := range r.Lines {
		assert.NotContains(t, ln, ": -")
	}
}

func TestUnknownCropPropagates(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	_, _ = m.HandleCommand(1, "setdate", []string{"2026-04-01"})
	_, _ = m.Store().Update(1, func(s *session.Session) error { s.CropID = "tomato"; return nil })

	for _, tok := range []string{"calendar", "season", "checklist", "calculator", "dose:before_flowering"} {
		_, err := m.HandleCallback(1, tok)
		require.Error(t, err, tok)
		assert.True(t, errors.Is(err, crop.ErrUnknownCrop), tok)
		assert.False(t, IsUsageError(err))
	}
}

func TestUnknownCommandAndIntent(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	r, err := m.HandleCommand(1, "frobnicate", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, ErrUnknownCommand)

	r, err = m.HandleCallback(1, "set_date_august")
	require.NoError(t, err)
	assert.NoError(t, r.Err)
	assert.NotEmpty(t, r.Choices)
}

func TestChecklist(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	r, err := m.HandleCommand(1, "checklist", nil)
	require.NoError(t, err)
	require.Len(t, r.Choices, 8)
	assert.Equal(t, Intent{Kind: IntentPhase, Arg: "4"}, r.Choices[4][0].Intent)

	r, err = m.HandleCallback(1, r.Choices[4][0].Intent.Token())
	require.NoError(t, err)
	assert.Equal(t, "✅ Цветение", r.Title)
	assert.Len(t, r.Lines, 2)
}

func TestConcurrentUsers(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	var wg sync.WaitGroup
	for uid := int64(1); uid <= 50; uid++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			_, _ = m.HandleCommand(uid, "setarea", nil)
			_, _ = m.HandleText(uid, "5")
		}(uid)
	}
	wg.Wait()
	for uid := int64(1); uid <= 50; uid++ {
		assert.Equal(t, 5.0, state(m, uid).AreaM2)
	}
}

func TestSetWindowClampsNegative(t *testing.T) {
	t.Parallel()
	m := newMachine(t, nil)
	assert.Equal(t, DefaultWindowDays, m.Window())

	m.SetWindow(0)
	assert.Equal(t, 0, m.Window())
	m.SetWindow(-5)
	assert.Equal(t, 0, m.Window())
	m.SetWindow(14)
	assert.Equal(t, 14, m.Window())
}
