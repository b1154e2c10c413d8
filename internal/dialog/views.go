package dialog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"cloud.google.com/go/civil"

	"agroguru/internal/calendar"
	"agroguru/internal/dosage"
	"agroguru/internal/session"
)

var kindEmoji = map[string]string{
	"water":     "💧",
	"fertilize": "🌱",
	"pest":      "🐛",
	"disease":   "🦠",
	"cleanup":   "🗑️",
	"soil":      "🌍",
	"prep":      "📋",
	"plant":     "🌿",
	"mulch":     "🥀",
}

func emojiFor(kind string) string {
	if e, ok := kindEmoji[kind]; ok {
		return e
	}
	return "📌"
}

func formatDate(d civil.Date) string { return d.In(time.UTC).Format("02.01.2006") }

func formatArea(a float64) string { return strconv.FormatFloat(a, 'f', -1, 64) }

var backToMenu = row(choice("◀️ Назад", IntentMenu))

func mainMenuChoices() [][]Choice {
	return [][]Choice{
		row(choice("📅 Календарь работ", IntentCalendar)),
		row(choice("🗓 Весь сезон", IntentSeason)),
		row(choice("✅ Чек-листы", IntentChecklist)),
		row(choice("🧮 Калькулятор удобрений", IntentCalculator)),
		row(choice("⚙️ Мои параметры", IntentSettings)),
	}
}

func (m *Machine) menu(userID int64) Reply {
	s := m.store.GetOrCreate(userID)
	name := s.CropID
	if def, err := m.crops.Lookup(s.CropID); err == nil && def.Name != "" {
		name = def.Name
	}
	return Reply{
		Title:   "🌸 AgroGuru — главное меню",
		Lines:   []string{"Культура: " + name, "", "Выбери, что нужно:"},
		Choices: mainMenuChoices(),
	}
}

func missingDate(err error) Reply {
	return Reply{
		Title: "⚠️ Сначала установи дату посадки",
		Lines: []string{"Календарь строится от даты посадки."},
		Err:   err,
		Choices: [][]Choice{
			row(choice("📅 Установить дату посадки", IntentAskDate)),
			backToMenu,
		},
	}
}

func entryLines(groups []calendar.PhaseGroup) []string {
	var out []string
	for _, g := range groups {
		out = append(out, "", "▪️ "+g.Phase)
		for _, e := range g.Entries {
			out = append(out, fmt.Sprintf("%s %s — %s", emojiFor(e.Kind), formatDate(e.Date), e.Title))
		}
	}
	return out
}

func (m *Machine) calendarView(userID int64, days int) (Reply, error) {
	s := m.store.GetOrCreate(userID)
	entries, err := m.cal.Generate(s, days)
	if errors.Is(err, calendar.ErrMissingPlantingDate) {
		return missingDate(err), nil
	}
	if err != nil {
		return Reply{}, err
	}
	r := Reply{
		Title: fmt.Sprintf("📅 Работы на ближайшие %d дн.", days),
		Choices: [][]Choice{
			row(choice("🗓 Весь сезон", IntentSeason), choice("🔄 Обновить", IntentCalendar)),
			backToMenu,
		},
	}
	if len(entries) == 0 {
		r.Lines = []string{"Сейчас работ нет — можно отдыхать 🌤"}
		return r, nil
	}
	r.Lines = entryLines(calendar.Group(entries))
	return r, nil
}

func (m *Machine) seasonView(userID int64) (Reply, error) {
	s := m.store.GetOrCreate(userID)
	entries, err := m.cal.Season(s)
	if errors.Is(err, calendar.ErrMissingPlantingDate) {
		return missingDate(err), nil
	}
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Title:   "🗓 Календарь работ на сезон",
		Lines:   entryLines(calendar.Group(entries)),
		Choices: [][]Choice{row(choice("📅 Ближайшие работы", IntentCalendar)), backToMenu},
	}, nil
}

func (m *Machine) checklistView(userID int64) (Reply, error) {
	s := m.store.GetOrCreate(userID)
	def, err := m.crops.Lookup(s.CropID)
	if err != nil {
		return Reply{}, err
	}
	r := Reply{Title: "✅ Выбери этап:"}
	for i, p := range def.Phases() {
		r.Choices = append(r.Choices, row(choice(p, IntentPhase, strconv.Itoa(i))))
	}
	r.Choices = append(r.Choices, backToMenu)
	return r, nil
}

func (m *Machine) phaseView(userID int64, arg string) (Reply, error) {
	s := m.store.GetOrCreate(userID)
	def, err := m.crops.Lookup(s.CropID)
	if err != nil {
		return Reply{}, err
	}
	phases := def.Phases()
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 || i >= len(phases) {
		return m.checklistView(userID)
	}
	r := Reply{
		Title:   "✅ " + phases[i],
		Choices: [][]Choice{row(choice("◀️ Назад", IntentChecklist))},
	}
	for _, t := range def.TasksInPhase(phases[i]) {
		r.Lines = append(r.Lines, "☐ "+emojiFor(t.Kind)+" "+t.Title)
	}
	return r, nil
}

func (m *Machine) calculatorView(userID int64) (Reply, error) {
	s := m.store.GetOrCreate(userID)
	def, err := m.crops.Lookup(s.CropID)
	if err != nil {
		return Reply{}, err
	}
	r := Reply{Title: "🧮 Калькулятор удобрений", Lines: []string{"Выбери период подкормки:"}}
	for _, st := range def.Stages {
		label := st.Label
		if label == "" {
			label = st.Key
		}
		r.Choices = append(r.Choices, row(choice(label, IntentDose, st.Key)))
	}
	r.Choices = append(r.Choices, backToMenu)
	return r, nil
}

func (m *Machine) doseView(userID int64, stage string) (Reply, error) {
	s := m.store.GetOrCreate(userID)
	res, err := m.dose.ComputeSoil(s.CropID, stage, s.AreaM2, s.Soil)
	if errors.Is(err, dosage.ErrUnknownStage) {
		r, cerr := m.calculatorView(userID)
		if cerr != nil {
			return Reply{}, cerr
		}
		r.Err = err
		r.Lines = []string{"⚠️ Неизвестный период подкормки: " + stage, "Выбери период:"}
		return r, nil
	}
	if err != nil {
		return Reply{}, err
	}

	label := res.Stage.Label
	if label == "" {
		label = res.Stage.Key
	}
	r := Reply{
		Title: fmt.Sprintf("🧮 %s: расчет на %s м²", label, formatArea(res.AreaM2)),
		Choices: [][]Choice{
			row(choice("📏 Указать площадь", IntentAskArea)),
			row(choice("◀️ Назад", IntentCalculator)),
		},
	}
	if res.Defaulted {
		r.Lines = append(r.Lines, fmt.Sprintf("Площадь не указана — нормы на %s м².", formatArea(res.AreaM2)))
	}
	if res.Soil.Key != "" {
		r.Lines = append(r.Lines, "Тип почвы: "+res.Soil.Label)
	}
	r.Lines = append(r.Lines, "")
	for _, l := range res.Lines {
		r.Lines = append(r.Lines, doseLine(l))
	}
	r.Lines = append(r.Lines, "", "⚠️ Перед подкормкой обильно полить!")
	return r, nil
}

// doseLine shows grams as whole numbers and other units with one decimal.
func doseLine(l dosage.Line) string {
	if l.Unit == "" {
		return fmt.Sprintf("• %s: %d г", l.Nutrient, l.Rounded())
	}
	amount := strconv.FormatFloat(math.Round(l.Amount*10)/10, 'f', -1, 64)
	return fmt.Sprintf("• %s: %s %s", l.Nutrient, amount, l.Unit)
}

func (m *Machine) settingsView(userID int64) Reply {
	s := m.store.GetOrCreate(userID)
	date, area, soil := "не установлена", "не установлена", "не установлен"
	if s.HasPlantingDate() {
		date = formatDate(s.PlantingDate)
	}
	if s.HasArea() {
		area = formatArea(s.AreaM2) + " м²"
	}
	r := Reply{Title: "⚙️ Твои параметры"}
	if def, err := m.crops.Lookup(s.CropID); err == nil {
		if sl, ok := def.Soil(s.Soil); ok {
			soil = sl.Label
		}
		var soils []Choice
		for _, sl := range def.Soils {
			soils = append(soils, choice(sl.Label, IntentSoil, sl.Key))
		}
		if len(soils) > 0 {
			r.Choices = append(r.Choices, soils)
		}
	}
	r.Lines = []string{
		"📅 Дата посадки: " + date,
		"🌍 Тип почвы: " + soil,
		"📏 Площадь: " + area,
	}

	areas := make([]Choice, 0, len(AreaPresets))
	for _, a := range AreaPresets {
		areas = append(areas, choice(strconv.Itoa(a)+" м²", IntentAreaPreset, strconv.Itoa(a)))
	}
	r.Choices = append([][]Choice{
		row(choice("📅 Сегодня", IntentDatePreset, DatePresetToday), choice("📅 Через 7 дней", IntentDatePreset, DatePresetWeek)),
		row(choice("✏️ Ввести дату", IntentAskDate)),
		areas,
		row(choice("✏️ Ввести площадь", IntentAskArea)),
	}, r.Choices...)
	r.Choices = append(r.Choices,
		row(choice("🔄 Сбросить", IntentReset)),
		backToMenu,
	)
	return r
}

func askView(state session.DialogState) Reply {
	switch state {
	case session.StateAwaitingPlantingDate:
		return Reply{
			Title:   "📅 Введи дату посадки",
			Lines:   []string{"Формат: ГГГГ-ММ-ДД, например 2025-08-20."},
			Choices: [][]Choice{row(choice("📅 Сегодня", IntentDatePreset, DatePresetToday)), backToMenu},
		}
	case session.StateAwaitingArea:
		return Reply{
			Title:   "📏 Введи площадь участка в м²",
			Lines:   []string{"Например: 12 или 7,5"},
			Choices: [][]Choice{backToMenu},
		}
	default:
		return Reply{Title: "Воспользуйся меню", Choices: mainMenuChoices()}
	}
}

func usageHint(err error) string {
	switch {
	case errors.Is(err, ErrInvalidDateFormat):
		return "Не получилось разобрать дату."
	case errors.Is(err, ErrInvalidArea):
		return "Площадь должна быть положительным числом."
	default:
		return err.Error()
	}
}

func helpView() Reply {
	return Reply{
		Title: "ℹ️ Команды",
		Lines: []string{
			"/start — главное меню",
			"/calendar [дней] — ближайшие работы",
			"/season — все работы сезона",
			"/checklist — чек-листы по этапам",
			"/dose [период] — расчет удобрений",
			"/settings — мои параметры",
			"/setdate [ГГГГ-ММ-ДД] — дата посадки",
			"/setarea [м²] — площадь участка",
			"/reset — сбросить параметры",
		},
		Choices: mainMenuChoices(),
	}
}
