package dialog

import (
	"strconv"
	"strings"
)

// IntentKind is the closed set of button actions.
type IntentKind uint8

const (
	IntentUnknown IntentKind = iota
	IntentMenu
	IntentCalendar
	IntentSeason
	IntentChecklist
	IntentPhase
	IntentCalculator
	IntentDose
	IntentSettings
	IntentAskDate
	IntentAskArea
	IntentSoil
	IntentDatePreset
	IntentAreaPreset
	IntentReset
	IntentHelp
)

var intentNames = [...]string{
	IntentUnknown:    "",
	IntentMenu:       "menu",
	IntentCalendar:   "calendar",
	IntentSeason:     "season",
	IntentChecklist:  "checklist",
	IntentPhase:      "phase",
	IntentCalculator: "calculator",
	IntentDose:       "dose",
	IntentSettings:   "settings",
	IntentAskDate:    "ask_date",
	IntentAskArea:    "ask_area",
	IntentSoil:       "soil",
	IntentDatePreset: "date_preset",
	IntentAreaPreset: "area_preset",
	IntentReset:      "reset",
	IntentHelp:       "help",
}

// takesArg lists intents whose token carries a ":<arg>" suffix.
var takesArg = map[IntentKind]bool{
	IntentPhase:      true,
	IntentDose:       true,
	IntentSoil:       true,
	IntentDatePreset: true,
	IntentAreaPreset: true,
}

func (k IntentKind) String() string {
	if int(k) < len(intentNames) {
		return intentNames[k]
	}
	return "intent(" + strconv.Itoa(int(k)) + ")"
}

// Intent is a resolved button action.
type Intent struct {
	Kind IntentKind
	Arg  string
}

// Token encodes the intent as "<name>" or "<name>:<arg>".
func (i Intent) Token() string {
	name := i.Kind.String()
	if takesArg[i.Kind] {
		return name + ":" + i.Arg
	}
	return name
}

// ParseIntent resolves a callback token once at the boundary. Anything that
// does not match a known intent exactly yields IntentUnknown.
func ParseIntent(token string) Intent {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(token), ":")
	for k := IntentMenu; int(k) < len(intentNames); k++ {
		if intentNames[k] != name {
			continue
		}
		if takesArg[k] != hasArg || (hasArg && arg == "") {
			return Intent{Kind: IntentUnknown}
		}
		return Intent{Kind: k, Arg: arg}
	}
	return Intent{Kind: IntentUnknown}
}

// Date presets offered on the settings screen.
const (
	DatePresetToday = "today"
	DatePresetWeek  = "week"
)

// AreaPresets are the quick-pick plot sizes in m².
var AreaPresets = []int{5, 10, 20, 50}
