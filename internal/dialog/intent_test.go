package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"agroguru/internal/session"
)

func TestParseIntent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		token string
		want  Intent
	}{
		{"menu", Intent{Kind: IntentMenu}},
		{" calendar ", Intent{Kind: IntentCalendar}},
		{"dose:after_flowering", Intent{Kind: IntentDose, Arg: "after_flowering"}},
		{"phase:3", Intent{Kind: IntentPhase, Arg: "3"}},
		{"area_preset:10", Intent{Kind: IntentAreaPreset, Arg: "10"}},
		{"dose", Intent{Kind: IntentUnknown}},
		{"dose:", Intent{Kind: IntentUnknown}},
		{"menu:extra", Intent{Kind: IntentUnknown}},
		{"calendarx", Intent{Kind: IntentUnknown}},
		{"", Intent{Kind: IntentUnknown}},
		{"set_date_today", Intent{Kind: IntentUnknown}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseIntent(tt.token), "token %q", tt.token)
	}
}

func TestIntentTokenRoundTrip(t *testing.T) {
	t.Parallel()
	for k := IntentMenu; int(k) < len(intentNames); k++ {
		in := Intent{Kind: k}
		if takesArg[k] {
			in.Arg = "x"
		}
		assert.Equal(t, in, ParseIntent(in.Token()), k.String())
	}
}

func TestTransitionTable(t *testing.T) {
	t.Parallel()
	idle, date, area := session.StateIdle, session.StateAwaitingPlantingDate, session.StateAwaitingArea
	for _, from := range []session.DialogState{idle, date, area} {
		assert.Equal(t, date, next(from, inAskDate))
		assert.Equal(t, area, next(from, inAskArea))
		assert.Equal(t, idle, next(from, inReset))
		assert.Equal(t, idle, next(from, inValueSet))
	}
	assert.Equal(t, idle, next(date, inTextAccepted))
	assert.Equal(t, date, next(date, inTextRejected))
	assert.Equal(t, area, next(area, inTextRejected))
	assert.Equal(t, idle, next(idle, inTextRejected))
	assert.Equal(t, idle, next(session.DialogState(42), inTextAccepted))
}
