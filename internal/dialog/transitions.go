package dialog

import "agroguru/internal/session"

// input is what the state machine reacts to.
type input uint8

const (
	inAskDate input = iota
	inAskArea
	inTextAccepted
	inTextRejected
	inValueSet // a preset or an inline argument set a field directly
	inReset
	inputCount
)

const stateCount = int(session.StateAwaitingArea) + 1

// keep marks "no transition": the current state is preserved.
const keep = session.DialogState(0xff)

// transitions[state][input] is the next state.
var transitions = [stateCount][inputCount]session.DialogState{
	session.StateIdle: {
		inAskDate:      session.StateAwaitingPlantingDate,
		inAskArea:      session.StateAwaitingArea,
		inTextAccepted: keep,
		inTextRejected: keep,
		inValueSet:     session.StateIdle,
		inReset:        session.StateIdle,
	},
	session.StateAwaitingPlantingDate: {
		inAskDate:      session.StateAwaitingPlantingDate,
		inAskArea:      session.StateAwaitingArea,
		inTextAccepted: session.StateIdle,
		inTextRejected: session.StateAwaitingPlantingDate,
		inValueSet:     session.StateIdle,
		inReset:        session.StateIdle,
	},
	session.StateAwaitingArea: {
		inAskDate:      session.StateAwaitingPlantingDate,
		inAskArea:      session.StateAwaitingArea,
		inTextAccepted: session.StateIdle,
		inTextRejected: session.StateAwaitingArea,
		inValueSet:     session.StateIdle,
		inReset:        session.StateIdle,
	},
}

// next returns the state after in. Unknown states fall back to Idle.
func next(from session.DialogState, in input) session.DialogState {
	if !from.Valid() {
		from = session.StateIdle
	}
	to := transitions[from][in]
	if to == keep {
		return from
	}
	return to
}
