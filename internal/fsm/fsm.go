// Package fsm holds the interview session state table.
package fsm

import "fmt"

type State string

type Event string

const (
	StateLoading    State = "loading"
	StatePreparing  State = "preparing"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateFinished   State = "finished"
	StateError      State = "error"
)

const (
	EventAcquired    Event = "acquired"
	EventPrepElapsed Event = "prep_elapsed"
	EventStart       Event = "start"
	EventStop        Event = "stop"
	EventSkip        Event = "skip"
	EventAdvance     Event = "advance"
	EventEmpty       Event = "empty"
	EventComplete    Event = "complete"
	EventFinish      Event = "finish"
	EventFail        Event = "fail"
)

// IsTerminal reports whether no further events are accepted from state.
func IsTerminal(state State) bool {
	return state == StateFinished || state == StateError
}

func Transition(current State, event Event) (State, error) {
	switch event {
	case EventFail:
		if current == StateFinished {
			return current, invalidTransition(current, event)
		}
		if !known(current) {
			return current, fmt.Errorf("unknown state %q", current)
		}
		return StateError, nil
	case EventFinish:
		if !known(current) {
			return current, fmt.Errorf("unknown state %q", current)
		}
		if IsTerminal(current) {
			return current, invalidTransition(current, event)
		}
		return StateFinished, nil
	}

	switch current {
	case StateLoading:
		switch event {
		case EventAcquired:
			return StatePreparing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePreparing:
		switch event {
		case EventPrepElapsed:
			return StateRecording, nil
		case EventSkip:
			return StateProcessing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop, EventSkip:
			return StateProcessing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateReady:
		switch event {
		case EventStart:
			return StateRecording, nil
		case EventSkip:
			return StateProcessing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateProcessing:
		switch event {
		case EventAdvance:
			return StatePreparing, nil
		case EventEmpty:
			return StateReady, nil
		case EventComplete:
			return StateFinished, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateFinished, StateError:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func known(state State) bool {
	switch state {
	case StateLoading, StatePreparing, StateRecording, StateProcessing, StateReady, StateFinished, StateError:
		return true
	default:
		return false
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
