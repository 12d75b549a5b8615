// Package flow decides which screen a session is on.
package flow

import (
	"errors"
	"fmt"
)

// State is the screen a user is currently shown.
type State string

const (
	StateLoading      State = "loading"
	StateAnonymous    State = "anonymous"
	StateNeedsProfile State = "needs_profile"
	StateNeedsSurvey  State = "needs_survey"
	StateCompleted    State = "completed"
)

// Authenticated reports whether the state belongs to a signed-in identity.
func (s State) Authenticated() bool {
	switch s {
	case StateNeedsProfile, StateNeedsSurvey, StateCompleted:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateLoading, StateAnonymous, StateNeedsProfile, StateNeedsSurvey, StateCompleted:
		return true
	default:
		return false
	}
}

// EventKind enumerates the inputs of the machine.
type EventKind string

const (
	// EventSessionRestored fires once the identity provider finished restoring
	// the session. Signed is false when no identity is present.
	EventSessionRestored EventKind = "session_restored"
	EventSignedIn        EventKind = "signed_in"
	EventSignedOut       EventKind = "signed_out"
	EventProfileSaved    EventKind = "profile_saved"
	EventSurveySubmitted EventKind = "survey_submitted"
	EventEditRequested   EventKind = "edit_requested"
	EventStartOver       EventKind = "start_over"
)

// Event is one machine input. Signed and ProfileComplete are only read for
// session_restored and signed_in.
type Event struct {
	Kind            EventKind
	Signed          bool
	ProfileComplete bool
}

// ErrInvalidTransition is returned for an event that the current state does not accept.
var ErrInvalidTransition = errors.New("invalid screen transition")

// Restored builds a session_restored event.
func Restored(signed, profileComplete bool) Event {
	return Event{Kind: EventSessionRestored, Signed: signed, ProfileComplete: profileComplete}
}

// SignedIn builds a signed_in event.
func SignedIn(profileComplete bool) Event {
	return Event{Kind: EventSignedIn, Signed: true, ProfileComplete: profileComplete}
}

// On builds an event that carries no payload.
func On(kind EventKind) Event {
	return Event{Kind: kind}
}

// Transition returns the state reached from current on ev.
func Transition(current State, ev Event) (State, error) {
	switch ev.Kind {
	case EventSignedOut:
		return StateAnonymous, nil

	case EventSessionRestored:
		if current != StateLoading {
			break
		}
		if !ev.Signed {
			return StateAnonymous, nil
		}
		return afterSignIn(ev.ProfileComplete), nil

	case EventSignedIn:
		switch current {
		case StateLoading, StateAnonymous, StateNeedsProfile:
			return afterSignIn(ev.ProfileComplete), nil
		}

	case EventProfileSaved:
		if current == StateNeedsProfile {
			return StateNeedsSurvey, nil
		}

	case EventSurveySubmitted:
		if current == StateNeedsSurvey {
			return StateCompleted, nil
		}

	case EventEditRequested, EventStartOver:
		if current == StateCompleted {
			return StateNeedsSurvey, nil
		}
	}

	return current, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev.Kind, current)
}

func afterSignIn(profileComplete bool) State {
	if profileComplete {
		return StateNeedsSurvey
	}
	return StateNeedsProfile
}
