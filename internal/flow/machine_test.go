package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		name string
		from State
		ev   Event
		to   State
	}{
		{"restore without identity", StateLoading, Restored(false, false), StateAnonymous},
		{"restore with incomplete profile", StateLoading, Restored(true, false), StateNeedsProfile},
		{"restore with complete profile", StateLoading, Restored(true, true), StateNeedsSurvey},
		{"sign in needs profile", StateAnonymous, SignedIn(false), StateNeedsProfile},
		{"sign in with profile", StateAnonymous, SignedIn(true), StateNeedsSurvey},
		{"re-sign in from profile screen", StateNeedsProfile, SignedIn(true), StateNeedsSurvey},
		{"profile saved", StateNeedsProfile, On(EventProfileSaved), StateNeedsSurvey},
		{"survey submitted", StateNeedsSurvey, On(EventSurveySubmitted), StateCompleted},
		{"edit", StateCompleted, On(EventEditRequested), StateNeedsSurvey},
		{"start over", StateCompleted, On(EventStartOver), StateNeedsSurvey},
		{"sign out from survey", StateNeedsSurvey, On(EventSignedOut), StateAnonymous},
		{"sign out from completed", StateCompleted, On(EventSignedOut), StateAnonymous},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.from, tc.ev)
			require.NoError(t, err)
			require.Equal(t, tc.to, next)
		})
	}
}

func TestTransitionRejectsIllegalPairs(t *testing.T) {
	cases := []struct {
		from State
		ev   Event
	}{
		{StateAnonymous, On(EventProfileSaved)},
		{StateAnonymous, On(EventSurveySubmitted)},
		{StateNeedsProfile, On(EventSurveySubmitted)},
		{StateNeedsSurvey, On(EventProfileSaved)},
		{StateNeedsSurvey, On(EventEditRequested)},
		{StateCompleted, On(EventSurveySubmitted)},
		{StateCompleted, SignedIn(true)},
		{StateNeedsSurvey, Restored(true, true)},
		{StateLoading, On(EventStartOver)},
	}

	for _, tc := range cases {
		next, err := Transition(tc.from, tc.ev)
		require.ErrorIs(t, err, ErrInvalidTransition, "%s on %s", tc.ev.Kind, tc.from)
		require.Equal(t, tc.from, next)
	}
}

func TestProfileGateRequiresCompleteProfile(t *testing.T) {
	for _, from := range []State{StateLoading, StateAnonymous} {
		next, err := Transition(from, SignedIn(false))
		require.NoError(t, err)
		require.Equal(t, StateNeedsProfile, next)
		require.NotEqual(t, StateNeedsSurvey, next)
	}
}

func TestStateHelpers(t *testing.T) {
	require.False(t, StateLoading.Authenticated())
	require.False(t, StateAnonymous.Authenticated())
	require.True(t, StateNeedsProfile.Authenticated())
	require.True(t, StateCompleted.Authenticated())
	require.True(t, StateCompleted.Valid())
	require.False(t, State("done").Valid())
}
