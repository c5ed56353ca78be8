package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coder-ph/m-fua-services/internal/apperr"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func ptr(v int64) *int64 { return &v }

func kindOf(t *testing.T, err error) apperr.Kind {
	t.Helper()
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %v", err)
	return appErr.Kind
}

func TestAssignPendingService(t *testing.T) {
	v := View{ID: 1, Status: StatusPending, ClientID: 10}
	eff, err := Transition(v, Request{Action: ActionAssign, Actor: Actor{ID: 20, Role: RoleProvider}}, now)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, eff.From)
	assert.Equal(t, StatusAssigned, eff.To)
	require.NotNil(t, eff.SetProvider)
	assert.Equal(t, int64(20), *eff.SetProvider)
	assert.True(t, eff.SetAssignedAt)
	assert.Equal(t, "assigned", eff.SystemMessage)
	assert.Equal(t, []int64{10}, eff.Recipients)
}

func TestAssignNonPendingFails(t *testing.T) {
	for _, status := range []Status{StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled, StatusRejected, StatusExpired} {
		v := View{ID: 1, Status: status, ClientID: 10, ProviderID: ptr(20)}
		_, err := Transition(v, Request{Action: ActionAssign, Actor: Actor{ID: 30, Role: RoleProvider}}, now)
		require.Error(t, err, "status %s", status)
		assert.Equal(t, apperr.KindInvalidTransition, kindOf(t, err), "status %s", status)
	}
}

func TestStartRequiresAssignedProvider(t *testing.T) {
	v := View{ID: 1, Status: StatusAssigned, ClientID: 10, ProviderID: ptr(20)}

	eff, err := Transition(v, Request{Action: ActionStart, Actor: Actor{ID: 20, Role: RoleProvider}}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, eff.To)
	assert.True(t, eff.SetStartedAt)

	// Another provider gets an authorization failure, not a state error.
	_, err = Transition(v, Request{Action: ActionStart, Actor: Actor{ID: 99, Role: RoleProvider}}, now)
	assert.Equal(t, apperr.KindAuthorization, kindOf(t, err))
}

func TestCompleteFromInProgress(t *testing.T) {
	v := View{ID: 1, Status: StatusInProgress, ClientID: 10, ProviderID: ptr(20)}
	eff, err := Transition(v, Request{Action: ActionComplete, Actor: Actor{ID: 20, Role: RoleProvider}}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, eff.To)
	assert.True(t, eff.SetCompletedAt)
	assert.Equal(t, []int64{10}, eff.Recipients)
}

func TestRejectClearsProviderAndKeepsPrevious(t *testing.T) {
	v := View{ID: 1, Status: StatusAssigned, ClientID: 10, ProviderID: ptr(20)}
	eff, err := Transition(v, Request{Action: ActionReject, Actor: Actor{ID: 20, Role: RoleProvider}}, now)
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, eff.To)
	assert.True(t, eff.ClearProvider)
	require.NotNil(t, eff.PrevProvider)
	assert.Equal(t, int64(20), *eff.PrevProvider)
	assert.Equal(t, []int64{10}, eff.Recipients)
}

func TestCancelAllowedFromAnyNonTerminalState(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusAssigned, StatusInProgress} {
		v := View{ID: 1, Status: status, ClientID: 10, ProviderID: ptr(20)}
		eff, err := Transition(v, Request{Action: ActionCancel, Actor: Actor{ID: 10, Role: RoleClient}}, now)
		require.NoError(t, err, "status %s", status)
		assert.Equal(t, StatusCancelled, eff.To)
		assert.Equal(t, []int64{20}, eff.Recipients, "counterpart of the client is the provider")
	}
}

func TestExpireOnlyFromPending(t *testing.T) {
	v := View{ID: 1, Status: StatusPending, ClientID: 10}
	eff, err := Transition(v, Request{Action: ActionExpire, Actor: Actor{Role: RoleSystem}}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, eff.To)
	assert.Equal(t, []int64{10}, eff.Recipients)

	v.Status = StatusAssigned
	v.ProviderID = ptr(20)
	_, err = Transition(v, Request{Action: ActionExpire, Actor: Actor{Role: RoleSystem}}, now)
	assert.Equal(t, apperr.KindInvalidTransition, kindOf(t, err))
}

func TestTerminalStatesRefuseEveryAction(t *testing.T) {
	// Actors chosen so that authorization passes and only the state-shape
	// guard can refuse.
	cases := []struct {
		action Action
		actor  Actor
	}{
		{ActionStart, Actor{ID: 20, Role: RoleProvider}},
		{ActionComplete, Actor{ID: 1, Role: RoleAdmin}},
		{ActionCancel, Actor{ID: 1, Role: RoleAdmin}},
		{ActionReject, Actor{ID: 1, Role: RoleAdmin}},
		{ActionExpire, Actor{ID: 1, Role: RoleAdmin}},
	}

	for _, terminal := range []Status{StatusCompleted, StatusCancelled, StatusRejected, StatusExpired} {
		v := View{ID: 1, Status: terminal, ClientID: 10, ProviderID: ptr(20)}
		for _, tc := range cases {
			_, err := Transition(v, Request{Action: tc.action, Actor: tc.actor}, now)
			require.Error(t, err, "%s on %s", tc.action, terminal)
			assert.Equal(t, apperr.KindInvalidTransition, kindOf(t, err), "%s on %s", tc.action, terminal)
		}
	}
}

func TestAdminForcesTerminalButNotShape(t *testing.T) {
	admin := Actor{ID: 1, Role: RoleAdmin}

	// Admin may cancel someone else's in-progress service.
	v := View{ID: 1, Status: StatusInProgress, ClientID: 10, ProviderID: ptr(20)}
	eff, err := Transition(v, Request{Action: ActionCancel, Actor: admin}, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{10, 20}, eff.Recipients)

	// But cannot complete a pending service.
	v = View{ID: 2, Status: StatusPending, ClientID: 10}
	_, err = Transition(v, Request{Action: ActionComplete, Actor: admin}, now)
	assert.Equal(t, apperr.KindInvalidTransition, kindOf(t, err))
}

func TestOfferAcceptAssignsOfferProvider(t *testing.T) {
	v := View{ID: 1, Status: StatusPending, ClientID: 10}
	eff, err := Transition(v, Request{
		Action:   ActionAssign,
		Actor:    Actor{ID: 10, Role: RoleClient},
		Provider: 33,
	}, now)
	require.NoError(t, err)

	require.NotNil(t, eff.SetProvider)
	assert.Equal(t, int64(33), *eff.SetProvider)
	// The client is the actor, so nobody but the provider needs telling; the
	// handler addresses the accepted offer's provider separately.
	assert.Empty(t, eff.Recipients)
}

func TestFullLifecycleScenario(t *testing.T) {
	client := Actor{ID: 10, Role: RoleClient}
	provider := Actor{ID: 20, Role: RoleProvider}

	v := View{ID: 1, Status: StatusPending, ClientID: client.ID}

	eff, err := Transition(v, Request{Action: ActionAssign, Actor: provider}, now)
	require.NoError(t, err)
	v.Status = eff.To
	v.ProviderID = eff.SetProvider

	eff, err = Transition(v, Request{Action: ActionStart, Actor: provider}, now)
	require.NoError(t, err)
	assert.True(t, eff.SetStartedAt)
	v.Status = eff.To

	eff, err = Transition(v, Request{Action: ActionComplete, Actor: provider}, now)
	require.NoError(t, err)
	assert.True(t, eff.SetCompletedAt)
	v.Status = eff.To

	assert.True(t, v.Status.Terminal())
	_, err = Transition(v, Request{Action: ActionCancel, Actor: client}, now)
	assert.Equal(t, apperr.KindInvalidTransition, kindOf(t, err))
}

func TestActionForStatus(t *testing.T) {
	act, err := ActionForStatus(StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, ActionStart, act)

	_, err = ActionForStatus(StatusPending)
	assert.Equal(t, apperr.KindValidation, kindOf(t, err))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("archived")
	assert.Equal(t, apperr.KindValidation, kindOf(t, err))
}
