package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanPerformTable(t *testing.T) {
	client := Actor{ID: 10, Role: RoleClient}
	provider := Actor{ID: 20, Role: RoleProvider}
	otherProvider := Actor{ID: 30, Role: RoleProvider}
	admin := Actor{ID: 1, Role: RoleAdmin}
	system := Actor{Role: RoleSystem}

	assigned := View{ID: 1, Status: StatusAssigned, ClientID: 10, ProviderID: ptr(20)}
	pending := View{ID: 2, Status: StatusPending, ClientID: 10}

	tests := []struct {
		name     string
		actor    Actor
		action   Action
		view     View
		assignee int64
		want     bool
	}{
		{"provider self-assigns", provider, ActionAssign, pending, 0, true},
		{"client cannot self-assign", client, ActionAssign, pending, 0, false},
		{"client accepts an offer", client, ActionAssign, pending, 33, true},
		{"stranger cannot assign a third party", otherProvider, ActionAssign, pending, 33, false},
		{"admin assigns a third party", admin, ActionAssign, pending, 33, true},

		{"assigned provider starts", provider, ActionStart, assigned, 0, true},
		{"other provider cannot start", otherProvider, ActionStart, assigned, 0, false},
		{"client cannot start", client, ActionStart, assigned, 0, false},
		{"admin cannot start", admin, ActionStart, assigned, 0, false},

		{"assigned provider completes", provider, ActionComplete, assigned, 0, true},
		{"admin forces complete", admin, ActionComplete, assigned, 0, true},
		{"client cannot complete", client, ActionComplete, assigned, 0, false},

		{"client cancels own service", client, ActionCancel, assigned, 0, true},
		{"provider cancels own assignment", provider, ActionCancel, assigned, 0, true},
		{"other provider cannot cancel", otherProvider, ActionCancel, assigned, 0, false},
		{"admin cancels", admin, ActionCancel, assigned, 0, true},

		{"assigned provider rejects", provider, ActionReject, assigned, 0, true},
		{"client cannot reject", client, ActionReject, assigned, 0, false},
		{"admin forces reject", admin, ActionReject, assigned, 0, true},

		{"sweeper expires", system, ActionExpire, pending, 0, true},
		{"admin expires", admin, ActionExpire, pending, 0, true},
		{"client cannot expire", client, ActionExpire, pending, 0, false},
		{"provider cannot expire", provider, ActionExpire, pending, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CanPerform(tc.actor, tc.action, tc.view, tc.assignee)
			assert.Equal(t, tc.want, got)
		})
	}
}
