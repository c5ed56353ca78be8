package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coder-ph/m-fua-services/internal/lifecycle"
)

func ptr(v int64) *int64 { return &v }

func TestCanView(t *testing.T) {
	pending := &Service{ID: 1, Status: lifecycle.StatusPending, ClientID: 10}
	assigned := &Service{ID: 2, Status: lifecycle.StatusAssigned, ClientID: 10, ProviderID: ptr(20)}

	assert.True(t, canView(pending, 10, "client"))
	assert.False(t, canView(pending, 11, "client"))

	// Any provider can discover pending work.
	assert.True(t, canView(pending, 99, "provider"))
	// But only the assignee sees it afterwards.
	assert.True(t, canView(assigned, 20, "provider"))
	assert.False(t, canView(assigned, 99, "provider"))

	assert.True(t, canView(assigned, 1, "admin"))
	assert.False(t, canView(assigned, 10, ""))
}

func TestIsParticipant(t *testing.T) {
	svc := &Service{ID: 1, Status: lifecycle.StatusAssigned, ClientID: 10, ProviderID: ptr(20)}

	assert.True(t, isParticipant(svc, 10, "client"))
	assert.True(t, isParticipant(svc, 20, "provider"))
	assert.True(t, isParticipant(svc, 1, "admin"))
	assert.False(t, isParticipant(svc, 30, "provider"))

	unassigned := &Service{ID: 2, Status: lifecycle.StatusPending, ClientID: 10}
	assert.False(t, isParticipant(unassigned, 20, "provider"))
}
