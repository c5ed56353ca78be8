package lifecycle

import "github.com/coder-ph/m-fua-services/internal/apperr"

// Status is the closed set of service request states. pending is the only
// initial state; completed, cancelled, rejected and expired are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRejected   Status = "rejected"
	StatusExpired    Status = "expired"
)

// ParseStatus validates a status string coming off the wire.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted,
		StatusCancelled, StatusRejected, StatusExpired:
		return Status(s), nil
	}
	return "", apperr.Validation("unknown status: " + s)
}

// Terminal reports whether no further transition leaves this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Action identifies a lifecycle transition.
type Action string

const (
	ActionAssign   Action = "assign"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionReject   Action = "reject"
	ActionExpire   Action = "expire"
)

// ActionForStatus maps a requested target status to the transition that
// produces it, so the generic status endpoint re-enters the guard table
// instead of writing arbitrary values.
func ActionForStatus(target Status) (Action, error) {
	switch target {
	case StatusAssigned:
		return ActionAssign, nil
	case StatusInProgress:
		return ActionStart, nil
	case StatusCompleted:
		return ActionComplete, nil
	case StatusCancelled:
		return ActionCancel, nil
	case StatusRejected:
		return ActionReject, nil
	case StatusExpired:
		return ActionExpire, nil
	}
	return "", apperr.Validation("no transition leads to status " + string(target))
}

// Role is the caller's role claim.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
	// RoleSystem is used by the expiry sweeper; it never appears in tokens.
	RoleSystem Role = "system"
)

// Actor is the identity a transition is attempted as.
type Actor struct {
	ID   int64
	Role Role
}
