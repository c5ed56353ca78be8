package lifecycle

import (
	"fmt"
	"time"

	"github.com/coder-ph/m-fua-services/internal/apperr"
)

// View is the snapshot of a service the guard table reads. It is loaded
// inside the same transaction that applies the effects, so the status
// re-check on write acts as a compare-and-swap against concurrent attempts.
type View struct {
	ID         int64
	Status     Status
	ClientID   int64
	ProviderID *int64
}

// Request describes an attempted transition.
type Request struct {
	Action Action
	Actor  Actor
	// Provider is the provider being assigned. Zero means the actor assigns
	// themselves; the offer-accept path sets it to the offer's provider.
	Provider int64
}

// Effects is everything a successful transition writes, plus who must be
// notified. No other component may set status, provider_id or the lifecycle
// timestamps.
type Effects struct {
	From Status
	To   Status

	SetProvider   *int64
	ClearProvider bool
	// PrevProvider is the provider before the transition, kept so reject can
	// still address its notification after provider_id is cleared.
	PrevProvider *int64

	SetAssignedAt  bool
	SetStartedAt   bool
	SetCompletedAt bool
	Now            time.Time

	SystemMessage string

	// Event is the notification type enqueued for each recipient.
	Event      string
	Recipients []int64
}

// Transition runs the guard table for one attempted action. Authorization is
// checked before state shape, so an unrelated caller gets a 403 rather than
// learning about the entity's state. On any failure the view is untouched
// and no effects are produced.
func Transition(v View, req Request, now time.Time) (Effects, error) {
	if !CanPerform(req.Actor, req.Action, v, req.Provider) {
		return Effects{}, apperr.Authorization(
			fmt.Sprintf("not allowed to %s this service", req.Action))
	}

	eff := Effects{From: v.Status, Now: now, PrevProvider: v.ProviderID}

	switch req.Action {
	case ActionAssign:
		if v.Status != StatusPending {
			return Effects{}, apperr.InvalidTransition(string(v.Status), string(req.Action))
		}
		provider := req.Provider
		if provider == 0 {
			provider = req.Actor.ID
		}
		eff.To = StatusAssigned
		eff.SetProvider = &provider
		eff.SetAssignedAt = true
		eff.SystemMessage = "assigned"
		eff.Event = EventServiceAccepted

	case ActionStart:
		if v.Status != StatusAssigned {
			return Effects{}, apperr.InvalidTransition(string(v.Status), string(req.Action))
		}
		eff.To = StatusInProgress
		eff.SetStartedAt = true
		eff.SystemMessage = "status updated to in_progress"
		eff.Event = EventServiceUpdated

	case ActionComplete:
		if v.Status != StatusInProgress {
			return Effects{}, apperr.InvalidTransition(string(v.Status), string(req.Action))
		}
		eff.To = StatusCompleted
		eff.SetCompletedAt = true
		eff.SystemMessage = "status updated to completed"
		eff.Event = EventServiceCompleted

	case ActionCancel:
		if v.Status.Terminal() {
			return Effects{}, apperr.InvalidTransition(string(v.Status), string(req.Action))
		}
		eff.To = StatusCancelled
		eff.SystemMessage = "status updated to cancelled"
		eff.Event = EventServiceCancelled

	case ActionReject:
		if v.Status != StatusAssigned {
			return Effects{}, apperr.InvalidTransition(string(v.Status), string(req.Action))
		}
		eff.To = StatusRejected
		eff.ClearProvider = true
		eff.SystemMessage = "status updated to rejected"
		eff.Event = EventServiceRejected

	case ActionExpire:
		if v.Status != StatusPending {
			return Effects{}, apperr.InvalidTransition(string(v.Status), string(req.Action))
		}
		eff.To = StatusExpired
		eff.SystemMessage = "status updated to expired"
		eff.Event = EventServiceExpired

	default:
		return Effects{}, apperr.Validation("unknown action: " + string(req.Action))
	}

	eff.Recipients = recipients(v, req.Actor)
	return eff, nil
}

// Notification event types, mirrored in the notifications table.
const (
	EventServiceAccepted  = "service_accepted"
	EventServiceUpdated   = "service_updated"
	EventServiceCompleted = "service_completed"
	EventServiceCancelled = "service_cancelled"
	EventServiceRejected  = "service_rejected"
	EventServiceExpired   = "service_expired"
)

// recipients is every party to the service except the actor.
func recipients(v View, actor Actor) []int64 {
	var out []int64
	if v.ClientID != 0 && v.ClientID != actor.ID {
		out = append(out, v.ClientID)
	}
	if v.ProviderID != nil && *v.ProviderID != actor.ID && *v.ProviderID != v.ClientID {
		out = append(out, *v.ProviderID)
	}
	return out
}
