package lifecycle

// CanPerform is the single authorization rule table for lifecycle actions.
// Route guards only establish identity; every capability decision for a
// transition goes through here.
//
// Admin may force any terminal transition for moderation, bypassing
// ownership but never the state-shape guards in Transition.
func CanPerform(actor Actor, action Action, v View, assignee int64) bool {
	isProviderOwner := v.ProviderID != nil && *v.ProviderID == actor.ID
	isClientOwner := v.ClientID == actor.ID

	switch action {
	case ActionAssign:
		if assignee != 0 && assignee != actor.ID {
			// Assigning someone else happens when the client accepts that
			// provider's offer, or under admin moderation.
			return (isClientOwner && actor.Role == RoleClient) || actor.Role == RoleAdmin
		}
		return actor.Role == RoleProvider

	case ActionStart:
		return isProviderOwner && actor.Role == RoleProvider

	case ActionComplete:
		return (isProviderOwner && actor.Role == RoleProvider) || actor.Role == RoleAdmin

	case ActionCancel:
		return isClientOwner || isProviderOwner || actor.Role == RoleAdmin

	case ActionReject:
		return (isProviderOwner && actor.Role == RoleProvider) || actor.Role == RoleAdmin

	case ActionExpire:
		return actor.Role == RoleSystem || actor.Role == RoleAdmin
	}
	return false
}
