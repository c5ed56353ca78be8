package notify

// Preferences mirrors a user's notification_preferences row.
type Preferences struct {
	ID             int64  `json:"id,omitempty"`
	UserID         int64  `json:"user_id,omitempty"`
	EmailEnabled   bool   `json:"email_enabled"`
	EmailFrequency string `json:"email_frequency"`
	PushEnabled    bool   `json:"push_enabled"`
	ServiceUpdates bool   `json:"service_updates"`
	NewMessages    bool   `json:"new_messages"`
	RatingUpdates  bool   `json:"rating_updates"`
	Promotions     bool   `json:"promotions"`
}

// categoryOf buckets a notification type into the preference toggle that
// governs it. Lifecycle events and offer traffic are service updates.
func categoryOf(notifType string) string {
	switch notifType {
	case TypeNewMessage:
		return "messages"
	case TypeNewRating:
		return "ratings"
	default:
		return "services"
	}
}

func (p Preferences) allowsCategory(notifType string) bool {
	switch categoryOf(notifType) {
	case "messages":
		return p.NewMessages
	case "ratings":
		return p.RatingUpdates
	default:
		return p.ServiceUpdates
	}
}

// AllowsEmail reports whether the recipient wants immediate email for this
// notification type. Digest frequencies suppress per-event sends.
func (p Preferences) AllowsEmail(notifType string) bool {
	if !p.EmailEnabled || p.EmailFrequency != "immediate" {
		return false
	}
	return p.allowsCategory(notifType)
}

// AllowsPush reports whether the recipient wants a push for this type.
func (p Preferences) AllowsPush(notifType string) bool {
	return p.PushEnabled && p.allowsCategory(notifType)
}
