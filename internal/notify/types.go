package notify

// Task type constants.
const (
	TaskWelcomeEmail  = "email:welcome"
	TaskPasswordReset = "email:password_reset"
	TaskServiceEvent  = "notify:service_event"
	TaskOfferReceived = "notify:offer_received"
	TaskOfferAccepted = "notify:offer_accepted"
	TaskNewMessage    = "notify:new_message"
	TaskNewRating     = "notify:new_rating"
)

// Notification event types, stored in the notifications.type column.
const (
	TypeOfferReceived = "offer_received"
	TypeOfferAccepted = "offer_accepted"
	TypeNewMessage    = "new_message"
	TypeNewRating     = "new_rating"
)

type WelcomeEmailPayload struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type PasswordResetPayload struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
	Name   string `json:"name"`
}

// ServiceEventPayload covers every lifecycle transition. Event is one of the
// lifecycle event constants and doubles as the notification type.
type ServiceEventPayload struct {
	Recipient int64  `json:"recipient"`
	Event     string `json:"event"`
	ServiceID int64  `json:"service_id"`
	Notes     string `json:"notes,omitempty"`
}

type OfferReceivedPayload struct {
	ClientID  int64   `json:"client_id"`
	ServiceID int64   `json:"service_id"`
	OfferID   int64   `json:"offer_id"`
	Amount    float64 `json:"amount"`
}

type OfferAcceptedPayload struct {
	ProviderID int64 `json:"provider_id"`
	ServiceID  int64 `json:"service_id"`
	OfferID    int64 `json:"offer_id"`
}

type NewMessagePayload struct {
	Recipient int64 `json:"recipient"`
	ServiceID int64 `json:"service_id"`
	MessageID int64 `json:"message_id"`
}

type NewRatingPayload struct {
	ProviderID int64 `json:"provider_id"`
	ServiceID  int64 `json:"service_id"`
	RatingID   int64 `json:"rating_id"`
	Rating     int   `json:"rating"`
}

// eventTitles maps lifecycle events to the human text used for the
// notification row and the email subject.
var eventTitles = map[string]string{
	"service_accepted":  "Your service request was accepted",
	"service_updated":   "Service status updated",
	"service_completed": "Service marked as completed",
	"service_cancelled": "Service was cancelled",
	"service_rejected":  "Service was rejected by the provider",
	"service_expired":   "Service request expired",
}

func titleFor(event string) string {
	if t, ok := eventTitles[event]; ok {
		return t
	}
	return "Service update"
}
