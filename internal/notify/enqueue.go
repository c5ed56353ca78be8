package notify

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

func enqueue(taskType string, payload interface{}, queue string) error {
	if client == nil {
		return errors.New("notification queue not initialized")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = client.Enqueue(asynq.NewTask(taskType, b), asynq.Queue(queue))
	return err
}

// EnqueueWelcomeEmail schedules the signup welcome email.
func EnqueueWelcomeEmail(userID int64, email, name string) error {
	return enqueue(TaskWelcomeEmail,
		WelcomeEmailPayload{UserID: userID, Email: email, Name: name}, "emails")
}

// EnqueuePasswordReset schedules the reset-link email.
func EnqueuePasswordReset(userID int64, email, token, name string) error {
	return enqueue(TaskPasswordReset,
		PasswordResetPayload{UserID: userID, Email: email, Token: token, Name: name}, "emails")
}

// EnqueueServiceEvent notifies one lifecycle counterpart about a transition.
func EnqueueServiceEvent(recipient int64, event string, serviceID int64, notes string) error {
	return enqueue(TaskServiceEvent,
		ServiceEventPayload{Recipient: recipient, Event: event, ServiceID: serviceID, Notes: notes}, "notifications")
}

// EnqueueOfferReceived tells the client a provider bid on their service.
func EnqueueOfferReceived(clientID, serviceID, offerID int64, amount float64) error {
	return enqueue(TaskOfferReceived,
		OfferReceivedPayload{ClientID: clientID, ServiceID: serviceID, OfferID: offerID, Amount: amount}, "notifications")
}

// EnqueueOfferAccepted tells the provider their bid won.
func EnqueueOfferAccepted(providerID, serviceID, offerID int64) error {
	return enqueue(TaskOfferAccepted,
		OfferAcceptedPayload{ProviderID: providerID, ServiceID: serviceID, OfferID: offerID}, "notifications")
}

// EnqueueNewMessage notifies the other participant of a service message.
func EnqueueNewMessage(recipient, serviceID, messageID int64) error {
	return enqueue(TaskNewMessage,
		NewMessagePayload{Recipient: recipient, ServiceID: serviceID, MessageID: messageID}, "notifications")
}

// EnqueueNewRating notifies the provider about a fresh review.
func EnqueueNewRating(providerID, serviceID, ratingID int64, rating int) error {
	return enqueue(TaskNewRating,
		NewRatingPayload{ProviderID: providerID, ServiceID: serviceID, RatingID: ratingID, Rating: rating}, "notifications")
}
