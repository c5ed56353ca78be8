package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func allOn() Preferences {
	return Preferences{
		EmailEnabled:   true,
		EmailFrequency: "immediate",
		PushEnabled:    true,
		ServiceUpdates: true,
		NewMessages:    true,
		RatingUpdates:  true,
		Promotions:     true,
	}
}

func TestAllowsEmailCategories(t *testing.T) {
	p := allOn()
	p.NewMessages = false

	assert.False(t, p.AllowsEmail(TypeNewMessage))
	assert.True(t, p.AllowsEmail(TypeNewRating))
	assert.True(t, p.AllowsEmail("service_completed"))
	assert.True(t, p.AllowsEmail(TypeOfferReceived))
}

func TestAllowsEmailMasterSwitch(t *testing.T) {
	p := allOn()
	p.EmailEnabled = false

	assert.False(t, p.AllowsEmail(TypeNewMessage))
	assert.False(t, p.AllowsEmail("service_accepted"))
}

func TestAllowsEmailDigestSuppressesImmediate(t *testing.T) {
	p := allOn()
	p.EmailFrequency = "daily"

	assert.False(t, p.AllowsEmail("service_completed"))
}

func TestAllowsPush(t *testing.T) {
	p := allOn()
	p.RatingUpdates = false

	assert.False(t, p.AllowsPush(TypeNewRating))
	assert.True(t, p.AllowsPush(TypeNewMessage))

	p.PushEnabled = false
	assert.False(t, p.AllowsPush(TypeNewMessage))
}
