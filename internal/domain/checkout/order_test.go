package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		opt  DeliveryOption
		want bool
	}{
		{"pending to ready", StatusPending, StatusReady, Pickup, true},
		{"pending skips ready", StatusPending, StatusDelivered, Pickup, false},
		{"ready to shipped for delivery", StatusReady, StatusShipped, Delivery, true},
		{"ready not shipped for pickup", StatusReady, StatusShipped, Pickup, false},
		{"shipped to delivered", StatusShipped, StatusDelivered, Delivery, true},
		{"ready to delivered for pickup", StatusReady, StatusDelivered, Pickup, true},
		{"ready to delivered for delivery requires shipped", StatusReady, StatusDelivered, Delivery, false},
		{"pending cancellable", StatusPending, StatusCancelled, Pickup, true},
		{"shipped cancellable", StatusShipped, StatusCancelled, Delivery, true},
		{"delivered is terminal", StatusDelivered, StatusCancelled, Delivery, false},
		{"cancelled is terminal", StatusCancelled, StatusReady, Pickup, false},
		{"no self transition", StatusReady, StatusReady, Pickup, false},
		{"unknown target refused", StatusPending, Status("returned"), Pickup, false},
		{"no transition back from delivered", StatusDelivered, StatusPending, Pickup, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to, tt.opt))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusShipped.Terminal())
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusReady, StatusShipped, StatusDelivered, StatusCancelled} {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, Status("refunded").Valid())
}
