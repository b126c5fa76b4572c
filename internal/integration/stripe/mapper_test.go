package stripe

import (
	"testing"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapSubscriptionStatus(t *testing.T) {
	assert.Equal(t, domain.SubscriptionStatusActive, MapSubscriptionStatus("active"))
	assert.Equal(t, domain.SubscriptionStatusPastDue, MapSubscriptionStatus("past_due"))
	assert.Equal(t, domain.SubscriptionStatusCanceled, MapSubscriptionStatus("canceled"))
	assert.Equal(t, domain.SubscriptionStatusPaused, MapSubscriptionStatus("paused"))

	// Unknown statuses degrade to incomplete instead of failing
	assert.Equal(t, domain.SubscriptionStatusIncomplete, MapSubscriptionStatus("some_future_status"))
	assert.Equal(t, domain.SubscriptionStatusIncomplete, MapSubscriptionStatus(""))
}
