package stripe

import "github.com/dineflow/payment-service/internal/domain"

// MapSubscriptionStatus maps a Stripe subscription status onto the local
// mirror's status set. Unknown statuses map to incomplete rather than
// failing, the mirror is advisory.
func MapSubscriptionStatus(status string) domain.SubscriptionStatus {
	switch status {
	case "incomplete":
		return domain.SubscriptionStatusIncomplete
	case "incomplete_expired":
		return domain.SubscriptionStatusIncompleteExpired
	case "trialing":
		return domain.SubscriptionStatusTrialing
	case "active":
		return domain.SubscriptionStatusActive
	case "past_due":
		return domain.SubscriptionStatusPastDue
	case "canceled":
		return domain.SubscriptionStatusCanceled
	case "unpaid":
		return domain.SubscriptionStatusUnpaid
	case "paused":
		return domain.SubscriptionStatusPaused
	default:
		return domain.SubscriptionStatusIncomplete
	}
}
