package entitlement

import (
	"time"

	"github.com/quantprep/gatekeeper/pkg/types"
)

// Event is a verified, provider-agnostic payment event ready to be applied
// to the entitlement store.
type Event struct {
	Provider       types.PaymentProvider
	EventID        string
	Type           string
	Email          string
	PaymentID      string
	OrderID        string
	SubscriptionID string
	CustomerID     string
	Amount         int64
	Currency       string
	// OccurredAt is the provider-supplied event time, used as the
	// stale-write fence.
	OccurredAt time.Time
	// Reason tags the audit log entry; empty means webhook-driven.
	Reason types.EntitlementChangeReason
}

// Outcome is the entitlement state an event maps to.
type Outcome struct {
	Plan   types.Plan
	Status types.EntitlementStatus
	// RecordsPayment marks capture-style events that also produce a
	// write-once Payment row.
	RecordsPayment bool
}

var eventOutcomes = map[types.PaymentProvider]map[string]Outcome{
	types.PaymentProviderRazorpay: {
		"payment.captured": {Plan: types.PlanPremium, Status: types.EntitlementStatusActive, RecordsPayment: true},
	},
	types.PaymentProviderDodo: {
		"subscription.active":  {Plan: types.PlanPremium, Status: types.EntitlementStatusActive},
		"subscription.renewed": {Plan: types.PlanPremium, Status: types.EntitlementStatusActive},
		"subscription.on_hold": {Plan: types.PlanFree, Status: types.EntitlementStatusOnHold},
		"subscription.failed":  {Plan: types.PlanFree, Status: types.EntitlementStatusFailed},
		"payment.succeeded":    {Plan: types.PlanPremium, Status: types.EntitlementStatusActive, RecordsPayment: true},
	},
	types.PaymentProviderInner: {
		"grant":  {Plan: types.PlanPremium, Status: types.EntitlementStatusActive},
		"revoke": {Plan: types.PlanFree, Status: types.EntitlementStatusNone},
	},
}

// MapEventType resolves an event type to its entitlement outcome. Unknown
// types are not mapped: an unrecognized event must never change state, and
// in particular must never default to a grant.
func MapEventType(provider types.PaymentProvider, eventType string) (Outcome, bool) {
	byType, ok := eventOutcomes[provider]
	if !ok {
		return Outcome{}, false
	}
	out, ok := byType[eventType]
	return out, ok
}
