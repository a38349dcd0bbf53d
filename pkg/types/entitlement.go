package types

import "time"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

type EntitlementStatus string

const (
	EntitlementStatusNone   EntitlementStatus = ""
	EntitlementStatusActive EntitlementStatus = "active"
	EntitlementStatusOnHold EntitlementStatus = "on_hold"
	EntitlementStatusFailed EntitlementStatus = "failed"
)

type EntitlementChangeReason string

const (
	EntitlementChangeReasonWebhook     EntitlementChangeReason = "webhook"
	EntitlementChangeReasonCheckout    EntitlementChangeReason = "checkout"
	EntitlementChangeReasonAdminGrant  EntitlementChangeReason = "adminGrant"
	EntitlementChangeReasonAdminRevoke EntitlementChangeReason = "adminRevoke"
	EntitlementChangeReasonBootstrap   EntitlementChangeReason = "bootstrap"
)

// EntitlementInfo is the wire shape returned to the dashboard client.
type EntitlementInfo struct {
	Plan      Plan              `json:"plan"`
	Status    EntitlementStatus `json:"status"`
	IsPremium bool              `json:"is_premium"`
	UpdatedAt time.Time         `json:"updated_at"`
}
