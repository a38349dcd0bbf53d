package models

import (
	"time"

	"github.com/quantprep/gatekeeper/pkg/types"

	"gorm.io/datatypes"
)

// Entitlement stores the per-user plan/status pair that gates premium
// content. Exactly one row per user; created with the free plan at identity
// bootstrap and mutated only by verified provider events or admin actions.
type Entitlement struct {
	ID     string                  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string                  `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	Plan   types.Plan              `gorm:"column:plan;type:varchar(32);not null" json:"plan"`
	Status types.EntitlementStatus `gorm:"column:status;type:varchar(32);not null;default:''" json:"status"`
	// Provider references captured from the latest applied event.
	ProviderPaymentID      *string `gorm:"column:provider_payment_id;type:varchar(128)" json:"provider_payment_id"`
	ProviderSubscriptionID *string `gorm:"column:provider_subscription_id;type:varchar(128)" json:"provider_subscription_id"`
	ProviderCustomerID     *string `gorm:"column:provider_customer_id;type:varchar(128)" json:"provider_customer_id"`
	// EventTime is the provider timestamp of the last applied event. Events
	// carrying an older timestamp are rejected as stale.
	EventTime *time.Time     `gorm:"column:event_time;default:null" json:"event_time"`
	Extra     datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Entitlement) TableName() string {
	return "entitlement"
}

// IsPremium reports whether the record grants premium access. The plan and
// status must agree; any other combination is treated as non-premium.
func (e *Entitlement) IsPremium() bool {
	return e != nil &&
		e.Plan == types.PlanPremium &&
		e.Status == types.EntitlementStatusActive
}

func (e *Entitlement) Info() *types.EntitlementInfo {
	if e == nil {
		return &types.EntitlementInfo{Plan: types.PlanFree}
	}
	return &types.EntitlementInfo{
		Plan:      e.Plan,
		Status:    e.Status,
		IsPremium: e.IsPremium(),
		UpdatedAt: e.UpdatedAt,
	}
}
