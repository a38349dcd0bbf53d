package models

import (
	"time"

	"github.com/quantprep/gatekeeper/pkg/types"
)

// Payment is the write-once audit record for a completed payment, keyed by
// the provider's payment id. The conditional create on this key is what
// makes duplicate webhook deliveries idempotent.
type Payment struct {
	ProviderPaymentID string                `gorm:"column:provider_payment_id;type:varchar(128);primary_key" json:"provider_payment_id"`
	Provider          types.PaymentProvider `gorm:"column:provider;type:varchar(32);not null" json:"provider"`
	UserID            string                `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Email             string                `gorm:"column:email;type:varchar(320);not null" json:"email"`
	Amount            int64                 `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Currency          string                `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	ProviderOrderID   *string               `gorm:"column:provider_order_id;type:varchar(128)" json:"provider_order_id"`
	PaidAt            time.Time             `gorm:"column:paid_at;not null" json:"paid_at"`
	CreatedAt         time.Time             `json:"created_at"`
}

func (Payment) TableName() string {
	return "payment"
}
