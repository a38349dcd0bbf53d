package models

import (
	"time"

	"github.com/quantprep/gatekeeper/pkg/types"

	"gorm.io/datatypes"
)

// EntitlementLog records every entitlement change with before/after
// snapshots for audit and debugging.
type EntitlementLog struct {
	ID     string                        `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string                        `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Reason types.EntitlementChangeReason `gorm:"column:reason;type:varchar(64);not null" json:"reason"`
	// OperatorID is set for admin-initiated changes.
	OperatorID string                           `gorm:"column:operator_id;type:varchar(64);default:''" json:"operator_id,omitempty"`
	Before     datatypes.JSONType[*Entitlement] `gorm:"column:before;type:jsonb" json:"before"`
	After      datatypes.JSONType[*Entitlement] `gorm:"column:after;type:jsonb" json:"after"`
	Extra      datatypes.JSONMap                `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt  time.Time                        `json:"created_at"`
}

func (EntitlementLog) TableName() string {
	return "entitlement_log"
}
