package models

import "time"

// EmailIndex maps a normalized email key to a user id. Webhook payloads
// carry an email address but no session, so this is the only way to resolve
// them back to an identity. Append-only: a key is never rebound to a
// different user.
type EmailIndex struct {
	EmailKey  string    `gorm:"column:email_key;type:varchar(320);primary_key" json:"email_key"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (EmailIndex) TableName() string {
	return "email_index"
}
