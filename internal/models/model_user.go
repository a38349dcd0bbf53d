package models

import (
	"time"

	"gorm.io/datatypes"
)

// User is the identity record. The primary key is the opaque uid issued by
// the auth provider; this service never mints identities of its own.
type User struct {
	ID          string `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Email       string `gorm:"column:email;type:varchar(320);not null;index" json:"email"`
	DisplayName string `gorm:"column:display_name;type:varchar(256)" json:"display_name"`
	Role        string `gorm:"column:role;type:varchar(32);default:''" json:"role,omitempty"`
	// Dashboard state owned by the client.
	Theme      string         `gorm:"column:theme;type:varchar(32);default:'dark'" json:"theme"`
	Progress   datatypes.JSON `gorm:"column:progress;type:jsonb;default:'{}'" json:"progress"`
	QuizScores datatypes.JSON `gorm:"column:quiz_scores;type:jsonb;default:'[]'" json:"quiz_scores"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (User) TableName() string {
	return "app_user"
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}
