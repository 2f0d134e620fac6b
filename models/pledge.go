// models/pledge.go
package models

import "time"

const (
	PledgeStatusPledged   = "pledged"
	PledgeStatusCompleted = "completed"
	PledgeStatusWithdrawn = "withdrawn"
)

type Pledge struct {
	ID           string  `json:"id" gorm:"primaryKey"`
	KhatamID     string  `json:"khatam_id" gorm:"index;not null"`
	KhatamItemID *string `json:"khatam_item_id,omitempty"` // set only for Qur'an pledges

	DisplayName string `json:"display_name,omitempty"`
	Message     string `json:"message,omitempty"`

	// Private. Only used to deliver the manage link; never serialized, and
	// read paths column-list their SELECTs as a second guard.
	Email string `json:"-"`

	// Manage token: public id + bcrypt hash of the secret. The plaintext
	// secret exists only in the create-pledge response.
	EditTokenID   string `json:"-" gorm:"uniqueIndex;not null"`
	EditTokenHash string `json:"-" gorm:"not null"`

	UnitsPledged   int    `json:"units_pledged"`
	UnitsCompleted int    `json:"units_completed"` // always within [0, UnitsPledged]
	Status         string `json:"status" gorm:"default:'pledged'"` // pledged | completed | withdrawn

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
