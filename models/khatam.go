// models/khatam.go
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	KhatamTypeQuran   = "quran"
	KhatamTypeCounter = "custom_counter"
)

// QuranJuzCount is the number of Juz' items seeded for a Qur'an khatam.
const QuranJuzCount = 30

type Khatam struct {
	ID             string  `json:"id" gorm:"primaryKey"`
	Slug           string  `json:"slug" gorm:"uniqueIndex;not null"`
	Title          string  `json:"title" gorm:"not null"`
	DedicationText string  `json:"dedication_text,omitempty"`
	Type           string  `json:"type"` // quran | custom_counter
	UnitLabel      *string `json:"unit_label,omitempty"`
	TargetUnits    *int    `json:"target_units,omitempty"`

	// Pledging and updates stop once this instant passes. Tz is a
	// display-only IANA label; ReadByAt is already UTC.
	ReadByAt time.Time `json:"read_by_at"`
	Tz       string    `json:"tz"`

	CoverImageURL string `json:"cover_image_url,omitempty"`

	// Flipped by the deadline sweep; handlers enforce the deadline against
	// the clock, not this flag.
	IsClosed bool `json:"is_closed"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Items   []KhatamItem `json:"items,omitempty" gorm:"foreignKey:KhatamID"`
	Pledges []Pledge     `json:"pledges,omitempty" gorm:"foreignKey:KhatamID"`
}

// KhatamItem is one claimable Juz'. is_taken flips false→true at most once
// per item, via a conditional update that arbitrates racing pledges.
type KhatamItem struct {
	ID        string `json:"id" gorm:"primaryKey"`
	KhatamID  string `json:"khatam_id" gorm:"index;not null"`
	JuzNumber int    `json:"juz_number"` // 1..30
	IsTaken   bool   `json:"is_taken"`
}
