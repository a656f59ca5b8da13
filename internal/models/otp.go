package models

import (
	"time"

	"gorm.io/gorm"
)

// OTPCode is a phone-verification challenge for the WhatsApp linking
// flow. One active challenge per phone number: re-issuing overwrites
// the code, resets Used and extends the expiry.
type OTPCode struct {
	gorm.Model
	PhoneNumber string    `gorm:"not null;uniqueIndex"` // normalized local format
	ChatID      string    `gorm:"not null"`             // raw platform identity the code was messaged to
	Code        string    `gorm:"not null;size:6"`
	ExpiresAt   time.Time `gorm:"not null"`
	Used        bool      `gorm:"default:false"`
}

// Active reports whether the challenge can still be consumed
func (o *OTPCode) Active(now time.Time) bool {
	return !o.Used && now.Before(o.ExpiresAt)
}
