package models

import "gorm.io/gorm"

// LinkedAccount associates an internal account with a chat identity on
// one platform. Unique per (user, platform); relinking a new chat id
// replaces the old association rather than duplicating it.
type LinkedAccount struct {
	gorm.Model
	UserID     uint     `gorm:"not null;uniqueIndex:idx_user_platform"`
	Platform   Platform `gorm:"not null;uniqueIndex:idx_user_platform;size:16"`
	PlatformID string   `gorm:"not null"` // telegram chat id or whatsapp phone
}
