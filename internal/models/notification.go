package models

import "gorm.io/gorm"

// Notification is an in-app notification row created for each party of
// a settled transfer. Rendered by the mobile/web clients, not by the bot.
type Notification struct {
	gorm.Model
	UserID        uint   `gorm:"not null;index"`
	Content       string `gorm:"type:text;not null"`
	Type          string `gorm:"size:16;default:wallet"`
	TransactionID uint
	Read          bool `gorm:"default:false"`
}
