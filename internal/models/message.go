package models

import "gorm.io/gorm"

// Message is one append-only audit row per inbound chat turn: what the
// user sent, the raw structured bot response and the resolved action.
// Rows are never updated or deleted.
type Message struct {
	gorm.Model
	Platform          Platform `gorm:"not null;size:16;index:idx_msg_platform_pmid"`
	ChatID            string   `gorm:"not null;index"`
	UserID            *uint
	MessageType       string `gorm:"size:16"` // text, contact, callback
	Content           string `gorm:"type:text"`
	BotResponse       string `gorm:"type:text"` // serialized structured response, if any
	ActionTaken       string `gorm:"size:32"`
	PlatformMessageID string `gorm:"size:64;index:idx_msg_platform_pmid"` // for webhook redelivery dedup; may be empty
}
