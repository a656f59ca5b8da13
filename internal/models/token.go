package models

import (
	"time"

	"gorm.io/gorm"
)

// TokenActionTransfer is the only action type the confirmation surface
// currently supports.
const TokenActionTransfer = "transfer"

// ConfirmationToken authorizes exactly one PIN-gated settlement attempt
// for a pending transaction. Created atomically with the transaction it
// guards. Once Used or past ExpiresAt it is inert forever; expired
// unused tokens are never swept, only rejected at verification time.
type ConfirmationToken struct {
	gorm.Model
	UserID        uint     `gorm:"not null;index"`
	Platform      Platform `gorm:"not null;size:16"`
	ChatID        string   `gorm:"not null"` // chat identity to notify after settlement
	TransactionID uint     `gorm:"not null"`
	RecipientID   uint     `gorm:"not null"`
	ActionType    string   `gorm:"not null;size:16"`
	Token         string   `gorm:"not null;uniqueIndex;size:64"`
	ExpiresAt     time.Time `gorm:"not null"`
	Used          bool      `gorm:"default:false"`
}

// Active reports whether the token can still authorize a settlement
func (t *ConfirmationToken) Active(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
