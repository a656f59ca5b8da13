package models

import "gorm.io/gorm"

// Transaction type and status values. A transaction is immutable once
// successful.
const (
	TxTypeCredit = "credit"
	TxTypeDebit  = "debit"

	TxStatusPending    = "pending"
	TxStatusSuccessful = "successful"
	TxStatusFailed     = "failed"

	// Feature tags recorded per transfer leg
	FeatureTelegramPay = "telegram-pay"
	FeatureWhatsappPay = "whatsapp-pay"
)

// Transaction is one ledger entry for one account. An internal transfer
// produces two rows: a debit for the sender and a credit for the
// recipient, correlated by timing and description only (the settlement
// token carries the recipient id, so the engine never needs a join).
type Transaction struct {
	gorm.Model
	UserID      uint    `gorm:"not null;index"`
	Reference   string  `gorm:"not null;uniqueIndex;size:32"`
	Amount      float64 `gorm:"not null"`
	Feature     string  `gorm:"size:32"`
	Type        string  `gorm:"not null;size:8"`
	Status      string  `gorm:"not null;default:pending;size:16"`
	Description string
}
