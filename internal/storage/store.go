package storage

import (
	"errors"
	"time"

	"github.com/souktrain/gestpay-backend/internal/models"
)

// Errors shared by both store implementations. The transfer gate maps
// these onto user-facing failures without revealing which check failed.
var (
	ErrNotFound            = errors.New("record not found")
	ErrTokenConsumed       = errors.New("confirmation token already consumed")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// SettlementResult describes a completed transfer for notification and
// API responses.
type SettlementResult struct {
	Reference     string
	Amount        float64
	SenderName    string
	RecipientName string
	Platform      models.Platform
	ChatID        string
}

// Store defines the persistence operations of the bot engine. The
// production implementation is DatabaseStore (Postgres via GORM);
// MemoryStore backs tests.
type Store interface {
	// Session operations
	GetOrCreateSession(platform models.Platform, chatID string) (*models.ChatSession, error)
	UpdateSessionState(platform models.Platform, chatID string, state models.SessionState, tempData *models.TempData, userID *uint) error

	// User operations
	GetUserByID(id uint) (*models.User, error)
	GetUserByPhone(phone string) (*models.User, error)
	UpdateUser(user *models.User) error
	// SearchRecipients matches accounts by case-insensitive partial full
	// name or first name, or exact phone, excluding excludeID, capped at limit.
	SearchRecipients(query string, excludeID uint, limit int) ([]*models.User, error)

	// Linked account operations
	GetLinkedAccount(userID uint, platform models.Platform) (*models.LinkedAccount, error)
	UpsertLinkedAccount(userID uint, platform models.Platform, platformID string) error

	// OTP operations: one active challenge per phone, overwritten on re-issue
	UpsertOTP(phone, chatID, code string, expiresAt time.Time) error
	GetActiveOTP(phone, code string) (*models.OTPCode, error)
	MarkOTPUsed(id uint) error

	// Message log (append-only)
	LogMessage(msg *models.Message) error
	SeenPlatformMessage(platform models.Platform, platformMessageID string) (bool, error)

	// Transaction operations
	GetRecentTransactions(userID uint, limit int) ([]*models.Transaction, error)
	GetTransaction(id uint) (*models.Transaction, error)

	// Transfer gate: pending transaction and its token are created in
	// one atomic unit, and settlement mutates balances, statuses and the
	// token's used flag in one atomic unit.
	CreatePendingTransfer(tx *models.Transaction, token *models.ConfirmationToken) error
	GetActiveToken(token string) (*models.ConfirmationToken, error)
	SettleTransfer(token *models.ConfirmationToken) (*SettlementResult, error)

	// Notifications
	CreateNotification(n *models.Notification) error
}
