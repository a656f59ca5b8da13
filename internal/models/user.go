package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User represents a GestPay account holder
type User struct {
	gorm.Model

	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email" gorm:"uniqueIndex"`
	PhoneNumber string `json:"phone_number" gorm:"uniqueIndex"` // local format, 0-prefixed
	Role        string `json:"role" gorm:"default:user"`

	Balance     float64 `json:"balance" gorm:"default:0"`
	TotalCredit float64 `json:"total_credit" gorm:"default:0"`
	TotalDebit  float64 `json:"total_debit" gorm:"default:0"`

	// PIN is a bcrypt hash, never the raw value
	PIN string `json:"-"`

	TelegramChatID   string `json:"telegram_chat_id"`
	HasSetupTelegram bool   `json:"has_setup_telegram" gorm:"default:false"`
	HasSetupWhatsapp bool   `json:"has_setup_whatsapp" gorm:"default:false"`

	// Payment channel toggles, managed from the app's settings screen
	AllowFacePayments     bool `json:"allow_face_payments" gorm:"default:false"`
	AllowVoicePayments    bool `json:"allow_voice_payments" gorm:"default:false"`
	AllowTelegramPayments bool `json:"allow_telegram_payments" gorm:"default:true"`
	AllowWhatsappPayments bool `json:"allow_whatsapp_payments" gorm:"default:true"`
	ConfirmPayment        bool `json:"confirm_payment" gorm:"default:true"`
}

// FullName returns the display name used in messages and transfer descriptions
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SetPIN hashes and stores a raw transaction PIN
func (u *User) SetPIN(raw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PIN = string(hash)
	return nil
}

// CheckPIN compares a raw PIN against the stored hash
func (u *User) CheckPIN(raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PIN), []byte(raw)) == nil
}

// AccountAgeDays is used to ground the intent parser's account context
func (u *User) AccountAgeDays() int {
	return int(time.Since(u.CreatedAt).Hours() / 24)
}
