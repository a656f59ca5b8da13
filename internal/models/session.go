package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// Platform identifies the chat network a conversation lives on
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformWhatsapp Platform = "whatsapp"
)

// SessionState is the linking/conversation state of a chat identity
type SessionState string

const (
	StateStart             SessionState = "start"
	StateAwaitingPhone     SessionState = "awaiting_phone"
	StateAwaitingOTP       SessionState = "awaiting_otp"
	StateAwaitingSelection SessionState = "awaiting_selection"
	StateLinked            SessionState = "linked"
)

// ChatSession persists per-chat-identity state across webhook calls.
// Each webhook invocation is stateless, so everything a multi-step flow
// needs lives here. Rows are never hard-deleted; the state just moves.
type ChatSession struct {
	gorm.Model
	Platform Platform     `json:"platform" gorm:"uniqueIndex:idx_platform_chat;size:16"`
	ChatID   string       `json:"chat_id" gorm:"uniqueIndex:idx_platform_chat;size:64"` // telegram chat id or normalized phone
	UserID   *uint        `json:"user_id"`
	State    SessionState `json:"state" gorm:"default:start;size:32"`
	TempData string       `json:"temp_data"` // JSON-encoded TempData

	// ReplyTo is the raw platform address of the current webhook call,
	// set per request and never persisted. WhatsApp delivery needs the
	// international number even though the session key is the normalized
	// local one; on Telegram the two are identical.
	ReplyTo string `json:"-" gorm:"-"`
}

// TempData is the typed payload carried between webhook calls. Exactly
// one field is set, matching the session state that stored it.
type TempData struct {
	AwaitingOTP       *AwaitingOTPData       `json:"awaiting_otp,omitempty"`
	AwaitingSelection *AwaitingSelectionData `json:"awaiting_selection,omitempty"`
}

// AwaitingOTPData holds the account a pending OTP challenge will link
type AwaitingOTPData struct {
	UserID uint `json:"user_id"`
}

// AwaitingSelectionData holds the transfer amount and the candidate
// recipients presented for disambiguation
type AwaitingSelectionData struct {
	Amount     float64              `json:"amount"`
	Candidates []RecipientCandidate `json:"candidates"`
}

// RecipientCandidate is a snapshot of a matched account, enough to
// render the pick list and complete the transfer without re-searching
type RecipientCandidate struct {
	UserID      uint   `json:"user_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

// EncodeTempData serializes td into the session's TempData column.
// A nil td clears it.
func (s *ChatSession) EncodeTempData(td *TempData) error {
	if td == nil {
		s.TempData = ""
		return nil
	}
	raw, err := json.Marshal(td)
	if err != nil {
		return err
	}
	s.TempData = string(raw)
	return nil
}

// DecodeTempData parses the stored payload. An empty column yields an
// empty TempData, not an error.
func (s *ChatSession) DecodeTempData() (*TempData, error) {
	td := &TempData{}
	if s.TempData == "" {
		return td, nil
	}
	if err := json.Unmarshal([]byte(s.TempData), td); err != nil {
		return nil, err
	}
	return td, nil
}
