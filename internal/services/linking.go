package services

import (
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/storage"
	"github.com/souktrain/gestpay-backend/internal/utils"
)

const otpTTL = 10 * time.Minute

var otpPattern = regexp.MustCompile(`^\d{6}$`)

const linkedWelcome = `Welcome to GestPay! 🎉

Your account is now linked. You can:
💰 Check your balance
📊 View transaction history
💸 Send money to other GestPay users
📈 Get financial advice

Just type what you need in plain language!`

// LinkingService runs the identity-linking flows: Telegram contact
// share and WhatsApp OTP challenge. Each method takes the current
// session, replies through the platform sender, and moves the session
// state forward.
type LinkingService struct {
	store storage.Store
	log   zerolog.Logger
}

func NewLinkingService(store storage.Store, log zerolog.Logger) *LinkingService {
	return &LinkingService{store: store, log: log}
}

// HandleTelegramStart answers /start. Already-linked chats get a
// welcome-back; everyone else gets the contact-share prompt.
func (l *LinkingService) HandleTelegramStart(sender ChatSender, session *models.ChatSession, firstName string) (string, error) {
	if session.State == models.StateLinked && session.UserID != nil {
		user, err := l.store.GetUserByID(*session.UserID)
		if err == nil {
			reply := fmt.Sprintf("Welcome back, %s! 👋\n\nWhat would you like to do today?", user.FirstName)
			return reply, sender.SendText(session.ReplyTo, reply)
		}
	}

	greeting := firstName
	if greeting == "" {
		greeting = "there"
	}
	prompt := fmt.Sprintf(
		"Hello %s! 👋 Welcome to GestPay.\n\nTo link your account, please share your phone number using the button below.",
		greeting)

	if err := l.store.UpdateSessionState(session.Platform, session.ChatID, models.StateAwaitingPhone, nil, nil); err != nil {
		return "", err
	}
	return prompt, sender.SendContactRequest(session.ReplyTo, prompt)
}

// HandleContactShare links a Telegram chat to the account owning the
// shared phone number. Unknown numbers revert the session to start.
func (l *LinkingService) HandleContactShare(sender ChatSender, session *models.ChatSession, rawPhone string) (string, error) {
	phone := utils.NormalizePhone(rawPhone)

	user, err := l.store.GetUserByPhone(phone)
	if err == storage.ErrNotFound {
		reply := "We couldn't find a GestPay account with that phone number. 😕\n\nPlease register on the GestPay app first, then come back and try again."
		if err := l.store.UpdateSessionState(session.Platform, session.ChatID, models.StateStart, nil, nil); err != nil {
			return "", err
		}
		return reply, sender.SendText(session.ReplyTo, reply)
	}
	if err != nil {
		return "", err
	}

	if err := l.store.UpsertLinkedAccount(user.ID, session.Platform, session.ChatID); err != nil {
		return "", err
	}

	user.HasSetupTelegram = true
	user.TelegramChatID = session.ChatID
	if err := l.store.UpdateUser(user); err != nil {
		return "", err
	}

	if err := l.store.UpdateSessionState(session.Platform, session.ChatID, models.StateLinked, nil, &user.ID); err != nil {
		return "", err
	}

	l.log.Info().Uint("user_id", user.ID).Str("platform", string(session.Platform)).Msg("account linked")
	return linkedWelcome, sender.SendText(session.ReplyTo, linkedWelcome)
}

// HandleWhatsAppNewUser runs when an unlinked WhatsApp chat sends its
// first message. The chat id IS the phone number, so a matching account
// with an existing link short-circuits straight to linked; a matching
// account without one gets an OTP challenge.
func (l *LinkingService) HandleWhatsAppNewUser(sender ChatSender, session *models.ChatSession) (string, error) {
	phone := utils.NormalizePhone(session.ChatID)

	user, err := l.store.GetUserByPhone(phone)
	if err == storage.ErrNotFound {
		reply := "Welcome to GestPay! 👋\n\nWe couldn't find an account with this number. Please register on the GestPay app first, then message us again."
		return reply, sender.SendText(session.ReplyTo, reply)
	}
	if err != nil {
		return "", err
	}

	if _, err := l.store.GetLinkedAccount(user.ID, models.PlatformWhatsapp); err == nil {
		if err := l.store.UpdateSessionState(session.Platform, session.ChatID, models.StateLinked, nil, &user.ID); err != nil {
			return "", err
		}
		reply := fmt.Sprintf("Welcome back, %s! 👋\n\nWhat would you like to do today?", user.FirstName)
		return reply, sender.SendText(session.ReplyTo, reply)
	}

	code, err := utils.GenerateSecureOTP()
	if err != nil {
		return "", err
	}
	if err := l.store.UpsertOTP(phone, session.ReplyTo, code, time.Now().Add(otpTTL)); err != nil {
		return "", err
	}

	td := &models.TempData{AwaitingOTP: &models.AwaitingOTPData{UserID: user.ID}}
	if err := l.store.UpdateSessionState(session.Platform, session.ChatID, models.StateAwaitingOTP, td, nil); err != nil {
		return "", err
	}

	reply := fmt.Sprintf(
		"Hi %s! 👋 To link this WhatsApp number to your GestPay account, enter the 6-digit code we just sent you.\n\nYour code: %s\n\nIt expires in 10 minutes.",
		user.FirstName, code)
	return reply, sender.SendText(session.ReplyTo, reply)
}

// HandleOTPVerification checks a code typed during awaiting_otp.
// Malformed input never consumes the challenge; a correct code links
// the account and marks the code used.
func (l *LinkingService) HandleOTPVerification(sender ChatSender, session *models.ChatSession, input string) (string, error) {
	if !otpPattern.MatchString(input) {
		reply := "Please enter the 6-digit code we sent you (digits only)."
		return reply, sender.SendText(session.ReplyTo, reply)
	}

	phone := utils.NormalizePhone(session.ChatID)
	otp, err := l.store.GetActiveOTP(phone, input)
	if err == storage.ErrNotFound {
		reply := "Invalid or expired code. Please request a new one by sending any message."
		return reply, sender.SendText(session.ReplyTo, reply)
	}
	if err != nil {
		return "", err
	}

	td, err := session.DecodeTempData()
	if err != nil {
		return "", err
	}
	if td.AwaitingOTP == nil {
		reply := "Your linking session expired. Please send any message to start again."
		if err := l.store.UpdateSessionState(session.Platform, session.ChatID, models.StateStart, nil, nil); err != nil {
			return "", err
		}
		return reply, sender.SendText(session.ReplyTo, reply)
	}
	userID := td.AwaitingOTP.UserID

	if err := l.store.MarkOTPUsed(otp.ID); err != nil {
		return "", err
	}
	if err := l.store.UpsertLinkedAccount(userID, models.PlatformWhatsapp, session.ChatID); err != nil {
		return "", err
	}

	user, err := l.store.GetUserByID(userID)
	if err != nil {
		return "", err
	}
	user.HasSetupWhatsapp = true
	if err := l.store.UpdateUser(user); err != nil {
		return "", err
	}

	if err := l.store.UpdateSessionState(session.Platform, session.ChatID, models.StateLinked, nil, &userID); err != nil {
		return "", err
	}

	l.log.Info().Uint("user_id", userID).Str("platform", string(session.Platform)).Msg("account linked")
	return linkedWelcome, sender.SendText(session.ReplyTo, linkedWelcome)
}
