package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/storage"
	"github.com/souktrain/gestpay-backend/internal/utils"
)

const fallbackReply = "Sorry, I couldn't understand that. You can ask me to check your balance, view transactions, send money, or get financial advice."

// Inbound is one normalized incoming event. The webhook handlers map
// their platform's payload onto this before calling the engine.
type Inbound struct {
	Platform  models.Platform
	ChatID    string // telegram chat id or whatsapp phone number, as received
	Text      string
	Contact   string // shared phone number, telegram contact messages only
	Callback  string // inline button payload, empty otherwise
	FirstName string
	MessageID string // platform message id, used for dedup
}

// Engine routes one inbound event through the session state machine:
// linking flows for unlinked chats, intent parsing and dispatch for
// linked ones.
type Engine struct {
	store    storage.Store
	parser   IntentParser
	linking  *LinkingService
	transfer *TransferService
	log      zerolog.Logger
}

func NewEngine(store storage.Store, parser IntentParser, linking *LinkingService, transfer *TransferService, log zerolog.Logger) *Engine {
	return &Engine{
		store:    store,
		parser:   parser,
		linking:  linking,
		transfer: transfer,
		log:      log,
	}
}

// Handle processes one event end to end. Platforms redeliver webhooks,
// so an already-seen message id is acknowledged and skipped.
func (e *Engine) Handle(ctx context.Context, sender ChatSender, in *Inbound) error {
	if in.MessageID != "" {
		seen, err := e.store.SeenPlatformMessage(in.Platform, in.MessageID)
		if err != nil {
			return err
		}
		if seen {
			e.log.Debug().Str("message_id", in.MessageID).Msg("duplicate delivery skipped")
			return nil
		}
	}

	// the session key is the normalized identity; outbound delivery
	// keeps the raw address the platform sent us
	chatID := in.ChatID
	if in.Platform == models.PlatformWhatsapp {
		chatID = utils.NormalizePhone(chatID)
	}

	session, err := e.store.GetOrCreateSession(in.Platform, chatID)
	if err != nil {
		return err
	}
	session.ReplyTo = in.ChatID
	reply, action, err := e.route(ctx, sender, session, in)

	logMsg := &models.Message{
		Platform:          in.Platform,
		ChatID:            session.ChatID,
		UserID:            session.UserID,
		MessageType:       messageType(in),
		Content:           inboundContent(in),
		BotResponse:       reply,
		ActionTaken:       action,
		PlatformMessageID: in.MessageID,
	}
	if logErr := e.store.LogMessage(logMsg); logErr != nil {
		e.log.Error().Err(logErr).Msg("message log write failed")
	}

	return err
}

func messageType(in *Inbound) string {
	switch {
	case in.Callback != "":
		return "callback"
	case in.Contact != "":
		return "contact"
	default:
		return "text"
	}
}

func inboundContent(in *Inbound) string {
	switch {
	case in.Callback != "":
		return in.Callback
	case in.Contact != "":
		return in.Contact
	default:
		return in.Text
	}
}

func (e *Engine) route(ctx context.Context, sender ChatSender, session *models.ChatSession, in *Inbound) (reply, action string, err error) {
	// contact shares and callbacks short-circuit the text state machine
	if in.Contact != "" {
		reply, err = e.linking.HandleContactShare(sender, session, in.Contact)
		return reply, "link_contact", err
	}
	if in.Callback != "" {
		// selection buttons arrive while the session sits in
		// awaiting_selection, so the only requirement is a bound account
		if session.UserID == nil {
			reply = "Please link your account first by sending /start."
			return reply, "callback_unlinked", sender.SendText(session.ReplyTo, reply)
		}
		user, uerr := e.store.GetUserByID(*session.UserID)
		if uerr != nil {
			return "", "", uerr
		}
		reply, err = e.transfer.HandleCallback(sender, session, user, in.Callback)
		return reply, "transfer_callback", err
	}

	text := strings.TrimSpace(in.Text)

	if in.Platform == models.PlatformTelegram && strings.HasPrefix(text, "/start") {
		reply, err = e.linking.HandleTelegramStart(sender, session, in.FirstName)
		return reply, "start", err
	}

	switch session.State {
	case models.StateStart:
		if in.Platform == models.PlatformWhatsapp {
			reply, err = e.linking.HandleWhatsAppNewUser(sender, session)
			return reply, "whatsapp_link", err
		}
		reply = "Welcome to GestPay! 👋 Send /start to link your account."
		return reply, "prompt_start", sender.SendText(session.ReplyTo, reply)

	case models.StateAwaitingPhone:
		reply = "Please use the button below to share your phone number, or send /start to begin again."
		return reply, "awaiting_phone", sender.SendText(session.ReplyTo, reply)

	case models.StateAwaitingOTP:
		reply, err = e.linking.HandleOTPVerification(sender, session, text)
		return reply, "verify_otp", err

	case models.StateAwaitingSelection:
		user, uerr := e.sessionUser(session)
		if uerr != nil {
			return "", "", uerr
		}
		reply, err = e.transfer.HandleSelection(sender, session, user, text)
		return reply, "transfer_selection", err

	case models.StateLinked:
		return e.dispatchIntent(ctx, sender, session, text)
	}

	reply = fallbackReply
	return reply, "unknown_state", sender.SendText(session.ReplyTo, reply)
}

func (e *Engine) sessionUser(session *models.ChatSession) (*models.User, error) {
	if session.UserID == nil {
		return nil, fmt.Errorf("session %s/%s has no linked user", session.Platform, session.ChatID)
	}
	return e.store.GetUserByID(*session.UserID)
}

func (e *Engine) dispatchIntent(ctx context.Context, sender ChatSender, session *models.ChatSession, text string) (reply, action string, err error) {
	user, err := e.sessionUser(session)
	if err != nil {
		return "", "", err
	}

	acct := &AccountContext{
		Name:               user.FullName(),
		Balance:            user.Balance,
		RecentTransactions: e.transactionDigest(user.ID),
		AccountAgeDays:     user.AccountAgeDays(),
	}

	intent, perr := e.parser.ParseIntent(ctx, text, acct)
	if perr != nil {
		e.log.Warn().Err(perr).Msg("intent parse failed")
		reply = fallbackReply
		return reply, "parse_failed", sender.SendText(session.ReplyTo, reply)
	}

	e.log.Info().Str("action", string(intent.Action)).Uint("user_id", user.ID).Msg("intent parsed")

	switch intent.Action {
	case models.ActionGetBalance:
		reply = fmt.Sprintf("💰 Your balance is %s", utils.FormatNaira(user.Balance))
		return reply, string(intent.Action), sender.SendText(session.ReplyTo, reply)

	case models.ActionGetAccountDetails:
		reply = e.accountDetails(user)
		return reply, string(intent.Action), sender.SendText(session.ReplyTo, reply)

	case models.ActionGetTransactionHistory:
		reply, err = e.transactionHistory(user.ID)
		if err != nil {
			return "", string(intent.Action), err
		}
		return reply, string(intent.Action), sender.SendText(session.ReplyTo, reply)

	case models.ActionTransferInternal:
		reply, err = e.transfer.HandleInternalTransfer(sender, session, user,
			float64(intent.Parameters.Amount), intent.Parameters.Recipient)
		return reply, string(intent.Action), err

	case models.ActionTransferExternal:
		reply = "🏦 Bank transfers are coming soon! For now you can send money to other GestPay users."
		return reply, string(intent.Action), sender.SendText(session.ReplyTo, reply)

	case models.ActionFintechAdvice:
		reply = intent.Message
		if reply == "" {
			reply = fallbackReply
		}
		return reply, string(intent.Action), sender.SendText(session.ReplyTo, reply)
	}

	reply = fallbackReply
	return reply, "unknown_action", sender.SendText(session.ReplyTo, reply)
}

func (e *Engine) accountDetails(user *models.User) string {
	channels := make([]string, 0, 2)
	if user.HasSetupTelegram {
		channels = append(channels, "Telegram")
	}
	if user.HasSetupWhatsapp {
		channels = append(channels, "WhatsApp")
	}
	linked := "none"
	if len(channels) > 0 {
		linked = strings.Join(channels, ", ")
	}

	return fmt.Sprintf(
		"👤 <b>Account Details</b>\n\nName: %s\nPhone: %s\nBalance: %s\nTotal received: %s\nTotal sent: %s\nLinked channels: %s\n\nPayment channels:\nFace pay: %s\nVoice pay: %s\nTelegram pay: %s\nWhatsApp pay: %s\n\nAccount age: %d days",
		user.FullName(), user.PhoneNumber, utils.FormatNaira(user.Balance),
		utils.FormatNaira(user.TotalCredit), utils.FormatNaira(user.TotalDebit),
		linked,
		onOff(user.AllowFacePayments), onOff(user.AllowVoicePayments),
		onOff(user.AllowTelegramPayments), onOff(user.AllowWhatsappPayments),
		user.AccountAgeDays())
}

func onOff(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}

func (e *Engine) transactionHistory(userID uint) (string, error) {
	txs, err := e.store.GetRecentTransactions(userID, 10)
	if err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return "📊 You have no transactions yet.", nil
	}

	var b strings.Builder
	b.WriteString("📊 <b>Recent Transactions</b>\n\n")
	for _, tx := range txs {
		sign := "−"
		if tx.Type == models.TxTypeCredit {
			sign = "+"
		}
		fmt.Fprintf(&b, "%s %s%s · %s\n%s · %s\n\n",
			statusGlyph(tx.Status), sign, utils.FormatNaira(tx.Amount),
			tx.Description, tx.Reference, tx.CreatedAt.Format("Jan 2, 3:04 PM"))
	}
	return strings.TrimSpace(b.String()), nil
}

func statusGlyph(status string) string {
	switch status {
	case models.TxStatusSuccessful:
		return "✅"
	case models.TxStatusPending:
		return "⏳"
	case models.TxStatusFailed:
		return "❌"
	}
	return "🔄"
}

// transactionDigest renders a short history summary for the intent
// parser's account context. Failures degrade to "none".
func (e *Engine) transactionDigest(userID uint) string {
	txs, err := e.store.GetRecentTransactions(userID, 3)
	if err != nil || len(txs) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(txs))
	for _, tx := range txs {
		parts = append(parts, fmt.Sprintf("%s %s (%s)", tx.Type, utils.FormatNaira(tx.Amount), tx.Status))
	}
	return strings.Join(parts, "; ")
}
