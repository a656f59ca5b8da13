package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/storage"
	"github.com/souktrain/gestpay-backend/internal/utils"
)

const (
	confirmationTTL = 15 * time.Minute
	maxCandidates   = 5
)

// TransferService drives internal peer-to-peer transfers: recipient
// resolution, disambiguation, the pending transaction + confirmation
// token pair, and the PIN-gated settlement.
type TransferService struct {
	store          storage.Store
	webviewBaseURL string
	log            zerolog.Logger
}

func NewTransferService(store storage.Store, webviewBaseURL string, log zerolog.Logger) *TransferService {
	return &TransferService{store: store, webviewBaseURL: webviewBaseURL, log: log}
}

func channelAllowed(user *models.User, platform models.Platform) bool {
	switch platform {
	case models.PlatformTelegram:
		return user.AllowTelegramPayments
	case models.PlatformWhatsapp:
		return user.AllowWhatsappPayments
	}
	return false
}

func featureFor(platform models.Platform) string {
	if platform == models.PlatformWhatsapp {
		return models.FeatureWhatsappPay
	}
	return models.FeatureTelegramPay
}

// HandleInternalTransfer resolves the recipient named in the intent and
// either initiates the transfer (single match) or asks the user to pick
// (2-5 matches). Zero matches aborts with no transaction created.
func (t *TransferService) HandleInternalTransfer(sender ChatSender, session *models.ChatSession, user *models.User, amount float64, recipientQuery string) (string, error) {
	if amount <= 0 {
		reply := "How much would you like to send? Please include an amount, e.g. \"send 5000 to Ada\"."
		return reply, sender.SendText(session.ReplyTo, reply)
	}
	if strings.TrimSpace(recipientQuery) == "" {
		reply := "Who would you like to send money to? Please include a name or phone number."
		return reply, sender.SendText(session.ReplyTo, reply)
	}
	if !channelAllowed(user, session.Platform) {
		reply := "Payments are disabled for this channel on your account. You can enable them in the GestPay app under Settings → Payment Channels."
		return reply, sender.SendText(session.ReplyTo, reply)
	}
	if user.Balance < amount {
		reply := fmt.Sprintf("Insufficient balance. Your balance is %s but you asked to send %s.",
			utils.FormatNaira(user.Balance), utils.FormatNaira(amount))
		return reply, sender.SendText(session.ReplyTo, reply)
	}

	matches, err := t.store.SearchRecipients(recipientQuery, user.ID, maxCandidates)
	if err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		reply := fmt.Sprintf("No GestPay user found matching \"%s\". Please check the name or phone number and try again.", recipientQuery)
		return reply, sender.SendText(session.ReplyTo, reply)
	case 1:
		return t.InitiateTransfer(sender, session, user, matches[0], amount)
	default:
		return t.promptSelection(sender, session, matches, amount)
	}
}

func (t *TransferService) promptSelection(sender ChatSender, session *models.ChatSession, matches []*models.User, amount float64) (string, error) {
	candidates := make([]models.RecipientCandidate, 0, len(matches))
	options := make([]RecipientOption, 0, len(matches))

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d people matching that name. Who do you mean?\n\n", len(matches))
	for i, m := range matches {
		masked := maskPhone(m.PhoneNumber)
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, m.FullName(), masked)
		candidates = append(candidates, models.RecipientCandidate{
			UserID:      m.ID,
			FirstName:   m.FirstName,
			LastName:    m.LastName,
			PhoneNumber: m.PhoneNumber,
		})
		options = append(options, RecipientOption{
			Label:        fmt.Sprintf("%s (%s)", m.FullName(), masked),
			CallbackData: fmt.Sprintf("transfer:%d:%.2f", m.ID, amount),
		})
	}
	b.WriteString("\nReply with the number of your choice.")

	td := &models.TempData{AwaitingSelection: &models.AwaitingSelectionData{
		Amount:     amount,
		Candidates: candidates,
	}}
	if err := t.store.UpdateSessionState(session.Platform, session.ChatID, models.StateAwaitingSelection, td, session.UserID); err != nil {
		return "", err
	}

	reply := b.String()
	return reply, sender.SendRecipientOptions(session.ReplyTo, reply, options)
}

// maskPhone keeps the first 4 and last 3 digits visible
func maskPhone(phone string) string {
	if len(phone) < 8 {
		return phone
	}
	return phone[:4] + strings.Repeat("*", len(phone)-7) + phone[len(phone)-3:]
}

// HandleSelection resolves a numbered reply typed during
// awaiting_selection. Non-numeric or out-of-range input re-prompts
// without losing the candidate list.
func (t *TransferService) HandleSelection(sender ChatSender, session *models.ChatSession, user *models.User, input string) (string, error) {
	td, err := session.DecodeTempData()
	if err != nil {
		return "", err
	}
	if td.AwaitingSelection == nil || len(td.AwaitingSelection.Candidates) == 0 {
		reply := "That selection has expired. Please start the transfer again."
		if err := t.store.UpdateSessionState(session.Platform, session.ChatID, models.StateLinked, nil, session.UserID); err != nil {
			return "", err
		}
		return reply, sender.SendText(session.ReplyTo, reply)
	}

	choice, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || choice < 1 || choice > len(td.AwaitingSelection.Candidates) {
		reply := fmt.Sprintf("Please reply with a number between 1 and %d.", len(td.AwaitingSelection.Candidates))
		return reply, sender.SendText(session.ReplyTo, reply)
	}

	picked := td.AwaitingSelection.Candidates[choice-1]
	recipient, err := t.store.GetUserByID(picked.UserID)
	if err != nil {
		return "", err
	}

	if err := t.store.UpdateSessionState(session.Platform, session.ChatID, models.StateLinked, nil, session.UserID); err != nil {
		return "", err
	}
	return t.InitiateTransfer(sender, session, user, recipient, td.AwaitingSelection.Amount)
}

// HandleCallback resolves a "transfer:<recipient_id>:<amount>" inline
// button press.
func (t *TransferService) HandleCallback(sender ChatSender, session *models.ChatSession, user *models.User, data string) (string, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "transfer" {
		reply := "Sorry, that button is no longer valid."
		return reply, sender.SendText(session.ReplyTo, reply)
	}
	recipientID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("bad callback recipient id %q: %w", parts[1], err)
	}
	amount, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return "", fmt.Errorf("bad callback amount %q: %w", parts[2], err)
	}

	recipient, err := t.store.GetUserByID(uint(recipientID))
	if err != nil {
		return "", err
	}

	if err := t.store.UpdateSessionState(session.Platform, session.ChatID, models.StateLinked, nil, session.UserID); err != nil {
		return "", err
	}
	return t.InitiateTransfer(sender, session, user, recipient, amount)
}

// InitiateTransfer creates the pending debit transaction and its
// single-use confirmation token atomically, then sends the
// confirmation control carrying only the opaque token URL.
func (t *TransferService) InitiateTransfer(sender ChatSender, session *models.ChatSession, user *models.User, recipient *models.User, amount float64) (string, error) {
	token, err := utils.NewConfirmationToken()
	if err != nil {
		return "", err
	}

	tx := &models.Transaction{
		UserID:      user.ID,
		Reference:   utils.NewTransactionReference(),
		Amount:      amount,
		Feature:     featureFor(session.Platform),
		Type:        models.TxTypeDebit,
		Status:      models.TxStatusPending,
		Description: fmt.Sprintf("Transfer to %s", recipient.FullName()),
	}
	ct := &models.ConfirmationToken{
		UserID:      user.ID,
		Platform:    session.Platform,
		ChatID:      session.ReplyTo, // raw address, deliverable as-is after settlement
		RecipientID: recipient.ID,
		ActionType:  models.TokenActionTransfer,
		Token:       token,
		ExpiresAt:   time.Now().Add(confirmationTTL),
	}
	if err := t.store.CreatePendingTransfer(tx, ct); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?token=%s", t.webviewBaseURL, token)
	reply := fmt.Sprintf(
		"💸 <b>Confirm Transfer</b>\n\nAmount: %s\nTo: %s\nReference: %s\n\nTap the button below and enter your PIN to complete this transfer. The link expires in 15 minutes.",
		utils.FormatNaira(amount), recipient.FullName(), tx.Reference)

	t.log.Info().Uint("user_id", user.ID).Uint("recipient_id", recipient.ID).
		Str("reference", tx.Reference).Float64("amount", amount).Msg("transfer initiated")

	return reply, sender.SendConfirmationLink(session.ReplyTo, reply, "🔐 Confirm with PIN", url)
}

// VerifyResult is what the PIN endpoint returns on success.
type VerifyResult struct {
	Reference string
	Amount    float64
	Status    string
}

// Verification failures are deliberately generic so the endpoint never
// reveals whether a token exists, is expired, or was already used.
var (
	ErrInvalidToken        = fmt.Errorf("invalid or expired confirmation link")
	ErrInvalidPIN          = fmt.Errorf("incorrect PIN")
	ErrInsufficientBalance = fmt.Errorf("insufficient balance")
)

// VerifyPIN settles the transfer guarded by token if the PIN matches
// and funds remain sufficient. A wrong PIN or short balance leaves the
// token live for another attempt within its window.
func (t *TransferService) VerifyPIN(senders map[models.Platform]ChatSender, token, pin string) (*VerifyResult, error) {
	ct, err := t.store.GetActiveToken(token)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	user, err := t.store.GetUserByID(ct.UserID)
	if err != nil {
		return nil, err
	}
	if !user.CheckPIN(pin) {
		return nil, ErrInvalidPIN
	}

	tx, err := t.store.GetTransaction(ct.TransactionID)
	if err != nil {
		return nil, err
	}
	if user.Balance < tx.Amount {
		return nil, ErrInsufficientBalance
	}

	result, err := t.store.SettleTransfer(ct)
	if err != nil {
		switch err {
		case storage.ErrTokenConsumed:
			return nil, ErrInvalidToken
		case storage.ErrInsufficientBalance:
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}

	t.log.Info().Str("reference", result.Reference).Float64("amount", result.Amount).Msg("transfer settled")

	if sender, ok := senders[result.Platform]; ok && sender != nil {
		msg := fmt.Sprintf("✅ Transfer successful!\n\n%s sent to %s.\nReference: %s",
			utils.FormatNaira(result.Amount), result.RecipientName, result.Reference)
		if err := sender.SendText(result.ChatID, msg); err != nil {
			t.log.Warn().Err(err).Str("chat_id", result.ChatID).Msg("settlement confirmation send failed")
		}
	}

	return &VerifyResult{
		Reference: result.Reference,
		Amount:    result.Amount,
		Status:    models.TxStatusSuccessful,
	}, nil
}
