package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/utils"
)

// MemoryStore holds all data in memory. Not for production; it backs
// tests and local development without Postgres.
type MemoryStore struct {
	mu sync.RWMutex

	users         map[uint]*models.User
	sessions      map[string]*models.ChatSession // keyed by platform|chatID
	links         map[string]*models.LinkedAccount
	otps          map[string]*models.OTPCode // keyed by phone
	messages      []*models.Message
	transactions  map[uint]*models.Transaction
	tokens        map[uint]*models.ConfirmationToken
	notifications []*models.Notification

	nextID uint
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[uint]*models.User),
		sessions:     make(map[string]*models.ChatSession),
		links:        make(map[string]*models.LinkedAccount),
		otps:         make(map[string]*models.OTPCode),
		transactions: make(map[uint]*models.Transaction),
		tokens:       make(map[uint]*models.ConfirmationToken),
	}
}

func (m *MemoryStore) nextIDLocked() uint {
	m.nextID++
	return m.nextID
}

func sessionKey(platform models.Platform, chatID string) string {
	return string(platform) + "|" + chatID
}

func linkKey(userID uint, platform models.Platform) string {
	return fmt.Sprintf("%d|%s", userID, platform)
}

// AddUser seeds an account; intended for tests and fixtures
func (m *MemoryStore) AddUser(user *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		user.ID = m.nextIDLocked()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	m.users[user.ID] = user
	return user
}

// Session operations

func (m *MemoryStore) GetOrCreateSession(platform models.Platform, chatID string) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(platform, chatID)
	if session, ok := m.sessions[key]; ok {
		return session, nil
	}

	session := &models.ChatSession{
		Platform: platform,
		ChatID:   chatID,
		State:    models.StateStart,
	}
	session.ID = m.nextIDLocked()
	session.CreatedAt = time.Now()
	m.sessions[key] = session
	return session, nil
}

func (m *MemoryStore) UpdateSessionState(platform models.Platform, chatID string, state models.SessionState, tempData *models.TempData, userID *uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionKey(platform, chatID)]
	if !ok {
		return ErrNotFound
	}
	if err := session.EncodeTempData(tempData); err != nil {
		return err
	}
	session.State = state
	if userID != nil {
		session.UserID = userID
	}
	session.UpdatedAt = time.Now()
	return nil
}

// User operations

func (m *MemoryStore) GetUserByID(id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

func (m *MemoryStore) GetUserByPhone(phone string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.PhoneNumber == phone {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return ErrNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *MemoryStore) SearchRecipients(query string, excludeID uint, limit int) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)
	var matches []*models.User
	for _, user := range m.users {
		if user.ID == excludeID {
			continue
		}
		full := strings.ToLower(user.FullName())
		first := strings.ToLower(user.FirstName)
		if strings.Contains(full, needle) || strings.Contains(first, needle) || user.PhoneNumber == query {
			matches = append(matches, user)
		}
	}
	// map iteration order is random; keep candidate lists stable
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Linked account operations

func (m *MemoryStore) GetLinkedAccount(userID uint, platform models.Platform) (*models.LinkedAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[linkKey(userID, platform)]
	if !ok {
		return nil, ErrNotFound
	}
	return link, nil
}

func (m *MemoryStore) UpsertLinkedAccount(userID uint, platform models.Platform, platformID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := linkKey(userID, platform)
	if link, ok := m.links[key]; ok {
		link.PlatformID = platformID
		link.UpdatedAt = time.Now()
		return nil
	}
	link := &models.LinkedAccount{
		UserID:     userID,
		Platform:   platform,
		PlatformID: platformID,
	}
	link.ID = m.nextIDLocked()
	link.CreatedAt = time.Now()
	m.links[key] = link
	return nil
}

// OTP operations

func (m *MemoryStore) UpsertOTP(phone, chatID, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if otp, ok := m.otps[phone]; ok {
		otp.ChatID = chatID
		otp.Code = code
		otp.ExpiresAt = expiresAt
		otp.Used = false
		otp.UpdatedAt = time.Now()
		return nil
	}
	otp := &models.OTPCode{
		PhoneNumber: phone,
		ChatID:      chatID,
		Code:        code,
		ExpiresAt:   expiresAt,
	}
	otp.ID = m.nextIDLocked()
	otp.CreatedAt = time.Now()
	m.otps[phone] = otp
	return nil
}

func (m *MemoryStore) GetActiveOTP(phone, code string) (*models.OTPCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	otp, ok := m.otps[phone]
	if !ok || otp.Code != code || !otp.Active(time.Now()) {
		return nil, ErrNotFound
	}
	return otp, nil
}

func (m *MemoryStore) MarkOTPUsed(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, otp := range m.otps {
		if otp.ID == id {
			otp.Used = true
			return nil
		}
	}
	return ErrNotFound
}

// Message log

func (m *MemoryStore) LogMessage(msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg.ID = m.nextIDLocked()
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MemoryStore) SeenPlatformMessage(platform models.Platform, platformMessageID string) (bool, error) {
	if platformMessageID == "" {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, msg := range m.messages {
		if msg.Platform == platform && msg.PlatformMessageID == platformMessageID {
			return true, nil
		}
	}
	return false, nil
}

// Messages returns the audit log; intended for tests
func (m *MemoryStore) Messages() []*models.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Transaction operations

func (m *MemoryStore) GetRecentTransactions(userID uint, limit int) ([]*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var txns []*models.Transaction
	for _, txn := range m.transactions {
		if txn.UserID == userID {
			txns = append(txns, txn)
		}
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].CreatedAt.After(txns[j].CreatedAt) })
	if len(txns) > limit {
		txns = txns[:limit]
	}
	return txns, nil
}

func (m *MemoryStore) GetTransaction(id uint) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txn, ok := m.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return txn, nil
}

// Transfer gate

func (m *MemoryStore) CreatePendingTransfer(txn *models.Transaction, token *models.ConfirmationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn.ID = m.nextIDLocked()
	txn.CreatedAt = time.Now()
	m.transactions[txn.ID] = txn

	token.ID = m.nextIDLocked()
	token.CreatedAt = time.Now()
	token.TransactionID = txn.ID
	m.tokens[token.ID] = token
	return nil
}

func (m *MemoryStore) GetActiveToken(token string) (*models.ConfirmationToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, row := range m.tokens {
		if row.Token == token && row.Active(time.Now()) {
			return row, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) SettleTransfer(token *models.ConfirmationToken) (*SettlementResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.tokens[token.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if stored.Used {
		return nil, ErrTokenConsumed
	}

	// Validate the whole unit before mutating anything, mirroring the
	// database transaction's all-or-nothing behavior.
	txn, ok := m.transactions[stored.TransactionID]
	if !ok {
		return nil, fmt.Errorf("pending transaction %d: %w", stored.TransactionID, ErrNotFound)
	}
	sender, ok := m.users[stored.UserID]
	if !ok {
		return nil, fmt.Errorf("sender %d: %w", stored.UserID, ErrNotFound)
	}
	recipient, ok := m.users[stored.RecipientID]
	if !ok {
		return nil, fmt.Errorf("recipient %d: %w", stored.RecipientID, ErrNotFound)
	}
	if sender.Balance < txn.Amount {
		return nil, ErrInsufficientBalance
	}

	stored.Used = true
	sender.Balance -= txn.Amount
	sender.TotalDebit += txn.Amount
	recipient.Balance += txn.Amount
	recipient.TotalCredit += txn.Amount
	txn.Status = models.TxStatusSuccessful

	label := platformLabel(stored.Platform)
	creditLeg := &models.Transaction{
		UserID:      recipient.ID,
		Reference:   utils.NewTransactionReference(),
		Amount:      txn.Amount,
		Feature:     txn.Feature,
		Type:        models.TxTypeCredit,
		Status:      models.TxStatusSuccessful,
		Description: fmt.Sprintf("Received from %s via %s", sender.FirstName, label),
	}
	creditLeg.ID = m.nextIDLocked()
	creditLeg.CreatedAt = time.Now()
	m.transactions[creditLeg.ID] = creditLeg

	amount := utils.FormatNaira(txn.Amount)
	m.notifications = append(m.notifications,
		&models.Notification{
			UserID:        sender.ID,
			Content:       fmt.Sprintf("You sent %s to %s via %s", amount, recipient.FullName(), label),
			Type:          "wallet",
			TransactionID: txn.ID,
		},
		&models.Notification{
			UserID:        recipient.ID,
			Content:       fmt.Sprintf("You received %s from %s via %s", amount, sender.FirstName, label),
			Type:          "wallet",
			TransactionID: creditLeg.ID,
		},
	)

	return &SettlementResult{
		Reference:     txn.Reference,
		Amount:        txn.Amount,
		SenderName:    sender.FullName(),
		RecipientName: recipient.FullName(),
		Platform:      stored.Platform,
		ChatID:        stored.ChatID,
	}, nil
}

// Notifications

func (m *MemoryStore) CreateNotification(n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

// Notifications returns created notifications; intended for tests
func (m *MemoryStore) Notifications() []*models.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

// Tokens returns all confirmation tokens; intended for tests
func (m *MemoryStore) Tokens() []*models.ConfirmationToken {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ConfirmationToken
	for _, t := range m.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PendingTransactions returns transactions in pending status; for tests
func (m *MemoryStore) PendingTransactions() []*models.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Transaction
	for _, t := range m.transactions {
		if t.Status == models.TxStatusPending {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
