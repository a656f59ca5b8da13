package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/utils"
)

// DatabaseStore implements Store on PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Session operations

func (s *DatabaseStore) GetOrCreateSession(platform models.Platform, chatID string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.db.Where("platform = ? AND chat_id = ?", platform, chatID).First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	session = models.ChatSession{
		Platform: platform,
		ChatID:   chatID,
		State:    models.StateStart,
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *DatabaseStore) UpdateSessionState(platform models.Platform, chatID string, state models.SessionState, tempData *models.TempData, userID *uint) error {
	var scratch models.ChatSession
	if err := scratch.EncodeTempData(tempData); err != nil {
		return err
	}

	updates := map[string]interface{}{
		"state":     state,
		"temp_data": scratch.TempData,
	}
	if userID != nil {
		updates["user_id"] = *userID
	}

	res := s.db.Model(&models.ChatSession{}).
		Where("platform = ? AND chat_id = ?", platform, chatID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// User operations

func (s *DatabaseStore) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *DatabaseStore) GetUserByPhone(phone string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("phone_number = ?", phone).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *DatabaseStore) UpdateUser(user *models.User) error {
	return s.db.Save(user).Error
}

func (s *DatabaseStore) SearchRecipients(query string, excludeID uint, limit int) ([]*models.User, error) {
	var users []*models.User
	pattern := "%" + strings.ToLower(query) + "%"
	err := s.db.
		Where("(LOWER(first_name || ' ' || last_name) LIKE ? OR LOWER(first_name) LIKE ? OR phone_number = ?) AND id <> ?",
			pattern, pattern, query, excludeID).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Linked account operations

func (s *DatabaseStore) GetLinkedAccount(userID uint, platform models.Platform) (*models.LinkedAccount, error) {
	var link models.LinkedAccount
	err := s.db.Where("user_id = ? AND platform = ?", userID, platform).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (s *DatabaseStore) UpsertLinkedAccount(userID uint, platform models.Platform, platformID string) error {
	link := models.LinkedAccount{
		UserID:     userID,
		Platform:   platform,
		PlatformID: platformID,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{"platform_id", "updated_at"}),
	}).Create(&link).Error
}

// OTP operations

func (s *DatabaseStore) UpsertOTP(phone, chatID, code string, expiresAt time.Time) error {
	otp := models.OTPCode{
		PhoneNumber: phone,
		ChatID:      chatID,
		Code:        code,
		ExpiresAt:   expiresAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone_number"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"chat_id":    chatID,
			"code":       code,
			"expires_at": expiresAt,
			"used":       false,
		}),
	}).Create(&otp).Error
}

func (s *DatabaseStore) GetActiveOTP(phone, code string) (*models.OTPCode, error) {
	var otp models.OTPCode
	err := s.db.
		Where("phone_number = ? AND code = ? AND used = ? AND expires_at > ?", phone, code, false, time.Now()).
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &otp, nil
}

func (s *DatabaseStore) MarkOTPUsed(id uint) error {
	return s.db.Model(&models.OTPCode{}).Where("id = ?", id).Update("used", true).Error
}

// Message log

func (s *DatabaseStore) LogMessage(msg *models.Message) error {
	return s.db.Create(msg).Error
}

func (s *DatabaseStore) SeenPlatformMessage(platform models.Platform, platformMessageID string) (bool, error) {
	if platformMessageID == "" {
		return false, nil
	}
	var count int64
	err := s.db.Model(&models.Message{}).
		Where("platform = ? AND platform_message_id = ?", platform, platformMessageID).
		Count(&count).Error
	return count > 0, err
}

// Transaction operations

func (s *DatabaseStore) GetRecentTransactions(userID uint, limit int) ([]*models.Transaction, error) {
	var txns []*models.Transaction
	err := s.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (s *DatabaseStore) GetTransaction(id uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.First(&txn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}

// Transfer gate

func (s *DatabaseStore) CreatePendingTransfer(txn *models.Transaction, token *models.ConfirmationToken) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return err
		}
		token.TransactionID = txn.ID
		return tx.Create(token).Error
	})
}

func (s *DatabaseStore) GetActiveToken(token string) (*models.ConfirmationToken, error) {
	var row models.ConfirmationToken
	err := s.db.
		Where("token = ? AND used = ? AND expires_at > ?", token, false, time.Now()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// SettleTransfer performs the atomic settlement unit: consume the token
// (check-and-set on the used flag), debit the sender, credit the
// recipient, mark the pending transaction successful and create the
// mirrored credit leg plus notifications. Any failure rolls the whole
// unit back, leaving the token unconsumed and balances untouched.
func (s *DatabaseStore) SettleTransfer(token *models.ConfirmationToken) (*SettlementResult, error) {
	var result *SettlementResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ConfirmationToken{}).
			Where("id = ? AND used = ?", token.ID, false).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenConsumed
		}

		var txn models.Transaction
		if err := tx.First(&txn, token.TransactionID).Error; err != nil {
			return fmt.Errorf("pending transaction %d: %w", token.TransactionID, err)
		}

		var sender, recipient models.User
		if err := tx.First(&sender, token.UserID).Error; err != nil {
			return fmt.Errorf("sender %d: %w", token.UserID, err)
		}
		if err := tx.First(&recipient, token.RecipientID).Error; err != nil {
			return fmt.Errorf("recipient %d: %w", token.RecipientID, err)
		}

		if sender.Balance < txn.Amount {
			return ErrInsufficientBalance
		}

		err := tx.Model(&sender).UpdateColumns(map[string]interface{}{
			"balance":     gorm.Expr("balance - ?", txn.Amount),
			"total_debit": gorm.Expr("total_debit + ?", txn.Amount),
		}).Error
		if err != nil {
			return err
		}

		err = tx.Model(&recipient).UpdateColumns(map[string]interface{}{
			"balance":      gorm.Expr("balance + ?", txn.Amount),
			"total_credit": gorm.Expr("total_credit + ?", txn.Amount),
		}).Error
		if err != nil {
			return err
		}

		if err := tx.Model(&txn).Update("status", models.TxStatusSuccessful).Error; err != nil {
			return err
		}

		label := platformLabel(token.Platform)
		creditLeg := models.Transaction{
			UserID:      recipient.ID,
			Reference:   utils.NewTransactionReference(),
			Amount:      txn.Amount,
			Feature:     txn.Feature,
			Type:        models.TxTypeCredit,
			Status:      models.TxStatusSuccessful,
			Description: fmt.Sprintf("Received from %s via %s", sender.FirstName, label),
		}
		if err := tx.Create(&creditLeg).Error; err != nil {
			return err
		}

		amount := utils.FormatNaira(txn.Amount)
		notifications := []models.Notification{
			{
				UserID:        sender.ID,
				Content:       fmt.Sprintf("You sent %s to %s via %s", amount, recipient.FullName(), label),
				Type:          "wallet",
				TransactionID: txn.ID,
			},
			{
				UserID:        recipient.ID,
				Content:       fmt.Sprintf("You received %s from %s via %s", amount, sender.FirstName, label),
				Type:          "wallet",
				TransactionID: creditLeg.ID,
			},
		}
		if err := tx.Create(&notifications).Error; err != nil {
			return err
		}

		result = &SettlementResult{
			Reference:     txn.Reference,
			Amount:        txn.Amount,
			SenderName:    sender.FullName(),
			RecipientName: recipient.FullName(),
			Platform:      token.Platform,
			ChatID:        token.ChatID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Notifications

func (s *DatabaseStore) CreateNotification(n *models.Notification) error {
	return s.db.Create(n).Error
}

func platformLabel(p models.Platform) string {
	if p == models.PlatformWhatsapp {
		return "WhatsApp"
	}
	return "Telegram"
}
