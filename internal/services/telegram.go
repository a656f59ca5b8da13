package services

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramSender delivers bot messages through the Telegram Bot API.
// Messages are HTML-formatted; the confirmation control is an inline
// URL button opening the externally hosted PIN surface.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
	log zerolog.Logger
}

// NewTelegramSender authenticates against the Bot API
func NewTelegramSender(token string, log zerolog.Logger) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot auth: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram bot authenticated")
	return &TelegramSender{bot: bot, log: log}, nil
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad telegram chat id %q: %w", chatID, err)
	}
	return id, nil
}

func (t *TelegramSender) SendText(chatID, text string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = t.bot.Send(msg)
	return err
}

func (t *TelegramSender) SendContactRequest(chatID, text string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeHTML
	keyboard := tgbotapi.NewOneTimeReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact("📱 Share my phone number"),
		),
	)
	keyboard.ResizeKeyboard = true
	msg.ReplyMarkup = keyboard
	_, err = t.bot.Send(msg)
	return err
}

func (t *TelegramSender) SendRecipientOptions(chatID, text string, options []RecipientOption) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options))
	for _, opt := range options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(opt.Label, opt.CallbackData),
		))
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = t.bot.Send(msg)
	return err
}

func (t *TelegramSender) SendConfirmationLink(chatID, text, buttonLabel, url string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(buttonLabel, url),
		),
	)
	_, err = t.bot.Send(msg)
	return err
}

// AnswerCallback acknowledges an inline button press so the client
// stops showing its spinner
func (t *TelegramSender) AnswerCallback(callbackID string) {
	if _, err := t.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		t.log.Warn().Err(err).Msg("failed to answer callback query")
	}
}
