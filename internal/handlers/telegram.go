package handlers

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/services"
)

// TelegramHandler receives Telegram webhook updates and feeds them to
// the engine. Replies always 200 so Telegram doesn't redeliver on
// engine-side failures; dedup handles the cases where it does anyway.
type TelegramHandler struct {
	engine *services.Engine
	sender services.ChatSender
	log    zerolog.Logger
}

func NewTelegramHandler(engine *services.Engine, sender services.ChatSender, log zerolog.Logger) *TelegramHandler {
	return &TelegramHandler{engine: engine, sender: sender, log: log}
}

// Webhook handles POST /webhook/telegram
func (h *TelegramHandler) Webhook(c *fiber.Ctx) error {
	var update tgbotapi.Update
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error",
			"error":  "invalid update payload",
		})
	}

	in := inboundFromUpdate(&update)
	if in == nil {
		// edits, channel posts and other update kinds are out of scope
		return c.JSON(fiber.Map{"status": "ok"})
	}

	if err := h.engine.Handle(c.Context(), h.sender, in); err != nil {
		h.log.Error().Err(err).Str("chat_id", in.ChatID).Msg("telegram update failed")
	}

	if update.CallbackQuery != nil {
		if ts, ok := h.sender.(*services.TelegramSender); ok {
			ts.AnswerCallback(update.CallbackQuery.ID)
		}
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func inboundFromUpdate(update *tgbotapi.Update) *services.Inbound {
	// update ids are unique per bot; message ids are only unique per chat
	updateID := strconv.Itoa(update.UpdateID)

	if cb := update.CallbackQuery; cb != nil && cb.Message != nil {
		return &services.Inbound{
			Platform:  models.PlatformTelegram,
			ChatID:    strconv.FormatInt(cb.Message.Chat.ID, 10),
			Callback:  cb.Data,
			FirstName: cb.From.FirstName,
			MessageID: updateID,
		}
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}

	in := &services.Inbound{
		Platform:  models.PlatformTelegram,
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		Text:      msg.Text,
		MessageID: updateID,
	}
	if msg.From != nil {
		in.FirstName = msg.From.FirstName
	}
	if msg.Contact != nil {
		in.Contact = msg.Contact.PhoneNumber
	}
	return in
}
