package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/souktrain/gestpay-backend/internal/config"
	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/services"
)

// WhatsAppHandler receives WhatsApp Cloud API webhook calls: the GET
// subscription handshake and POSTed message notifications.
type WhatsAppHandler struct {
	engine      *services.Engine
	sender      services.ChatSender
	verifyToken string
	log         zerolog.Logger
}

func NewWhatsAppHandler(engine *services.Engine, sender services.ChatSender, cfg config.WhatsAppConfig, log zerolog.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{
		engine:      engine,
		sender:      sender,
		verifyToken: cfg.VerifyToken,
		log:         log,
	}
}

// Verify handles GET /webhook/whatsapp, Meta's subscription handshake:
// echo hub.challenge when hub.verify_token matches, 403 otherwise.
func (h *WhatsAppHandler) Verify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken && challenge != "" {
		return c.SendString(challenge)
	}
	return c.SendStatus(fiber.StatusForbidden)
}

// waWebhookPayload mirrors the Cloud API notification envelope down to
// the fields the engine needs.
type waWebhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					ID   string `json:"id"`
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
				Contacts []struct {
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// Webhook handles POST /webhook/whatsapp. Status-only notifications
// (deliveries, read receipts) carry no messages and are acknowledged
// without engine work.
func (h *WhatsAppHandler) Webhook(c *fiber.Ctx) error {
	var payload waWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error",
			"error":  "invalid webhook payload",
		})
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			v := change.Value
			if len(v.Messages) == 0 {
				continue
			}
			msg := v.Messages[0]
			if msg.Type != "text" {
				continue
			}

			in := &services.Inbound{
				Platform:  models.PlatformWhatsapp,
				ChatID:    msg.From,
				Text:      msg.Text.Body,
				MessageID: msg.ID,
			}
			if len(v.Contacts) > 0 {
				in.FirstName = v.Contacts[0].Profile.Name
			}

			if err := h.engine.Handle(c.Context(), h.sender, in); err != nil {
				h.log.Error().Err(err).Str("from", msg.From).Msg("whatsapp message failed")
			}
		}
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
