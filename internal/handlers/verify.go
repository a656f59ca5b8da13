package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/services"
)

// VerifyHandler backs the PIN-entry confirmation surface. The webview
// POSTs the opaque token plus the user's PIN; a success settles the
// transfer.
type VerifyHandler struct {
	transfer *services.TransferService
	senders  map[models.Platform]services.ChatSender
	log      zerolog.Logger
}

func NewVerifyHandler(transfer *services.TransferService, senders map[models.Platform]services.ChatSender, log zerolog.Logger) *VerifyHandler {
	return &VerifyHandler{transfer: transfer, senders: senders, log: log}
}

type verifyRequest struct {
	Token string `json:"token"`
	PIN   string `json:"pin"`
}

// VerifyPIN handles POST /api/verify-pin
func (h *VerifyHandler) VerifyPIN(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil || req.Token == "" || req.PIN == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "token and pin are required",
		})
	}

	result, err := h.transfer.VerifyPIN(h.senders, req.Token, req.PIN)
	if err != nil {
		switch err {
		case services.ErrInvalidToken, services.ErrInvalidPIN, services.ErrInsufficientBalance:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		}
		h.log.Error().Err(err).Msg("pin verification failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "something went wrong, please try again",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Transfer completed successfully",
		"data": fiber.Map{
			"reference": result.Reference,
			"amount":    result.Amount,
			"status":    result.Status,
		},
	})
}
