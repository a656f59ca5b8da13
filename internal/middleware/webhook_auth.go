package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// TelegramAuth rejects webhook calls whose X-Telegram-Bot-Api-Secret-Token
// header does not match the secret registered with setWebhook. An empty
// configured secret disables the check (local development).
func TelegramAuth(secret string, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}
		got := c.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			log.Warn().Str("ip", c.IP()).Msg("telegram webhook secret mismatch")
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.Next()
	}
}

// MetaSignature validates X-Hub-Signature-256 on WhatsApp webhook
// POSTs: HMAC-SHA256 of the raw body keyed with the app secret. An
// empty configured secret disables the check.
func MetaSignature(appSecret string, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if appSecret == "" {
			return c.Next()
		}

		header := c.Get("X-Hub-Signature-256")
		sig, ok := strings.CutPrefix(header, "sha256=")
		if !ok {
			log.Warn().Str("ip", c.IP()).Msg("whatsapp webhook missing signature")
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		mac := hmac.New(sha256.New, []byte(appSecret))
		mac.Write(c.Body())
		want := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(sig), []byte(want)) {
			log.Warn().Str("ip", c.IP()).Msg("whatsapp webhook signature mismatch")
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.Next()
	}
}
