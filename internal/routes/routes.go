package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/souktrain/gestpay-backend/internal/config"
	"github.com/souktrain/gestpay-backend/internal/handlers"
	"github.com/souktrain/gestpay-backend/internal/middleware"
	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/services"
)

// Deps carries everything the route table wires together.
type Deps struct {
	Engine   *services.Engine
	Transfer *services.TransferService
	Senders  map[models.Platform]services.ChatSender
	Config   *config.Config
	DB       *gorm.DB // nil on the memory store
	Log      zerolog.Logger
}

// Setup registers all routes
func Setup(app *fiber.App, d Deps) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "GestPay Bot Engine",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":           "/health",
				"telegram_webhook": "/webhook/telegram",
				"whatsapp_webhook": "/webhook/whatsapp",
				"verify_pin":       "/api/verify-pin",
			},
		})
	})

	health := handlers.NewHealthHandler(d.DB)
	app.Get("/health", health.Health)

	webhooks := app.Group("/webhook")

	tg := handlers.NewTelegramHandler(d.Engine, d.Senders[models.PlatformTelegram], d.Log)
	webhooks.Post("/telegram",
		middleware.TelegramAuth(d.Config.Telegram.WebhookSecret, d.Log),
		tg.Webhook)

	wa := handlers.NewWhatsAppHandler(d.Engine, d.Senders[models.PlatformWhatsapp], d.Config.WhatsApp, d.Log)
	webhooks.Get("/whatsapp", wa.Verify)
	webhooks.Post("/whatsapp",
		middleware.MetaSignature(d.Config.WhatsApp.AppSecret, d.Log),
		wa.Webhook)

	verify := handlers.NewVerifyHandler(d.Transfer, d.Senders, d.Log)
	app.Post("/api/verify-pin", verify.VerifyPIN)
}
