package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/souktrain/gestpay-backend/database"
	"github.com/souktrain/gestpay-backend/internal/config"
	applogger "github.com/souktrain/gestpay-backend/internal/logger"
	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/routes"
	"github.com/souktrain/gestpay-backend/internal/services"
	"github.com/souktrain/gestpay-backend/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		println("config error:", err.Error())
		os.Exit(1)
	}

	log := applogger.New(cfg.Log)

	// Storage
	var store storage.Store
	var db *gorm.DB
	if cfg.Database.UseMemoryStore {
		log.Warn().Msg("using in-memory storage, not for production")
		store = storage.NewMemoryStore()
	} else {
		db, err = database.Connect(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		if err := db.AutoMigrate(
			&models.User{},
			&models.ChatSession{},
			&models.LinkedAccount{},
			&models.OTPCode{},
			&models.Message{},
			&models.Transaction{},
			&models.ConfirmationToken{},
			&models.Notification{},
		); err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}
		store = storage.NewDatabaseStore(db)
		log.Info().Str("database", cfg.Database.Name).Msg("connected to postgres")
	}

	// Outbound senders, one per platform
	senders := make(map[models.Platform]services.ChatSender)

	if cfg.Telegram.BotToken != "" {
		tg, err := services.NewTelegramSender(cfg.Telegram.BotToken, log)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram sender init failed")
		}
		senders[models.PlatformTelegram] = tg
	} else {
		log.Warn().Msg("telegram bot token not set, telegram disabled")
	}

	switch cfg.WhatsApp.Transport {
	case "twilio":
		wa, err := services.NewTwilioWhatsAppSender(cfg.WhatsApp, log)
		if err != nil {
			log.Fatal().Err(err).Msg("twilio sender init failed")
		}
		senders[models.PlatformWhatsapp] = wa
	default:
		senders[models.PlatformWhatsapp] = services.NewMetaWhatsAppSender(cfg.WhatsApp, log)
	}

	// Services
	parser := services.NewChatCompletionParser(cfg.AI, log)
	linking := services.NewLinkingService(store, log)
	transfer := services.NewTransferService(store, cfg.Webview.BaseURL, log)
	engine := services.NewEngine(store, parser, linking, transfer, log)

	app := fiber.New(fiber.Config{
		AppName: "GestPay Bot Engine v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	routes.Setup(app, routes.Deps{
		Engine:   engine,
		Transfer: transfer,
		Senders:  senders,
		Config:   cfg,
		DB:       db,
		Log:      log,
	})

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("shutting down")
		_ = app.Shutdown()
	}()

	log.Info().Str("port", cfg.Server.Port).Str("environment", cfg.Server.Environment).Msg("starting server")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
