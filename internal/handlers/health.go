package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/souktrain/gestpay-backend/internal/models"
)

// HealthHandler reports service liveness and, when Postgres is in use,
// basic row counts for a quick operational glance.
type HealthHandler struct {
	db *gorm.DB // nil when running on the memory store
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":  "ok",
		"service": "gestpay-bot",
	}

	if h.db != nil {
		var users, sessions, transactions int64
		h.db.Model(&models.User{}).Count(&users)
		h.db.Model(&models.ChatSession{}).Count(&sessions)
		h.db.Model(&models.Transaction{}).Count(&transactions)
		resp["counts"] = fiber.Map{
			"users":        users,
			"sessions":     sessions,
			"transactions": transactions,
		}
	}

	return c.JSON(resp)
}
