package handlers

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/souktrain/gestpay-backend/internal/config"
)

func verifyApp() *fiber.App {
	h := NewWhatsAppHandler(nil, nil, config.WhatsAppConfig{VerifyToken: "secret-verify"}, zerolog.Nop())
	app := fiber.New()
	app.Get("/webhook/whatsapp", h.Verify)
	return app
}

func TestWhatsAppVerifyHandshake(t *testing.T) {
	app := verifyApp()

	req := httptest.NewRequest("GET",
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=secret-verify&hub.challenge=12345", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "12345" {
		t.Fatalf("body = %q, want challenge echo", body)
	}
}

func TestWhatsAppVerifyRejectsBadToken(t *testing.T) {
	app := verifyApp()

	req := httptest.NewRequest("GET",
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestWhatsAppVerifyRejectsMissingMode(t *testing.T) {
	app := verifyApp()

	req := httptest.NewRequest("GET",
		"/webhook/whatsapp?hub.verify_token=secret-verify&hub.challenge=12345", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}
