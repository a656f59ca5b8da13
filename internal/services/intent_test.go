package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/souktrain/gestpay-backend/internal/config"
	"github.com/souktrain/gestpay-backend/internal/models"
)

func intentServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			resp := map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"role": "assistant", "content": content}},
				},
			}
			_ = json.NewEncoder(w).Encode(resp)
		} else {
			fmt.Fprint(w, `{"error":"boom"}`)
		}
	}))
}

func testParser(url string) *ChatCompletionParser {
	return NewChatCompletionParser(config.AIConfig{
		BaseURL:     url,
		APIKey:      "test-key",
		Model:       "test-model",
		Temperature: 0.3,
		MaxTokens:   300,
		Timeout:     config.Duration{Duration: 5 * time.Second},
	}, testLogger())
}

func TestParseIntentSuccess(t *testing.T) {
	content := `{"action":"transfer_internal","parameters":{"amount":5000,"recipient":"Ada"},"message":"Sending ₦5,000 to Ada"}`
	srv := intentServer(t, http.StatusOK, content)
	defer srv.Close()

	intent, err := testParser(srv.URL).ParseIntent(context.Background(), "send 5k to Ada", &AccountContext{
		Name: "Chidi Okafor", Balance: 20000, RecentTransactions: "none", AccountAgeDays: 30,
	})
	if err != nil {
		t.Fatalf("ParseIntent: %v", err)
	}
	if intent.Action != models.ActionTransferInternal {
		t.Errorf("action = %q", intent.Action)
	}
	if float64(intent.Parameters.Amount) != 5000 {
		t.Errorf("amount = %v, want 5000", intent.Parameters.Amount)
	}
	if intent.Parameters.Recipient != "Ada" {
		t.Errorf("recipient = %q", intent.Parameters.Recipient)
	}
}

func TestParseIntentStringAmount(t *testing.T) {
	content := `{"action":"transfer_internal","parameters":{"amount":"2,500","recipient":"Ngozi"},"message":"ok"}`
	srv := intentServer(t, http.StatusOK, content)
	defer srv.Close()

	intent, err := testParser(srv.URL).ParseIntent(context.Background(), "pay Ngozi 2500", nil)
	if err != nil {
		t.Fatalf("ParseIntent: %v", err)
	}
	if float64(intent.Parameters.Amount) != 2500 {
		t.Errorf("amount = %v, want 2500", intent.Parameters.Amount)
	}
}

func TestParseIntentFencedContent(t *testing.T) {
	content := "```json\n{\"action\":\"get_balance\",\"parameters\":{},\"message\":\"Checking\"}\n```"
	srv := intentServer(t, http.StatusOK, content)
	defer srv.Close()

	intent, err := testParser(srv.URL).ParseIntent(context.Background(), "balance", nil)
	if err != nil {
		t.Fatalf("ParseIntent: %v", err)
	}
	if intent.Action != models.ActionGetBalance {
		t.Errorf("action = %q", intent.Action)
	}
}

func TestParseIntentNon200(t *testing.T) {
	srv := intentServer(t, http.StatusBadGateway, "")
	defer srv.Close()

	if _, err := testParser(srv.URL).ParseIntent(context.Background(), "hello", nil); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestParseIntentNonJSONContent(t *testing.T) {
	srv := intentServer(t, http.StatusOK, "I'm sorry, I can't help with that.")
	defer srv.Close()

	if _, err := testParser(srv.URL).ParseIntent(context.Background(), "hello", nil); err == nil {
		t.Fatal("expected error on non-JSON content")
	}
}

func TestParseIntentMissingAction(t *testing.T) {
	srv := intentServer(t, http.StatusOK, `{"parameters":{},"message":"hi"}`)
	defer srv.Close()

	if _, err := testParser(srv.URL).ParseIntent(context.Background(), "hello", nil); err == nil {
		t.Fatal("expected error on missing action")
	}
}

func TestParseIntentUnknownAction(t *testing.T) {
	srv := intentServer(t, http.StatusOK, `{"action":"do_magic","parameters":{},"message":"hi"}`)
	defer srv.Close()

	intent, err := testParser(srv.URL).ParseIntent(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("ParseIntent: %v", err)
	}
	if intent.Action != models.ActionUnknown {
		t.Errorf("action = %q, want unknown", intent.Action)
	}
}

func TestStripCodeFence(t *testing.T) {
	plain := `{"a":1}`
	if got := stripCodeFence(plain); got != plain {
		t.Errorf("plain content mangled: %q", got)
	}
	fenced := "```json\n{\"a\":1}\n```"
	if got := stripCodeFence(fenced); got != plain {
		t.Errorf("fenced content = %q, want %q", got, plain)
	}
	if !strings.Contains(stripCodeFence("```\n{\"a\":1}\n```"), `"a"`) {
		t.Error("bare fence not stripped")
	}
}
