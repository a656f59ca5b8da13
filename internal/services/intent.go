package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/souktrain/gestpay-backend/internal/config"
	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/utils"
)

// Intent is the structured result of parsing one free-text turn.
type Intent struct {
	Action     models.Action
	Parameters IntentParameters
	Message    string // the model's natural-language reply
}

// IntentParameters carries the slots the model filled. Models are
// inconsistent about numbers-as-strings, so Amount tolerates both.
type IntentParameters struct {
	Amount        FlexFloat `json:"amount"`
	Recipient     string    `json:"recipient"`
	Method        string    `json:"method"`
	BankCode      string    `json:"bank_code"`
	AccountNumber string    `json:"account_number"`
}

// FlexFloat unmarshals from a JSON number, a numeric string, or null.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	// tolerate currency decoration the model sometimes echoes back
	s = strings.TrimPrefix(s, "₦")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("amount %q is not numeric: %w", s, err)
	}
	*f = FlexFloat(v)
	return nil
}

// AccountContext grounds the model's reply in the sender's account.
type AccountContext struct {
	Name               string
	Balance            float64
	RecentTransactions string
	AccountAgeDays     int
}

// IntentParser turns free text into a structured action. A nil error
// with a valid Intent is the only success; every failure mode (HTTP,
// non-JSON content, missing action) is an error, and the caller shows
// the generic fallback. No retries: one failed call is one failed turn.
type IntentParser interface {
	ParseIntent(ctx context.Context, text string, acct *AccountContext) (*Intent, error)
}

const intentSystemPrompt = `You are GestPay AI, an intelligent financial assistant for a chat-based payment system serving Nigerian users. You understand and respond in multiple Nigerian languages including English, Yoruba, Igbo, Hausa, and Nigerian Pidgin English. You help users perform banking operations and provide culturally-aware fintech advice tailored to the Nigerian financial landscape.

SUPPORTED ACTIONS:
1. get_balance - Check account balance
2. get_account_details - View account information
3. get_transaction_history - Show recent transactions
4. transfer_internal - Send money to another GestPay user
5. transfer_external - Send money to Nigerian banks (GTBank, Access, First Bank, UBA, Zenith, etc.)
6. fintech_advice - Provide Nigerian-context financial advice

Always respond in valid JSON format only. Never include natural text outside the JSON structure.

JSON RESPONSE FORMAT:
{
  "action": "<one_of_the_actions>",
  "parameters": {
    "amount": "<number_if_applicable>",
    "recipient": "<recipient_name_or_account>",
    "method": "<internal_or_external>",
    "bank_code": "<bank_code_if_external>",
    "account_number": "<account_number_if_external>"
  },
  "message": "<natural_language_response_in_user_preferred_language>"
}

RULES:
- Respond in the user's detected language
- Fill required parameters if mentioned by the user
- For missing transfer data, return null values
- Be concise and culturally sensitive
- Use the Nigerian currency format (₦)`

// ChatCompletionParser implements IntentParser against a
// chat-completions-shaped endpoint.
type ChatCompletionParser struct {
	cfg    config.AIConfig
	client *http.Client
	log    zerolog.Logger
}

// NewChatCompletionParser builds the production intent parser
func NewChatCompletionParser(cfg config.AIConfig, log zerolog.Logger) *ChatCompletionParser {
	return &ChatCompletionParser{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout.Duration},
		log:    log,
	}
}

type ccMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ccRequest struct {
	Model       string      `json:"model"`
	Temperature float64     `json:"temperature"`
	MaxTokens   int         `json:"max_tokens"`
	Stream      bool        `json:"stream"`
	Messages    []ccMessage `json:"messages"`
}

type ccResponse struct {
	Choices []struct {
		Message ccMessage `json:"message"`
	} `json:"choices"`
}

// rawIntent mirrors the model's JSON contract before validation
type rawIntent struct {
	Action     string           `json:"action"`
	Parameters IntentParameters `json:"parameters"`
	Message    string           `json:"message"`
}

func (p *ChatCompletionParser) ParseIntent(ctx context.Context, text string, acct *AccountContext) (*Intent, error) {
	userContent := text
	if acct != nil {
		userContent = fmt.Sprintf(
			"USER CONTEXT:\nName: %s\nBalance: %s\nRecent Transactions: %s\nAccount Age: %d days\n\nUSER MESSAGE: %s",
			acct.Name, utils.FormatNaira(acct.Balance), acct.RecentTransactions, acct.AccountAgeDays, text)
	}

	body := ccRequest{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		Stream:      false,
		Messages: []ccMessage{
			{Role: "system", Content: intentSystemPrompt},
			{Role: "user", Content: userContent},
		},
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("intent request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		p.log.Warn().Int("status", resp.StatusCode).Bytes("body", detail).Msg("intent endpoint returned non-200")
		return nil, fmt.Errorf("intent endpoint: status %d", resp.StatusCode)
	}

	var cc ccResponse
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		return nil, fmt.Errorf("intent response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("intent response: no choices")
	}

	content := stripCodeFence(cc.Choices[0].Message.Content)

	var ri rawIntent
	if err := json.Unmarshal([]byte(content), &ri); err != nil {
		return nil, fmt.Errorf("intent content is not valid JSON: %w", err)
	}
	if ri.Action == "" {
		return nil, fmt.Errorf("intent content has no action")
	}

	action, _ := models.ParseAction(ri.Action)
	return &Intent{
		Action:     action,
		Parameters: ri.Parameters,
		Message:    ri.Message,
	}, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add
// despite the JSON-only instruction
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
