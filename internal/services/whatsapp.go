package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/souktrain/gestpay-backend/internal/config"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v18.0"

// MetaWhatsAppSender delivers bot messages through the WhatsApp Cloud
// API. WhatsApp has no inline keyboards in this flow, so option lists
// and confirmation links ride in the message body.
type MetaWhatsAppSender struct {
	phoneNumberID string
	accessToken   string
	baseURL       string
	client        *http.Client
	log           zerolog.Logger
}

// NewMetaWhatsAppSender builds the Cloud API sender
func NewMetaWhatsAppSender(cfg config.WhatsAppConfig, log zerolog.Logger) *MetaWhatsAppSender {
	return &MetaWhatsAppSender{
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		baseURL:       defaultGraphBaseURL,
		client:        &http.Client{Timeout: 15 * time.Second},
		log:           log,
	}
}

type waTextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

func (w *MetaWhatsAppSender) send(to, body string) error {
	payload := waTextMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
	}
	payload.Text.Body = body

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.accessToken)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		w.log.Error().Int("status", resp.StatusCode).Str("to", to).
			Bytes("body", detail).Msg("whatsapp send failed")
		return fmt.Errorf("whatsapp send: status %d", resp.StatusCode)
	}
	return nil
}

func (w *MetaWhatsAppSender) SendText(chatID, text string) error {
	return w.send(chatID, text)
}

func (w *MetaWhatsAppSender) SendContactRequest(chatID, text string) error {
	// No contact-share control on WhatsApp; the sender's own number is
	// already the chat identity. Plain prompt only.
	return w.send(chatID, text)
}

func (w *MetaWhatsAppSender) SendRecipientOptions(chatID, text string, options []RecipientOption) error {
	return w.send(chatID, text)
}

func (w *MetaWhatsAppSender) SendConfirmationLink(chatID, text, buttonLabel, url string) error {
	return w.send(chatID, fmt.Sprintf("%s\n\n%s", text, url))
}
