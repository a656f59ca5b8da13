package services

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/souktrain/gestpay-backend/internal/config"
)

// TwilioWhatsAppSender is the alternative WhatsApp transport for
// deployments that route through Twilio instead of the Meta Cloud API.
// Selected with whatsapp.transport: twilio.
type TwilioWhatsAppSender struct {
	client *twilio.RestClient
	from   string // format: "whatsapp:+14155238886"
	log    zerolog.Logger
}

// NewTwilioWhatsAppSender builds the Twilio-backed sender
func NewTwilioWhatsAppSender(cfg config.WhatsAppConfig, log zerolog.Logger) (*TwilioWhatsAppSender, error) {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFrom == "" {
		return nil, fmt.Errorf("missing Twilio credentials for whatsapp transport")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})

	return &TwilioWhatsAppSender{
		client: client,
		from:   cfg.TwilioFrom,
		log:    log,
	}, nil
}

func (t *TwilioWhatsAppSender) send(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:+%s", to))
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		t.log.Error().Err(err).Str("to", to).Msg("twilio whatsapp send failed")
		return err
	}
	if resp.Sid != nil {
		t.log.Debug().Str("sid", *resp.Sid).Str("to", to).Msg("twilio whatsapp message sent")
	}
	return nil
}

func (t *TwilioWhatsAppSender) SendText(chatID, text string) error {
	return t.send(chatID, text)
}

func (t *TwilioWhatsAppSender) SendContactRequest(chatID, text string) error {
	return t.send(chatID, text)
}

func (t *TwilioWhatsAppSender) SendRecipientOptions(chatID, text string, options []RecipientOption) error {
	return t.send(chatID, text)
}

func (t *TwilioWhatsAppSender) SendConfirmationLink(chatID, text, buttonLabel, url string) error {
	return t.send(chatID, fmt.Sprintf("%s\n\n%s", text, url))
}
