package services

import (
	"github.com/rs/zerolog"

	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/storage"
)

// fakeSender records outbound messages, and the address each one went
// to, instead of delivering them
type fakeSender struct {
	texts           []string
	sentTo          []string // one entry per outbound call, in order
	contactRequests []string
	optionPrompts   []string
	options         [][]RecipientOption
	linkURLs        []string
}

func (f *fakeSender) SendText(chatID, text string) error {
	f.sentTo = append(f.sentTo, chatID)
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendContactRequest(chatID, text string) error {
	f.sentTo = append(f.sentTo, chatID)
	f.contactRequests = append(f.contactRequests, text)
	return nil
}

func (f *fakeSender) SendRecipientOptions(chatID, text string, options []RecipientOption) error {
	f.sentTo = append(f.sentTo, chatID)
	f.optionPrompts = append(f.optionPrompts, text)
	f.options = append(f.options, options)
	return nil
}

func (f *fakeSender) SendConfirmationLink(chatID, text, buttonLabel, url string) error {
	f.sentTo = append(f.sentTo, chatID)
	f.linkURLs = append(f.linkURLs, url)
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) lastText() string {
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

func (f *fakeSender) lastTo() string {
	if len(f.sentTo) == 0 {
		return ""
	}
	return f.sentTo[len(f.sentTo)-1]
}

func seedUser(store *storage.MemoryStore, first, last, phone string, balance float64) *models.User {
	user := &models.User{
		FirstName:             first,
		LastName:              last,
		PhoneNumber:           phone,
		Balance:               balance,
		AllowTelegramPayments: true,
		AllowWhatsappPayments: true,
	}
	_ = user.SetPIN("1234")
	return store.AddUser(user)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
