package services

// RecipientOption is one selectable entry in a disambiguation prompt.
// CallbackData round-trips through the platform's button payload
// (Telegram inline keyboards); text-only transports ignore it and rely
// on the numbered list in the prompt body.
type RecipientOption struct {
	Label        string
	CallbackData string
}

// ChatSender delivers outbound bot messages to one chat platform. Each
// webhook handler pairs the engine with the sender for its platform.
type ChatSender interface {
	// SendText delivers a plain reply
	SendText(chatID, text string) error
	// SendContactRequest asks the user to share their phone number
	SendContactRequest(chatID, text string) error
	// SendRecipientOptions presents a recipient disambiguation prompt
	SendRecipientOptions(chatID, text string, options []RecipientOption) error
	// SendConfirmationLink delivers the PIN-entry confirmation control
	// carrying only the opaque token URL
	SendConfirmationLink(chatID, text, buttonLabel, url string) error
}
