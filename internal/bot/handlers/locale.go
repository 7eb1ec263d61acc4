package handlers

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/i18n"
)

// translatorFor resolves a translator from the sender's Telegram language code.
func translatorFor(locales *i18n.Manager, c telebot.Context) i18n.Translator {
	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}

	return locales.Translator(lang)
}

// displayName picks the friendliest available name for the sender.
func displayName(sender *telebot.User) string {
	if sender == nil {
		return ""
	}

	if sender.FirstName != "" {
		return sender.FirstName
	}
	if sender.Username != "" {
		return sender.Username
	}

	return "there"
}
