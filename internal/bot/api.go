// Package bot implements the Telegram-facing layer: command and callback
// dispatch, conversation flows and message rendering.
package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the subset of the Telegram client the handlers use. It is
// satisfied by *tgbotapi.BotAPI and by fakes in tests.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}
