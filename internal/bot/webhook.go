package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RegisterWebhook points Telegram at the bot's webhook endpoint. The secret
// token makes Telegram echo it back in a header on every delivery, which the
// webhook handler checks. Registration goes through MakeRequest because the
// typed WebhookConfig predates the secret_token parameter.
func RegisterWebhook(api *tgbotapi.BotAPI, publicURL, secret string) error {
	params := tgbotapi.Params{
		"url":          publicURL + "/webhook",
		"secret_token": secret,
	}
	resp, err := api.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("registering webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("registering webhook: %s", resp.Description)
	}
	return nil
}
