package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/unipulse/unipulse-bot/internal/app/services"
	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
)

const subscribeText = `<b>📬 Daily digest</b>

Tap a category to toggle it. Subscribed categories show a check mark. I'll send you a daily digest of upcoming events in them.`

func (d *Dispatcher) handleSubscribe(ctx context.Context, msg *tgbotapi.Message) {
	options, err := d.subs.Options(ctx, msg.From.ID)
	if errors.Is(err, apperrors.ErrNotVerified) {
		d.reply(msg.Chat.ID, "Verify first with /verify.")
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load subscription options")
		d.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	out := newHTMLMessage(msg.Chat.ID, subscribeText)
	out.ReplyMarkup = subscribeKeyboard(options)
	d.send(out)
}

func subscribeKeyboard(options []services.CategoryOption) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, opt := range options {
		mark := "◻️"
		if opt.Subscribed {
			mark = "✅"
		}
		label := fmt.Sprintf("%s %s (%d)", mark, opt.Category.Name, opt.Subscribers)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("sub:%d", opt.Category.ID)))
		if len(row) == 2 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Done ✔️", "sub:done"),
		tgbotapi.NewInlineKeyboardButtonData("Cancel", "sub:cancel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (d *Dispatcher) handleSubscribeCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	arg := strings.TrimPrefix(cb.Data, "sub:")
	switch arg {
	case "done":
		d.answerCallback(cb.ID, "Saved 📬")
		edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
			"Subscriptions saved. Set your delivery time with /newslettertime.")
		if _, err := d.api.Request(edit); err != nil && !isNotModified(err) {
			logger.Warn().Err(err).Msg("Failed to close subscribe panel")
		}
		return
	case "cancel":
		d.answerCallback(cb.ID, "")
		del := tgbotapi.NewDeleteMessage(cb.Message.Chat.ID, cb.Message.MessageID)
		if _, err := d.api.Request(del); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove subscribe panel")
		}
		return
	}

	categoryID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		d.answerCallback(cb.ID, "")
		return
	}

	options, err := d.subs.Toggle(ctx, cb.From.ID, categoryID)
	if errors.Is(err, apperrors.ErrNotVerified) {
		d.answerCallback(cb.ID, "Verify with /verify first")
		return
	}
	if err != nil {
		logger.Error().Err(err).Int64("category_id", categoryID).Msg("Subscription toggle failed")
		d.answerCallback(cb.ID, "Something went wrong")
		return
	}

	d.answerCallback(cb.ID, "")
	edit := tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID, subscribeKeyboard(options))
	if _, err := d.api.Request(edit); err != nil && !isNotModified(err) {
		logger.Warn().Err(err).Msg("Failed to refresh subscribe keyboard")
	}
}
