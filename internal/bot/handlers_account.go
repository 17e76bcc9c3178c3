package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
)

const startText = `👋 <b>Welcome to UniPulse!</b>

I collect campus events posted in your community groups and help you find the ones worth going to.

To get started, verify your student email with /verify. After that you can:

• /events — browse upcoming events
• /trending — see what's popular
• /find — search by keyword or #category
• /subscribe — pick categories for your daily digest

Post an event to a group with the #unipulse tag and I'll pick it up.`

const helpText = `<b>UniPulse commands</b>

/verify — link your student email
/events — upcoming events
/trending — events ranked by RSVPs
/find &lt;query&gt; — search text, or #category
/subscribe — manage digest categories
/newslettertime HH:MM — set digest delivery time
/manage — edit or remove your own events
/edit &lt;id&gt; — edit one of your events
/delete &lt;id&gt; — remove one of your events
/cancel — abort the current flow

Pick a topic below for more detail.`

const helpPostingText = `<b>Posting events</b>

Post in any connected group and include the #unipulse tag. I'll read the post (and poster image, if any), extract the title, date and location, and publish it.

Add a category tag like #sports or #tech to file it; the first recognised tag wins. Up to 5 posts per hour per person.`

const helpDigestText = `<b>Daily digest</b>

Subscribe to categories with /subscribe and I'll send you one message a day with upcoming events from the next 7 days. Set the delivery time with /newslettertime, e.g. /newslettertime 08:30.

Every Sunday evening you'll also get the week's most popular events.`

func (d *Dispatcher) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	account, err := d.accounts.GetByTelegramID(ctx, msg.From.ID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to look up account on /start")
	}

	out := newHTMLMessage(msg.Chat.ID, startText)
	if account == nil {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✉️ Verify my email", "help:verify"),
				tgbotapi.NewInlineKeyboardButtonData("📖 How it works", "help:posting"),
			),
		)
	}
	d.send(out)
}

func (d *Dispatcher) handleHelp(_ context.Context, msg *tgbotapi.Message) {
	out := newHTMLMessage(msg.Chat.ID, helpText)
	out.ReplyMarkup = helpTopicsKeyboard()
	d.send(out)
}

func helpTopicsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Posting", "help:posting"),
			tgbotapi.NewInlineKeyboardButtonData("📬 Digest", "help:digest"),
		),
	)
}

func (d *Dispatcher) handleHelpCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	d.answerCallback(cb.ID, "")
	switch strings.TrimPrefix(cb.Data, "help:") {
	case "posting":
		d.reply(cb.Message.Chat.ID, helpPostingText)
	case "digest":
		d.reply(cb.Message.Chat.ID, helpDigestText)
	case "verify":
		d.beginVerifyFlow(ctx, cb.Message.Chat.ID, cb.From.ID)
	}
}

func (d *Dispatcher) handleVerify(ctx context.Context, msg *tgbotapi.Message) {
	d.beginVerifyFlow(ctx, msg.Chat.ID, msg.From.ID)
}

func (d *Dispatcher) beginVerifyFlow(ctx context.Context, chatID, userID int64) {
	account, err := d.accounts.GetByTelegramID(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to look up account on /verify")
		d.reply(chatID, "Something went wrong, please try again.")
		return
	}
	if account != nil {
		d.reply(chatID, "You're already verified as <b>"+account.Email+"</b> ✅")
		return
	}
	d.conv.set(chatID, userID, convState{kind: stateAwaitingEmail})
	d.reply(chatID, "Send me your student email address (u.nus.edu or nus.edu.sg). /cancel to abort.")
}

func (d *Dispatcher) handleEmailInput(ctx context.Context, msg *tgbotapi.Message) {
	email := strings.TrimSpace(msg.Text)
	err := d.accounts.BeginVerification(ctx, email, msg.From.ID, msg.From.UserName)
	switch {
	case err == nil:
		d.conv.clear(msg.Chat.ID, msg.From.ID)
		d.reply(msg.Chat.ID, "📬 Check your inbox! Click the link in the email to finish verifying. The link expires soon, so don't sit on it.")
	case errors.Is(err, apperrors.ErrInvalidEmail):
		d.reply(msg.Chat.ID, "That doesn't look like an email address. Try again, or /cancel.")
	case errors.Is(err, apperrors.ErrEmailDomainNotAllowed):
		d.reply(msg.Chat.ID, "Only u.nus.edu and nus.edu.sg addresses can verify. Try again, or /cancel.")
	case errors.Is(err, apperrors.ErrUsernameRequired):
		d.conv.clear(msg.Chat.ID, msg.From.ID)
		d.reply(msg.Chat.ID, "You need a Telegram username to verify. Set one in Telegram settings, then run /verify again.")
	default:
		logger.Error().Err(err).Msg("Verification start failed")
		d.conv.clear(msg.Chat.ID, msg.From.ID)
		d.reply(msg.Chat.ID, "Couldn't send the verification email. Run /verify to try again later.")
	}
}

func (d *Dispatcher) handleNewsletterTime(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		account, err := d.accounts.GetByTelegramID(ctx, msg.From.ID)
		if err != nil || account == nil {
			d.reply(msg.Chat.ID, "Verify first with /verify, then set a time with /newslettertime HH:MM.")
			return
		}
		d.reply(msg.Chat.ID, "Your digest arrives at <b>"+account.NewsletterTime+"</b>. Change it with /newslettertime HH:MM.")
		return
	}

	account, err := d.accounts.UpdateNewsletterTime(ctx, msg.From.ID, arg)
	switch {
	case err == nil:
		d.reply(msg.Chat.ID, "Done! Your daily digest will arrive at <b>"+account.NewsletterTime+"</b>.")
	case errors.Is(err, apperrors.ErrNotVerified):
		d.reply(msg.Chat.ID, "Verify first with /verify.")
	case errors.Is(err, apperrors.ErrBadRequest):
		d.reply(msg.Chat.ID, "Use 24-hour HH:MM, e.g. /newslettertime 08:30.")
	default:
		logger.Error().Err(err).Msg("Failed to update newsletter time")
		d.reply(msg.Chat.ID, "Something went wrong, please try again.")
	}
}

// SendOnboarding greets a freshly verified user and offers the category
// picker so subscriptions start from the confirmation moment.
func (d *Dispatcher) SendOnboarding(ctx context.Context, account *models.Account) {
	out := newHTMLMessage(account.TelegramID, "🎉 You're verified! Try /events to browse what's on.\n\nPick categories below to get a daily digest of upcoming events.")
	options, err := d.subs.Options(ctx, account.TelegramID)
	if err != nil {
		logger.Warn().Err(err).Int64("account_id", account.ID).Msg("Onboarding category load failed")
		d.send(out)
		return
	}
	out.ReplyMarkup = subscribeKeyboard(options)
	d.send(out)
}
