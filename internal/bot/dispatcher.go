package bot

import (
	"context"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/unipulse/unipulse-bot/internal/app/services"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
)

// Dispatcher routes incoming Telegram updates to the command, callback and
// conversation handlers.
type Dispatcher struct {
	api      API
	conv     *conversations
	accounts *services.AccountService
	events   *services.EventService
	rsvps    *services.RSVPService
	subs     *services.SubscriptionService
	ingest   *services.IngestService
	location *time.Location
	http     *http.Client
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(
	api API,
	accounts *services.AccountService,
	events *services.EventService,
	rsvps *services.RSVPService,
	subs *services.SubscriptionService,
	ingest *services.IngestService,
	location *time.Location,
) *Dispatcher {
	return &Dispatcher{
		api:      api,
		conv:     newConversations(),
		accounts: accounts,
		events:   events,
		rsvps:    rsvps,
		subs:     subs,
		ingest:   ingest,
		location: location,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// HandleUpdate processes one Telegram update. Handler errors are logged,
// never returned, so a bad update can't take the webhook down.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Int("update_id", update.UpdateID).Msg("Recovered from handler panic")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		d.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		msg := update.Message
		if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
			d.handleGroupMessage(ctx, msg)
			return
		}
		if msg.IsCommand() {
			d.handleCommand(ctx, msg)
			return
		}
		d.handleText(ctx, msg)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	// Any command interrupts a flow in progress.
	if msg.Command() != "cancel" {
		d.conv.clear(msg.Chat.ID, msg.From.ID)
	}

	switch msg.Command() {
	case "start":
		d.handleStart(ctx, msg)
	case "help":
		d.handleHelp(ctx, msg)
	case "verify":
		d.handleVerify(ctx, msg)
	case "events":
		d.handleEvents(ctx, msg)
	case "trending":
		d.handleTrending(ctx, msg)
	case "find":
		d.handleFind(ctx, msg)
	case "subscribe":
		d.handleSubscribe(ctx, msg)
	case "newslettertime":
		d.handleNewsletterTime(ctx, msg)
	case "manage":
		d.handleManage(ctx, msg)
	case "edit":
		d.handleEditCommand(ctx, msg)
	case "delete":
		d.handleDeleteCommand(ctx, msg)
	case "cancel":
		d.handleCancel(ctx, msg)
	default:
		d.reply(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func (d *Dispatcher) handleText(ctx context.Context, msg *tgbotapi.Message) {
	state := d.conv.get(msg.Chat.ID, msg.From.ID)
	switch state.kind {
	case stateAwaitingEmail:
		d.handleEmailInput(ctx, msg)
	case stateEditAwaitValue:
		d.handleEditValue(ctx, msg, state)
	default:
		d.reply(msg.Chat.ID, "I didn't catch that. Try /help to see what I can do.")
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	switch {
	case strings.HasPrefix(data, "rsvp:"):
		d.handleRSVPCallback(ctx, cb)
	case strings.HasPrefix(data, "remind:"):
		d.handleRemindCallback(ctx, cb)
	case strings.HasPrefix(data, "show:"):
		d.handleShowCallback(ctx, cb)
	case strings.HasPrefix(data, "sub:"):
		d.handleSubscribeCallback(ctx, cb)
	case strings.HasPrefix(data, "edit_field:"):
		d.handleEditFieldChoice(ctx, cb)
	case data == "edit_done":
		d.handleEditDone(ctx, cb)
	case strings.HasPrefix(data, "mod:"):
		d.handleManageCallback(ctx, cb)
	case strings.HasPrefix(data, "help:"):
		d.handleHelpCallback(ctx, cb)
	default:
		d.answerCallback(cb.ID, "")
	}
}

func (d *Dispatcher) handleCancel(_ context.Context, msg *tgbotapi.Message) {
	d.conv.clear(msg.Chat.ID, msg.From.ID)
	d.reply(msg.Chat.ID, "Cancelled.")
}

// reply sends a plain HTML message to a chat.
func (d *Dispatcher) reply(chatID int64, text string) {
	d.send(newHTMLMessage(chatID, text))
}

func (d *Dispatcher) send(c tgbotapi.Chattable) {
	if _, err := d.api.Send(c); err != nil && !isNotModified(err) {
		logger.Error().Err(err).Msg("Failed to send Telegram message")
	}
}

// answerCallback acknowledges a callback query so the client stops its
// spinner. text, when set, shows as a toast.
func (d *Dispatcher) answerCallback(id, text string) {
	if _, err := d.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		logger.Warn().Err(err).Msg("Failed to answer callback query")
	}
}

func newHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}

// isNotModified detects Telegram's "message is not modified" edit error,
// which happens when a keyboard refresh produces identical content and is
// safe to ignore. The API gives no error code that distinguishes it.
func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
