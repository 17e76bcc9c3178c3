package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
)

func (d *Dispatcher) handleEvents(ctx context.Context, msg *tgbotapi.Message) {
	events, err := d.events.Upcoming(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list upcoming events")
		d.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	if len(events) == 0 {
		d.reply(msg.Chat.ID, "No upcoming events right now. Check back later!")
		return
	}
	out := newHTMLMessage(msg.Chat.ID, renderEventList("📅 Upcoming events", events, d.location))
	out.ReplyMarkup = eventListKeyboard(events)
	d.send(out)
}

func (d *Dispatcher) handleTrending(ctx context.Context, msg *tgbotapi.Message) {
	events, err := d.events.Trending(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list trending events")
		d.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	if len(events) == 0 {
		d.reply(msg.Chat.ID, "Nothing is trending yet. Be the first to RSVP!")
		return
	}
	out := newHTMLMessage(msg.Chat.ID, renderEventList("🔥 Trending events", events, d.location))
	out.ReplyMarkup = eventListKeyboard(events)
	d.send(out)
}

func (d *Dispatcher) handleFind(ctx context.Context, msg *tgbotapi.Message) {
	query := strings.TrimSpace(msg.CommandArguments())
	if query == "" {
		d.reply(msg.Chat.ID, "Tell me what to look for: /find hackathon, or /find #sports.")
		return
	}
	events, err := d.events.Find(ctx, query)
	if err != nil {
		logger.Error().Err(err).Str("query", query).Msg("Event search failed")
		d.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	if len(events) == 0 {
		d.reply(msg.Chat.ID, "No events matched. Try a different keyword or #category.")
		return
	}
	out := newHTMLMessage(msg.Chat.ID, renderEventList("🔍 Search results", events, d.location))
	out.ReplyMarkup = eventListKeyboard(events)
	d.send(out)
}

func (d *Dispatcher) handleShowCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	d.answerCallback(cb.ID, "")
	eventID, ok := parseID(cb.Data, "show:")
	if !ok {
		return
	}
	ev, err := d.events.Get(ctx, eventID)
	if err != nil {
		d.reply(cb.Message.Chat.ID, "That event is gone.")
		return
	}
	counts, err := d.rsvps.Counts(ctx, eventID)
	if err != nil {
		logger.Error().Err(err).Int64("event_id", eventID).Msg("Failed to load RSVP counts")
	}
	d.sendEventCard(cb.Message.Chat.ID, ev, counts)
}

func (d *Dispatcher) sendEventCard(chatID int64, ev *models.Event, counts models.RSVPCounts) {
	body := renderEventCard(ev, counts, d.location)
	keyboard := eventCardKeyboard(ev, counts)

	if ev.ImageURL != nil && *ev.ImageURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(*ev.ImageURL))
		photo.Caption = body
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = keyboard
		d.send(photo)
		return
	}

	out := newHTMLMessage(chatID, body)
	out.ReplyMarkup = keyboard
	d.send(out)
}

func (d *Dispatcher) handleRSVPCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	parts := strings.Split(cb.Data, ":")
	if len(parts) != 3 {
		d.answerCallback(cb.ID, "")
		return
	}
	status := models.RSVPStatus(parts[1])
	eventID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		d.answerCallback(cb.ID, "")
		return
	}

	counts, err := d.rsvps.RSVP(ctx, cb.From.ID, eventID, status)
	switch {
	case err == nil:
		// Any RSVP schedules the pre-event reminders; dateless events
		// simply have none to schedule.
		if _, rerr := d.rsvps.EnsureReminders(ctx, cb.From.ID, eventID); rerr != nil && !errors.Is(rerr, apperrors.ErrNoEventDate) {
			logger.Warn().Err(rerr).Int64("event_id", eventID).Msg("Failed to schedule reminders after RSVP")
		}
		d.answerCallback(cb.ID, "Got it! 🎉")
		d.refreshCardKeyboard(ctx, cb, eventID, counts)
	case errors.Is(err, apperrors.ErrNotVerified):
		d.answerCallback(cb.ID, "Verify with /verify first")
	case errors.Is(err, apperrors.ErrEventNotFound):
		d.answerCallback(cb.ID, "That event is gone")
	default:
		logger.Error().Err(err).Int64("event_id", eventID).Msg("RSVP failed")
		d.answerCallback(cb.ID, "Something went wrong")
	}
}

// refreshCardKeyboard rewrites the buttons under an event card so the RSVP
// counts stay current. Works for both text and photo cards.
func (d *Dispatcher) refreshCardKeyboard(ctx context.Context, cb *tgbotapi.CallbackQuery, eventID int64, counts models.RSVPCounts) {
	ev, err := d.events.Get(ctx, eventID)
	if err != nil {
		return
	}
	keyboard := eventCardKeyboard(ev, counts)
	edit := tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID, keyboard)
	if _, err := d.api.Request(edit); err != nil && !isNotModified(err) {
		logger.Warn().Err(err).Int64("event_id", eventID).Msg("Failed to refresh card keyboard")
	}
}

func (d *Dispatcher) handleRemindCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	eventID, ok := parseID(cb.Data, "remind:")
	if !ok {
		d.answerCallback(cb.ID, "")
		return
	}
	created, err := d.rsvps.EnsureReminders(ctx, cb.From.ID, eventID)
	switch {
	case err == nil && created > 0:
		d.answerCallback(cb.ID, "🔔 Reminders set!")
	case err == nil:
		d.answerCallback(cb.ID, "You're already covered 👍")
	case errors.Is(err, apperrors.ErrNotVerified):
		d.answerCallback(cb.ID, "Verify with /verify first")
	case errors.Is(err, apperrors.ErrNoEventDate):
		d.answerCallback(cb.ID, "This event has no date yet")
	case errors.Is(err, apperrors.ErrEventNotFound):
		d.answerCallback(cb.ID, "That event is gone")
	default:
		logger.Error().Err(err).Int64("event_id", eventID).Msg("Failed to schedule reminders")
		d.answerCallback(cb.ID, "Something went wrong")
	}
}

func (d *Dispatcher) handleManage(ctx context.Context, msg *tgbotapi.Message) {
	events, err := d.events.MyEvents(ctx, msg.From.ID)
	if errors.Is(err, apperrors.ErrNotVerified) {
		d.reply(msg.Chat.ID, "Verify first with /verify.")
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list own events")
		d.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	if len(events) == 0 {
		d.reply(msg.Chat.ID, "You haven't posted any events yet. Post one to a group with #unipulse!")
		return
	}

	out := newHTMLMessage(msg.Chat.ID, renderEventList("🛠 Your events", events, d.location))
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, ev := range events {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✏️ Edit %d", i+1), fmt.Sprintf("mod:edit:%d", ev.ID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 Delete %d", i+1), fmt.Sprintf("mod:del:%d", ev.ID)),
		))
	}
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	d.send(out)
}

func (d *Dispatcher) handleManageCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	switch {
	case strings.HasPrefix(data, "mod:edit:"):
		d.handleEditStart(ctx, cb)
	case strings.HasPrefix(data, "mod:del:"):
		d.handleDeletePrompt(ctx, cb)
	case strings.HasPrefix(data, "mod:confirm:"):
		d.handleDeleteConfirm(ctx, cb)
	case data == "mod:cancel":
		d.answerCallback(cb.ID, "")
		del := tgbotapi.NewDeleteMessage(cb.Message.Chat.ID, cb.Message.MessageID)
		if _, err := d.api.Request(del); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove delete prompt")
		}
	default:
		d.answerCallback(cb.ID, "")
	}
}

func (d *Dispatcher) handleEditStart(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	d.answerCallback(cb.ID, "")
	eventID, ok := parseID(cb.Data, "mod:edit:")
	if !ok {
		return
	}
	d.beginEditChooser(ctx, cb.Message.Chat.ID, cb.From.ID, eventID)
}

// handleEditCommand starts the edit flow from "/edit <id>".
func (d *Dispatcher) handleEditCommand(ctx context.Context, msg *tgbotapi.Message) {
	eventID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		d.reply(msg.Chat.ID, "Use /edit &lt;id&gt;, or pick an event from /manage.")
		return
	}
	d.beginEditChooser(ctx, msg.Chat.ID, msg.From.ID, eventID)
}

// handleDeleteCommand starts the delete flow from "/delete <id>".
func (d *Dispatcher) handleDeleteCommand(ctx context.Context, msg *tgbotapi.Message) {
	eventID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		d.reply(msg.Chat.ID, "Use /delete &lt;id&gt;, or pick an event from /manage.")
		return
	}
	if _, ok := d.checkOwnership(ctx, msg.Chat.ID, msg.From.ID, eventID); !ok {
		return
	}
	d.promptDelete(msg.Chat.ID, eventID)
}

// checkOwnership verifies the caller owns a live event before a flow opens,
// replying with the reason when they don't.
func (d *Dispatcher) checkOwnership(ctx context.Context, chatID, userID, eventID int64) (*models.Event, bool) {
	ev, err := d.events.Owned(ctx, userID, eventID)
	switch {
	case err == nil:
		return ev, true
	case errors.Is(err, apperrors.ErrNotVerified):
		d.reply(chatID, "Verify first with /verify.")
	case errors.Is(err, apperrors.ErrNotOwner):
		d.reply(chatID, "Only the poster can change an event.")
	case errors.Is(err, apperrors.ErrEventNotFound), errors.Is(err, apperrors.ErrEventDeleted):
		d.reply(chatID, "That event is gone.")
	default:
		logger.Error().Err(err).Int64("event_id", eventID).Msg("Ownership check failed")
		d.reply(chatID, "Something went wrong, please try again.")
	}
	return nil, false
}

// beginEditChooser shows the field chooser with the event's current values.
// The flow loops back here after every accepted value until Done.
func (d *Dispatcher) beginEditChooser(ctx context.Context, chatID, userID, eventID int64) {
	ev, ok := d.checkOwnership(ctx, chatID, userID, eventID)
	if !ok {
		return
	}
	out := newHTMLMessage(chatID, renderEditSummary(ev, d.location))
	out.ReplyMarkup = editChooserKeyboard(eventID)
	d.send(out)
}

func editChooserKeyboard(eventID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Title", fmt.Sprintf("edit_field:%d:title", eventID)),
			tgbotapi.NewInlineKeyboardButtonData("Date", fmt.Sprintf("edit_field:%d:date", eventID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Location", fmt.Sprintf("edit_field:%d:location", eventID)),
			tgbotapi.NewInlineKeyboardButtonData("Description", fmt.Sprintf("edit_field:%d:description", eventID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Done ✔️", "edit_done"),
		),
	)
}

func (d *Dispatcher) handleEditFieldChoice(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	parts := strings.Split(cb.Data, ":")
	if len(parts) != 3 {
		d.answerCallback(cb.ID, "")
		return
	}
	eventID, err := strconv.ParseInt(parts[1], 10, 64)
	field := models.EventField(parts[2])
	if err != nil || !field.Valid() {
		d.answerCallback(cb.ID, "")
		return
	}
	d.answerCallback(cb.ID, "")
	if _, ok := d.checkOwnership(ctx, cb.Message.Chat.ID, cb.From.ID, eventID); !ok {
		return
	}

	d.conv.set(cb.Message.Chat.ID, cb.From.ID, convState{kind: stateEditAwaitValue, eventID: eventID, field: field})
	prompt := "Send the new " + string(field) + ". /cancel to abort."
	if field == models.EventFieldDate {
		prompt = "Send the new date as RFC 3339, e.g. <b>2026-09-12T18:00:00+08:00</b>. /cancel to abort."
	}
	d.reply(cb.Message.Chat.ID, prompt)
}

func (d *Dispatcher) handleEditDone(_ context.Context, cb *tgbotapi.CallbackQuery) {
	d.answerCallback(cb.ID, "Saved ✅")
	d.conv.clear(cb.Message.Chat.ID, cb.From.ID)
	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, "Edits saved.")
	if _, err := d.api.Request(edit); err != nil && !isNotModified(err) {
		logger.Warn().Err(err).Msg("Failed to close edit chooser")
	}
}

func (d *Dispatcher) handleEditValue(ctx context.Context, msg *tgbotapi.Message, state convState) {
	updated, err := d.events.EditField(ctx, msg.From.ID, state.eventID, state.field, strings.TrimSpace(msg.Text))
	switch {
	case err == nil:
		// Back to the field chooser so several fields can be fixed in
		// one sitting; Done closes the loop.
		d.conv.clear(msg.Chat.ID, msg.From.ID)
		d.reply(msg.Chat.ID, "Updated ✅")
		out := newHTMLMessage(msg.Chat.ID, renderEditSummary(updated, d.location))
		out.ReplyMarkup = editChooserKeyboard(updated.ID)
		d.send(out)
	case errors.Is(err, apperrors.ErrBadRequest):
		// Re-prompt; the flow state stays so the user can just retry.
		d.reply(msg.Chat.ID, "That doesn't look right. "+badRequestMessage(err)+" Or /cancel.")
	case errors.Is(err, apperrors.ErrNotOwner):
		d.conv.clear(msg.Chat.ID, msg.From.ID)
		d.reply(msg.Chat.ID, "Only the poster can edit an event.")
	case errors.Is(err, apperrors.ErrEventNotFound), errors.Is(err, apperrors.ErrEventDeleted):
		d.conv.clear(msg.Chat.ID, msg.From.ID)
		d.reply(msg.Chat.ID, "That event is gone.")
	default:
		logger.Error().Err(err).Int64("event_id", state.eventID).Msg("Event edit failed")
		d.conv.clear(msg.Chat.ID, msg.From.ID)
		d.reply(msg.Chat.ID, "Something went wrong, please try again.")
	}
}

func (d *Dispatcher) handleDeletePrompt(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	eventID, ok := parseID(cb.Data, "mod:del:")
	if !ok {
		d.answerCallback(cb.ID, "")
		return
	}
	d.answerCallback(cb.ID, "")
	if _, owned := d.checkOwnership(ctx, cb.Message.Chat.ID, cb.From.ID, eventID); !owned {
		return
	}
	d.promptDelete(cb.Message.Chat.ID, eventID)
}

func (d *Dispatcher) promptDelete(chatID, eventID int64) {
	out := newHTMLMessage(chatID, "Delete this event? This can't be undone.")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, delete", fmt.Sprintf("mod:confirm:%d", eventID)),
			tgbotapi.NewInlineKeyboardButtonData("Keep it", "mod:cancel"),
		),
	)
	d.send(out)
}

func (d *Dispatcher) handleDeleteConfirm(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	eventID, ok := parseID(cb.Data, "mod:confirm:")
	if !ok {
		d.answerCallback(cb.ID, "")
		return
	}
	err := d.events.Delete(ctx, cb.From.ID, eventID)
	switch {
	case err == nil:
		d.answerCallback(cb.ID, "Deleted 🗑")
		d.reply(cb.Message.Chat.ID, "Event removed. It won't show up in listings anymore.")
	case errors.Is(err, apperrors.ErrNotOwner):
		d.answerCallback(cb.ID, "Only the poster can delete this")
	case errors.Is(err, apperrors.ErrEventNotFound), errors.Is(err, apperrors.ErrEventDeleted):
		d.answerCallback(cb.ID, "Already gone")
	default:
		logger.Error().Err(err).Int64("event_id", eventID).Msg("Event delete failed")
		d.answerCallback(cb.ID, "Something went wrong")
	}
}

func parseID(data, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	return id, err == nil
}

func badRequestMessage(err error) string {
	var custom *apperrors.CustomError
	if errors.As(err, &custom) && custom.Message != "" {
		return custom.Message + "."
	}
	return "Check the format."
}
