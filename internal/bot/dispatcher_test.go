package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/app/services"
	"github.com/unipulse/unipulse-bot/internal/extractor"
	"github.com/unipulse/unipulse-bot/internal/pkg/auth"
)

type botFixture struct {
	dispatcher *Dispatcher
	api        *fakeAPI
	accounts   *memAccounts
	events     *memEvents
	mailer     *recordingMailer
	parser     *fakeParser
	reminders  *memReminders
}

func newTestBot(t *testing.T, accounts *memAccounts, events *memEvents) *botFixture {
	t.Helper()
	api := &fakeAPI{}
	mailer := &recordingMailer{}
	parser := &fakeParser{}
	tokens := auth.NewTokenService(auth.TokenConfig{SecretKey: "test", TokenTTL: time.Hour, Issuer: "test"})

	accountSvc := services.NewAccountService(accounts, tokens, mailer, []string{"u.nus.edu", "nus.edu.sg"}, "https://bot.example.com")
	eventSvc := services.NewEventService(events, accounts, nil)
	reminders := newMemReminders()
	rsvpSvc := services.NewRSVPService(accounts, events, newMemRSVPs(), reminders)
	subSvc := services.NewSubscriptionService(accounts, newMemCategories(), newMemSubscriptions())
	ingestSvc := services.NewIngestService(accounts, events, newMemCategories(), parser, allowAll{}, nil, "unipulse")

	return &botFixture{
		dispatcher: NewDispatcher(api, accountSvc, eventSvc, rsvpSvc, subSvc, ingestSvc, time.UTC),
		api:        api,
		accounts:   accounts,
		events:     events,
		mailer:     mailer,
		parser:     parser,
		reminders:  reminders,
	}
}

func privateMessage(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: "alice"},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := text
		if i := strings.Index(text, " "); i > 0 {
			cmd = text[:i]
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func groupMessage(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: userID, UserName: "alice"},
		Chat:      &tgbotapi.Chat{ID: -100, Type: "group"},
		Text:      text,
	}}
}

func callback(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: 1, CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: userID, UserName: "alice"},
		Message: &tgbotapi.Message{MessageID: 2, Chat: &tgbotapi.Chat{ID: userID, Type: "private"}},
		Data:    data,
	}}
}

func TestVerifyFlow(t *testing.T) {
	f := newTestBot(t, newMemAccounts(), newMemEvents())
	ctx := context.Background()

	f.dispatcher.HandleUpdate(ctx, privateMessage(99, "/verify"))
	if !strings.Contains(f.api.lastMessage(), "email") {
		t.Fatalf("expected email prompt, got %q", f.api.lastMessage())
	}

	f.dispatcher.HandleUpdate(ctx, privateMessage(99, "alice@gmail.com"))
	if !strings.Contains(f.api.lastMessage(), "u.nus.edu") {
		t.Fatalf("expected domain rejection, got %q", f.api.lastMessage())
	}

	// The flow stays open after a rejection, so a valid address still lands.
	f.dispatcher.HandleUpdate(ctx, privateMessage(99, "alice@u.nus.edu"))
	if f.mailer.to != "alice@u.nus.edu" {
		t.Fatalf("expected verification email, mailer got %q", f.mailer.to)
	}
	if !strings.Contains(f.api.lastMessage(), "inbox") {
		t.Errorf("expected inbox confirmation, got %q", f.api.lastMessage())
	}
}

func TestVerifyAlreadyVerified(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99, Email: "alice@u.nus.edu"})
	f := newTestBot(t, accounts, newMemEvents())

	f.dispatcher.HandleUpdate(context.Background(), privateMessage(99, "/verify"))
	if !strings.Contains(f.api.lastMessage(), "already verified") {
		t.Fatalf("expected already-verified notice, got %q", f.api.lastMessage())
	}
}

func TestCancelClearsFlow(t *testing.T) {
	f := newTestBot(t, newMemAccounts(), newMemEvents())
	ctx := context.Background()

	f.dispatcher.HandleUpdate(ctx, privateMessage(99, "/verify"))
	f.dispatcher.HandleUpdate(ctx, privateMessage(99, "/cancel"))
	f.dispatcher.HandleUpdate(ctx, privateMessage(99, "alice@u.nus.edu"))

	if f.mailer.to != "" {
		t.Fatal("flow should be dead after /cancel")
	}
	if !strings.Contains(f.api.lastMessage(), "/help") {
		t.Errorf("expected fallback reply, got %q", f.api.lastMessage())
	}
}

func TestGroupIngestConfirms(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99, Email: "alice@u.nus.edu"})
	events := newMemEvents()
	f := newTestBot(t, accounts, events)
	f.parser.parsed = extractor.ParsedEvent{
		Title: strPtr("AI Hackathon"),
		Date:  strPtr("2026-09-12T18:00:00+08:00"),
	}

	f.dispatcher.HandleUpdate(context.Background(), groupMessage(99, "AI Hackathon friday #unipulse #tech"))

	if len(events.byID) != 1 {
		t.Fatalf("expected one stored event, got %d", len(events.byID))
	}
	if !strings.Contains(f.api.lastMessage(), "AI Hackathon") {
		t.Errorf("expected confirmation card, got %q", f.api.lastMessage())
	}
}

func TestGroupIgnoresUntagged(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99})
	events := newMemEvents()
	f := newTestBot(t, accounts, events)

	f.dispatcher.HandleUpdate(context.Background(), groupMessage(99, "lunch anyone?"))

	if len(events.byID) != 0 || len(f.api.sent) != 0 {
		t.Fatal("untagged group chatter should be ignored")
	}
}

func TestGroupIngestUnverified(t *testing.T) {
	f := newTestBot(t, newMemAccounts(), newMemEvents())

	f.dispatcher.HandleUpdate(context.Background(), groupMessage(42, "party! #unipulse"))

	if !strings.Contains(f.api.lastMessage(), "/verify") {
		t.Fatalf("expected verification nudge, got %q", f.api.lastMessage())
	}
}

func TestRSVPCallback(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99})
	start := time.Now().Add(72 * time.Hour)
	events := newMemEvents(&models.Event{ID: 5, Text: "party", Date: &start})
	f := newTestBot(t, accounts, events)

	f.dispatcher.HandleUpdate(context.Background(), callback(99, "rsvp:going:5"))

	var sawAnswer, sawMarkupEdit bool
	for _, req := range f.api.requests {
		switch req.(type) {
		case tgbotapi.CallbackConfig:
			sawAnswer = true
		case tgbotapi.EditMessageReplyMarkupConfig:
			sawMarkupEdit = true
		}
	}
	if !sawAnswer {
		t.Error("callback was never answered")
	}
	if !sawMarkupEdit {
		t.Error("card keyboard was not refreshed")
	}
	if len(f.reminders.created) != 2 {
		t.Errorf("expected 24h and 1h reminders after RSVP, got %d", len(f.reminders.created))
	}

	// Repeat taps must not stack extra reminder rows.
	f.dispatcher.HandleUpdate(context.Background(), callback(99, "rsvp:interested:5"))
	if len(f.reminders.created) != 2 {
		t.Errorf("expected reminder creation to stay idempotent, got %d rows", len(f.reminders.created))
	}
}

func TestRSVPCallbackDatelessEventStillCounts(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99})
	events := newMemEvents(&models.Event{ID: 5, Text: "party"})
	f := newTestBot(t, accounts, events)

	f.dispatcher.HandleUpdate(context.Background(), callback(99, "rsvp:going:5"))

	var sawAnswer bool
	for _, req := range f.api.requests {
		if _, ok := req.(tgbotapi.CallbackConfig); ok {
			sawAnswer = true
		}
	}
	if !sawAnswer {
		t.Error("callback was never answered")
	}
	if len(f.reminders.created) != 0 {
		t.Errorf("dateless event should get no reminders, got %d", len(f.reminders.created))
	}
}

func TestEditFlow(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99})
	ev := &models.Event{ID: 5, Text: "party", AccountID: int64Ptr(1)}
	events := newMemEvents(ev)
	f := newTestBot(t, accounts, events)
	ctx := context.Background()

	f.dispatcher.HandleUpdate(ctx, callback(99, "mod:edit:5"))
	if !strings.Contains(f.api.lastMessage(), "change") {
		t.Fatalf("expected field chooser, got %q", f.api.lastMessage())
	}

	f.dispatcher.HandleUpdate(ctx, callback(99, "edit_field:5:title"))
	f.dispatcher.HandleUpdate(ctx, privateMessage(99, "Spring Party"))

	if ev.Title == nil || *ev.Title != "Spring Party" {
		t.Fatalf("title not updated: %v", ev.Title)
	}

	// The chooser comes back with the fresh value so another field can be
	// edited right away.
	if !strings.Contains(f.api.lastMessage(), "Spring Party") {
		t.Fatalf("expected chooser with current values, got %q", f.api.lastMessage())
	}
	f.dispatcher.HandleUpdate(ctx, callback(99, "edit_field:5:location"))
	f.dispatcher.HandleUpdate(ctx, privateMessage(99, "COM1"))
	if ev.Location == nil || *ev.Location != "COM1" {
		t.Fatalf("location not updated on second loop: %v", ev.Location)
	}
}

func TestEditCommandOpensChooser(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99})
	ev := &models.Event{ID: 5, Text: "party", AccountID: int64Ptr(1)}
	f := newTestBot(t, accounts, newMemEvents(ev))

	f.dispatcher.HandleUpdate(context.Background(), privateMessage(99, "/edit 5"))
	if !strings.Contains(f.api.lastMessage(), "change") {
		t.Fatalf("expected field chooser, got %q", f.api.lastMessage())
	}
}

func TestEditEntryRejectsNonOwner(t *testing.T) {
	accounts := newMemAccounts(
		&models.Account{ID: 1, TelegramID: 99},
		&models.Account{ID: 2, TelegramID: 77},
	)
	ev := &models.Event{ID: 5, Text: "party", AccountID: int64Ptr(1)}
	f := newTestBot(t, accounts, newMemEvents(ev))
	ctx := context.Background()

	// A crafted callback must not open the flow for someone else's event.
	f.dispatcher.HandleUpdate(ctx, callback(77, "mod:edit:5"))
	if !strings.Contains(f.api.lastMessage(), "Only the poster") {
		t.Fatalf("expected ownership rejection, got %q", f.api.lastMessage())
	}

	f.dispatcher.HandleUpdate(ctx, callback(77, "edit_field:5:title"))
	f.dispatcher.HandleUpdate(ctx, privateMessage(77, "Hijacked"))
	if ev.Title != nil {
		t.Fatalf("non-owner edit must not stick: %v", ev.Title)
	}
}

func TestDeleteCommandAsksForConfirmation(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99})
	ev := &models.Event{ID: 5, Text: "party", AccountID: int64Ptr(1)}
	f := newTestBot(t, accounts, newMemEvents(ev))

	f.dispatcher.HandleUpdate(context.Background(), privateMessage(99, "/delete 5"))
	if ev.IsDeleted {
		t.Fatal("delete should wait for confirmation")
	}
	if !strings.Contains(f.api.lastMessage(), "Delete this event?") {
		t.Fatalf("expected confirmation prompt, got %q", f.api.lastMessage())
	}
}

func TestEditFlowRepromptsOnBadDate(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99})
	ev := &models.Event{ID: 5, Text: "party", AccountID: int64Ptr(1)}
	events := newMemEvents(ev)
	f := newTestBot(t, accounts, events)
	ctx := context.Background()

	f.dispatcher.HandleUpdate(ctx, callback(99, "edit_field:5:date"))
	f.dispatcher.HandleUpdate(ctx, privateMessage(99, "next friday"))
	if ev.Date != nil {
		t.Fatal("malformed date must not be stored")
	}

	// Flow is still open, a correct value goes through.
	f.dispatcher.HandleUpdate(ctx, privateMessage(99, "2026-09-12T18:00:00+08:00"))
	if ev.Date == nil {
		t.Fatal("valid date should be stored after a retry")
	}
}

func TestDeleteCallback(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99})
	ev := &models.Event{ID: 5, Text: "party", AccountID: int64Ptr(1)}
	f := newTestBot(t, accounts, newMemEvents(ev))

	ctx := context.Background()
	f.dispatcher.HandleUpdate(ctx, callback(99, "mod:del:5"))
	if ev.IsDeleted {
		t.Fatal("delete should wait for confirmation")
	}
	if !strings.Contains(f.api.lastMessage(), "Delete this event?") {
		t.Fatalf("expected confirmation prompt, got %q", f.api.lastMessage())
	}

	f.dispatcher.HandleUpdate(ctx, callback(99, "mod:confirm:5"))
	if !ev.IsDeleted {
		t.Fatal("expected soft delete after confirmation")
	}
}

func TestNewsletterTimeCommand(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99, NewsletterTime: "08:00"})
	f := newTestBot(t, accounts, newMemEvents())
	ctx := context.Background()

	f.dispatcher.HandleUpdate(ctx, privateMessage(99, "/newslettertime"))
	if !strings.Contains(f.api.lastMessage(), "08:00") {
		t.Fatalf("expected current time display, got %q", f.api.lastMessage())
	}

	f.dispatcher.HandleUpdate(ctx, privateMessage(99, "/newslettertime 21:30"))
	if !strings.Contains(f.api.lastMessage(), "21:30") {
		t.Fatalf("expected confirmation, got %q", f.api.lastMessage())
	}
	if accounts.byTelegramID[99].NewsletterTime != "21:30" {
		t.Error("newsletter time not persisted")
	}
}

func TestSubscribeToggleRefreshesKeyboard(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99})
	f := newTestBot(t, accounts, newMemEvents())

	f.dispatcher.HandleUpdate(context.Background(), callback(99, "sub:3"))

	var sawMarkupEdit bool
	for _, req := range f.api.requests {
		if _, ok := req.(tgbotapi.EditMessageReplyMarkupConfig); ok {
			sawMarkupEdit = true
		}
	}
	if !sawMarkupEdit {
		t.Error("subscribe keyboard was not refreshed after toggle")
	}
}

func TestSendOnboardingGreetsVerifiedUser(t *testing.T) {
	account := &models.Account{ID: 1, TelegramID: 99}
	f := newTestBot(t, newMemAccounts(account), newMemEvents())

	f.dispatcher.SendOnboarding(context.Background(), account)
	if !strings.Contains(f.api.lastMessage(), "verified") {
		t.Fatalf("expected welcome text, got %q", f.api.lastMessage())
	}
	last := f.api.sent[len(f.api.sent)-1].(tgbotapi.MessageConfig)
	if last.ReplyMarkup == nil {
		t.Error("expected category keyboard on onboarding message")
	}
}

func TestShowCallbackHidesDeletedEvent(t *testing.T) {
	accounts := newMemAccounts(&models.Account{ID: 1, TelegramID: 99})
	f := newTestBot(t, accounts, newMemEvents(&models.Event{ID: 5, Text: "party", IsDeleted: true}))

	f.dispatcher.HandleUpdate(context.Background(), callback(99, "show:5"))
	if !strings.Contains(f.api.lastMessage(), "gone") {
		t.Fatalf("expected deleted event to be unaddressable, got %q", f.api.lastMessage())
	}
}
