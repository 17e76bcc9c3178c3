package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/app/services"
	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
)

// maxPosterBytes caps how much of a poster image is pulled from Telegram.
const maxPosterBytes = 10 << 20

func (d *Dispatcher) handleGroupMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" || !d.ingest.HasTrigger(text) {
		return
	}

	var image []byte
	if len(msg.Photo) > 0 {
		// Telegram orders photo sizes ascending; take the largest.
		fileID := msg.Photo[len(msg.Photo)-1].FileID
		data, err := d.downloadFile(ctx, fileID)
		if err != nil {
			logger.Warn().Err(err).Msg("Poster download failed, extracting from text only")
		} else {
			image = data
		}
	}

	result, err := d.ingest.IngestPost(ctx, msg.From.ID, text, image)
	switch {
	case err == nil:
		d.confirmIngest(msg, result)
	case errors.Is(err, apperrors.ErrNotVerified):
		d.replyTo(msg, "I couldn't add that event: you need to verify first. DM me /verify to get set up.")
	case errors.Is(err, apperrors.ErrRateLimited):
		d.replyTo(msg, "Easy there! You've hit the posting limit, try again in a bit.")
	case errors.Is(err, apperrors.ErrDuplicateEvent):
		d.replyTo(msg, "Looks like this event was already posted.")
	default:
		logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Group post ingestion failed")
	}
}

func (d *Dispatcher) confirmIngest(msg *tgbotapi.Message, result *services.IngestResult) {
	ev := result.Event
	body := "✅ Event added to <b>#" + result.Category.Name + "</b>!"
	if ev.Title != nil && *ev.Title != "" {
		body = fmt.Sprintf("✅ <b>%s</b> added to #%s!", html.EscapeString(*ev.Title), result.Category.Name)
	}
	if ev.Date == nil {
		body += "\n⚠️ I couldn't find a date. The poster can set one via /manage in a DM."
	}
	out := newHTMLMessage(msg.Chat.ID, body)
	out.ReplyToMessageID = msg.MessageID
	out.ReplyMarkup = eventCardKeyboard(ev, models.RSVPCounts{})
	d.send(out)
}

func (d *Dispatcher) replyTo(msg *tgbotapi.Message, text string) {
	out := newHTMLMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	d.send(out)
}

func (d *Dispatcher) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := d.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolving file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching file: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPosterBytes))
}
