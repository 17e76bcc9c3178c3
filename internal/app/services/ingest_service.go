package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/extractor"
	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
	"github.com/unipulse/unipulse-bot/internal/pkg/filestorage"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
	"github.com/unipulse/unipulse-bot/internal/ratelimit"
)

var hashtagRe = regexp.MustCompile(`#(\w+)`)

// knownCategories are the seeded defaults; the first hashtag matching one of
// these wins when picking an event's category.
var knownCategories = map[string]bool{
	"general": true,
	"sports":  true,
	"tech":    true,
	"social":  true,
	"arts":    true,
	"career":  true,
}

// Parser turns raw post text (and an optional poster image) into
// structured event fields. Extraction failures surface as all-nil fields,
// never as errors: a post the model can't read is still stored raw.
type Parser interface {
	Parse(ctx context.Context, text string, image []byte) extractor.ParsedEvent
}

// IngestResult is what a successful post ingestion produced.
type IngestResult struct {
	Event    *models.Event
	Category *models.Category
}

// IngestService runs the group-post pipeline: account check, rate limit,
// extraction, dedup and persistence.
type IngestService struct {
	accounts   AccountStore
	events     EventStore
	categories CategoryStore
	parser     Parser
	limiter    ratelimit.Limiter
	storage    filestorage.PosterStorage
	triggerTag string
}

// NewIngestService creates a new IngestService.
func NewIngestService(
	accounts AccountStore,
	events EventStore,
	categories CategoryStore,
	parser Parser,
	limiter ratelimit.Limiter,
	storage filestorage.PosterStorage,
	triggerTag string,
) *IngestService {
	return &IngestService{
		accounts:   accounts,
		events:     events,
		categories: categories,
		parser:     parser,
		limiter:    limiter,
		storage:    storage,
		triggerTag: strings.ToLower(triggerTag),
	}
}

// HasTrigger reports whether text carries the trigger hashtag.
func (s *IngestService) HasTrigger(text string) bool {
	for _, tag := range hashtags(text) {
		if tag == s.triggerTag {
			return true
		}
	}
	return false
}

// IngestPost processes a tagged group post from the given Telegram user.
// image is the raw poster bytes when the post carried a photo, nil otherwise.
func (s *IngestService) IngestPost(ctx context.Context, telegramID int64, text string, image []byte) (*IngestResult, error) {
	account, err := s.accounts.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.ErrNotVerified
	}

	allowed, err := s.limiter.Allow(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrRateLimited
	}

	parsed := s.parser.Parse(ctx, text, image)

	hash := ComputeContentHash(text, parsed.Date)
	exists, err := s.events.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrDuplicateEvent
	}

	ev := &models.Event{
		Text:        text,
		Title:       parsed.Title,
		Location:    parsed.Location,
		Description: parsed.Description,
		AccountID:   &account.ID,
		TextHash:    hash,
	}
	if parsed.Date != nil {
		if t, perr := time.Parse(time.RFC3339, *parsed.Date); perr == nil {
			ev.Date = &t
		} else {
			logger.Warn().Str("date", *parsed.Date).Msg("Discarding unparseable event date")
		}
	}
	if parsed.EndDate != nil {
		if t, perr := time.Parse(time.RFC3339, *parsed.EndDate); perr == nil {
			ev.EndDate = &t
		}
	}

	category, err := s.categories.GetOrCreate(ctx, s.ExtractCategory(text))
	if err != nil {
		return nil, err
	}
	ev.CategoryID = &category.ID

	if err := s.events.Create(ctx, ev); err != nil {
		return nil, err
	}

	if len(image) > 0 && s.storage != nil {
		url, serr := s.storage.SavePoster(image, ".jpg")
		if serr != nil {
			logger.Error().Err(serr).Int64("event_id", ev.ID).Msg("Failed to store event poster")
		} else if _, ierr := s.events.AddImage(ctx, ev.ID, url); ierr != nil {
			logger.Error().Err(ierr).Int64("event_id", ev.ID).Msg("Failed to record event poster")
		} else {
			ev.ImageURL = &url
		}
	}

	ev.Category = category
	return &IngestResult{Event: ev, Category: category}, nil
}

// ExtractCategory picks the event category from the post's hashtags: the
// first tag matching a known category wins, otherwise the first non-trigger
// tag, otherwise "general".
func (s *IngestService) ExtractCategory(text string) string {
	var fallback string
	for _, tag := range hashtags(text) {
		if tag == s.triggerTag {
			continue
		}
		if knownCategories[tag] {
			return tag
		}
		if fallback == "" {
			fallback = tag
		}
	}
	if fallback != "" {
		return fallback
	}
	return "general"
}

// ComputeContentHash derives the dedup key for a post: the normalized text
// joined with the extracted date, hashed and truncated.
func ComputeContentHash(text string, date *string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	d := ""
	if date != nil {
		d = *date
	}
	sum := sha256.Sum256([]byte(normalized + "|" + d))
	return hex.EncodeToString(sum[:])[:32]
}

func hashtags(text string) []string {
	matches := hashtagRe.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.ToLower(m[1]))
	}
	return tags
}
