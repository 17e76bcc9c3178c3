package extractor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
)

// ParsedEvent holds the structured fields the model extracted from an
// announcement. Nil means the field could not be determined.
type ParsedEvent struct {
	Title       *string `json:"title"`
	Date        *string `json:"date"`
	EndDate     *string `json:"end_date"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
}

const textExtractionPrompt = `Extract event details from the following message text.
Return a JSON object with these fields:
- title: string (short event title, or null if not determinable)
- date: string (ISO 8601 start datetime e.g. "2026-03-01T19:00:00+08:00", or null)
- end_date: string (ISO 8601 end datetime, or null if not found)
- location: string (event location/venue, or null if not found)
- description: string (brief event description, or null)

Only return valid JSON. Use null for fields that cannot be determined.`

const imageExtractionPrompt = `I could not find event details from the message text.

Please look at the attached event poster/image and extract:
Return a JSON object with these fields:
- title: string (short event title, or null if not determinable)
- date: string (ISO 8601 start datetime e.g. "2026-03-01T19:00:00+08:00", or null)
- end_date: string (ISO 8601 end datetime, or null if not found)
- location: string (event location/venue, or null if not found)
- description: string (brief event description, or null)

Only return valid JSON. Use null for fields that cannot be determined.`

// completionClient abstracts the model call so tests can stub it.
type completionClient interface {
	CompleteText(ctx context.Context, prompt string) (string, error)
	CompleteImage(ctx context.Context, prompt string, image []byte) (string, error)
}

// Extractor turns free-form announcement text (and optionally a poster
// image) into a ParsedEvent. It never returns an error to callers: any
// model or parsing failure degrades to an all-nil record.
type Extractor struct {
	client completionClient
	logger zerolog.Logger
}

// Config holds the inference endpoint settings
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// New creates an Extractor backed by an OpenAI-compatible endpoint
func New(cfg Config, logger zerolog.Logger) *Extractor {
	return &Extractor{
		client: newOpenAIClient(cfg),
		logger: logger,
	}
}

// newWithClient is used by tests to inject a fake model.
func newWithClient(client completionClient, logger zerolog.Logger) *Extractor {
	return &Extractor{client: client, logger: logger}
}

// Parse extracts event fields from text first. The image pass runs only
// when an image is present and the text pass left the date unresolved;
// it fills in still-nil fields and never overwrites text-resolved ones.
func (e *Extractor) Parse(ctx context.Context, text string, image []byte) ParsedEvent {
	result := e.parseText(ctx, text)

	if len(image) > 0 && result.Date == nil {
		e.logger.Info().Msg("Date not found in text, falling back to image parsing")
		fromImage := e.parseImage(ctx, image)
		mergeMissing(&result, fromImage)
	}

	return result
}

func (e *Extractor) parseText(ctx context.Context, text string) ParsedEvent {
	raw, err := e.client.CompleteText(ctx, text+"\n\n"+textExtractionPrompt)
	if err != nil {
		e.logger.Error().Err(err).Msg("Text extraction call failed")
		return ParsedEvent{}
	}
	return e.decode(raw)
}

func (e *Extractor) parseImage(ctx context.Context, image []byte) ParsedEvent {
	raw, err := e.client.CompleteImage(ctx, imageExtractionPrompt, image)
	if err != nil {
		e.logger.Error().Err(err).Msg("Image extraction call failed")
		return ParsedEvent{}
	}
	return e.decode(raw)
}

// decode parses the model's JSON reply, tolerating code fences around it.
func (e *Extractor) decode(raw string) ParsedEvent {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		e.logger.Error().Str("response", raw).Msg("Model response contained no JSON object")
		return ParsedEvent{}
	}

	var parsed ParsedEvent
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		e.logger.Error().Err(err).Str("response", raw).Msg("Failed to parse model response")
		return ParsedEvent{}
	}
	return parsed
}

// mergeMissing fills nil fields of dst from src.
func mergeMissing(dst *ParsedEvent, src ParsedEvent) {
	if dst.Title == nil {
		dst.Title = src.Title
	}
	if dst.Date == nil {
		dst.Date = src.Date
	}
	if dst.EndDate == nil {
		dst.EndDate = src.EndDate
	}
	if dst.Location == nil {
		dst.Location = src.Location
	}
	if dst.Description == nil {
		dst.Description = src.Description
	}
}
