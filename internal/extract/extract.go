// Package extract turns free-form text into a validated activity
// record via a single language-model call. Decoding the model output
// and validating its semantics are two distinct stages so that a
// malformed response and a rule violation remain distinguishable
// error kinds.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tyler-sommer/stick"

	"github.com/openevents/submitbot/internal/activity"
)

// Prompt construction limits. The content prefix bound keeps the
// request inside model context limits; the tag and ID caps keep the
// system prompt focused.
const (
	maxContentChars  = 8000
	maxPreferredTags = 20
	maxTakenIDs      = 10
)

// ErrMalformedOutput marks model responses that did not decode as a
// JSON object. This is never retried; the failure surfaces immediately.
var ErrMalformedOutput = errors.New("malformed model output")

// DuplicateIDError reports an extracted event ID that already exists
// somewhere in the dataset.
type DuplicateIDError struct {
	ID    string
	Index int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("event %d: duplicate ID %q", e.Index, e.ID)
}

// ValidationError carries every rule violation found in a single model
// response, in discovery order. Individual typed violations (such as
// *DuplicateIDError) remain reachable through errors.As.
type ValidationError struct {
	errs []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.errs))
	for i, err := range e.errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error { return e.errs }

// Invoker issues one chat completion. Implementations exist for the
// Gemini API and for OpenAI-compatible endpoints; tests substitute
// their own.
type Invoker interface {
	Generate(ctx context.Context, model, system, user string) ([]byte, error)
}

// Extractor drives the model call and validates its output.
type Extractor struct {
	invoker Invoker
	prompts *Prompts
	model   string
	log     *slog.Logger
}

// New builds an extractor around an invoker. A nil logger falls back
// to slog.Default().
func New(invoker Invoker, model string, log *slog.Logger) (*Extractor, error) {
	if invoker == nil {
		return nil, errors.New("extract: invoker is required")
	}
	if model == "" {
		return nil, errors.New("extract: model is required")
	}
	if log == nil {
		log = slog.Default()
	}
	prompts, err := LoadPrompts()
	if err != nil {
		return nil, fmt.Errorf("extract: load prompts: %w", err)
	}
	return &Extractor{invoker: invoker, prompts: prompts, model: model, log: log}, nil
}

// Extract sends content (truncated to a bounded prefix) to the model
// and returns the validated record. existingTags steer the model's tag
// vocabulary; existingIDs are both advertised to the model and checked
// against the response. No partial record is ever returned.
func (x *Extractor) Extract(ctx context.Context, content, sourceURL string, existingTags, existingIDs []string) (*activity.Record, error) {
	system, user, err := x.buildPrompts(content, sourceURL, existingTags, existingIDs)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	x.log.Debug("requesting completion",
		"model", x.model,
		"source_url", sourceURL,
		"content_length", len(content),
		"existing_tags", len(existingTags),
		"existing_ids", len(existingIDs))

	raw, err := x.invoker.Generate(ctx, x.model, system, user)
	if err != nil {
		return nil, fmt.Errorf("extract: model call failed: %w", err)
	}

	raw = SanitizeJSONResponse(raw)
	x.log.Debug("received completion", "response_length", len(raw))

	var rec activity.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("extract: %w: %v", ErrMalformedOutput, err)
	}

	if err := validateRecord(&rec, existingIDs); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return &rec, nil
}

func (x *Extractor) buildPrompts(content, sourceURL string, existingTags, existingIDs []string) (system, user string, err error) {
	system, err = x.prompts.Render("system", map[string]stick.Value{
		"preferred_tags": joinOr(head(existingTags, maxPreferredTags), "none"),
		"taken_ids":      joinOr(head(existingIDs, maxTakenIDs), "none"),
	})
	if err != nil {
		return "", "", err
	}

	user, err = x.prompts.Render("user", map[string]stick.Value{
		"source_url": sourceURL,
		"content":    truncate(content, maxContentChars),
	})
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

// validateRecord collects every violation instead of stopping at the
// first, so the caller sees all problems at once.
func validateRecord(rec *activity.Record, existingIDs []string) error {
	taken := make(map[string]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		taken[id] = struct{}{}
	}

	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if rec.Title == "" {
		add("missing or invalid title")
	}
	if rec.Description == "" {
		add("missing or invalid description")
	}
	if !rec.Category.Valid() {
		add("invalid category (must be conference, competition, or activity)")
	}
	if len(rec.Tags) == 0 {
		add("tags must be a non-empty array")
	}
	if len(rec.Events) == 0 {
		add("events must be a non-empty array")
	}

	for i, ev := range rec.Events {
		if ev.ID == "" {
			add("event %d: missing or invalid id", i)
		} else if _, dup := taken[ev.ID]; dup {
			errs = append(errs, &DuplicateIDError{ID: ev.ID, Index: i})
		}
		if ev.Year == 0 {
			add("event %d: missing or invalid year", i)
		}
		if ev.Link == "" {
			add("event %d: missing or invalid link", i)
		}
		if len(ev.Timeline) == 0 {
			add("event %d: timeline must be a non-empty array", i)
		}
		if ev.Timezone == "" {
			add("event %d: missing or invalid timezone", i)
		}
	}

	if len(errs) > 0 {
		return &ValidationError{errs: errs}
	}
	return nil
}

func head(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
