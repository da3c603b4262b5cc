// Package gemini generates itinerary drafts with Google's Gemini models.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/tripgate/internal/logging"
	"github.com/aretw0/tripgate/pkg/itinerary"
	"github.com/aretw0/tripgate/pkg/ports"
	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

// TextModel produces a raw completion for a prompt.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Model wraps a genai client configured for JSON output.
type Model struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewModel initializes a Gemini client. apiKey should come from the environment.
func NewModel(ctx context.Context, apiKey, name string) (*Model, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if name == "" {
		name = DefaultModel
	}
	model := client.GenerativeModel(name)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.4)

	return &Model{client: client, model: model}, nil
}

// GenerateText returns the concatenated text parts of the first candidate.
func (m *Model) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := m.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response candidates from Gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	return text.String(), nil
}

// Close releases the client.
func (m *Model) Close() error {
	return m.client.Close()
}

// Generator is a ports.DraftGenerator backed by a TextModel. Responses that
// fail the itinerary contract are handed to the fallback generator when one is set.
type Generator struct {
	model    TextModel
	fallback ports.DraftGenerator
	logger   *slog.Logger
}

// Option configures the Generator.
type Option func(*Generator)

// WithFallback sets the generator used when the model output is unusable.
func WithFallback(g ports.DraftGenerator) Option {
	return func(gen *Generator) {
		gen.fallback = g
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(gen *Generator) {
		gen.logger = logger
	}
}

// NewGenerator creates a Generator on model.
func NewGenerator(model TextModel, opts ...Option) *Generator {
	g := &Generator{model: model, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ ports.DraftGenerator = (*Generator)(nil)

// response is the document the model is asked to return.
type response struct {
	Itinerary   map[string]any `json:"itinerary"`
	Explanation string         `json:"explanation"`
	Missing     []string       `json:"missing"`
}

func (g *Generator) Generate(ctx context.Context, req ports.DraftRequest) (*ports.DraftResult, error) {
	raw, err := g.model.GenerateText(ctx, buildPrompt(req.Query))
	if err != nil {
		return g.fallbackOr(ctx, req, err)
	}

	var resp response
	if err := json.Unmarshal([]byte(cleanJSONString(raw)), &resp); err != nil {
		return g.fallbackOr(ctx, req, fmt.Errorf("failed to parse JSON response: %w", err))
	}
	if resp.Itinerary == nil {
		if len(resp.Missing) > 0 {
			return &ports.DraftResult{
				Text: fmt.Sprintf("为了生成结构化行程草案，请补充：%s。", strings.Join(resp.Missing, "、")),
			}, nil
		}
		return g.fallbackOr(ctx, req, errors.New("response carries no itinerary"))
	}

	// Identifiers are minted here, never by the model.
	resp.Itinerary["schema_version"] = itinerary.SchemaVersion
	resp.Itinerary["itinerary_id"] = uuid.NewString()
	resp.Itinerary["revision_id"] = uuid.NewString()
	resp.Itinerary["base_revision_id"] = nil

	it, err := itinerary.FromMap(resp.Itinerary)
	if err != nil {
		return g.fallbackOr(ctx, req, fmt.Errorf("model itinerary rejected: %w", err))
	}
	return &ports.DraftResult{Itinerary: it, Explanation: resp.Explanation}, nil
}

func (g *Generator) fallbackOr(ctx context.Context, req ports.DraftRequest, cause error) (*ports.DraftResult, error) {
	if g.fallback == nil || ctx.Err() != nil {
		return nil, cause
	}
	g.logger.Warn("Gemini draft unusable, falling back to rule-based draft",
		"conversation_id", req.ConversationID,
		"error", cause,
	)
	return g.fallback.Generate(ctx, req)
}

func buildPrompt(query string) string {
	return fmt.Sprintf(`Role: You are the trip planning core of a travel assistant.
Task: Build a day-by-day draft itinerary from the user's constraints.

Return ONE JSON object:
{
  "itinerary": <object following the JSON schema below, or null>,
  "explanation": "<one short paragraph in the user's language>",
  "missing": ["<label of each missing required constraint>"]
}

RULES:
- Destination, number of days and budget are required. If any is missing, set
  "itinerary" to null and list the missing ones in "missing" (目的地, 行程天数, 预算).
- Leave schema_version, itinerary_id, revision_id and base_revision_id empty; they are assigned later.
- Every day needs at least one slot with "slot" and "activity".
- budget_summary.total_estimate must not exceed the user's budget.
- Do not invent evidence URLs.

JSON schema:
%s

User constraints: %s`, itinerary.Schema(), query)
}

func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
