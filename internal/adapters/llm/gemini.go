package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
)

// Temperatures per call kind: deterministic for classification and
// extraction, creative for user-facing text.
const (
	tempPrecise  = float32(0.1)
	tempCreative = float32(0.7)
)

// GeminiClient backs every model port (Summarizer, Classifier, Extractor,
// Replier, Renderer) with Vertex AI. One client, five interfaces.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, projectID, location, modelName string) (*GeminiClient, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("gcp project and location are required for Gemini client")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// generate runs a single-prompt completion and returns only the text.
func (g *GeminiClient) generate(ctx context.Context, prompt string, temperature float32, cfg *genai.GenerateContentConfig) (string, error) {
	if cfg == nil {
		cfg = &genai.GenerateContentConfig{}
	}
	temp := temperature
	cfg.Temperature = &temp

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}

func (g *GeminiClient) Summarize(ctx context.Context, messages []*domain.Message, now time.Time) (string, error) {
	out, err := g.generate(ctx, buildSummaryPrompt(messages), tempPrecise, nil)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (g *GeminiClient) Classify(ctx context.Context, summary string) (domain.Intent, error) {
	out, err := g.generate(ctx, buildIntentPrompt(summary), tempPrecise, nil)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	return ParseIntent(out)
}

func (g *GeminiClient) Reply(ctx context.Context, summary string) (string, error) {
	out, err := g.generate(ctx, buildConversationPrompt(summary), tempCreative, nil)
	if err != nil {
		return "", fmt.Errorf("reply: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (g *GeminiClient) Render(ctx context.Context, message string) (string, error) {
	out, err := g.generate(ctx, buildRenderPrompt(message), tempCreative, nil)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// extractionDoc mirrors the JSON the model is constrained to produce.
// Pointers keep "not found" (null) distinct from "found but empty".
type extractionDoc struct {
	Message      *string `json:"message"`
	ScheduleTime *string `json:"schedule_time"`
}

func (g *GeminiClient) Extract(ctx context.Context, summary string, now time.Time) (domain.Extraction, error) {
	nullable := true
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"message": {
					Type:     genai.TypeString,
					Nullable: &nullable,
				},
				"schedule_time": {
					Type:     genai.TypeString,
					Nullable: &nullable,
				},
			},
			Required: []string{"message", "schedule_time"},
		},
	}

	prompt := buildExtractionPrompt(summary, now.Format(domain.ScheduleTimeLayout))
	out, err := g.generate(ctx, prompt, tempPrecise, cfg)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("extract: %w", err)
	}

	var doc extractionDoc
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		return domain.Extraction{}, fmt.Errorf("extract: decode model output: %w", err)
	}

	return domain.Extraction{
		Message:      normalize(doc.Message),
		ScheduleTime: normalize(doc.ScheduleTime),
	}, nil
}

// normalize maps blank or literal-null model output to an absent field.
func normalize(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" || strings.EqualFold(trimmed, "null") || strings.EqualFold(trimmed, "none") {
		return nil
	}
	return &trimmed
}

// ParseIntent maps a raw model label to an Intent. Anything outside the
// two expected labels is an error; classification is binary.
func ParseIntent(raw string) (domain.Intent, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(domain.IntentReminder):
		return domain.IntentReminder, nil
	case string(domain.IntentConversation):
		return domain.IntentConversation, nil
	default:
		return "", fmt.Errorf("unexpected intent label %q", raw)
	}
}
