// Package gemini implements the generation.Generator interface using
// Google's Gemini API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"text/template"
	"time"

	"github.com/mwarren/clipforge/internal/cache"
	"github.com/mwarren/clipforge/internal/config"
	"github.com/mwarren/clipforge/internal/generation"
	"google.golang.org/genai"
)

// scriptPromptTemplate asks for a strict-JSON response so the reply can be
// unmarshalled directly into the response schema.
const scriptPromptTemplate = `You are a scriptwriter for short YouTube videos.
Write a 60-90 second narration script about: {{.Topic}}

Respond with a single JSON object, no markdown fences, with these fields:
  "title": a catchy video title under 70 characters
  "body": the narration script
  "description": a 2-3 sentence video description
  "keywords": 5-10 search keywords
  "products": up to 3 purchasable products mentioned or relevant

JSON only.`

// responseSchema mirrors the JSON shape requested from the model.
type responseSchema struct {
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Products    []string `json:"products"`
}

type promptData struct {
	Topic string
}

// Generator implements generation.Generator against the Gemini API, with
// a read-through response cache so repeated runs on the same topic within
// the cache TTL do not pay for a second API call.
type Generator struct {
	logger         *slog.Logger
	config         config.ContentConfig
	promptTemplate *template.Template
	client         *genai.Client
	model          string
	cache          *cache.Store // nil disables caching

	// callModel performs one model invocation and returns the raw response
	// text. Tests replace it to avoid reaching the real API. Errors wrapping
	// generation.ErrContentBlocked or generation.ErrInvalidResponse are
	// permanent; anything else is treated as transient.
	callModel func(ctx context.Context, prompt string) (string, error)
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Gemini-backed script generator. The cache store
// may be nil, in which case every call reaches the API.
func NewGenerator(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.ContentConfig,
	store *cache.Store,
) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("script").Parse(scriptPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	g := &Generator{
		logger:         logger,
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
		cache:          store,
	}
	g.callModel = g.callGenai
	return g, nil
}

// GenerateScript creates a script and metadata for the given topic.
func (g *Generator) GenerateScript(ctx context.Context, topic string) (*generation.Script, error) {
	if topic == "" {
		return nil, fmt.Errorf("%w: topic cannot be empty", generation.ErrGenerationFailed)
	}

	cacheKey := cache.Key([]any{"script", g.model}, map[string]any{"topic": topic})
	if g.cache != nil {
		var cached generation.Script
		if g.cache.GetJSON(cacheKey, &cached) {
			g.logger.DebugContext(ctx, "script served from cache", "topic", topic)
			return &cached, nil
		}
	}

	prompt, err := g.createPrompt(topic)
	if err != nil {
		return nil, err
	}

	response, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	script := &generation.Script{
		Title:       response.Title,
		Body:        response.Body,
		Description: response.Description,
		Keywords:    response.Keywords,
		Products:    response.Products,
	}

	if script.Title == "" || script.Body == "" {
		return nil, fmt.Errorf("%w: response missing title or body", generation.ErrInvalidResponse)
	}

	if g.cache != nil {
		g.cache.Set(cacheKey, script)
	}

	return script, nil
}

func (g *Generator) createPrompt(topic string) (string, error) {
	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, promptData{Topic: topic}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// callWithRetry calls the Gemini API with exponential backoff plus jitter
// for transient errors. Permanent errors (safety blocks, unparseable
// responses) are returned immediately.
func (g *Generator) callWithRetry(ctx context.Context, prompt string) (*responseSchema, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelaySeconds := g.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		g.logger.InfoContext(ctx, "calling Gemini API",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1)

		response, err := g.callOnce(ctx, prompt)
		if err == nil {
			return response, nil
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attempt+1,
			"error", err)

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			return nil, err
		}
		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d)",
				generation.ErrTransientFailure, maxRetries)
		}

		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoffSeconds * (0.5 + rng.Float64()*0.5) * float64(time.Second))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// callOnce performs a single model call and parses the JSON reply.
func (g *Generator) callOnce(ctx context.Context, prompt string) (*responseSchema, error) {
	text, err := g.callModel(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed responseSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}

	return &parsed, nil
}

// callGenai is the production callModel implementation.
func (g *Generator) callGenai(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		// API-level errors (network, rate limits) are assumed transient.
		return "", fmt.Errorf("gemini API call error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: blocked by safety filters", generation.ErrContentBlocked)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response text", generation.ErrInvalidResponse)
	}
	return text, nil
}
