// Package sqlgen generates candidate SQL for natural language questions by
// prompting an external model with the schema and the live asset catalog.
// Its output is untrusted text: callers must pass it through the safety
// gate before execution, and must fetch the catalog fresh on every call so
// newly added assets are immediately nameable.
package sqlgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"market-qa/internal/models"
)

// ErrNotConfigured is returned by NewGenerator when no API key is set.
// Callers distinguish this (service not configured) from call failures.
var ErrNotConfigured = errors.New("llm is not configured: OPENROUTER_API_KEY is not set")

// GeneratorConfig holds configuration for the SQL generator.
type GeneratorConfig struct {
	// OpenRouter / LLM settings.
	APIKey string
	// Model name as understood by OpenRouter, e.g. "openai/gpt-4.1-mini".
	Model     string
	MaxTokens int

	Logger *logrus.Logger
}

// Generator produces SQL candidates from natural language questions.
type Generator struct {
	llm       llms.Model
	model     string
	maxTokens int
	logger    *logrus.Logger
}

// NewGenerator creates a Generator backed by OpenRouter (OpenAI-compatible
// API). Returns ErrNotConfigured when no API key is available.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4.1-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 400
	}

	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL("https://openrouter.ai/api/v1"),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter LLM: %w", err)
	}

	cfg.Logger.WithField("model", cfg.Model).Info("initialized SQL generator")

	return &Generator{
		llm:       llm,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}, nil
}

// Model returns the configured model name, for the health probe.
func (g *Generator) Model() string { return g.model }

// Generate asks the model for a single SELECT answering the question.
// assets must be the catalog as fetched from the store on this request;
// the model is instructed never to reference assets outside that list.
// The returned string has code fences stripped but is otherwise raw and
// untrusted.
func (g *Generator) Generate(ctx context.Context, question string, assets []models.Asset) (string, error) {
	prompt := buildPrompt(question, assets)

	resp, err := llms.GenerateFromSinglePrompt(
		ctx,
		g.llm,
		prompt,
		llms.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("LLM SQL generation failed: %w", err)
	}

	sqlText := StripFences(resp)
	g.logger.WithField("sql", sqlText).Debug("generated SQL from question")
	return sqlText, nil
}

// buildPrompt renders the fixed prompt template: schema, live asset list,
// and the rules the model must follow.
func buildPrompt(question string, assets []models.Asset) string {
	var assetLines string
	if len(assets) > 0 {
		lines := make([]string, 0, len(assets))
		for _, a := range assets {
			lines = append(lines, fmt.Sprintf("- id %d: %s (symbol: %s)", a.AssetID, a.Name, a.Symbol))
		}
		assetLines = strings.Join(lines, "\n")
	} else {
		assetLines = "WARNING: Could not load assets from the database."
	}

	return strings.TrimSpace(fmt.Sprintf(`
You are a MySQL expert. Given a user's question and the database schema, write a single
safe SQL SELECT query that answers the question.

Here is the ACTUAL list of assets in the database:
%s

Important rules about assets:
- ALWAYS identify assets using Asset.symbol in WHERE clauses (e.g., 'AAPL', 'TSLA', 'BTC').
- You may use Asset.name in SELECT lists, but NOT in filters.
- Never guess asset names that are not in the list above.
- If you cannot confidently map the user's wording to one of the assets, return:
  %s

General rules:
- Only use the tables and columns from the schema.
- NEVER modify data: no INSERT, UPDATE, DELETE, DROP, ALTER, TRUNCATE, CREATE, etc.
- Only output the SQL query, nothing else.
- Prefer using Asset.symbol to identify assets instead of numeric ids.

Database schema:
%s

User question:
%s
`, assetLines, FallbackQuery, schemaDescription, question))
}

// StripFences removes markdown code fencing from a model reply: a leading
// fence with an optional "sql" language tag, and a trailing fence. The
// content between the fences is returned trimmed.
func StripFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
		if strings.HasPrefix(strings.ToLower(s), "sql") {
			s = strings.TrimSpace(s[3:])
		}
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}
