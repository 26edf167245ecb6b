package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clindraft/clindraft/internal/llm"
	"github.com/clindraft/clindraft/internal/model"
)

// excerptLimit bounds how much document text is sent for classification.
const excerptLimit = 1500

// LLMClassifier asks the model to pick one label from the closed category
// list. Any failure, and any answer outside the declared set, falls back
// to keyword classification with LLMFallback set. The call is bounded by
// the provider's configured timeout and never blocks indefinitely.
type LLMClassifier struct {
	provider llm.Provider
	fallback *KeywordClassifier
}

// NewLLMClassifier creates an LLM classifier with a keyword fallback.
func NewLLMClassifier(provider llm.Provider, cfg model.ClassifierConfig) *LLMClassifier {
	return &LLMClassifier{
		provider: provider,
		fallback: NewKeywordClassifier(cfg),
	}
}

type classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Classify prompts the model with the closed category list and parses its
// single-label JSON answer.
func (c *LLMClassifier) Classify(ctx context.Context, text, filename string) (Result, error) {
	if c.provider == nil {
		return c.fallbackResult(ctx, text, filename)
	}

	resp, err := c.provider.Generate(ctx, llm.GenerateRequest{
		System:      "You are a medical device regulatory expert.",
		Prompt:      buildClassificationPrompt(filename, Excerpt(text, excerptLimit)),
		Temperature: 0.1, // consistency over creativity
		MaxTokens:   200,
	})
	if err != nil {
		return c.fallbackResult(ctx, text, filename)
	}

	parsed, err := parseClassification(resp.Text)
	if err != nil {
		return c.fallbackResult(ctx, text, filename)
	}

	cat := model.Category(parsed.Category)
	if !model.ValidCategory(cat) {
		return c.fallbackResult(ctx, text, filename)
	}

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Result{
		Category:   cat,
		Confidence: confidence,
		Reasoning:  parsed.Reasoning,
	}, nil
}

func (c *LLMClassifier) fallbackResult(ctx context.Context, text, filename string) (Result, error) {
	res, err := c.fallback.Classify(ctx, text, filename)
	res.LLMFallback = true
	return res, err
}

func buildClassificationPrompt(filename, excerpt string) string {
	var categories strings.Builder
	for _, info := range model.CategoryTable() {
		fmt.Fprintf(&categories, "- %s: %s\n", info.Category, info.Description)
	}

	return fmt.Sprintf(`Classify the following document into exactly ONE of these categories:

%s
Document filename: %s
Document content (excerpt):
%s

Respond with ONLY a JSON object in this exact format:
{"category": "category_name", "confidence": 0.95, "reasoning": "Brief explanation"}`,
		categories.String(), filename, excerpt)
}

// parseClassification extracts the JSON object from the model's answer,
// tolerating surrounding prose.
func parseClassification(response string) (classification, error) {
	var result classification

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return result, fmt.Errorf("no JSON object in response")
	}

	if err := json.Unmarshal([]byte(response[start:end+1]), &result); err != nil {
		return result, fmt.Errorf("parse classification: %w", err)
	}
	return result, nil
}

// Excerpt returns at most maxLen bytes of text, cut at a word boundary.
func Excerpt(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	cut := text[:maxLen]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}

// New creates the classifier selected by configuration.
func New(cfg model.ClassifierConfig, provider llm.Provider) Classifier {
	if cfg.Mode == "llm" {
		return NewLLMClassifier(provider, cfg)
	}
	return NewKeywordClassifier(cfg)
}
