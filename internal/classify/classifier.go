// Package classify assigns documents to the fixed category set, either by
// weighted keyword scoring or by a closed-list LLM prompt with keyword
// fallback. The strategy is chosen by configuration at pipeline
// construction, not by runtime type inspection.
package classify

import (
	"context"
	"strings"

	"github.com/clindraft/clindraft/internal/model"
)

// Result is the outcome of classifying one document.
type Result struct {
	Category   model.Category `json:"category"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning,omitempty"`
	// LLMFallback is set when LLM classification degraded to keyword mode.
	// A fallback is not an error, only reduced confidence.
	LLMFallback bool `json:"llm_fallback,omitempty"`
}

// Classifier assigns a category to document text. Implementations are pure
// functions of the input; persisting the result is the caller's concern.
type Classifier interface {
	Classify(ctx context.Context, text, filename string) (Result, error)
}

// keyword occurrences beyond this count stop adding to the score.
const keywordHitCap = 5

// KeywordClassifier scores each category by capped keyword hit counts plus
// a filename bonus, normalized across categories. Ties break by the
// declared priority order, with "other" last.
type KeywordClassifier struct {
	table         []model.CategoryInfo
	filenameBonus float64
	minConfidence float64
}

// NewKeywordClassifier creates a keyword classifier from configuration.
func NewKeywordClassifier(cfg model.ClassifierConfig) *KeywordClassifier {
	return &KeywordClassifier{
		table:         model.CategoryTable(),
		filenameBonus: cfg.FilenameBonus,
		minConfidence: cfg.MinConfidence,
	}
}

// Classify scores the text against every category's keyword list. It is
// deterministic for a fixed category table and never fails.
func (c *KeywordClassifier) Classify(_ context.Context, text, filename string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{Category: model.CategoryOther, Confidence: 0, Reasoning: "no text content"}, nil
	}

	textLower := strings.ToLower(text)
	nameLower := strings.ToLower(filename)

	var total float64
	best := Result{Category: model.CategoryOther}
	var bestScore float64
	found := false

	for _, info := range c.table {
		var score float64
		for _, kw := range info.Keywords {
			hits := strings.Count(textLower, kw)
			if hits > keywordHitCap {
				hits = keywordHitCap
			}
			score += float64(hits)
			if strings.Contains(nameLower, kw) {
				score += c.filenameBonus
			}
		}
		total += score
		// Strictly greater keeps the first (highest-priority) category
		// on ties; "other" has no keywords and is never picked here.
		if score > bestScore {
			bestScore = score
			best.Category = info.Category
			found = true
		}
	}

	if !found || total == 0 {
		return Result{
			Category:   model.CategoryOther,
			Confidence: 0.5,
			Reasoning:  "no keyword matches",
		}, nil
	}

	confidence := bestScore / total
	if confidence < c.minConfidence {
		return Result{
			Category:   model.CategoryOther,
			Confidence: 0.5,
			Reasoning:  "keyword signal too weak",
		}, nil
	}

	best.Confidence = confidence
	best.Reasoning = "keyword analysis"
	return best, nil
}
