// Package entity pulls structured device facts out of document text.
// A rule pass runs regex templates for known field shapes; an optional LLM
// pass fills the remaining keys of the fixed schema. Extraction is
// best-effort and never aborts document processing.
package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/clindraft/clindraft/internal/llm"
	"github.com/clindraft/clindraft/internal/model"
)

// excerptLimit bounds the text sent for LLM extraction; more generous than
// classification since entities are scattered through a document.
const excerptLimit = 3000

// Result carries the extracted entities plus the count of LLM values
// dropped for violating the schema. Drops are recorded, not errors.
type Result struct {
	Entities []model.Entity
	Dropped  int
}

// Extractor extracts entities from document text.
type Extractor struct {
	provider llm.Provider // nil disables the LLM pass
}

// New creates an extractor. A nil provider limits extraction to rules.
func New(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

var (
	deviceClassRe = regexp.MustCompile(`(?i)Class\s+(III|IIb|IIa|II|I|3|2a|2b|2|1)\b`)
	modelNumberRe = regexp.MustCompile(`(?i)(?:Model|Product|Catalog)\s*(?:Number|No\.?|#)?\s*:?\s*([A-Z0-9][A-Z0-9\-]{1,31})`)
	sterileRe     = regexp.MustCompile(`(?i)\bsterile\b`)
	nonSterileRe  = regexp.MustCompile(`(?i)\bnon-sterile\b`)
	singleUseRe   = regexp.MustCompile(`(?i)\bsingle[\s-]use\b`)
	reusableRe    = regexp.MustCompile(`(?i)\breusable\b|\bmulti[\s-]use\b`)
	implantableRe = regexp.MustCompile(`(?i)\bimplant(?:able|ed)?\b`)
	activeRe      = regexp.MustCompile(`(?i)\bactive\s+(?:medical\s+)?device\b`)
	softwareRe    = regexp.MustCompile(`(?i)\bsoftware\b|\bIEC\s+62304\b|\balgorithm\b`)
	isoStandardRe = regexp.MustCompile(`ISO\s+\d{4,5}(?:[-:]\d+)?`)
)

// ExtractRules runs the regex templates and returns rule-sourced entities
// with character-offset provenance.
func ExtractRules(text, documentID string) []model.Entity {
	var entities []model.Entity

	add := func(key, value string, offset int) {
		entities = append(entities, model.Entity{
			Key:        key,
			Value:      value,
			DocumentID: documentID,
			Offset:     offset,
			Source:     model.EntitySourceRule,
		})
	}

	if loc := deviceClassRe.FindStringSubmatchIndex(text); loc != nil {
		add("device_class", text[loc[2]:loc[3]], loc[0])
	}
	if loc := modelNumberRe.FindStringSubmatchIndex(text); loc != nil {
		add("device_model", text[loc[2]:loc[3]], loc[0])
	}

	if loc := nonSterileRe.FindStringIndex(text); loc != nil {
		add("sterile", "No", loc[0])
	} else if loc := sterileRe.FindStringIndex(text); loc != nil {
		add("sterile", "Yes", loc[0])
	}

	if loc := singleUseRe.FindStringIndex(text); loc != nil {
		add("single_use", "Yes", loc[0])
	} else if loc := reusableRe.FindStringIndex(text); loc != nil {
		add("single_use", "No", loc[0])
	}

	if loc := implantableRe.FindStringIndex(text); loc != nil {
		add("implantable", "Yes", loc[0])
	}
	if loc := activeRe.FindStringIndex(text); loc != nil {
		add("active_device", "Yes", loc[0])
	}
	if loc := softwareRe.FindStringIndex(text); loc != nil {
		add("contains_software", "Yes", loc[0])
	}

	seen := make(map[string]bool)
	for _, loc := range isoStandardRe.FindAllStringIndex(text, -1) {
		standard := text[loc[0]:loc[1]]
		if !seen[standard] {
			seen[standard] = true
			add("applicable_standards", standard, loc[0])
		}
	}

	return entities
}

// Extract runs the rule pass and, when a provider is configured, the LLM
// pass. LLM values for keys already found by rules are skipped; values for
// keys outside the schema are dropped and counted.
func (e *Extractor) Extract(ctx context.Context, text, filename, documentID string) Result {
	entities := ExtractRules(text, documentID)

	if e.provider == nil {
		return Result{Entities: entities}
	}

	llmEntities, dropped, err := e.extractLLM(ctx, text, filename, documentID)
	if err != nil {
		// Best effort: the rule results stand on their own.
		return Result{Entities: entities}
	}

	haveKey := make(map[string]bool, len(entities))
	for _, ent := range entities {
		haveKey[ent.Key] = true
	}
	for _, ent := range llmEntities {
		if !haveKey[ent.Key] {
			entities = append(entities, ent)
		}
	}

	return Result{Entities: entities, Dropped: dropped}
}

func (e *Extractor) extractLLM(ctx context.Context, text, filename, documentID string) ([]model.Entity, int, error) {
	resp, err := e.provider.Generate(ctx, llm.GenerateRequest{
		System:      "You are a medical device regulatory expert.",
		Prompt:      buildExtractionPrompt(filename, excerpt(text)),
		Temperature: 0.1,
		MaxTokens:   800,
	})
	if err != nil {
		return nil, 0, err
	}

	raw, err := parseExtraction(resp.Text)
	if err != nil {
		return nil, 0, err
	}

	valid := make(map[string]bool, len(model.EntityKeys))
	for _, k := range model.EntityKeys {
		valid[k] = true
	}

	var entities []model.Entity
	dropped := 0
	for key, value := range raw {
		if !valid[key] {
			dropped++
			continue
		}
		for _, v := range flatten(value) {
			entities = append(entities, model.Entity{
				Key:        key,
				Value:      v,
				DocumentID: documentID,
				Source:     model.EntitySourceLLM,
			})
		}
	}
	return entities, dropped, nil
}

func buildExtractionPrompt(filename, excerpt string) string {
	return fmt.Sprintf(`Extract the following entities from this document:

Entities to extract:
- %s

Document filename: %s
Document content (excerpt):
%s

Respond with ONLY a JSON object mapping entity names to values.
Use null for any entity you cannot find.`,
		strings.Join(model.EntityKeys, "\n- "), filename, excerpt)
}

// parseExtraction pulls the JSON object out of the model answer and keeps
// non-empty values only.
func parseExtraction(response string) (map[string]any, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parse extraction: %w", err)
	}

	for key, value := range raw {
		if value == nil {
			delete(raw, key)
			continue
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			delete(raw, key)
		}
	}
	return raw, nil
}

// flatten renders a JSON value as one or more entity value strings.
// Lists become one entity per element.
func flatten(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, flatten(item)...)
		}
		return out
	case bool:
		if v {
			return []string{"Yes"}
		}
		return []string{"No"}
	default:
		return []string{fmt.Sprint(v)}
	}
}

func excerpt(text string) string {
	if len(text) <= excerptLimit {
		return text
	}
	cut := text[:excerptLimit]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}
