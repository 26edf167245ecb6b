package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/clindraft/clindraft/internal/chunker"
	"github.com/clindraft/clindraft/internal/llm"
	"github.com/clindraft/clindraft/internal/model"
	"github.com/clindraft/clindraft/internal/retrieve"
)

// NoEvidenceMarker is emitted verbatim when retrieval finds nothing for a
// section, so reviewers can tell an evidence gap from generated prose.
const NoEvidenceMarker = "[No supporting evidence was found in the indexed project documents for this section.]"

// summaryTokensPerSection bounds each completed section's contribution to
// the rolling summary passed to later sections.
const summaryTokensPerSection = 60

// Retriever is the slice of retrieval the generator needs.
type Retriever interface {
	Retrieve(ctx context.Context, projectID, query string, categories []model.Category) ([]retrieve.Passage, error)
}

// Generator produces reports section by section. Sections are generated
// sequentially so each prompt can carry a summary of the sections before
// it; a failed section never stops the ones after it.
type Generator struct {
	provider  llm.Provider
	retriever Retriever
	cfg       model.LLMConfig
	limiter   *rate.Limiter
}

// NewGenerator creates a generator. A positive RequestsPerSecond paces LLM
// calls, which matters when the report shares a local runtime with an
// ingest batch.
func NewGenerator(provider llm.Provider, retriever Retriever, cfg model.LLMConfig) *Generator {
	g := &Generator{provider: provider, retriever: retriever, cfg: cfg}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return g
}

// Generate produces a full report of the given type for the project.
// The returned report is Partial when any section failed; the error return
// is reserved for invalid input and cancellation.
func (g *Generator) Generate(ctx context.Context, projectID string, typ model.ReportType, deviceInfo map[string]string) (*model.Report, error) {
	templates, err := Template(typ)
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		return nil, fmt.Errorf("report generation requires a project id")
	}

	report := &model.Report{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Type:        typ,
		GeneratedAt: time.Now().UTC(),
	}
	for _, tmpl := range templates {
		report.Sections = append(report.Sections, model.ReportSection{
			Ordinal:    tmpl.Ordinal,
			Heading:    tmpl.Heading,
			Categories: tmpl.Categories,
			Status:     model.SectionNotStarted,
		})
	}

	for i := range report.Sections {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		g.generateSection(ctx, report, i, deviceInfo)
	}
	return report, nil
}

// RegenerateFailed redoes only the failed sections of an existing report,
// leaving completed sections and their text untouched.
func (g *Generator) RegenerateFailed(ctx context.Context, report *model.Report, deviceInfo map[string]string) error {
	for i := range report.Sections {
		if report.Sections[i].Status != model.SectionFailed {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Sections[i].Text = ""
		report.Sections[i].FailReason = ""
		report.Sections[i].ContextChunks = nil
		g.generateSection(ctx, report, i, deviceInfo)
	}
	report.GeneratedAt = time.Now().UTC()
	return nil
}

// generateSection runs one section through retrieve → prompt → LLM and
// records the outcome in place. Failures are captured on the section.
func (g *Generator) generateSection(ctx context.Context, report *model.Report, i int, deviceInfo map[string]string) {
	sec := &report.Sections[i]
	sec.Status = model.SectionGenerating

	sec.Query = buildQuery(sec.Heading, deviceInfo)
	passages, err := g.retriever.Retrieve(ctx, report.ProjectID, sec.Query, sec.Categories)
	if err != nil {
		sec.Status = model.SectionFailed
		sec.FailReason = fmt.Sprintf("retrieval: %v", err)
		return
	}

	// An evidence gap is a recorded outcome, not a drafting task.
	if len(passages) == 0 {
		sec.Text = NoEvidenceMarker
		sec.Status = model.SectionDone
		return
	}

	prompt := buildSectionPrompt(report.Type, sec.Heading, deviceInfo, passages, rollingSummary(report.Sections[:i]))

	text, err := g.callWithRetries(ctx, prompt)
	if err != nil {
		sec.Status = model.SectionFailed
		sec.FailReason = err.Error()
		return
	}

	sec.Text = text
	sec.Status = model.SectionDone
	for _, p := range passages {
		sec.ContextChunks = append(sec.ContextChunks, p.ChunkID)
	}
}

// callWithRetries calls the LLM, retrying transient failures only, with a
// linearly growing backoff.
func (g *Generator) callWithRetries(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, time.Duration(attempt)*g.cfg.RetryBackoff); err != nil {
				return "", err
			}
		}
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		resp, err := g.provider.Generate(ctx, llm.GenerateRequest{
			System:      "You are a medical device regulatory writer drafting documents per EU MDR 2017/745.",
			Prompt:      prompt,
			Temperature: -1, // use the configured temperature
			MaxTokens:   g.cfg.MaxTokens,
		})
		if err == nil {
			return resp.Text, nil
		}

		lastErr = err
		if !llm.Transient(err) {
			break
		}
	}
	return "", lastErr
}

func buildQuery(heading string, deviceInfo map[string]string) string {
	parts := []string{heading}
	if v := deviceInfo["device_name"]; v != "" {
		parts = append(parts, v)
	}
	if v := deviceInfo["intended_purpose"]; v != "" {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

func buildSectionPrompt(typ model.ReportType, heading string, deviceInfo map[string]string, passages []retrieve.Passage, summary string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are writing the %q section of a %s (%s).\n\n", heading, Title(typ), typ)

	b.WriteString("Device Information:\n")
	b.WriteString(formatDeviceInfo(deviceInfo))
	b.WriteString("\n\n")

	if summary != "" {
		b.WriteString("Sections written so far (for consistency, do not repeat them):\n")
		b.WriteString(summary)
		b.WriteString("\n\n")
	}

	b.WriteString("Relevant Context from Source Documents:\n")
	for _, p := range passages {
		fmt.Fprintf(&b, "[Source: %s]\n%s\n\n", p.Filename, p.Text)
	}

	b.WriteString("Write this section based only on the information provided. " +
		"Use formal regulatory language. " +
		"Output only the section content, no headers or titles.")
	return b.String()
}

func formatDeviceInfo(deviceInfo map[string]string) string {
	var lines []string
	for _, key := range model.EntityKeys {
		if value := deviceInfo[key]; value != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", titleCase(key), value))
		}
	}
	if len(lines) == 0 {
		return "Device information not available"
	}
	return strings.Join(lines, "\n")
}

// titleCase turns an entity key like "device_class" into "Device Class".
func titleCase(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// rollingSummary condenses prior sections for the next prompt: heading plus
// the first sentences of each completed section, token-bounded. Failed and
// pending sections contribute a gap marker, never fabricated content.
func rollingSummary(sections []model.ReportSection) string {
	var lines []string
	for _, s := range sections {
		switch s.Status {
		case model.SectionDone:
			lines = append(lines, fmt.Sprintf("%d. %s: %s",
				s.Ordinal, s.Heading, chunker.Truncate(firstSentences(s.Text, 2), summaryTokensPerSection)))
		default:
			lines = append(lines, fmt.Sprintf("%d. %s: [section not available]", s.Ordinal, s.Heading))
		}
	}
	return strings.Join(lines, "\n")
}

// firstSentences returns up to n leading sentences, splitting on periods
// followed by whitespace.
func firstSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	count := 0
	for i := 0; i < len(text)-1; i++ {
		if text[i] == '.' && (text[i+1] == ' ' || text[i+1] == '\n') {
			count++
			if count == n {
				return text[:i+1]
			}
		}
	}
	return text
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
