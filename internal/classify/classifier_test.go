package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clindraft/clindraft/internal/llm"
	"github.com/clindraft/clindraft/internal/model"
)

func testConfig() model.ClassifierConfig {
	return model.ClassifierConfig{
		Mode:          "keyword",
		FilenameBonus: 3,
		MinConfidence: 0.3,
	}
}

func TestKeywordClassifier_Categories(t *testing.T) {
	c := NewKeywordClassifier(testConfig())

	cases := []struct {
		name string
		text string
		want model.Category
	}{
		{
			"risk management",
			"The risk analysis follows ISO 14971. Each hazard was assigned a severity and probability rating in the FMEA.",
			model.CategoryRiskManagement,
		},
		{
			"biocompatibility",
			"Biocompatibility was evaluated per ISO 10993. Cytotoxicity, sensitization and irritation testing were performed.",
			model.CategoryBiocompatibility,
		},
		{
			"sterilization",
			"Sterilization validation achieved a SAL of 10-6 using gamma irradiation. Bioburden was monitored quarterly.",
			model.CategorySterilization,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := c.Classify(context.Background(), tc.text, "report.pdf")
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if res.Category != tc.want {
				t.Errorf("category = %s, want %s", res.Category, tc.want)
			}
			if res.Confidence <= 0 || res.Confidence > 1 {
				t.Errorf("confidence out of range: %f", res.Confidence)
			}
		})
	}
}

func TestKeywordClassifier_EmptyText(t *testing.T) {
	c := NewKeywordClassifier(testConfig())
	res, err := c.Classify(context.Background(), "", "file.txt")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Category != model.CategoryOther {
		t.Errorf("expected other, got %s", res.Category)
	}
}

func TestKeywordClassifier_NoMatches(t *testing.T) {
	c := NewKeywordClassifier(testConfig())
	res, err := c.Classify(context.Background(), "lorem ipsum dolor sit amet", "notes.txt")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Category != model.CategoryOther {
		t.Errorf("expected other, got %s", res.Category)
	}
	if res.Confidence != 0.5 {
		t.Errorf("expected 0.5 confidence, got %f", res.Confidence)
	}
}

func TestKeywordClassifier_FilenameBonus(t *testing.T) {
	c := NewKeywordClassifier(testConfig())
	// Text is neutral; the filename carries the signal.
	res, err := c.Classify(context.Background(),
		"See attached summary for details of the evaluation.",
		"fmea_hazard_analysis.xlsx")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Category != model.CategoryRiskManagement {
		t.Errorf("expected risk_management from filename, got %s", res.Category)
	}
}

func TestKeywordClassifier_Deterministic(t *testing.T) {
	c := NewKeywordClassifier(testConfig())
	text := "Clinical investigation enrolled 120 patients; the primary endpoint measured efficacy at 12 months."

	first, _ := c.Classify(context.Background(), text, "study.pdf")
	for i := 0; i < 10; i++ {
		got, _ := c.Classify(context.Background(), text, "study.pdf")
		if got != first {
			t.Fatalf("run %d: result differs: %+v vs %+v", i, got, first)
		}
	}
}

func newLLMProvider(t *testing.T, handler http.HandlerFunc) llm.Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := llm.NewOllamaProvider(model.LLMConfig{
		BaseURL: server.URL,
		Model:   "llama3:8b",
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewOllamaProvider: %v", err)
	}
	return p
}

func ollamaReply(w http.ResponseWriter, text string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":    "llama3:8b",
		"response": text,
		"done":     true,
	})
}

func TestLLMClassifier_ValidAnswer(t *testing.T) {
	provider := newLLMProvider(t, func(w http.ResponseWriter, r *http.Request) {
		ollamaReply(w, `{"category": "clinical_study", "confidence": 0.92, "reasoning": "trial data"}`)
	})

	c := NewLLMClassifier(provider, testConfig())
	res, err := c.Classify(context.Background(), "patients enrolled in the trial", "study.pdf")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Category != model.CategoryClinicalStudy {
		t.Errorf("category = %s, want clinical_study", res.Category)
	}
	if res.LLMFallback {
		t.Error("unexpected fallback flag")
	}
	if res.Confidence != 0.92 {
		t.Errorf("confidence = %f, want 0.92", res.Confidence)
	}
}

func TestLLMClassifier_UnknownLabelFallsBack(t *testing.T) {
	provider := newLLMProvider(t, func(w http.ResponseWriter, r *http.Request) {
		ollamaReply(w, `{"category": "made_up_label", "confidence": 0.9}`)
	})

	c := NewLLMClassifier(provider, testConfig())
	res, err := c.Classify(context.Background(),
		"The risk analysis follows ISO 14971 with hazard severity ratings.", "risk.pdf")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !res.LLMFallback {
		t.Error("expected llm_fallback flag")
	}
	if res.Category != model.CategoryRiskManagement {
		t.Errorf("fallback category = %s, want risk_management", res.Category)
	}
}

func TestLLMClassifier_ProviderErrorFallsBack(t *testing.T) {
	provider := newLLMProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := NewLLMClassifier(provider, testConfig())
	res, err := c.Classify(context.Background(), "hazard severity probability risk", "x.pdf")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !res.LLMFallback {
		t.Error("expected llm_fallback flag on provider error")
	}
}

func TestNew_StrategySelection(t *testing.T) {
	cfg := testConfig()
	if _, ok := New(cfg, nil).(*KeywordClassifier); !ok {
		t.Error("keyword mode should build KeywordClassifier")
	}

	cfg.Mode = "llm"
	if _, ok := New(cfg, nil).(*LLMClassifier); !ok {
		t.Error("llm mode should build LLMClassifier")
	}
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("word ", 500)
	got := Excerpt(long, 100)
	if len(got) > 100 {
		t.Errorf("excerpt too long: %d", len(got))
	}
	if Excerpt("short", 100) != "short" {
		t.Error("short text should pass through")
	}
}
