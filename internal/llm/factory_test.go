package llm

import (
	"testing"

	"github.com/clindraft/clindraft/internal/model"
)

func TestNewProvider(t *testing.T) {
	cases := []struct {
		provider string
		wantErr  bool
	}{
		{"ollama", false},
		{"Ollama", false},
		{"", true},
		{"gemini", true},
	}

	for _, tc := range cases {
		p, err := NewProvider(model.LLMConfig{
			Provider: tc.provider,
			Model:    "llama3:8b",
			BaseURL:  "http://localhost:11434",
		})
		if tc.wantErr {
			if err == nil {
				t.Errorf("provider %q: expected error", tc.provider)
			}
			continue
		}
		if err != nil {
			t.Errorf("provider %q: %v", tc.provider, err)
			continue
		}
		if p == nil {
			t.Errorf("provider %q: nil provider without error", tc.provider)
		}
	}
}
