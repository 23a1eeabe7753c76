package providers

import (
	"context"
	"encoding/json"
	"testing"

	"spacebio/internal/models"
)

func TestMockEmbedDeterministic(t *testing.T) {
	m := NewMockProvider(16)
	a, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"microgravity"}, Dimension: 16})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"microgravity"}, Dimension: 16})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(a) != 1 || len(a[0]) != 16 {
		t.Fatalf("unexpected shape: %d vectors", len(a))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("embedding not deterministic at %d", i)
		}
	}
}

func TestMockGenerateSummaryIsSchemaValid(t *testing.T) {
	m := NewMockProvider(16)
	resp, _, err := m.Generate(context.Background(), GenerateRequest{Operation: "paper_summary", Prompt: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var s models.Summary
	if err := json.Unmarshal([]byte(resp.Text), &s); err != nil {
		t.Fatalf("mock summary is not JSON: %v", err)
	}
	if !s.Valid() {
		t.Fatalf("mock summary fails schema invariant: %+v", s)
	}
}
