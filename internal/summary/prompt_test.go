package summary

import (
	"errors"
	"strings"
	"testing"

	"spacebio/internal/models"
	"spacebio/internal/util"
)

func TestBuildPromptSectionPriority(t *testing.T) {
	doc := &models.Document{
		PaperID: "PMC1",
		Title:   "Bone loss",
		Sections: map[string]string{
			"Methods":     "methods text",
			"Conclusions": "conclusion text",
			"Abstract":    "abstract text",
			"Results":     "results text",
		},
	}
	prompt, err := BuildPrompt(doc, 6000)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ia := strings.Index(prompt, "abstract text")
	ir := strings.Index(prompt, "results text")
	ic := strings.Index(prompt, "conclusion text")
	im := strings.Index(prompt, "methods text")
	if ia < 0 || ir < 0 || ic < 0 || im < 0 {
		t.Fatalf("missing sections in prompt")
	}
	if !(ia < ir && ir < ic && ic < im) {
		t.Fatalf("section order wrong: abstract=%d results=%d conclusion=%d methods=%d", ia, ir, ic, im)
	}
}

func TestBuildPromptRespectsBudget(t *testing.T) {
	long := strings.Repeat("z", 500)
	doc := &models.Document{
		PaperID:  "PMC1",
		Sections: map[string]string{"Abstract": long, "Results": long},
	}
	prompt, err := BuildPrompt(doc, 600)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	body := prompt[strings.Index(prompt, "## "):]
	count := strings.Count(body, "z")
	if count > 600 {
		t.Fatalf("budget exceeded: %d section chars", count)
	}
}

func TestBuildPromptNoSectionsFails(t *testing.T) {
	for _, doc := range []*models.Document{
		nil,
		{PaperID: "PMC1", Sections: map[string]string{}},
		{PaperID: "PMC1", Sections: map[string]string{"Abstract": "   "}},
	} {
		_, err := BuildPrompt(doc, 6000)
		if !errors.Is(err, util.ErrSourceUnavailable) {
			t.Fatalf("expected ErrSourceUnavailable, got %v", err)
		}
	}
}

func TestCleanSourceStripsCitationsAndURLs(t *testing.T) {
	in := "Growth slowed (Smith et al., 2019) under flight conditions (NASA, 2020). See https://example.org/x for data."
	out := cleanSource(in)
	if strings.Contains(out, "et al") || strings.Contains(out, "http") || strings.Contains(out, "2020") {
		t.Fatalf("citations or urls survived: %q", out)
	}
	if !strings.Contains(out, "Growth slowed") {
		t.Fatalf("content lost: %q", out)
	}
}
