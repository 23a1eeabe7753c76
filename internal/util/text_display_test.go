package util

import (
	"strings"
	"testing"
)

func TestDisplaySnippet(t *testing.T) {
	in := "Bone\x00   density \n\t loss"
	out := DisplaySnippet(in, 100)
	if out == "" {
		t.Fatalf("expected non-empty snippet")
	}
}

func TestDisplayEvidenceSnippetPrefersRelevantSentence(t *testing.T) {
	passage := "Mice flown on the ISS showed reduced bone density. Microgravity exposure lasted thirty days. Unrelated appendix text."
	q := "What happens to bone density in microgravity?"
	out := DisplayEvidenceSnippet(passage, q, 200)
	if !strings.Contains(strings.ToLower(out), "bone density") {
		t.Fatalf("expected bone density in snippet, got: %q", out)
	}
}
