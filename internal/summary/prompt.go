package summary

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"spacebio/internal/models"
	"spacebio/internal/util"
)

// sectionPriority is the fixed order sections are fed to the backend;
// whatever remains follows alphabetically until the budget runs out.
var sectionPriority = []string{"abstract", "results", "conclusion"}

const summaryInstruction = `You summarize one scientific publication for a general audience.
Respond with a single JSON object and nothing else. No prose before or after it.
The object must have exactly these fields:
  "intro": one or two sentences introducing what the paper studied,
  "key_points": an array of exactly 4 strings, the first 3 stating the main findings and the 4th stating one contrast or limitation,
  "outro": one or two closing sentences on why the work matters,
  "plain_text": a short paraphrase of the whole paper readable by a high-school student.
All fields must be non-empty.`

const correctiveInstruction = `

Your previous reply did not match the required format. Reply again with ONLY the JSON object described above: all four fields present and non-empty, and "key_points" holding exactly 4 strings.`

// BuildPrompt selects document sections in priority order up to the
// character budget and prepends the JSON-only instruction. A document
// with no usable text fails with ErrSourceUnavailable before any
// backend call is made.
func BuildPrompt(doc *models.Document, budgetChars int) (string, error) {
	if budgetChars <= 0 {
		budgetChars = 6000
	}
	if doc == nil || len(doc.Sections) == 0 {
		return "", fmt.Errorf("%w", util.ErrSourceUnavailable)
	}

	names := orderSections(doc.Sections)
	var b strings.Builder
	remaining := budgetChars
	for _, name := range names {
		text := cleanSource(doc.Sections[name])
		if text == "" {
			continue
		}
		if remaining <= 0 {
			break
		}
		runes := []rune(text)
		if len(runes) > remaining {
			runes = runes[:remaining]
			text = strings.TrimSpace(string(runes))
			if text == "" {
				break
			}
		}
		remaining -= len([]rune(text))
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", name, text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w", util.ErrSourceUnavailable)
	}

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = doc.PaperID
	}
	return summaryInstruction + "\n\nPaper: " + title + "\n\n" + b.String(), nil
}

func orderSections(sections map[string]string) []string {
	used := map[string]struct{}{}
	out := make([]string, 0, len(sections))
	for _, want := range sectionPriority {
		for name := range sections {
			if _, ok := used[name]; ok {
				continue
			}
			if matchesSection(name, want) {
				out = append(out, name)
				used[name] = struct{}{}
			}
		}
	}
	rest := make([]string, 0, len(sections))
	for name := range sections {
		if _, ok := used[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// matchesSection compares case-insensitively and tolerates plural
// headings like "Conclusions".
func matchesSection(name, want string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	return n == want || n == want+"s"
}

var (
	etAlCitation = regexp.MustCompile(`\([^)]*et al\.,? ?\d{4}[^)]*\)`)
	yearCitation = regexp.MustCompile(`\([^)]+\d{4}[^)]*\)`)
	inlineURL    = regexp.MustCompile(`https?://\S+`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// cleanSource strips citation parentheticals and URLs that waste
// budget and steer the backend toward reference-list noise.
func cleanSource(text string) string {
	text = util.SanitizeText(text)
	text = etAlCitation.ReplaceAllString(text, "")
	text = inlineURL.ReplaceAllString(text, "")
	text = yearCitation.ReplaceAllString(text, "")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
