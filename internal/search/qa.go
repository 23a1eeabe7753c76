package search

import (
	"context"
	"math"
	"strings"

	"spacebio/internal/util"
)

// Polarity is the rule-based direction a passage reports for the
// queried phenomenon.
type Polarity string

const (
	PolarityIncrease Polarity = "increase"
	PolarityDecrease Polarity = "decrease"
	PolarityNoEffect Polarity = "no_effect"
	PolarityUnclear  Polarity = "unclear"
)

const maxEvidenceCards = 6

type EvidenceCard struct {
	PaperID string  `json:"paper_id"`
	Title   string  `json:"title,omitempty"`
	Section string  `json:"section,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
	Link    string  `json:"link,omitempty"`
	Score   float64 `json:"score"`
}

type QAResult struct {
	Query      string           `json:"query"`
	Answer     string           `json:"answer"`
	Verdict    string           `json:"verdict"`
	Confidence float64          `json:"confidence"`
	Evidence   []EvidenceCard   `json:"evidence"`
	Counts     map[Polarity]int `json:"counts,omitempty"`
}

// LinkResolver resolves a paper's external link; failures resolve to
// an empty link rather than failing the QA request.
type LinkResolver interface {
	DocumentLink(ctx context.Context, paperID string) string
}

// Answer retrieves top-k evidence for the question and aggregates
// per-passage polarity into a verdict with a confidence share.
func (e *Engine) Answer(ctx context.Context, query string, k int, links LinkResolver) (QAResult, error) {
	results, err := e.Search(ctx, query, k, false)
	if err != nil {
		return QAResult{}, err
	}

	polarities := make([]Polarity, 0, len(results))
	evidence := make([]EvidenceCard, 0, maxEvidenceCards)
	for _, r := range results {
		polarities = append(polarities, DetectPolarity(r.Snippet))
		if len(evidence) < maxEvidenceCards {
			link := ""
			if links != nil {
				link = links.DocumentLink(ctx, r.Meta.PaperID)
			}
			evidence = append(evidence, EvidenceCard{
				PaperID: r.Meta.PaperID,
				Title:   r.Meta.Title,
				Section: r.Meta.Section,
				Snippet: util.DisplayEvidenceSnippet(r.Snippet, query, 420),
				Link:    link,
				Score:   r.Score,
			})
		}
	}

	agg := AggregatePolarities(polarities)
	return QAResult{
		Query:      query,
		Answer:     answerFor(agg),
		Verdict:    agg.Verdict,
		Confidence: math.Round(agg.Share*1000) / 1000,
		Evidence:   evidence,
		Counts:     agg.Counts,
	}, nil
}

var (
	increaseKeywords = []string{"increase", "increased", "enhanced", "higher", "improved", "promote", "stimulat"}
	decreaseKeywords = []string{"decrease", "decreased", "reduced", "reduction", "inhibit", "lower", "suppres"}
	noEffectPhrases  = []string{"no significant", "no effect", "not significantly", "no change", "no difference"}
)

// DetectPolarity applies keyword rules to one passage. No-effect
// phrases are checked first so "no significant increase" does not
// count as an increase.
func DetectPolarity(text string) Polarity {
	if strings.TrimSpace(text) == "" {
		return PolarityUnclear
	}
	t := strings.ToLower(text)
	for _, ph := range noEffectPhrases {
		if strings.Contains(t, ph) {
			return PolarityNoEffect
		}
	}
	for _, kw := range increaseKeywords {
		if strings.Contains(t, kw) {
			return PolarityIncrease
		}
	}
	for _, kw := range decreaseKeywords {
		if strings.Contains(t, kw) {
			return PolarityDecrease
		}
	}
	return PolarityUnclear
}

type PolarityAggregate struct {
	Counts  map[Polarity]int
	Primary Polarity
	Share   float64
	Verdict string
}

func AggregatePolarities(list []Polarity) PolarityAggregate {
	counts := map[Polarity]int{}
	for _, p := range list {
		counts[p]++
	}
	total := len(list)
	primary := PolarityUnclear
	best := -1
	for _, p := range []Polarity{PolarityIncrease, PolarityDecrease, PolarityNoEffect, PolarityUnclear} {
		if counts[p] > best {
			primary = p
			best = counts[p]
		}
	}
	share := 0.0
	if total > 0 {
		share = float64(counts[primary]) / float64(total)
	}
	verdict := "Mixed"
	switch {
	case primary == PolarityUnclear && total <= 2:
		verdict = "Insufficient evidence"
	case share >= 0.7:
		verdict = "Agree"
	}
	return PolarityAggregate{Counts: counts, Primary: primary, Share: share, Verdict: verdict}
}

func answerFor(agg PolarityAggregate) string {
	if agg.Verdict == "Insufficient evidence" {
		return "There is not enough clear information in the retrieved passages to form a confident conclusion."
	}
	if agg.Verdict == "Agree" {
		switch agg.Primary {
		case PolarityIncrease:
			return "Most retrieved studies report an increase or enhancement for the queried phenomenon."
		case PolarityDecrease:
			return "Most retrieved studies report a decrease or inhibition for the queried phenomenon."
		case PolarityNoEffect:
			return "Most retrieved studies report no significant effect for the queried phenomenon."
		default:
			return "Most retrieved passages share a common direction, but it is described in qualitative terms."
		}
	}
	return "The literature is mixed: retrieved passages show varying outcomes (increase, decrease, or no effect). See evidence below."
}
