package search

import (
	"context"
	"testing"

	"spacebio/internal/index"
	"spacebio/internal/models"

	"github.com/stretchr/testify/require"
)

func TestDetectPolarity(t *testing.T) {
	cases := []struct {
		text string
		want Polarity
	}{
		{"Bone formation increased after treatment.", PolarityIncrease},
		{"Expression was enhanced under flight conditions.", PolarityIncrease},
		{"Density was reduced by 12 percent.", PolarityDecrease},
		{"The pathway was inhibited in flight samples.", PolarityDecrease},
		{"There was no significant increase in expression.", PolarityNoEffect},
		{"No difference between groups was observed.", PolarityNoEffect},
		{"Samples were collected on day 30.", PolarityUnclear},
		{"   ", PolarityUnclear},
	}
	for _, c := range cases {
		if got := DetectPolarity(c.text); got != c.want {
			t.Fatalf("DetectPolarity(%q) = %s, want %s", c.text, got, c.want)
		}
	}
}

func TestAggregatePolarities(t *testing.T) {
	t.Run("agree on increase", func(t *testing.T) {
		agg := AggregatePolarities([]Polarity{
			PolarityIncrease, PolarityIncrease, PolarityIncrease, PolarityDecrease,
		})
		require.Equal(t, PolarityIncrease, agg.Primary)
		require.Equal(t, "Agree", agg.Verdict)
		require.InDelta(t, 0.75, agg.Share, 1e-9)
	})

	t.Run("mixed", func(t *testing.T) {
		agg := AggregatePolarities([]Polarity{
			PolarityIncrease, PolarityIncrease, PolarityDecrease, PolarityDecrease, PolarityNoEffect,
		})
		require.Equal(t, "Mixed", agg.Verdict)
	})

	t.Run("insufficient when sparse and unclear", func(t *testing.T) {
		agg := AggregatePolarities([]Polarity{PolarityUnclear, PolarityUnclear})
		require.Equal(t, PolarityUnclear, agg.Primary)
		require.Equal(t, "Insufficient evidence", agg.Verdict)
	})

	t.Run("empty input is insufficient", func(t *testing.T) {
		agg := AggregatePolarities(nil)
		require.Equal(t, "Insufficient evidence", agg.Verdict)
		require.Equal(t, 0.0, agg.Share)
	})

	t.Run("deterministic primary on count ties", func(t *testing.T) {
		agg := AggregatePolarities([]Polarity{PolarityDecrease, PolarityIncrease})
		require.Equal(t, PolarityIncrease, agg.Primary)
	})
}

type fakeLinks map[string]string

func (f fakeLinks) DocumentLink(ctx context.Context, paperID string) string { return f[paperID] }

func TestAnswerBuildsEvidenceCards(t *testing.T) {
	idx := &fakeIndex{neighbors: []index.Neighbor{
		{ID: 0, Distance: 0.1},
		{ID: 1, Distance: 0.2},
		{ID: 2, Distance: 0.3},
	}}
	meta := fakeResolver{
		0: {ChunkID: 0, PaperID: "PMC100", Title: "Bone loss", Section: "Results", Text: "Bone density decreased in flight mice."},
		1: {ChunkID: 1, PaperID: "PMC200", Title: "Bone study", Section: "Results", Text: "Mineral content was reduced after 30 days."},
		2: {ChunkID: 2, PaperID: "PMC300", Title: "Bone review", Section: "Discussion", Text: "Loss of density was reported across missions."},
	}
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0}}, idx, meta, 100)
	links := fakeLinks{"PMC100": "https://example.org/pmc100"}

	res, err := e.Answer(context.Background(), "does microgravity decrease bone density", 3, links)
	require.NoError(t, err)
	require.Equal(t, "Agree", res.Verdict)
	require.Len(t, res.Evidence, 3)
	require.Equal(t, "PMC100", res.Evidence[0].PaperID)
	require.Equal(t, "https://example.org/pmc100", res.Evidence[0].Link)
	require.Empty(t, res.Evidence[1].Link)
	require.NotEmpty(t, res.Answer)
	require.GreaterOrEqual(t, res.Confidence, 0.7)
}

func TestAnswerCapsEvidence(t *testing.T) {
	neighbors := make([]index.Neighbor, 10)
	meta := fakeResolver{}
	for i := range neighbors {
		id := int64(i)
		neighbors[i] = index.Neighbor{ID: id, Distance: float64(i) * 0.1}
		meta[id] = models.ChunkMeta{ChunkID: id, PaperID: "PMC1", Title: "T", Section: "S", Text: "growth increased"}
	}
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0}}, &fakeIndex{neighbors: neighbors}, meta, 100)

	res, err := e.Answer(context.Background(), "growth", 10, nil)
	require.NoError(t, err)
	require.Len(t, res.Evidence, maxEvidenceCards)
	require.Equal(t, 10, res.Counts[PolarityIncrease])
}

func TestAnswerPropagatesSearchErrors(t *testing.T) {
	idx, meta := microgravityFixture()
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0}}, idx, meta, 100)

	_, err := e.Answer(context.Background(), "", 5, nil)
	require.Error(t, err)
}
