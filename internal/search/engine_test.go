package search

import (
	"context"
	"errors"
	"testing"

	"spacebio/internal/index"
	"spacebio/internal/models"
	"spacebio/internal/util"

	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeIndex struct {
	neighbors []index.Neighbor
	err       error
	gotK      int
}

func (f *fakeIndex) Query(ctx context.Context, vec []float32, k int) ([]index.Neighbor, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.neighbors) {
		return f.neighbors[:k], nil
	}
	return f.neighbors, nil
}

type fakeResolver map[int64]models.ChunkMeta

func (f fakeResolver) ResolveChunk(id int64) (models.ChunkMeta, error) {
	m, ok := f[id]
	if !ok {
		return models.ChunkMeta{}, util.ErrNotFound
	}
	return m, nil
}

func microgravityFixture() (*fakeIndex, fakeResolver) {
	idx := &fakeIndex{neighbors: []index.Neighbor{
		{ID: 0, Distance: 0.1},
		{ID: 1, Distance: 0.4},
		{ID: 2, Distance: 0.4},
		{ID: 3, Distance: 0.9},
	}}
	meta := fakeResolver{
		0: {ChunkID: 0, PaperID: "PMC100", Title: "Bone loss in mice", Section: "Abstract", Text: "Bone density decreased in microgravity."},
		1: {ChunkID: 1, PaperID: "PMC200", Title: "Plant growth", Section: "Results", Text: "Root growth slowed."},
		2: {ChunkID: 2, PaperID: "PMC100", Title: "Bone loss in mice", Section: "Results", Text: "Loss was significant."},
		3: {ChunkID: 3, PaperID: "PMC300", Title: "Muscle atrophy", Section: "Discussion", Text: ""},
	}
	return idx, meta
}

func TestSearchOrderingAndScores(t *testing.T) {
	idx, meta := microgravityFixture()
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0}}, idx, meta, 100)

	results, err := e.Search(context.Background(), "bone loss in microgravity", 4, false)
	require.NoError(t, err)
	require.Len(t, results, 4)

	require.Equal(t, "PMC100", results[0].Meta.PaperID)
	require.InDelta(t, 1.0/1.1, results[0].Score, 1e-9)
	// Equal distances resolve by ascending chunk id.
	require.Equal(t, int64(1), results[1].Meta.ChunkID)
	require.Equal(t, int64(2), results[2].Meta.ChunkID)
	for i := 1; i < len(results); i++ {
		require.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestSearchPerPaperDedup(t *testing.T) {
	idx, meta := microgravityFixture()
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0}}, idx, meta, 100)

	results, err := e.Search(context.Background(), "bone loss", 4, true)
	require.NoError(t, err)
	require.Len(t, results, 3)

	seen := map[string]bool{}
	for _, r := range results {
		require.False(t, seen[r.Meta.PaperID], "paper %s repeated", r.Meta.PaperID)
		seen[r.Meta.PaperID] = true
	}
	// The best chunk of the duplicated paper survives.
	require.Equal(t, int64(0), results[0].Meta.ChunkID)
}

func TestSearchPrefixStability(t *testing.T) {
	idx, meta := microgravityFixture()
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0}}, idx, meta, 100)

	small, err := e.Search(context.Background(), "bone loss", 2, false)
	require.NoError(t, err)
	large, err := e.Search(context.Background(), "bone loss", 4, false)
	require.NoError(t, err)
	require.Equal(t, small, large[:len(small)])
}

func TestSearchClampsKToMax(t *testing.T) {
	idx, meta := microgravityFixture()
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0}}, idx, meta, 3)

	_, err := e.Search(context.Background(), "bone loss", 50, false)
	require.NoError(t, err)
	require.Equal(t, 3, idx.gotK)
}

func TestSearchInvalidQuery(t *testing.T) {
	idx, meta := microgravityFixture()
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0}}, idx, meta, 100)

	_, err := e.Search(context.Background(), "   ", 5, false)
	require.ErrorIs(t, err, util.ErrInvalidQuery)
	_, err = e.Search(context.Background(), "bone loss", 0, false)
	require.ErrorIs(t, err, util.ErrInvalidQuery)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	idx, meta := microgravityFixture()
	e := NewEngine(&fakeEmbedder{err: errors.New("provider down")}, idx, meta, 100)

	_, err := e.Search(context.Background(), "bone loss", 5, false)
	require.ErrorIs(t, err, util.ErrEmbedding)
}

func TestSearchIndexFailure(t *testing.T) {
	_, meta := microgravityFixture()
	idx := &fakeIndex{err: errors.New("connection refused")}
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0}}, idx, meta, 100)

	_, err := e.Search(context.Background(), "bone loss", 5, false)
	require.ErrorIs(t, err, util.ErrIndexUnavailable)
}

func TestSearchSkipsUnresolvableChunks(t *testing.T) {
	idx := &fakeIndex{neighbors: []index.Neighbor{
		{ID: 0, Distance: 0.1},
		{ID: 42, Distance: 0.2},
	}}
	meta := fakeResolver{
		0: {ChunkID: 0, PaperID: "PMC100", Title: "T", Section: "Abstract", Text: "text"},
	}
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0}}, idx, meta, 100)

	results, err := e.Search(context.Background(), "bone loss", 5, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "PMC100", results[0].Meta.PaperID)
}

func TestSnippetFallbackLabel(t *testing.T) {
	cases := []struct {
		meta models.ChunkMeta
		want string
	}{
		{models.ChunkMeta{Text: " some text "}, "some text"},
		{models.ChunkMeta{Title: "Bone loss", Section: "Results"}, "Bone loss (Results)"},
		{models.ChunkMeta{Title: "Bone loss"}, "Bone loss"},
		{models.ChunkMeta{PaperID: "PMC300", Section: "Discussion"}, "PMC300 (Discussion)"},
	}
	for _, c := range cases {
		if got := snippetFor(c.meta); got != c.want {
			t.Fatalf("snippetFor(%+v) = %q, want %q", c.meta, got, c.want)
		}
	}
}

func TestScoreFromDistance(t *testing.T) {
	require.Equal(t, 1.0, scoreFromDistance(0))
	require.Equal(t, 0.5, scoreFromDistance(1))
	require.Equal(t, 1.0, scoreFromDistance(-0.5))
	require.Greater(t, scoreFromDistance(0.1), scoreFromDistance(0.2))
}
