// Package search answers free-text queries with ranked, deduplicated,
// snippet-annotated passages. It only reads: embeddings, index
// neighbors, and passage metadata.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"spacebio/internal/index"
	"spacebio/internal/models"
	"spacebio/internal/util"
)

type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type ChunkResolver interface {
	ResolveChunk(id int64) (models.ChunkMeta, error)
}

type Engine struct {
	embed Embedder
	idx   index.Index
	meta  ChunkResolver
	maxK  int
}

func NewEngine(embed Embedder, idx index.Index, meta ChunkResolver, maxK int) *Engine {
	if maxK <= 0 {
		maxK = 100
	}
	return &Engine{embed: embed, idx: idx, meta: meta, maxK: maxK}
}

// Search returns at most k results ordered by descending score, ties
// broken by ascending chunk id. With perPaper set, only the best
// passage of each paper survives. An empty result set is a valid
// outcome, not an error.
func (e *Engine) Search(ctx context.Context, query string, k int, perPaper bool) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" || k <= 0 {
		return nil, fmt.Errorf("%w: need non-empty query and positive k", util.ErrInvalidQuery)
	}
	if k > e.maxK {
		k = e.maxK
	}

	vec, err := e.embed.EmbedQuery(ctx, query)
	if err != nil {
		if !errors.Is(err, util.ErrEmbedding) {
			err = fmt.Errorf("%w: %s", util.ErrEmbedding, err)
		}
		return nil, err
	}

	neighbors, err := e.idx.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", util.ErrIndexUnavailable, err)
	}

	results := make([]models.SearchResult, 0, len(neighbors))
	for _, n := range neighbors {
		meta, err := e.meta.ResolveChunk(n.ID)
		if err != nil {
			// The index and metadata are built together; a miss means
			// they are skewed. Skip the hit, keep the request alive.
			log.Printf("search: unresolvable chunk %d, index/metadata skew: %v", n.ID, err)
			continue
		}
		results = append(results, models.SearchResult{
			Score: scoreFromDistance(n.Distance),
			Meta: models.ResultMeta{
				PaperID: meta.PaperID,
				Title:   meta.Title,
				Section: meta.Section,
				ChunkID: meta.ChunkID,
			},
			Snippet: snippetFor(meta),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Meta.ChunkID < results[j].Meta.ChunkID
	})

	if perPaper {
		results = bestPerPaper(results)
	}
	return results, nil
}

// scoreFromDistance maps a raw index distance onto (0,1] with higher
// meaning more relevant. 1/(1+d) is monotonically decreasing for any
// non-negative metric, so ordering is preserved regardless of whether
// the index reports L2 or cosine distance.
func scoreFromDistance(d float64) float64 {
	if d < 0 {
		d = 0
	}
	return 1.0 / (1.0 + d)
}

// snippetFor returns the passage text, or the composed
// "Title (Section)" label when no text is extractable. The fallback is
// part of the engine contract, not a presentation concern.
func snippetFor(meta models.ChunkMeta) string {
	if text := strings.TrimSpace(meta.Text); text != "" {
		return text
	}
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = meta.PaperID
	}
	if meta.Section != "" {
		return fmt.Sprintf("%s (%s)", title, meta.Section)
	}
	return title
}

func bestPerPaper(results []models.SearchResult) []models.SearchResult {
	seen := map[string]struct{}{}
	out := results[:0]
	for _, r := range results {
		if _, ok := seen[r.Meta.PaperID]; ok {
			continue
		}
		seen[r.Meta.PaperID] = struct{}{}
		out = append(out, r)
	}
	return out
}
