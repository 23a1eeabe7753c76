// Package store owns the in-memory passage metadata table and the
// lazily loaded full documents for the process lifetime. Everything it
// hands out is read-only.
package store

import (
	"fmt"
	"sync"

	"spacebio/internal/models"
	"spacebio/internal/util"

	"golang.org/x/sync/singleflight"
)

// Store resolves passage ids to their metadata and paper ids to their
// full structured documents.
type Store struct {
	chunks   []models.ChunkMeta
	textsDir string

	mu    sync.RWMutex
	docs  map[string]*models.Document
	group singleflight.Group
}

type metaRecord struct {
	PaperID string `json:"paper_id"`
	Title   string `json:"title"`
	Section string `json:"section"`
	Text    string `json:"text"`
}

// Load reads the passage metadata produced by the offline embedding
// build. Record order matches the vector index rows, so the row
// position becomes the chunk id.
func Load(metadataPath, textsDir string) (*Store, error) {
	var records []metaRecord
	if err := util.ReadJSON(metadataPath, &records); err != nil {
		return nil, fmt.Errorf("load passage metadata: %w", err)
	}
	chunks := make([]models.ChunkMeta, len(records))
	for i, r := range records {
		chunks[i] = models.ChunkMeta{
			ChunkID: int64(i),
			PaperID: r.PaperID,
			Title:   r.Title,
			Section: r.Section,
			Text:    r.Text,
		}
	}
	return &Store{
		chunks:   chunks,
		textsDir: textsDir,
		docs:     make(map[string]*models.Document),
	}, nil
}

// ResolveChunk returns the metadata for one passage id. An id outside
// the table is ErrNotFound, never a panic: the index and metadata are
// built together, so a miss means the deployment is skewed.
func (s *Store) ResolveChunk(id int64) (models.ChunkMeta, error) {
	if id < 0 || id >= int64(len(s.chunks)) {
		return models.ChunkMeta{}, fmt.Errorf("%w: chunk %d", util.ErrNotFound, id)
	}
	return s.chunks[id], nil
}

func (s *Store) NumPassages() int { return len(s.chunks) }

// SectionCounts returns how many passages each section contributes.
func (s *Store) SectionCounts() map[string]int {
	counts := make(map[string]int)
	for _, c := range s.chunks {
		sec := c.Section
		if sec == "" {
			sec = "unknown"
		}
		counts[sec]++
	}
	return counts
}
