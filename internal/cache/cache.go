// Package cache is the durable store of validated summaries, one JSON
// file per paper under the cache directory.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"spacebio/internal/models"
	"spacebio/internal/store"
	"spacebio/internal/util"
)

type Cache struct {
	dir string
}

func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Get returns the cached summary for a paper. Absence is a plain miss.
// An unreadable, undecodable, or schema-invalid entry is reported as a
// miss with an ErrCacheIO so the caller can log it and regenerate.
func (c *Cache) Get(paperID string) (models.Summary, bool, error) {
	path := c.entryPath(paperID)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Summary{}, false, nil
		}
		return models.Summary{}, false, fmt.Errorf("%w: read %s: %s", util.ErrCacheIO, filepath.Base(path), err)
	}
	var s models.Summary
	if err := json.Unmarshal(b, &s); err != nil {
		return models.Summary{}, false, fmt.Errorf("%w: %s: %s", util.ErrCacheIO, filepath.Base(path), err)
	}
	if !s.Valid() {
		return models.Summary{}, false, fmt.Errorf("%w: %s: entry fails schema invariant", util.ErrCacheIO, filepath.Base(path))
	}
	return s, true, nil
}

// Put persists a summary atomically: temp file in the cache directory,
// then rename. Concurrent writers for the same paper may race; the
// last rename wins and readers only ever see complete entries.
func (c *Cache) Put(paperID string, s models.Summary) error {
	if !s.Valid() {
		return fmt.Errorf("refusing to persist invalid summary for %s", paperID)
	}
	s.PaperID = store.NormalizePaperID(paperID)
	return util.WriteJSONAtomic(c.entryPath(paperID), s)
}

// Invalidate is the explicit out-of-band delete; it is not part of the
// read/write path and missing entries are not an error.
func (c *Cache) Invalidate(paperID string) error {
	err := os.Remove(c.entryPath(paperID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("invalidate %s: %w", paperID, err)
	}
	return nil
}

func (c *Cache) entryPath(paperID string) string {
	return util.SafeJoin(c.dir, store.NormalizePaperID(paperID)+".json")
}
