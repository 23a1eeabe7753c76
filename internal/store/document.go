package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"spacebio/internal/models"
	"spacebio/internal/util"
)

var pmcPattern = regexp.MustCompile(`(?i)^(?:pmc_articles_)?(pmc\d+)$`)

// NormalizePaperID maps the id variants the extraction step produced
// (PMC123, pmc123, pmc_articles_PMC123) onto the canonical PMC form.
// Ids that do not look like PMC accessions pass through unchanged.
func NormalizePaperID(id string) string {
	id = strings.TrimSpace(id)
	if m := pmcPattern.FindStringSubmatch(id); m != nil {
		return strings.ToUpper(m[1])
	}
	return id
}

// LoadDocument returns the full structured record for one paper,
// loading it from the texts directory at most once per process.
// Concurrent first loads of the same paper share a single read.
func (s *Store) LoadDocument(ctx context.Context, paperID string) (*models.Document, error) {
	key := NormalizePaperID(paperID)
	if key == "" {
		return nil, fmt.Errorf("%w: empty paper id", util.ErrNotFound)
	}

	s.mu.RLock()
	doc, ok := s.docs[key]
	s.mu.RUnlock()
	if ok {
		return doc, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		s.mu.RLock()
		doc, ok := s.docs[key]
		s.mu.RUnlock()
		if ok {
			return doc, nil
		}
		doc, err := s.readDocument(key)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.docs[key] = doc
		s.mu.Unlock()
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Document), nil
}

func (s *Store) readDocument(key string) (*models.Document, error) {
	path, err := s.findDocumentFile(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %s", util.ErrStorage, filepath.Base(path), err)
	}
	doc, err := decodeDocument(b)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %s", util.ErrStorage, filepath.Base(path), err)
	}
	if doc.PaperID == "" {
		doc.PaperID = key
	}
	return doc, nil
}

// findDocumentFile probes the filename variants the extraction step
// used over time. Absence of every candidate is a NotFound; any other
// stat failure is a storage fault.
func (s *Store) findDocumentFile(key string) (string, error) {
	seen := map[string]struct{}{}
	candidates := []string{
		key + ".json",
		strings.ToLower(key) + ".json",
		"pmc_articles_" + key + ".json",
		"pmc_articles_" + strings.ToLower(key) + ".json",
	}
	for _, name := range candidates {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		path := util.SafeJoin(s.textsDir, name)
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("%w: stat %s: %s", util.ErrStorage, name, err)
		}
	}
	return "", fmt.Errorf("%w: %s", util.ErrNotFound, key)
}

// decodeDocument tolerates the illustrations field being a plain
// string or missing, which older extraction runs produced.
func decodeDocument(b []byte) (*models.Document, error) {
	var raw struct {
		PaperID       string            `json:"paper_id"`
		Title         string            `json:"title"`
		Link          string            `json:"link"`
		URL           string            `json:"url"`
		Sections      map[string]string `json:"sections"`
		Illustrations json.RawMessage   `json:"illustrations"`
		Figures       json.RawMessage   `json:"figures"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	doc := &models.Document{
		PaperID:  raw.PaperID,
		Title:    raw.Title,
		Link:     raw.Link,
		Sections: raw.Sections,
	}
	if doc.Link == "" {
		doc.Link = raw.URL
	}
	if doc.Sections == nil {
		doc.Sections = map[string]string{}
	}
	doc.Illustrations = decodeStringList(raw.Illustrations)
	if len(doc.Illustrations) == 0 {
		doc.Illustrations = decodeStringList(raw.Figures)
	}
	return doc, nil
}

func decodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}

var imageURLPattern = regexp.MustCompile(`https?://\S+\.(?:png|jpg|jpeg|gif)`)

// CollectIllustrations merges the document's declared illustrations
// with image URLs embedded in section text, deduplicated and capped.
func CollectIllustrations(doc *models.Document, max int) []string {
	if doc == nil {
		return nil
	}
	out := make([]string, 0, max)
	seen := map[string]struct{}{}
	add := func(url string) {
		url = strings.TrimSpace(url)
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		if max <= 0 || len(out) < max {
			out = append(out, url)
		}
	}
	for _, url := range doc.Illustrations {
		add(url)
	}
	names := make([]string, 0, len(doc.Sections))
	for name := range doc.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		text := doc.Sections[name]
		if !strings.Contains(text, "http") {
			continue
		}
		for _, url := range imageURLPattern.FindAllString(text, -1) {
			add(url)
		}
	}
	return out
}

// DocumentLink resolves the external link for a paper, returning an
// empty string when the document is unavailable. Used by the QA path,
// where a missing link never fails the request.
func (s *Store) DocumentLink(ctx context.Context, paperID string) string {
	doc, err := s.LoadDocument(ctx, paperID)
	if err != nil {
		return ""
	}
	return doc.Link
}
