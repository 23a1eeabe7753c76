package models

import "strings"

// ChunkMeta describes one retrievable passage. The chunk id is the
// passage's row position in the vector index, assigned once by the
// offline embedding step and never changed afterwards.
type ChunkMeta struct {
	ChunkID int64  `json:"chunk_id"`
	PaperID string `json:"paper_id"`
	Title   string `json:"title"`
	Section string `json:"section,omitempty"`
	Text    string `json:"text,omitempty"`
}

type ResultMeta struct {
	PaperID string `json:"paper_id"`
	Title   string `json:"title"`
	Section string `json:"section,omitempty"`
	ChunkID int64  `json:"chunk_id"`
}

// SearchResult is built per query and never persisted. Higher score
// always means more relevant.
type SearchResult struct {
	Score   float64    `json:"score"`
	Meta    ResultMeta `json:"meta"`
	Snippet string     `json:"snippet"`
}

// Document is the full structured record of one publication, loaded
// lazily from the texts directory and immutable afterwards.
type Document struct {
	PaperID       string            `json:"paper_id"`
	Title         string            `json:"title"`
	Link          string            `json:"link,omitempty"`
	Sections      map[string]string `json:"sections"`
	Illustrations []string          `json:"illustrations,omitempty"`
}

// SummaryKeyPoints is the required length of Summary.KeyPoints:
// three findings plus one contrast or limitation.
const SummaryKeyPoints = 4

type Summary struct {
	PaperID   string   `json:"paper_id"`
	Intro     string   `json:"intro"`
	KeyPoints []string `json:"key_points"`
	Outro     string   `json:"outro"`
	PlainText string   `json:"plain_text"`
}

// Valid reports whether the summary satisfies the schema invariant:
// all text fields non-empty and exactly four non-empty key points.
func (s Summary) Valid() bool {
	if strings.TrimSpace(s.Intro) == "" ||
		strings.TrimSpace(s.Outro) == "" ||
		strings.TrimSpace(s.PlainText) == "" {
		return false
	}
	if len(s.KeyPoints) != SummaryKeyPoints {
		return false
	}
	for _, kp := range s.KeyPoints {
		if strings.TrimSpace(kp) == "" {
			return false
		}
	}
	return true
}
