package util

import "errors"

// Error kinds surfaced by the engine. The API layer maps these to
// user-facing status codes; nothing below this package converts any of
// them into a fabricated success.
var (
	ErrInvalidQuery        = errors.New("query must be non-empty")
	ErrNotFound            = errors.New("paper not found")
	ErrStorage             = errors.New("document storage failure")
	ErrEmbedding           = errors.New("embedding provider failed")
	ErrIndexUnavailable    = errors.New("vector index unavailable")
	ErrSourceUnavailable   = errors.New("no source sections available to summarize")
	ErrSummarizationFailed = errors.New("backend produced no valid summary")
	ErrCacheIO             = errors.New("summary cache entry unreadable")
)
