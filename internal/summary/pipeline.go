// Package summary turns a stored document into a cached, structured,
// plain-language summary. The generative backend is treated as
// untrusted: every response passes schema validation, invalid output
// is retried a bounded number of times, and nothing malformed is ever
// persisted or returned.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"spacebio/internal/cache"
	"spacebio/internal/models"
	"spacebio/internal/providers"
	"spacebio/internal/store"
	"spacebio/internal/util"

	"golang.org/x/sync/singleflight"
)

type DocumentSource interface {
	LoadDocument(ctx context.Context, paperID string) (*models.Document, error)
}

type Options struct {
	PromptBudget   int
	Retries        int
	AttemptTimeout time.Duration
}

type Pipeline struct {
	source  DocumentSource
	llm     providers.LLMProvider
	cache   *cache.Cache
	budget  int
	retries int
	timeout time.Duration
	group   singleflight.Group
}

func New(source DocumentSource, llm providers.LLMProvider, c *cache.Cache, opts Options) *Pipeline {
	if opts.PromptBudget <= 0 {
		opts.PromptBudget = 6000
	}
	if opts.Retries < 0 {
		opts.Retries = 2
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 60 * time.Second
	}
	return &Pipeline{
		source:  source,
		llm:     llm,
		cache:   c,
		budget:  opts.PromptBudget,
		retries: opts.Retries,
		timeout: opts.AttemptTimeout,
	}
}

// GetSummary runs the per-request state machine: cache check, then on
// a miss prompt build, generation, validation with bounded retries,
// and an atomic cache write. Concurrent misses for the same paper are
// collapsed onto one generation; the write is idempotent either way.
func (p *Pipeline) GetSummary(ctx context.Context, paperID string) (models.Summary, error) {
	key := store.NormalizePaperID(paperID)
	if s, ok, err := p.cache.Get(key); ok {
		return s, nil
	} else if err != nil {
		// Corrupt entries regenerate; they never fail the caller.
		log.Printf("summary cache: treating %s as miss: %v", key, err)
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		return p.generate(ctx, key)
	})
	if err != nil {
		return models.Summary{}, err
	}
	return v.(models.Summary), nil
}

// Invalidate removes the cached summary so the next request
// regenerates it.
func (p *Pipeline) Invalidate(paperID string) error {
	return p.cache.Invalidate(store.NormalizePaperID(paperID))
}

func (p *Pipeline) generate(ctx context.Context, key string) (models.Summary, error) {
	doc, err := p.source.LoadDocument(ctx, key)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return models.Summary{}, fmt.Errorf("%w: %s", util.ErrSourceUnavailable, key)
		}
		return models.Summary{}, err
	}
	prompt, err := BuildPrompt(doc, p.budget)
	if err != nil {
		return models.Summary{}, err
	}

	var lastProblem error
	attempts := 1 + p.retries
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.Summary{}, err
		}
		actx, cancel := context.WithTimeout(ctx, p.timeout)
		resp, info, err := p.llm.Generate(actx, providers.GenerateRequest{
			Operation: "paper_summary",
			Prompt:    prompt,
		})
		cancel()
		if err != nil {
			kind := providers.ClassifyError(err)
			if !providers.Retryable(kind) {
				return models.Summary{}, fmt.Errorf("%w: %s backend error (%s): %s", util.ErrSummarizationFailed, key, kind, err)
			}
			lastProblem = err
			continue
		}
		s, perr := ParseSummary(resp.Text)
		if perr != nil {
			log.Printf("summary %s: attempt %d/%d invalid (%s/%s): %v", key, attempt, attempts, info.Name, info.Model, perr)
			lastProblem = perr
			prompt += correctiveInstruction
			continue
		}
		s.PaperID = key
		if err := p.cache.Put(key, s); err != nil {
			// The summary itself is valid; a failed cache write only
			// costs a regeneration later.
			log.Printf("summary %s: cache write failed: %v", key, err)
		}
		return s, nil
	}
	return models.Summary{}, fmt.Errorf("%w: %s after %d attempts: %s", util.ErrSummarizationFailed, key, attempts, lastProblem)
}
