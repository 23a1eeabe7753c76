package providers

import (
	"context"
	"fmt"
	"strings"

	"spacebio/internal/config"
	"spacebio/internal/util"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

// Manager holds the configured embedding and generation providers in
// declaration order. Real providers are preferred over the mock when
// both are configured.
type Manager struct {
	llmProviders   []NamedLLMProvider
	embedProviders []NamedEmbedProvider
	embedDim       int
}

func NewManager(cfg config.Config) (*Manager, error) {
	llmRefs := ParseProviderList(cfg.LLMProviders)
	embedRefs := ParseProviderList(cfg.EmbedProviders)

	m := &Manager{embedDim: cfg.EmbedDim}
	for _, ref := range llmRefs {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support generation", ref.Raw)
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: llm})
	}
	for _, ref := range embedRefs {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: embed})
	}
	if len(m.embedProviders) == 0 {
		m.embedProviders = []NamedEmbedProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(cfg.EmbedDim)}}
	}
	if len(m.llmProviders) == 0 {
		m.llmProviders = []NamedLLMProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(cfg.EmbedDim)}}
	}
	return m, nil
}

func (m *Manager) EmbedCount() int { return len(m.embedProviders) }
func (m *Manager) LLMCount() int   { return len(m.llmProviders) }

func (m *Manager) PreferredLLMOrder() []int {
	return preferredOrder(len(m.llmProviders), func(i int) string { return strings.ToLower(m.llmProviders[i].Ref.Name) })
}

func (m *Manager) PreferredEmbedOrder() []int {
	return preferredOrder(len(m.embedProviders), func(i int) string { return strings.ToLower(m.embedProviders[i].Ref.Name) })
}

func preferredOrder(n int, nameAt func(i int) string) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

// QueryEmbedder turns the manager's embedding providers into the
// single-vector contract the search engine consumes, falling through
// the preferred order until one provider produces a vector.
type QueryEmbedder struct {
	m *Manager
}

func (m *Manager) QueryEmbedder() *QueryEmbedder {
	return &QueryEmbedder{m: m}
}

func (q *QueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for _, idx := range q.m.PreferredEmbedOrder() {
		p := q.m.embedProviders[idx].Provider
		vecs, _, err := p.Embed(ctx, EmbedRequest{
			Operation: "search_query_embed",
			Inputs:    []string{text},
			Dimension: q.m.embedDim,
		})
		if err == nil && len(vecs) == 1 && len(vecs[0]) > 0 {
			return vecs[0], nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no embedding provider produced a vector")
	}
	return nil, fmt.Errorf("%w: %s", util.ErrEmbedding, lastErr)
}

// Generator falls through the preferred LLM order until one provider
// returns non-empty text. Validation of that text stays with the
// caller.
type Generator struct {
	m *Manager
}

func (m *Manager) Generator() *Generator {
	return &Generator{m: m}
}

func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	var (
		resp GenerateResponse
		info ProviderInfo
		err  error
	)
	for _, idx := range g.m.PreferredLLMOrder() {
		p := g.m.llmProviders[idx].Provider
		resp, info, err = p.Generate(ctx, req)
		if err == nil && strings.TrimSpace(resp.Text) != "" {
			return resp, info, nil
		}
	}
	if err == nil {
		err = fmt.Errorf("all generation providers returned empty output")
	}
	return resp, info, err
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaEmbeddingProvider(ref.KeyAlias), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
