package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

const defaultOllamaURL = "http://localhost:11434"

// ollamaProvider chats through Ollama's OpenAI-compatible endpoint and embeds
// through the native /api/embed endpoint, which takes a whole batch per call.
type ollamaProvider struct {
	base compatClient
}

// NewOllama creates a provider for a local or remote Ollama server.
func NewOllama(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaURL
	}
	return &ollamaProvider{base: newCompatClient(cfg)}
}

func (p *ollamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *ollamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	body, err := p.base.doPost(ctx, "/api/embed", ollamaEmbedRequest{Model: p.base.cfg.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	return decodeOllamaEmbeddings(body, len(texts))
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// decodeOllamaEmbeddings narrows the float64 vectors of an /api/embed
// response and checks there is one per input.
func decodeOllamaEmbeddings(body []byte, inputs int) ([][]float32, error) {
	var resp struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed: decoding response: %w", err)
	}
	if len(resp.Embeddings) != inputs {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(resp.Embeddings), inputs)
	}
	out := make([][]float32, inputs)
	for i, e := range resp.Embeddings {
		v := make([]float32, len(e))
		for j, x := range e {
			v[j] = float32(x)
		}
		out[i] = v
	}
	return out, nil
}
