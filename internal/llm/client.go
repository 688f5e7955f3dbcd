package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bskb/internal/errors"
)

// Generator is the inference collaborator: free text in, free text out.
// There is no structured-output guarantee; all JSON extraction happens
// on this side of the boundary.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder is the embedding collaborator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OllamaConfig configures the Ollama-compatible HTTP client.
type OllamaConfig struct {
	Endpoint    string
	Model       string
	EmbedModel  string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OllamaClient talks to an Ollama-compatible endpoint. It implements
// both Generator and Embedder.
type OllamaClient struct {
	config OllamaConfig
	client *http.Client
}

// NewOllamaClient creates a client with a bounded per-call timeout.
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &OllamaClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate runs one completion.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.config.Temperature,
			NumPredict:  c.config.MaxTokens,
		},
	})
	if err != nil {
		return "", errors.New(errors.InternalError, "failed to encode generate request", err)
	}

	var out generateResponse
	if err := c.post(ctx, "/api/generate", body, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the fixed-length embedding vector for a text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	model := c.config.EmbedModel
	if model == "" {
		model = c.config.Model
	}
	body, err := json.Marshal(embedRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to encode embed request", err)
	}

	var out embedResponse
	if err := c.post(ctx, "/api/embeddings", body, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, errors.New(errors.RetrievalUnavailable, "embedding endpoint returned empty vector", nil)
	}
	return out.Embedding, nil
}

func (c *OllamaClient) post(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return errors.New(errors.InternalError, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.New(errors.InferenceUnavailable, "inference endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.New(errors.InferenceUnavailable,
			fmt.Sprintf("inference endpoint returned %d: %s", resp.StatusCode, string(data)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(errors.MalformedInferenceOutput, "failed to decode response envelope", err)
	}
	return nil
}
