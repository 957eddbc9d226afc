package encoder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/tinthat/internal/model"
	"github.com/ppiankov/tinthat/internal/util"
)

// Limiter throttles outbound requests per host
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Option configures an OpenAIEncoder
type Option func(*OpenAIEncoder)

// WithLimiter rate-limits embedding requests
func WithLimiter(l Limiter) Option {
	return func(e *OpenAIEncoder) { e.limiter = l }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(e *OpenAIEncoder) { e.httpClient = c }
}

// WithProxy routes requests through explicit proxies instead of the environment
func WithProxy(httpProxy, httpsProxy, noProxy string) Option {
	return func(e *OpenAIEncoder) { e.proxy = util.NewProxyFunc(httpProxy, httpsProxy, noProxy) }
}

// OpenAIEncoder calls an OpenAI-compatible /embeddings endpoint
// (text-embeddings-inference, vLLM, Ollama and OpenAI all serve one)
type OpenAIEncoder struct {
	client     *openai.Client
	httpClient *http.Client
	proxy      func(*http.Request) (*url.URL, error)
	limiter    Limiter
	baseURL    string
	model      string
	dimension  int
	batchSize  int
}

// NewOpenAIEncoder creates a new OpenAI-compatible encoder
func NewOpenAIEncoder(cfg model.EmbeddingConfig, opts ...Option) (*OpenAIEncoder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding base URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	e := &OpenAIEncoder{
		proxy:     http.ProxyFromEnvironment,
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
	}
	if e.batchSize <= 0 {
		e.batchSize = 32
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: e.proxy},
		}
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = e.httpClient
	e.client = openai.NewClientWithConfig(clientConfig)

	return e, nil
}

// Name returns the model name
func (e *OpenAIEncoder) Name() string {
	return e.model
}

// Dimension returns the configured vector size
func (e *OpenAIEncoder) Dimension() int {
	return e.dimension
}

// Encode embeds a single sentence
func (e *OpenAIEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch embeds texts in chunks of batchSize, preserving input order
func (e *OpenAIEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEncoder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, e.baseURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings: %w", model.ErrModelUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: embeddings: got %d vectors for %d inputs", model.ErrModelUnavailable, len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embeddings: index %d out of range", model.ErrModelUnavailable, d.Index)
		}
		if e.dimension > 0 && len(d.Embedding) != e.dimension {
			return nil, fmt.Errorf("%w: got %d values, configured %d", model.ErrDimensionMismatch, len(d.Embedding), e.dimension)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}
