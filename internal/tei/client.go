// Package tei talks to a text-embeddings-inference style model server.
// The claim classifier and the cross-encoder NLI model are both served
// behind its /predict endpoint.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/tinthat/internal/model"
	"github.com/ppiankov/tinthat/internal/util"
)

// Limiter throttles outbound requests per host
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// LabelScore is one class probability returned by /predict
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Config holds model-server client settings
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
	Limiter    Limiter
}

// Client calls /predict, /rerank and /health on one model server
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    Limiter
}

type predictRequest struct {
	Inputs   any  `json:"inputs"`
	Truncate bool `json:"truncate"`
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	Truncate  bool     `json:"truncate"`
	RawScores bool     `json:"raw_scores"`
}

// RankScore is one /rerank result; Index points into the request texts
type RankScore struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type serverError struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// NewClient creates a model-server client
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("model server base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
		limiter: cfg.Limiter,
	}, nil
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Healthy checks that the server answers /health
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", model.ErrModelUnavailable, c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: HTTP %d", model.ErrModelUnavailable, c.baseURL, resp.StatusCode)
	}
	return nil
}

// PredictPairs classifies (premise, hypothesis) pairs
func (c *Client) PredictPairs(ctx context.Context, pairs [][2]string) ([][]LabelScore, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	inputs := make([][]string, len(pairs))
	for i, p := range pairs {
		inputs[i] = []string{p[0], p[1]}
	}
	return c.predict(ctx, inputs, len(pairs))
}

// PredictTexts classifies single sentences
func (c *Client) PredictTexts(ctx context.Context, texts []string) ([][]LabelScore, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return c.predict(ctx, texts, len(texts))
}

// Rerank scores each text against query; scores are sigmoid probabilities.
// The result is indexed like texts.
func (c *Client) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	respBody, err := c.post(ctx, "/rerank", rerankRequest{Query: query, Texts: texts, Truncate: true})
	if err != nil {
		return nil, err
	}
	var ranks []RankScore
	if err := json.Unmarshal(respBody, &ranks); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	scores := make([]float64, len(texts))
	seen := 0
	for _, r := range ranks {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, fmt.Errorf("%w: rerank returned index %d for %d texts", model.ErrModelUnavailable, r.Index, len(texts))
		}
		scores[r.Index] = r.Score
		seen++
	}
	if seen != len(texts) {
		return nil, fmt.Errorf("%w: rerank returned %d results for %d texts", model.ErrModelUnavailable, seen, len(texts))
	}
	return scores, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + path
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, url); err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrModelUnavailable, path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", model.ErrModelUnavailable, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr serverError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%w: %s (%d): %s", model.ErrModelUnavailable, path, httpResp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("%w: %s (%d): %s", model.ErrModelUnavailable, path, httpResp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func (c *Client) predict(ctx context.Context, inputs any, n int) ([][]LabelScore, error) {
	respBody, err := c.post(ctx, "/predict", predictRequest{Inputs: inputs, Truncate: true})
	if err != nil {
		return nil, err
	}

	// A batch comes back as [[...], [...]]; a single input as [...]
	var batch [][]LabelScore
	if err := json.Unmarshal(respBody, &batch); err != nil {
		var single []LabelScore
		if err2 := json.Unmarshal(respBody, &single); err2 != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		batch = [][]LabelScore{single}
	}
	if len(batch) != n {
		return nil, fmt.Errorf("%w: predict returned %d results for %d inputs", model.ErrModelUnavailable, len(batch), n)
	}
	return batch, nil
}
