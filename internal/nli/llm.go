package nli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/tinthat/internal/model"
	"github.com/ppiankov/tinthat/internal/tei"
	"github.com/ppiankov/tinthat/internal/util"
)

const judgeSystemPrompt = `You are a fact-checking judge for Vietnamese news.
Given a CLAIM and a trusted EVIDENCE sentence, decide whether the evidence
supports the claim, refutes it, or does not contain enough information.
Numbers, dates and named entities must agree exactly for SUPPORTED.
Answer with a JSON object only:
{"label": "SUPPORTED|REFUTED|NEI", "supported": p, "refuted": p, "nei": p}
where the three probabilities sum to 1.`

// LLMJudge asks a chat model through an OpenAI-compatible API
type LLMJudge struct {
	client  *openai.Client
	limiter tei.Limiter
	baseURL string
	model   string
	timeout time.Duration
}

type judgeAnswer struct {
	Label     string  `json:"label"`
	Supported float64 `json:"supported"`
	Refuted   float64 `json:"refuted"`
	NEI       float64 `json:"nei"`
}

// NewLLMJudge creates a chat-completion judge. base supplies the proxy
// settings and the per-host limiter; its BaseURL and Timeout are ignored.
func NewLLMJudge(cfg model.NLIConfig, base tei.Config) (*LLMJudge, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("nli.model is required for the openai provider")
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{Proxy: util.NewProxyFunc(base.HTTPProxy, base.HTTPSProxy, base.NoProxy)},
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &LLMJudge{
		client:  openai.NewClientWithConfig(clientConfig),
		limiter: base.Limiter,
		baseURL: clientConfig.BaseURL,
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

func (j *LLMJudge) Name() string {
	return "llm:" + j.model
}

// Predict asks the model for a distribution over the three classes
func (j *LLMJudge) Predict(ctx context.Context, claim, evidence string) (Distribution, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if j.limiter != nil {
		if err := j.limiter.Wait(ctx, j.baseURL); err != nil {
			return Distribution{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: judgeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("CLAIM: %s\nEVIDENCE: %s", claim, evidence)},
		},
		Temperature:    0,
		MaxTokens:      120,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return Distribution{}, fmt.Errorf("%w: llm judge: %w", model.ErrModelUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return Distribution{}, fmt.Errorf("%w: llm judge returned no choices", model.ErrModelUnavailable)
	}
	return parseJudgeAnswer(resp.Choices[0].Message.Content)
}

func parseJudgeAnswer(content string) (Distribution, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var ans judgeAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &ans); err != nil {
		return Distribution{}, fmt.Errorf("llm judge answer: %w", err)
	}

	d := Distribution{Refuted: clamp01(ans.Refuted), Supported: clamp01(ans.Supported), NEI: clamp01(ans.NEI)}
	sum := d.Refuted + d.Supported + d.NEI
	if sum > 0 {
		d.Refuted /= sum
		d.Supported /= sum
		d.NEI /= sum
		return d, nil
	}

	// Label without probabilities
	switch model.Verdict(strings.ToUpper(strings.TrimSpace(ans.Label))) {
	case model.VerdictSupported:
		return Distribution{Supported: 1}, nil
	case model.VerdictRefuted:
		return Distribution{Refuted: 1}, nil
	case model.VerdictNEI:
		return Distribution{NEI: 1}, nil
	}
	return Distribution{}, fmt.Errorf("llm judge answer has no usable label: %q", content)
}
