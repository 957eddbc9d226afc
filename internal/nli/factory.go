package nli

import (
	"fmt"
	"strings"

	"github.com/ppiankov/tinthat/internal/model"
	"github.com/ppiankov/tinthat/internal/tei"
)

// New builds the configured verifier. base supplies proxy and limiter
// settings for the backend's HTTP client.
func New(cfg model.NLIConfig, base tei.Config) (Verifier, error) {
	switch strings.ToLower(cfg.Provider) {
	case "crossencoder", "":
		base.BaseURL = cfg.BaseURL
		if cfg.Timeout > 0 {
			base.Timeout = cfg.Timeout
		}
		client, err := tei.NewClient(base)
		if err != nil {
			return nil, fmt.Errorf("nli client: %w", err)
		}
		return NewCrossEncoder(client, cfg)

	case "openai":
		return NewLLMJudge(cfg, base)

	default:
		return nil, fmt.Errorf("unknown nli provider: %s (supported: crossencoder, openai)", cfg.Provider)
	}
}
