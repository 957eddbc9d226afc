package nli

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/tinthat/internal/model"
	"github.com/ppiankov/tinthat/internal/tei"
)

const (
	VariantThreeWay = "three_way"
	VariantBinary   = "binary"
)

// CrossEncoder asks a sequence-pair classifier served over HTTP
type CrossEncoder struct {
	client  *tei.Client
	model   string
	variant string
	labels  map[string]model.Verdict
}

// NewCrossEncoder maps the server's class labels through cfg.Labels.
// Labels match case-insensitively; config loaders lowercase map keys.
func NewCrossEncoder(client *tei.Client, cfg model.NLIConfig) (*CrossEncoder, error) {
	variant := cfg.Variant
	if variant == "" {
		variant = VariantThreeWay
	}
	if variant != VariantThreeWay && variant != VariantBinary {
		return nil, fmt.Errorf("unknown nli variant: %s (supported: three_way, binary)", variant)
	}

	labels := make(map[string]model.Verdict, len(cfg.Labels))
	for serverLabel, v := range cfg.Labels {
		verdict := model.Verdict(strings.ToUpper(v))
		switch verdict {
		case model.VerdictSupported, model.VerdictRefuted, model.VerdictNEI:
		default:
			return nil, fmt.Errorf("nli label %s maps to unknown class %q", serverLabel, v)
		}
		labels[strings.ToUpper(serverLabel)] = verdict
	}
	if variant == VariantThreeWay && len(labels) == 0 {
		return nil, fmt.Errorf("nli.labels is required for the three_way variant")
	}

	return &CrossEncoder{client: client, model: cfg.Model, variant: variant, labels: labels}, nil
}

func (c *CrossEncoder) Name() string {
	return "crossencoder:" + c.model
}

// Predict scores (claim, evidence)
func (c *CrossEncoder) Predict(ctx context.Context, claim, evidence string) (Distribution, error) {
	if c.variant == VariantBinary {
		scores, err := c.client.Rerank(ctx, claim, []string{evidence})
		if err != nil {
			return Distribution{}, fmt.Errorf("nli rerank: %w", err)
		}
		s := clamp01(scores[0])
		return Distribution{Supported: s, NEI: 1 - s}, nil
	}

	preds, err := c.client.PredictPairs(ctx, [][2]string{{claim, evidence}})
	if err != nil {
		return Distribution{}, fmt.Errorf("nli predict: %w", err)
	}

	var (
		d      Distribution
		mapped int
	)
	for _, ls := range preds[0] {
		switch c.labels[strings.ToUpper(ls.Label)] {
		case model.VerdictRefuted:
			d.Refuted = ls.Score
		case model.VerdictSupported:
			d.Supported = ls.Score
		case model.VerdictNEI:
			d.NEI = ls.Score
		default:
			continue
		}
		mapped++
	}
	if mapped == 0 {
		return Distribution{}, fmt.Errorf("%w: nli server returned no known labels", model.ErrModelUnavailable)
	}
	return d, nil
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
