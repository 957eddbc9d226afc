package score

import (
	"github.com/ppiankov/tinthat/internal/model"
)

const (
	PolicyMeanSupported = "mean_supported"
	PolicyMeanEvaluated = "mean_evaluated"
	PolicyMaxSupported  = "max_supported"
)

// Decider folds per-claim evidence matches into an article-level decision
type Decider struct {
	refuteThreshold   float64
	supportRatio      float64
	neutralConfidence float64
	policy            string
}

// NewDecider creates a decider from configuration
func NewDecider(cfg model.DecisionConfig) *Decider {
	policy := cfg.ConfidencePolicy
	if policy == "" {
		policy = PolicyMeanSupported
	}
	return &Decider{
		refuteThreshold:   cfg.RefuteThreshold,
		supportRatio:      cfg.SupportRatio,
		neutralConfidence: cfg.NeutralConfidence,
		policy:            policy,
	}
}

// Decide applies, in order: coverage, contradiction, support ratio, neutral
func (d *Decider) Decide(matches []model.EvidenceMatch) model.Decision {
	if len(matches) == 0 {
		return model.Undefined{Reason: "insufficient content: no checkable claims found"}
	}

	var (
		evaluated int
		refuted   int
		supported []model.EvidenceMatch
		strongest *model.EvidenceMatch
	)
	for i := range matches {
		m := &matches[i]
		if !m.HasEvidence() {
			continue
		}
		evaluated++
		switch m.Verdict {
		case model.VerdictRefuted:
			refuted++
			if m.Score > d.refuteThreshold && (strongest == nil || m.Score > strongest.Score) {
				strongest = m
			}
		case model.VerdictSupported:
			supported = append(supported, *m)
		}
	}

	if evaluated == 0 {
		return model.Undefined{Reason: "insufficient knowledge-base coverage: no trusted evidence found for any claim"}
	}

	// One strong contradiction outweighs any amount of support
	if strongest != nil {
		return model.Fake{Contradiction: *strongest}
	}

	if refuted == 0 && float64(len(supported))/float64(evaluated) >= d.supportRatio && len(supported) > 0 {
		return model.Real{
			Score:     d.confidence(supported, evaluated),
			Supported: supported,
			Evaluated: evaluated,
		}
	}

	return model.Neutral{Score: d.neutralConfidence, Reason: "mixed or insufficient evidence"}
}

func (d *Decider) confidence(supported []model.EvidenceMatch, evaluated int) float64 {
	var sum, best float64
	for _, m := range supported {
		sum += m.Score
		best = max(best, m.Score)
	}
	switch d.policy {
	case PolicyMaxSupported:
		return best
	case PolicyMeanEvaluated:
		return sum / float64(evaluated)
	default:
		return sum / float64(len(supported))
	}
}
