// Package nli scores whether trusted evidence entails, contradicts or says
// nothing about a claim.
package nli

import (
	"context"
	"fmt"

	"github.com/ppiankov/tinthat/internal/model"
)

// Distribution is a probability over the three NLI classes
type Distribution struct {
	Refuted   float64 `json:"refuted"`
	Supported float64 `json:"supported"`
	NEI       float64 `json:"nei"`
}

// Label returns the most probable class and its probability.
// Ties resolve in the order REFUTED, SUPPORTED, NEI.
func (d Distribution) Label() (model.Verdict, float64) {
	label, best := model.VerdictRefuted, d.Refuted
	if d.Supported > best {
		label, best = model.VerdictSupported, d.Supported
	}
	if d.NEI > best {
		label, best = model.VerdictNEI, d.NEI
	}
	return label, best
}

// Verifier predicts the relation between a claim and one piece of evidence
type Verifier interface {
	// Name identifies the backend and model for logs
	Name() string

	Predict(ctx context.Context, claim, evidence string) (Distribution, error)
}

// Policy turns a distribution into a verdict
type Policy struct {
	BoostThreshold  float64
	DominanceMargin float64
}

// PolicyFromConfig reads the boost knobs
func PolicyFromConfig(cfg model.NLIConfig) Policy {
	return Policy{BoostThreshold: cfg.BoostThreshold, DominanceMargin: cfg.DominanceMargin}
}

// Classify picks the argmax label. An NEI verdict is promoted to SUPPORTED
// when Supported is the runner-up within DominanceMargin of it and the
// non-refuting mass Supported+NEI reaches BoostThreshold.
// Refutations are never promoted.
func (p Policy) Classify(d Distribution) (model.Verdict, float64) {
	label, score := d.Label()
	if label == model.VerdictNEI &&
		d.Supported >= d.Refuted &&
		d.NEI-d.Supported < p.DominanceMargin &&
		d.Supported+d.NEI >= p.BoostThreshold {
		return model.VerdictSupported, d.Supported
	}
	return label, score
}

const (
	canaryClaim    = "Hà Nội là thủ đô của Việt Nam."
	canaryEvidence = "Thủ đô của Việt Nam là Hà Nội."
)

// Canary runs one prediction and checks the result is a usable distribution
func Canary(ctx context.Context, v Verifier) error {
	d, err := v.Predict(ctx, canaryClaim, canaryEvidence)
	if err != nil {
		return fmt.Errorf("nli canary (%s): %w", v.Name(), err)
	}
	sum := d.Refuted + d.Supported + d.NEI
	if sum <= 0 || d.Refuted < 0 || d.Supported < 0 || d.NEI < 0 {
		return fmt.Errorf("%w: nli canary (%s) returned %+v", model.ErrModelUnavailable, v.Name(), d)
	}
	return nil
}
