package model

import (
	"fmt"
	"time"
)

// Status is the article-level verdict
type Status string

const (
	StatusReal      Status = "REAL"
	StatusFake      Status = "FAKE"
	StatusNeutral   Status = "NEUTRAL"
	StatusUndefined Status = "UNDEFINED"
)

// VerificationResult is returned to callers of Verify
type VerificationResult struct {
	RequestID   string          `json:"request_id,omitempty"`
	Status      Status          `json:"status"`
	Confidence  float64         `json:"confidence"`
	Explanation string          `json:"explanation"`
	Details     []EvidenceMatch `json:"details"`
	Claims      int             `json:"claims"`
	Elapsed     time.Duration   `json:"elapsed_ns,omitempty"`
}

// Decision is the aggregator's article-level outcome.
// Implemented only by Real, Fake, Neutral and Undefined.
type Decision interface {
	Status() Status
	Confidence() float64
	Explanation() string
	decision()
}

// Real means enough claims were supported and none contradicted
type Real struct {
	Score     float64
	Supported []EvidenceMatch
	Evaluated int
}

// Fake means at least one claim was contradicted with high confidence
type Fake struct {
	Contradiction EvidenceMatch
}

// Neutral means the evidence was mixed or too weak to decide
type Neutral struct {
	Score  float64
	Reason string
}

// Undefined means nothing could be checked against the knowledge base
type Undefined struct {
	Reason string
}

func (Real) Status() Status      { return StatusReal }
func (Fake) Status() Status      { return StatusFake }
func (Neutral) Status() Status   { return StatusNeutral }
func (Undefined) Status() Status { return StatusUndefined }

func (d Real) Confidence() float64    { return d.Score }
func (d Fake) Confidence() float64    { return d.Contradiction.Score }
func (d Neutral) Confidence() float64 { return d.Score }
func (Undefined) Confidence() float64 { return 0 }

func (d Real) Explanation() string {
	return fmt.Sprintf("%d of %d checked claims are supported by trusted sources", len(d.Supported), d.Evaluated)
}

func (d Fake) Explanation() string {
	c := d.Contradiction
	if c.Reason != "" {
		return fmt.Sprintf("claim %q contradicts trusted source %q (%s)", c.Claim, c.Evidence, c.Reason)
	}
	return fmt.Sprintf("claim %q contradicts trusted source %q", c.Claim, c.Evidence)
}

func (d Neutral) Explanation() string   { return d.Reason }
func (d Undefined) Explanation() string { return d.Reason }

func (Real) decision()      {}
func (Fake) decision()      {}
func (Neutral) decision()   {}
func (Undefined) decision() {}

// NewResult converts a decision and its per-claim details into a result
func NewResult(d Decision, details []EvidenceMatch) *VerificationResult {
	if details == nil {
		details = []EvidenceMatch{}
	}
	return &VerificationResult{
		Status:      d.Status(),
		Confidence:  d.Confidence(),
		Explanation: d.Explanation(),
		Details:     details,
		Claims:      len(details),
	}
}
