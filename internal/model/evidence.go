package model

// Verdict is the per-claim outcome of comparing a claim with evidence
type Verdict string

const (
	VerdictSupported Verdict = "SUPPORTED"
	VerdictRefuted   Verdict = "REFUTED"
	VerdictNEI       Verdict = "NEI"     // Not enough information
	VerdictNeutral   Verdict = "NEUTRAL" // No evidence was retrieved
)

// Decisive reports whether v settles a claim on its own
func (v Verdict) Decisive() bool {
	return v == VerdictSupported || v == VerdictRefuted
}

// MatchSource identifies which component produced a verdict
type MatchSource string

const (
	SourceLogicRule MatchSource = "logic_rule"
	SourceNLIModel  MatchSource = "nli_model"
	SourceNone      MatchSource = "none"
)

// Candidate is a trusted sentence returned by the retriever
type Candidate struct {
	ID       int64   `json:"id"`
	Text     string  `json:"text"`
	Distance float64 `json:"distance"` // 0 = identical meaning
}

// EvidenceMatch pairs one input claim with the evidence that decided it
type EvidenceMatch struct {
	Claim      string      `json:"claim"`
	Evidence   string      `json:"evidence,omitempty"`
	EvidenceID int64       `json:"evidence_id,omitempty"`
	Distance   float64     `json:"distance"`
	Verdict    Verdict     `json:"status"`
	Score      float64     `json:"score"`
	Source     MatchSource `json:"source"`
	Reason     string      `json:"reason,omitempty"`
}

// HasEvidence reports whether retrieval found anything for the claim
func (m EvidenceMatch) HasEvidence() bool {
	return m.Source != SourceNone && m.Evidence != ""
}
