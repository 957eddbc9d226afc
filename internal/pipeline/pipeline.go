package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/tinthat/internal/encoder"
	"github.com/ppiankov/tinthat/internal/extract"
	"github.com/ppiankov/tinthat/internal/logic"
	"github.com/ppiankov/tinthat/internal/metrics"
	"github.com/ppiankov/tinthat/internal/model"
	"github.com/ppiankov/tinthat/internal/nli"
	"github.com/ppiankov/tinthat/internal/score"
	"github.com/ppiankov/tinthat/internal/store"
)

// Deps are the long-lived components a Pipeline is built from
type Deps struct {
	Encoder    encoder.Encoder
	Store      store.Store
	Verifiers  *nli.Holder
	Classifier extract.Classifier // Optional; nil selects heuristic claim detection
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Pipeline orchestrates claim extraction, retrieval and verification.
// It is safe for concurrent use.
type Pipeline struct {
	extractor *extract.ClaimExtractor
	encoder   encoder.Encoder
	store     store.Store
	checker   *logic.Checker
	verifiers *nli.Holder
	policy    nli.Policy
	decider   *score.Decider
	topK      int
	threshold float64
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// New creates a pipeline from configuration and injected components
func New(cfg *model.Config, deps Deps) (*Pipeline, error) {
	if deps.Encoder == nil {
		return nil, fmt.Errorf("pipeline: encoder is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("pipeline: knowledge store is required")
	}
	if deps.Verifiers == nil {
		return nil, fmt.Errorf("pipeline: nli verifier is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		extractor: extract.NewClaimExtractor(cfg.Extractor, deps.Classifier),
		encoder:   deps.Encoder,
		store:     deps.Store,
		checker:   logic.NewChecker(cfg.Logic),
		verifiers: deps.Verifiers,
		policy:    nli.PolicyFromConfig(cfg.NLI),
		decider:   score.NewDecider(cfg.Decision),
		topK:      cfg.Retrieval.TopK,
		threshold: cfg.Retrieval.DistanceThreshold,
		logger:    logger,
		metrics:   deps.Metrics,
	}, nil
}

type requestIDKey struct{}

// WithRequestID tags ctx so logs and the result carry the caller's ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the ID set by WithRequestID, or ""
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// VerifyArticle verifies a title/content pair as sent by the browser extension
func (p *Pipeline) VerifyArticle(ctx context.Context, article model.Article) (*model.VerificationResult, error) {
	return p.Verify(ctx, article.Text())
}

// Verify checks every claim in text against the knowledge base.
// Text without checkable claims yields an UNDEFINED result, not an error.
func (p *Pipeline) Verify(ctx context.Context, text string) (*model.VerificationResult, error) {
	start := time.Now()
	reqID := RequestID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	log := p.logger.With(zap.String("request_id", reqID))

	claims, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return nil, p.fail(log, "extract claims", err)
	}

	details := make([]model.EvidenceMatch, 0, len(claims))
	if len(claims) > 0 {
		texts := make([]string, len(claims))
		for i, c := range claims {
			texts[i] = c.Text
		}
		vecs, err := p.encoder.EncodeBatch(ctx, texts)
		if err != nil {
			return nil, p.fail(log, "encode claims", err)
		}

		// Requests keep the verifier they started with across a hot reload
		verifier := p.verifiers.Current()
		for i, c := range claims {
			m, err := p.verifyClaim(ctx, verifier, c.Text, vecs[i])
			if err != nil {
				return nil, p.fail(log, fmt.Sprintf("verify claim %d", c.Index), err)
			}
			log.Debug("claim verified",
				zap.Int("claim_index", c.Index),
				zap.String("detector", c.Detector),
				zap.String("verdict", string(m.Verdict)),
				zap.String("source", string(m.Source)),
				zap.Float64("score", m.Score),
				zap.Float64("distance", m.Distance),
			)
			details = append(details, m)
		}
	}

	res := model.NewResult(p.decider.Decide(details), details)
	res.RequestID = reqID
	res.Elapsed = time.Since(start)
	p.metrics.ObserveResult(res, res.Elapsed)

	log.Info("article verified",
		zap.String("status", string(res.Status)),
		zap.Float64("confidence", res.Confidence),
		zap.Int("claims", res.Claims),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// verifyClaim walks candidates nearest first; the first SUPPORTED or REFUTED
// verdict wins, otherwise the nearest candidate's NEI stands
func (p *Pipeline) verifyClaim(ctx context.Context, verifier nli.Verifier, claim string, vec []float32) (model.EvidenceMatch, error) {
	candidates, err := p.store.Nearest(ctx, vec, p.topK, p.threshold)
	if err != nil {
		return model.EvidenceMatch{}, fmt.Errorf("retrieve evidence: %w", err)
	}
	if len(candidates) == 0 {
		return model.EvidenceMatch{
			Claim:   claim,
			Verdict: model.VerdictNeutral,
			Source:  model.SourceNone,
			Reason:  "no trusted evidence within distance threshold",
		}, nil
	}

	var nearest *model.EvidenceMatch
	for _, cand := range candidates {
		m := model.EvidenceMatch{
			Claim:      claim,
			Evidence:   cand.Text,
			EvidenceID: cand.ID,
			Distance:   cand.Distance,
		}

		if r := p.checker.Check(claim, cand.Text); r.Verdict != logic.Pass {
			m.Verdict, m.Score, m.Reason = r.Verdict, r.Score, r.Reason
			m.Source = model.SourceLogicRule
			return m, nil
		}

		dist, err := verifier.Predict(ctx, claim, cand.Text)
		if err != nil {
			return model.EvidenceMatch{}, err
		}
		m.Verdict, m.Score = p.policy.Classify(dist)
		m.Source = model.SourceNLIModel
		if m.Verdict.Decisive() {
			return m, nil
		}
		if nearest == nil {
			nearest = &m
		}
	}
	return *nearest, nil
}

func (p *Pipeline) fail(log *zap.Logger, stage string, err error) error {
	cause := "internal"
	switch {
	case errors.Is(err, model.ErrStoreUnavailable):
		cause = "store"
	case errors.Is(err, model.ErrModelUnavailable), errors.Is(err, model.ErrDimensionMismatch):
		cause = "model"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		cause = "canceled"
	}
	p.metrics.ObserveError(cause)
	log.Error("verification failed", zap.String("stage", stage), zap.String("cause", cause), zap.Error(err))
	return fmt.Errorf("%s: %w", stage, err)
}
