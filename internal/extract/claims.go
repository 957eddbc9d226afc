package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/tinthat/internal/model"
)

// Detector names recorded on extracted claims
const (
	DetectorClassifier = "classifier"
	DetectorHeuristic  = "heuristic"
	DetectorDigit      = "digit"
)

var (
	spamPattern       = regexp.MustCompile(`(?i)(liên hệ|quảng cáo|bản quyền|ảnh:|nguồn:|hotline|email)`)
	transitionPattern = regexp.MustCompile(`(?i)^(xem thêm|đọc thêm|mời quý độc giả|mời bạn đọc)`)
)

// Classifier scores sentences with P(sentence is a checkable factual claim)
type Classifier interface {
	Score(ctx context.Context, sentences []string) ([]float64, error)
}

// ClaimExtractor turns article text into checkable claims
type ClaimExtractor struct {
	minWords   int
	maxClaims  int
	threshold  float64
	classifier Classifier
}

// NewClaimExtractor creates a new claim extractor.
// classifier may be nil, in which case the heuristic filter is used.
func NewClaimExtractor(cfg model.ExtractorConfig, classifier Classifier) *ClaimExtractor {
	minWords := cfg.MinWords
	if minWords <= 0 {
		minWords = 6
	}
	return &ClaimExtractor{
		minWords:   minWords,
		maxClaims:  cfg.MaxClaims,
		threshold:  cfg.ClassifierThreshold,
		classifier: classifier,
	}
}

// UsesClassifier reports whether a claim classifier is wired in
func (e *ClaimExtractor) UsesClassifier() bool {
	return e.classifier != nil
}

// Extract returns claims in article order. An empty result means the text
// has no checkable content and is not an error.
func (e *ClaimExtractor) Extract(ctx context.Context, text string) ([]model.InputClaim, error) {
	var candidates []model.InputClaim
	for i, sentence := range Segment(Normalize(text)) {
		if e.isCandidate(sentence) {
			candidates = append(candidates, model.InputClaim{Text: sentence, Index: i})
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var claims []model.InputClaim
	if e.classifier != nil {
		texts := make([]string, len(candidates))
		for i, c := range candidates {
			texts[i] = c.Text
		}
		scores, err := e.classifier.Score(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("classify sentences: %w", err)
		}
		if len(scores) != len(texts) {
			return nil, fmt.Errorf("classify sentences: %w: got %d scores for %d sentences", model.ErrModelUnavailable, len(scores), len(texts))
		}
		for i, c := range candidates {
			switch {
			case scores[i] > e.threshold:
				c.Detector = DetectorClassifier
			case hasDigit(c.Text):
				c.Detector = DetectorDigit
			default:
				continue
			}
			claims = append(claims, c)
		}
	} else {
		for _, c := range candidates {
			if spamPattern.MatchString(c.Text) {
				continue
			}
			switch {
			case hasDigit(c.Text):
				c.Detector = DetectorDigit
			case hasEntity(c.Text):
				c.Detector = DetectorHeuristic
			default:
				continue
			}
			claims = append(claims, c)
		}
	}

	claims = dedupeClaims(claims)
	if e.maxClaims > 0 && len(claims) > e.maxClaims {
		claims = claims[:e.maxClaims]
	}
	return claims, nil
}

// isCandidate applies the structural filters shared by both modes
func (e *ClaimExtractor) isCandidate(sentence string) bool {
	if !hasWordChar(sentence) {
		return false
	}
	if wordCount(sentence) < e.minWords {
		return false
	}
	trimmed := strings.TrimRight(sentence, ". \"'”’)»]")
	if strings.HasSuffix(trimmed, "?") {
		return false
	}
	if strings.HasSuffix(trimmed, ":") || transitionPattern.MatchString(sentence) {
		return false
	}
	return true
}

// dedupeClaims removes duplicate claims
func dedupeClaims(claims []model.InputClaim) []model.InputClaim {
	seen := make(map[string]bool)
	var unique []model.InputClaim

	for _, claim := range claims {
		key := strings.ToLower(strings.TrimSpace(claim.Text))
		if !seen[key] {
			seen[key] = true
			unique = append(unique, claim)
		}
	}

	return unique
}
