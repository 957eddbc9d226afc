package encoder

import (
	"context"
	"fmt"

	"github.com/ppiankov/tinthat/internal/model"
)

// Encoder maps sentences to fixed-size dense vectors.
// The same encoder must populate and query the knowledge base.
type Encoder interface {
	// Name identifies the model; it is part of cache keys
	Name() string

	// Dimension is the length of every returned vector
	Dimension() int

	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

const canaryText = "Hà Nội là thủ đô của nước Cộng hòa xã hội chủ nghĩa Việt Nam."

// Canary encodes a probe sentence and checks its length against the
// encoder's declared dimension and, when storeDim > 0, the knowledge store's.
func Canary(ctx context.Context, enc Encoder, storeDim int) error {
	vec, err := enc.Encode(ctx, canaryText)
	if err != nil {
		return fmt.Errorf("canary encode: %w", err)
	}
	if len(vec) != enc.Dimension() {
		return fmt.Errorf("%w: %s returned %d values, configured %d", model.ErrDimensionMismatch, enc.Name(), len(vec), enc.Dimension())
	}
	if storeDim > 0 && storeDim != len(vec) {
		return fmt.Errorf("%w: encoder %s produces %d, knowledge store holds %d", model.ErrDimensionMismatch, enc.Name(), len(vec), storeDim)
	}
	return nil
}

// New builds the configured encoder
func New(cfg model.EmbeddingConfig, opts ...Option) (Encoder, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIEncoder(cfg, opts...)
	case "hashing":
		return NewHashingEncoder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, hashing)", cfg.Provider)
	}
}
