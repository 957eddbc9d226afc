package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/tinthat/internal/model"
)

// Store is the knowledge base: trusted sentences searchable by vector distance
type Store interface {
	// Nearest returns up to k trusted claims with cosine distance < maxDistance,
	// ascending by distance
	Nearest(ctx context.Context, vec []float32, k int, maxDistance float64) ([]model.Candidate, error)

	// Insert adds a claim and returns its ID
	Insert(ctx context.Context, claim model.KBClaim) (int64, error)

	// SetTrustLabel changes a claim's label; REAL also marks it verified
	SetTrustLabel(ctx context.Context, id int64, label model.TrustLabel) error

	// Dimension reports the stored vector size, or 0 when unknown
	Dimension(ctx context.Context) (int, error)

	// Stats counts claims per trust label
	Stats(ctx context.Context) (map[model.TrustLabel]int, error)

	Close() error
}

// Embedder fills in vectors for knowledge-base rows loaded without one
type Embedder interface {
	Dimension() int
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Open builds the configured store. enc is only used by the memory driver.
func Open(ctx context.Context, cfg model.DatabaseConfig, enc Embedder) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return OpenPostgres(ctx, cfg)
	case "memory":
		dim := 0
		if enc != nil {
			dim = enc.Dimension()
		}
		s := NewMemoryStore(dim)
		if cfg.KBFile != "" {
			if err := s.LoadFile(ctx, cfg.KBFile, enc); err != nil {
				return nil, err
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s (supported: postgres, memory)", cfg.Driver)
	}
}

// encodeVectorLiteral renders a pgvector text literal such as [0.1,0.2]
func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}
