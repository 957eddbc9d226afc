package encoder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// HashingEncoder is a deterministic lexical encoder: word unigrams and bigrams
// are hashed into signed buckets and the vector is L2-normalized. It needs no
// model server, which makes it useful for offline runs and tests.
type HashingEncoder struct {
	dimension int
}

// NewHashingEncoder creates a new hashing encoder
func NewHashingEncoder(dimension int) *HashingEncoder {
	if dimension <= 0 {
		dimension = 768
	}
	return &HashingEncoder{dimension: dimension}
}

// Name returns the encoder name
func (e *HashingEncoder) Name() string {
	return "hashing"
}

// Dimension returns the vector size
func (e *HashingEncoder) Dimension() int {
	return e.dimension
}

// Encode embeds a single sentence
func (e *HashingEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(text), nil
}

// EncodeBatch embeds each text independently
func (e *HashingEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashingEncoder) vector(text string) []float32 {
	vec := make([]float64, e.dimension)
	words := strings.FieldsFunc(strings.ToLower(norm.NFC.String(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})

	for i, w := range words {
		e.add(vec, w, 1)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	var norm2 float64
	for _, v := range vec {
		norm2 += v * v
	}
	out := make([]float32, e.dimension)
	if norm2 == 0 {
		return out
	}
	scale := 1 / math.Sqrt(norm2)
	for i, v := range vec {
		out[i] = float32(v * scale)
	}
	return out
}

func (e *HashingEncoder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dimension))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}
