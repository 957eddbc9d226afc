package encoder

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ppiankov/tinthat/internal/cache"
)

// CachedEncoder serves repeated sentences from the cache
type CachedEncoder struct {
	inner Encoder
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedEncoder wraps inner; a nil cache disables caching
func NewCachedEncoder(inner Encoder, c cache.Cache, ttl time.Duration) Encoder {
	if c == nil {
		return inner
	}
	return &CachedEncoder{inner: inner, cache: c, ttl: ttl}
}

// Name returns the wrapped encoder's name
func (e *CachedEncoder) Name() string {
	return e.inner.Name()
}

// Dimension returns the wrapped encoder's dimension
func (e *CachedEncoder) Dimension() int {
	return e.inner.Dimension()
}

// Encode embeds a single sentence
func (e *CachedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch looks up every text and sends only the misses to the model
func (e *CachedEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if data, found := e.cache.Get(e.key(text)); found {
			if vec, ok := decodeVector(data, e.inner.Dimension()); ok {
				out[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := e.inner.EncodeBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		_ = e.cache.Set(e.key(texts[i]), encodeVector(vecs[j]), e.ttl)
	}
	return out, nil
}

func (e *CachedEncoder) key(text string) string {
	return cache.CacheKey("emb", e.inner.Name(), text)
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte, dim int) ([]float32, bool) {
	if len(data)%4 != 0 || (dim > 0 && len(data) != 4*dim) {
		return nil, false
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, true
}
