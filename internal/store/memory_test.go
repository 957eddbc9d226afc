package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/tinthat/internal/model"
)

type fixedEmbedder struct{ calls int }

func (f *fixedEmbedder) Dimension() int { return 2 }

func (f *fixedEmbedder) EncodeBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0, 1}
	}
	return out, nil
}

func TestMemoryNearestTrustedOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	_, err := s.Insert(ctx, model.KBClaim{Text: "real close", Embedding: []float32{1, 0.1}, TrustLabel: model.TrustReal})
	require.NoError(t, err)
	_, err = s.Insert(ctx, model.KBClaim{Text: "fake closest", Embedding: []float32{1, 0}, TrustLabel: model.TrustFake})
	require.NoError(t, err)
	_, err = s.Insert(ctx, model.KBClaim{Text: "pending", Embedding: []float32{1, 0}})
	require.NoError(t, err)
	_, err = s.Insert(ctx, model.KBClaim{Text: "real far", Embedding: []float32{0, 1}, TrustLabel: model.TrustReal})
	require.NoError(t, err)

	got, err := s.Nearest(ctx, []float32{1, 0}, 3, 0.5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "real close", got[0].Text)
	assert.Less(t, got[0].Distance, 0.5)
}

func TestMemoryNearestOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	for _, v := range [][]float32{{1, 0.3}, {1, 0}, {1, 0.1}, {1, 0.2}} {
		_, err := s.Insert(ctx, model.KBClaim{Text: "c", Embedding: v, TrustLabel: model.TrustReal})
		require.NoError(t, err)
	}

	got, err := s.Nearest(ctx, []float32{1, 0}, 3, 0.5)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
	assert.Equal(t, int64(4), got[2].ID)
	assert.LessOrEqual(t, got[0].Distance, got[1].Distance)
}

func TestMemoryThresholdIsStrict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	_, err := s.Insert(ctx, model.KBClaim{Text: "orthogonal", Embedding: []float32{0, 1}, TrustLabel: model.TrustReal})
	require.NoError(t, err)

	got, err := s.Nearest(ctx, []float32{1, 0}, 3, 1.0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)
	_, err := s.Insert(ctx, model.KBClaim{Text: "x", Embedding: []float32{1, 0}})
	assert.ErrorIs(t, err, model.ErrDimensionMismatch)

	_, err = s.Nearest(ctx, []float32{1, 0}, 3, 0.5)
	assert.ErrorIs(t, err, model.ErrDimensionMismatch)
}

func TestMemorySetTrustLabel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	id, err := s.Insert(ctx, model.KBClaim{Text: "pending", Embedding: []float32{1, 0}})
	require.NoError(t, err)

	got, err := s.Nearest(ctx, []float32{1, 0}, 3, 0.5)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SetTrustLabel(ctx, id, model.TrustReal))
	got, err = s.Nearest(ctx, []float32{1, 0}, 3, 0.5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	assert.ErrorIs(t, s.SetTrustLabel(ctx, 99, model.TrustReal), model.ErrNotFound)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats[model.TrustReal])
}

func TestMemoryLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.jsonl")
	data := `{"id":10,"text":"Có vector sẵn.","embedding":[1,0],"trust_label":"REAL"}

{"text":"Cần mã hóa."}
{"text":"Đang chờ duyệt.","embedding":[1,0],"trust_label":"UNDEFINED"}
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	enc := &fixedEmbedder{}
	s := NewMemoryStore(2)
	require.NoError(t, s.LoadFile(context.Background(), path, enc))
	assert.Equal(t, 1, enc.calls)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats[model.TrustReal])
	assert.Equal(t, 1, stats[model.TrustUndefined])

	got, err := s.Nearest(context.Background(), []float32{0, 1}, 3, 0.1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(11), got[0].ID)
}

func TestMemoryLoadFileNeedsEncoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"text":"no vector"}`+"\n"), 0o644))
	assert.Error(t, NewMemoryStore(2).LoadFile(context.Background(), path, nil))
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 2.0, CosineDistance([]float32{1}, []float32{1, 0}))
}
