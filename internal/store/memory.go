package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/tinthat/internal/model"
)

// MemoryStore keeps the knowledge base in process and searches it exhaustively.
// It backs tests, demos and small offline knowledge bases.
type MemoryStore struct {
	mu     sync.RWMutex
	dim    int
	claims []model.KBClaim
	nextID int64
}

// NewMemoryStore creates an empty store; dim 0 adopts the first inserted vector's size
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{dim: dim, nextID: 1}
}

// LoadFile reads a JSONL knowledge base (one model.KBClaim per line).
// Rows without an embedding are encoded with enc.
func (s *MemoryStore) LoadFile(ctx context.Context, path string, enc Embedder) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open knowledge base: %w", err)
	}
	defer func() { _ = f.Close() }()

	var (
		rows    []model.KBClaim
		missing []int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var c model.KBClaim
		if err := json.Unmarshal(line, &c); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if c.Text == "" {
			continue
		}
		if c.TrustLabel == "" {
			c.TrustLabel = model.TrustReal
		}
		if len(c.Embedding) == 0 {
			missing = append(missing, len(rows))
		}
		rows = append(rows, c)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read knowledge base: %w", err)
	}

	if len(missing) > 0 {
		if enc == nil {
			return fmt.Errorf("%s: %d rows have no embedding and no encoder is configured", path, len(missing))
		}
		texts := make([]string, len(missing))
		for i, idx := range missing {
			texts[i] = rows[idx].Text
		}
		vecs, err := enc.EncodeBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("encode knowledge base: %w", err)
		}
		for i, idx := range missing {
			rows[idx].Embedding = vecs[i]
		}
	}

	for _, c := range rows {
		if _, err := s.Insert(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Nearest scans every trusted claim and returns the k closest under maxDistance
func (s *MemoryStore) Nearest(_ context.Context, vec []float32, k int, maxDistance float64) ([]model.Candidate, error) {
	if k <= 0 {
		k = 3
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dim > 0 && len(vec) != s.dim {
		return nil, fmt.Errorf("%w: query has %d values, store holds %d", model.ErrDimensionMismatch, len(vec), s.dim)
	}

	var out []model.Candidate
	for _, c := range s.claims {
		if !c.Trusted() {
			continue
		}
		d := CosineDistance(vec, c.Embedding)
		if d < maxDistance {
			out = append(out, model.Candidate{ID: c.ID, Text: c.Text, Distance: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Insert adds a claim, assigning an ID when it has none
func (s *MemoryStore) Insert(_ context.Context, claim model.KBClaim) (int64, error) {
	if len(claim.Embedding) == 0 {
		return 0, fmt.Errorf("claim %q has no embedding", claim.Text)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		s.dim = len(claim.Embedding)
	}
	if len(claim.Embedding) != s.dim {
		return 0, fmt.Errorf("%w: claim has %d values, store holds %d", model.ErrDimensionMismatch, len(claim.Embedding), s.dim)
	}
	if claim.TrustLabel == "" {
		claim.TrustLabel = model.TrustUndefined
	}
	if claim.SourceType == "" {
		claim.SourceType = model.SourceAdmin
	}
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = time.Now().UTC()
	}
	claim.Verified = claim.Verified || claim.TrustLabel == model.TrustReal
	if claim.ID == 0 {
		claim.ID = s.nextID
	}
	if claim.ID >= s.nextID {
		s.nextID = claim.ID + 1
	}
	s.claims = append(s.claims, claim)
	return claim.ID, nil
}

// SetTrustLabel changes a claim's label
func (s *MemoryStore) SetTrustLabel(_ context.Context, id int64, label model.TrustLabel) error {
	if !label.Valid() {
		return fmt.Errorf("invalid trust label: %q", label)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.claims {
		if s.claims[i].ID == id {
			s.claims[i].TrustLabel = label
			s.claims[i].Verified = label == model.TrustReal
			return nil
		}
	}
	return fmt.Errorf("%w: id %d", model.ErrNotFound, id)
}

// Dimension reports the vector size, 0 while empty and unconfigured
func (s *MemoryStore) Dimension(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim, nil
}

// Stats counts claims per trust label
func (s *MemoryStore) Stats(context.Context) (map[model.TrustLabel]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := make(map[model.TrustLabel]int)
	for _, c := range s.claims {
		stats[c.TrustLabel]++
	}
	return stats, nil
}

func (s *MemoryStore) Close() error { return nil }

// CosineDistance is 1 - cos(a, b); mismatched or zero vectors are maximally distant
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
