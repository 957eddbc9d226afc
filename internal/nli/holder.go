package nli

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

type loaded struct {
	verifier   Verifier
	generation int64
}

// Holder is the process-wide handle on the live verifier.
// Callers take Current once per request and keep it for that request.
type Holder struct {
	mu      sync.Mutex
	current atomic.Pointer[loaded]
}

// NewHolder wraps an already-checked verifier as generation 1
func NewHolder(v Verifier) *Holder {
	h := &Holder{}
	h.current.Store(&loaded{verifier: v, generation: 1})
	return h
}

// Current returns the live verifier
func (h *Holder) Current() Verifier {
	return h.current.Load().verifier
}

// Generation counts successful loads, starting at 1
func (h *Holder) Generation() int64 {
	return h.current.Load().generation
}

// Swap installs v after it passes the canary; on failure the old verifier stays
func (h *Holder) Swap(ctx context.Context, v Verifier) error {
	if v == nil {
		return fmt.Errorf("nil verifier")
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := Canary(ctx, v); err != nil {
		return err
	}
	prev := h.current.Load()
	h.current.Store(&loaded{verifier: v, generation: prev.generation + 1})
	return nil
}

// Reload builds a fresh verifier and swaps it in
func (h *Holder) Reload(ctx context.Context, build func() (Verifier, error)) error {
	v, err := build()
	if err != nil {
		return fmt.Errorf("build verifier: %w", err)
	}
	return h.Swap(ctx, v)
}
