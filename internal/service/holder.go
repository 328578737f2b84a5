package service

import (
	"errors"
	"sync/atomic"
)

// ErrNotReady is returned while the catalog and index artifacts are still
// loading. Callers should surface it as a retryable "not ready" condition,
// never as a query failure.
var ErrNotReady = errors.New("service: resolver not ready")

// Holder hands the resolver from the one-time initialization phase to the
// request path. The server starts accepting connections before the artifacts
// finish loading; requests arriving early observe a not-ready state rather
// than a torn half-loaded resolver.
type Holder struct {
	ptr atomic.Pointer[Resolver]
}

// NewHolder creates an empty, not-ready holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Set publishes the fully constructed resolver. Called exactly once, after
// all artifacts are loaded and validated.
func (h *Holder) Set(r *Resolver) {
	h.ptr.Store(r)
}

// Get returns the resolver, or ErrNotReady if initialization has not
// finished.
func (h *Holder) Get() (*Resolver, error) {
	r := h.ptr.Load()
	if r == nil {
		return nil, ErrNotReady
	}
	return r, nil
}

// Ready reports whether the resolver is available.
func (h *Holder) Ready() bool {
	return h.ptr.Load() != nil
}
