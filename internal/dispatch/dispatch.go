// Package dispatch routes decoded messages to callback sets through
// precomputed indices. Each index extracts one field from a message and looks
// up the set of callbacks interested in that value; a handler intersects the
// sets from all of its indices and invokes the survivors. Index tables are
// built once and never mutated, so handling takes no locks.
package dispatch

import (
	"log/slog"
	"math/bits"
)

// CallbackSet is a bitset over callback slots.
type CallbackSet []uint64

// NewCallbackSet returns a set sized for n callback slots.
func NewCallbackSet(n int) CallbackSet {
	return make(CallbackSet, (n+63)/64)
}

// Add marks slot i as a member.
func (s CallbackSet) Add(i int) {
	s[i/64] |= uint64(1) << (i % 64)
}

// And intersects two sets, returning a new set sized like s.
func (s CallbackSet) And(o CallbackSet) CallbackSet {
	out := make(CallbackSet, len(s))
	for i := range out {
		if i < len(o) {
			out[i] = s[i] & o[i]
		}
	}
	return out
}

// None reports whether the set is empty.
func (s CallbackSet) None() bool {
	for _, w := range s {
		if w != 0 {
			return false
		}
	}
	return true
}

// ForEach invokes fn with every member slot in ascending order.
func (s CallbackSet) ForEach(fn func(i int)) {
	for wi, w := range s {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			fn(wi*64 + bit)
			w &= w - 1
		}
	}
}

// Index maps one extracted message field to candidate callbacks.
type Index[M any] struct {
	// Extract pulls the indexed field out of a message.
	Extract func(M) uint64

	// Lookup maps a field value to the callbacks registered for it.
	Lookup map[uint64]CallbackSet

	// Default is used when the extracted value has no Lookup entry.
	Default CallbackSet
}

// Candidates returns the callback set for msg's extracted field value.
func (ix Index[M]) Candidates(msg M) CallbackSet {
	if set, ok := ix.Lookup[ix.Extract(msg)]; ok {
		return set
	}
	return ix.Default
}

// Handler dispatches messages of type M to a fixed callback table.
type Handler[M any] struct {
	indices   []Index[M]
	callbacks []func(M)
	log       *slog.Logger
}

// NewHandler builds a handler over the given callback table. At least one
// index is required; candidates are intersected across all of them.
func NewHandler[M any](callbacks []func(M), indices ...Index[M]) *Handler[M] {
	return &Handler[M]{
		indices:   indices,
		callbacks: callbacks,
		log:       slog.Default(),
	}
}

// SetLogger routes handler logging to log.
func (h *Handler[M]) SetLogger(log *slog.Logger) {
	if log != nil {
		h.log = log
	}
}

func (h *Handler[M]) candidates(msg M) CallbackSet {
	if len(h.indices) == 0 {
		return NewCallbackSet(len(h.callbacks))
	}
	set := h.indices[0].Candidates(msg)
	for _, ix := range h.indices[1:] {
		set = set.And(ix.Candidates(msg))
	}
	return set
}

// Match reports whether any callback would claim msg.
func (h *Handler[M]) Match(msg M) bool {
	return !h.candidates(msg).None()
}

// Handle invokes every callback whose indices all claim msg. A message no
// callback claims is logged as an error: the indices are supposed to cover
// the full message space.
func (h *Handler[M]) Handle(msg M) {
	set := h.candidates(msg)
	if set.None() {
		h.log.Error("dispatch: no callback claimed message")
		return
	}
	set.ForEach(func(i int) {
		if i < len(h.callbacks) && h.callbacks[i] != nil {
			h.callbacks[i](msg)
		}
	})
}
