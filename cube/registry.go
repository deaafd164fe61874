// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cube

// A Registry is a dense, id-indexed table of entities of one kind.
//
// Every slot is written at most once. Insert fails if the slot is
// already occupied and Lookup fails if it is empty. Occupancy is
// tracked separately from the stored value, since 0 is a valid id and
// the zero T is a valid value.
//
// The zero Registry is empty and ready to use, but has no name for
// error messages; use NewRegistry to give it one.
type Registry[T any] struct {
	kind  string
	items []T
	used  []bool
	n     int
}

// NewRegistry returns an empty registry whose error messages refer to
// its entries as kind (for example "region").
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind}
}

// Insert stores v at id. It fails with ErrRange if id is negative and
// with ErrReferentialIntegrity if id is already occupied.
func (r *Registry[T]) Insert(id int, v T) error {
	if id < 0 {
		return errorf(ErrRange, "%s id %d is negative", r.kind, id)
	}
	if id >= len(r.items) {
		// Grow to fit. Ids in files are dense, so amortized doubling
		// is rarely wasted.
		n := 2 * len(r.items)
		if n <= id {
			n = id + 1
		}
		items := make([]T, n)
		copy(items, r.items)
		used := make([]bool, n)
		copy(used, r.used)
		r.items, r.used = items, used
	}
	if r.used[id] {
		return errorf(ErrReferentialIntegrity, "%s %d already defined", r.kind, id)
	}
	r.items[id] = v
	r.used[id] = true
	r.n++
	return nil
}

// Lookup returns the entry at id. It fails with
// ErrReferentialIntegrity if id was never inserted.
func (r *Registry[T]) Lookup(id int) (T, error) {
	if !r.Has(id) {
		var zero T
		return zero, errorf(ErrReferentialIntegrity, "%s %d not defined", r.kind, id)
	}
	return r.items[id], nil
}

// Has reports whether id is occupied.
func (r *Registry[T]) Has(id int) bool {
	return id >= 0 && id < len(r.used) && r.used[id]
}

// Count returns the number of occupied slots.
func (r *Registry[T]) Count() int {
	return r.n
}

// Span returns one more than the largest occupied id, or 0 if the
// registry is empty.
func (r *Registry[T]) Span() int {
	for i := len(r.used) - 1; i >= 0; i-- {
		if r.used[i] {
			return i + 1
		}
	}
	return 0
}

// FirstGap returns the smallest unoccupied id below Span, and false
// if the occupied ids form the interval [0, Span).
func (r *Registry[T]) FirstGap() (int, bool) {
	if r.n == r.Span() {
		return 0, false
	}
	for i, u := range r.used {
		if !u {
			return i, true
		}
	}
	panic("not reachable")
}

// All returns the occupied entries in ascending id order.
func (r *Registry[T]) All() []T {
	out := make([]T, 0, r.n)
	for i, u := range r.used {
		if u {
			out = append(out, r.items[i])
		}
	}
	return out
}
