package state

// DerivedCell is a read-only cell computed from one or more source
// cells. It recomputes whenever a source changes and notifies its own
// subscribers with the result.
type DerivedCell[T any] struct {
	inner  *Cell[T]
	unsubs []Unsubscribe
}

// Derive builds a cell whose value is fn applied to source. fn must be
// pure; it is called once per source change (and once during
// construction).
func Derive[S, T any](source Readable[S], fn func(S) T, opts ...CellOption[T]) *DerivedCell[T] {
	inner := NewCell(fn(source.Get()), opts...)
	unsub := source.Subscribe(func(v S) {
		inner.Set(fn(v))
	})
	return &DerivedCell[T]{inner: inner, unsubs: []Unsubscribe{unsub}}
}

// Derive2 builds a cell computed from two sources.
func Derive2[A, B, T any](a Readable[A], b Readable[B], fn func(A, B) T, opts ...CellOption[T]) *DerivedCell[T] {
	inner := NewCell(fn(a.Get(), b.Get()), opts...)
	recompute := func() {
		inner.Set(fn(a.Get(), b.Get()))
	}
	ua := a.Subscribe(func(A) { recompute() })
	ub := b.Subscribe(func(B) { recompute() })
	return &DerivedCell[T]{inner: inner, unsubs: []Unsubscribe{ua, ub}}
}

// Get returns the current computed value.
func (d *DerivedCell[T]) Get() T {
	return d.inner.Get()
}

// Subscribe registers fn and calls it immediately with the current
// computed value.
func (d *DerivedCell[T]) Subscribe(fn func(T)) Unsubscribe {
	return d.inner.Subscribe(fn)
}

// Detach disconnects the derived cell from its sources. The cell keeps
// its last value but stops updating.
func (d *DerivedCell[T]) Detach() {
	for _, unsub := range d.unsubs {
		unsub()
	}
	d.unsubs = nil
}
