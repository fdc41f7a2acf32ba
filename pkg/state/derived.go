package state

// Derived is a read-only container whose value is recomputed from its sources.
// It stays attached to its sources until Close is called.
type Derived[T any] struct {
	inner   *Writable[T]
	release []func()
}

func (d *Derived[T]) Get() T                     { return d.inner.Get() }
func (d *Derived[T]) Subscribe(l func(T)) func() { return d.inner.Subscribe(l) }

// Close detaches the derived container from its sources.
func (d *Derived[T]) Close() {
	for _, r := range d.release {
		r()
	}
	d.release = nil
}

// Derive maps a single source.
func Derive[A, T any](src Readable[A], fn func(A) T) *Derived[T] {
	d := &Derived[T]{inner: NewWritable(fn(src.Get()))}
	first := true
	d.release = append(d.release, src.Subscribe(func(a A) {
		if first {
			first = false
			return
		}
		d.inner.Set(fn(a))
	}))
	return d
}

// Derive2 maps two sources. The value is recomputed when either changes.
func Derive2[A, B, T any](a Readable[A], b Readable[B], fn func(A, B) T) *Derived[T] {
	d := &Derived[T]{inner: NewWritable(fn(a.Get(), b.Get()))}
	recompute := func() { d.inner.Set(fn(a.Get(), b.Get())) }

	firstA, firstB := true, true
	d.release = append(d.release,
		a.Subscribe(func(A) {
			if firstA {
				firstA = false
				return
			}
			recompute()
		}),
		b.Subscribe(func(B) {
			if firstB {
				firstB = false
				return
			}
			recompute()
		}),
	)
	return d
}
