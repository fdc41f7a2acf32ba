package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWritable(t *testing.T) {
	t.Run("subscribe receives current value immediately", func(t *testing.T) {
		w := NewWritable(1)
		var got []int
		unsub := w.Subscribe(func(v int) { got = append(got, v) })
		defer unsub()

		assert.Equal(t, []int{1}, got)
	})

	t.Run("set and update notify synchronously", func(t *testing.T) {
		w := NewWritable(1)
		var got []int
		unsub := w.Subscribe(func(v int) { got = append(got, v) })
		defer unsub()

		w.Set(2)
		w.Update(func(v int) int { return v * 10 })

		assert.Equal(t, []int{1, 2, 20}, got)
		assert.Equal(t, 20, w.Get())
	})

	t.Run("unsubscribe stops notifications and is idempotent", func(t *testing.T) {
		w := NewWritable("a")
		calls := 0
		unsub := w.Subscribe(func(string) { calls++ })
		unsub()
		unsub()
		w.Set("b")

		assert.Equal(t, 1, calls)
	})

	t.Run("listener may read the container", func(t *testing.T) {
		w := NewWritable(0)
		var seen int
		unsub := w.Subscribe(func(int) { seen = w.Get() })
		defer unsub()

		w.Set(5)
		assert.Equal(t, 5, seen)
	})

	t.Run("read only view shares value", func(t *testing.T) {
		w := NewWritable(3)
		r := w.ReadOnly()
		w.Set(4)
		assert.Equal(t, 4, r.Get())
	})
}

func TestDerive(t *testing.T) {
	src := NewWritable(2)
	d := Derive[int, int](src, func(v int) int { return v * v })

	var got []int
	unsub := d.Subscribe(func(v int) { got = append(got, v) })
	defer unsub()

	src.Set(3)
	assert.Equal(t, 9, d.Get())
	assert.Equal(t, []int{4, 9}, got)

	d.Close()
	src.Set(4)
	assert.Equal(t, 9, d.Get())
}

func TestDerive2(t *testing.T) {
	a := NewWritable("x")
	b := NewWritable(1)
	d := Derive2[string, int, string](a, b, func(s string, n int) string {
		out := ""
		for i := 0; i < n; i++ {
			out += s
		}
		return out
	})
	defer d.Close()

	assert.Equal(t, "x", d.Get())
	b.Set(3)
	assert.Equal(t, "xxx", d.Get())
	a.Set("y")
	assert.Equal(t, "yyy", d.Get())
}

func TestGroup(t *testing.T) {
	var order []int
	var g Group
	g.Add(func() { order = append(order, 1) })
	g.Add(func() { order = append(order, 2) })

	g.Close()
	g.Close()

	assert.Equal(t, []int{2, 1}, order)
}

func TestWritableListenerOrder(t *testing.T) {
	w := NewWritable(0)
	var calls []string
	subscribe := func(name string) func() {
		return w.Subscribe(func(v int) {
			if v > 0 {
				calls = append(calls, name)
			}
		})
	}

	a := subscribe("a")
	b := subscribe("b")
	c := subscribe("c")
	defer a()
	defer c()

	for i := 0; i < 100; i++ {
		subscribe("churn")()
	}
	b()
	b()

	w.Set(1)
	assert.Equal(t, []string{"a", "c"}, calls)
	assert.Len(t, w.listeners, 2)
}
