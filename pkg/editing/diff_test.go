package editing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		original Object
		updated  Object
		want     Object
	}{
		{
			name:     "changed leaf",
			original: Object{"id": "1", "name": "group1"},
			updated:  Object{"id": "1", "name": "group2"},
			want:     Object{"name": "group2"},
		},
		{
			name:     "nested record",
			original: Object{"id": "1", "name": "group1", "metadata": Object{"title": "link"}},
			updated:  Object{"id": "1", "name": "group1", "metadata": Object{"title": "external"}},
			want:     Object{"metadata": Object{"title": "external"}},
		},
		{
			name:     "deep record keeps only changed branch",
			original: Object{"id": "1", "metadata": Object{"title": "link", "draft": Object{"saved": true}}},
			updated:  Object{"id": "1", "metadata": Object{"title": "link", "draft": Object{"saved": false}}},
			want:     Object{"metadata": Object{"draft": Object{"saved": false}}},
		},
		{
			name:     "array is replaced whole",
			original: Object{"id": "1", "groups": []any{1, 2, 3}},
			updated:  Object{"id": "1", "groups": []any{1, 2}},
			want:     Object{"groups": []any{1, 2}},
		},
		{
			name:     "added key",
			original: Object{"id": "1"},
			updated:  Object{"id": "1", "name": "group2"},
			want:     Object{"name": "group2"},
		},
		{
			name:     "dropped key is ignored",
			original: Object{"id": "1", "is_public": false},
			updated:  Object{"id": "1", "name": "group2"},
			want:     Object{"name": "group2"},
		},
		{
			name:     "nil is a definite value",
			original: Object{"id": nil, "name": "group1"},
			updated:  Object{"name": "group2", "empty": nil},
			want:     Object{"name": "group2", "empty": nil},
		},
		{
			name:     "nil replaced by value",
			original: Object{"id": nil},
			updated:  Object{"id": "1"},
			want:     Object{"id": "1"},
		},
		{
			name:     "type change returns new value",
			original: Object{"prompt": "text"},
			updated:  Object{"prompt": Object{"text": "text"}},
			want:     Object{"prompt": Object{"text": "text"}},
		},
		{
			name:     "numeric representations compare equal",
			original: Object{"temperature": 1},
			updated:  Object{"temperature": 1.0},
			want:     Object{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(tt.original, tt.updated))
		})
	}
}

func TestDiffProperties(t *testing.T) {
	a := Object{
		"id":     "1",
		"name":   "a",
		"tags":   []any{"x", "y"},
		"nested": Object{"keep": 1, "change": "old"},
		"gone":   true,
	}
	b := Object{
		"id":     "1",
		"name":   "b",
		"tags":   []any{"x", "y"},
		"nested": Object{"keep": 1, "change": "new"},
		"new":    nil,
	}

	t.Run("identical inputs produce empty diff", func(t *testing.T) {
		assert.Empty(t, Diff(a, CloneObject(a)))
	})

	t.Run("keys outside the diff are equal", func(t *testing.T) {
		diff := Diff(a, b)
		for key, value := range b {
			if _, ok := diff[key]; !ok {
				assert.True(t, equalJSON(a[key], value), key)
			}
		}
	})

	t.Run("merging the diff reproduces leaf changes", func(t *testing.T) {
		diff := Diff(a, b)
		merged := CloneObject(a)
		for key, value := range diff {
			merged[key] = value
		}
		assert.Equal(t, "b", merged["name"])
		assert.Contains(t, merged, "new")
		assert.Equal(t, Object{"change": "new"}, diff["nested"])
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		before := CloneObject(b)
		diff := Diff(a, b)
		diff["name"] = "mutated"
		assert.Equal(t, before, b)
	})
}
