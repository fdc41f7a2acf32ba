package editing

// RemovedItems returns the items of before whose id is missing from after,
// keeping only the first occurrence of each id.
func RemovedItems[T any](before, after []T, id func(T) string) []T {
	return missingFrom(before, after, id)
}

// AddedItems returns the items of after whose id is missing from before,
// keeping only the first occurrence of each id.
func AddedItems[T any](before, after []T, id func(T) string) []T {
	return missingFrom(after, before, id)
}

func missingFrom[T any](items, other []T, id func(T) string) []T {
	known := make(map[string]struct{}, len(other))
	for _, item := range other {
		known[id(item)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(items))
	var out []T
	for _, item := range items {
		key := id(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := known[key]; !ok {
			out = append(out, item)
		}
	}
	return out
}
