package editing

// Diff returns the top-level keys of updated whose serialized value differs
// from original.
//
// Arrays that changed are returned whole, records present on both sides are
// diffed recursively, everything else (leaves, type changes, keys that only
// exist in updated) is returned as the new value. Keys that only exist in
// original are never reported. nil is a definite value.
func Diff(original, updated Object) Object {
	diff := CloneObject(updated)

	for key, before := range original {
		after, ok := diff[key]
		if !ok {
			continue
		}

		if equalJSON(before, after) {
			delete(diff, key)
			continue
		}

		// Whole-array replacement is good enough for every editor we have.
		_, beforeIsArray := asArray(before)
		_, afterIsArray := asArray(after)
		if beforeIsArray && afterIsArray {
			continue
		}

		beforeObj, okBefore := asObject(before)
		afterObj, okAfter := asObject(after)
		if okBefore && okAfter {
			diff[key] = Diff(beforeObj, afterObj)
		}
	}

	return diff
}
