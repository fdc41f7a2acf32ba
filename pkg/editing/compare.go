package editing

// FieldRule says how a single top-level field is compared by DiffFields.
type FieldRule struct {
	whole  bool
	fields []string
}

// Whole compares the entire field by serialized equality.
func Whole() FieldRule {
	return FieldRule{whole: true}
}

// Fields restricts comparison and output to the named sub-fields of a record,
// or of every record in an array.
func Fields(names ...string) FieldRule {
	return FieldRule{fields: names}
}

// CompareSpec maps top-level field names to their rule. Fields missing from
// the spec are never compared or returned.
type CompareSpec map[string]FieldRule

// DiffFields compares only the fields named in spec and returns a changeset
// holding the new values. Arrays of records are compared positionally.
//
// A field missing from edited never appears in the result. A field that is nil
// in original and set in edited is always reported.
func DiffFields(original, edited Object, spec CompareSpec) Object {
	result := Object{}

	for key, rule := range spec {
		after, present := edited[key]
		if !present {
			continue
		}
		before := original[key]

		if isPrimitive(before) || rule.whole {
			if !equalJSON(before, after) {
				result[key] = Clone(after)
			}
			continue
		}

		if afterObj, ok := asObject(after); ok {
			extracted := extractFields(afterObj, rule.fields)
			if beforeObj, ok := asObject(before); ok {
				if !equalJSON(extractFields(beforeObj, rule.fields), extracted) {
					result[key] = extracted
				}
			} else if before == nil {
				result[key] = extracted
			}
			continue
		}

		if afterArr, ok := asArray(after); ok {
			extracted := extractEach(afterArr, rule.fields)
			if beforeArr, ok := asArray(before); ok {
				if !equalJSON(extractEach(beforeArr, rule.fields), extracted) {
					result[key] = extracted
				}
			} else if before == nil {
				result[key] = extracted
			}
		}
	}

	return result
}

func extractFields(o Object, fields []string) Object {
	out := make(Object, len(fields))
	for _, f := range fields {
		if v, ok := o[f]; ok {
			out[f] = Clone(v)
		}
	}
	return out
}

func extractEach(items []any, fields []string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		o, _ := asObject(item)
		out[i] = extractFields(o, fields)
	}
	return out
}
