package editing

// Relational fields that the UI only selects by identity. They are reduced to
// their id so richer server payloads never show up as edits.
var identityFields = []string{"groups", "completion_model", "embedding_model"}

// Editable tracks a live, mutable copy of a resource against a committed
// reference. It is not safe for concurrent use.
type Editable struct {
	live      Object
	reference Object
}

// MakeEditable deep-copies original twice, into the reference and into the
// live value, after reducing the relational fields to {id} shapes.
func MakeEditable(original any) (*Editable, error) {
	ref, err := ToObject(original)
	if err != nil {
		return nil, err
	}
	normalise(ref)
	return &Editable{
		live:      CloneObject(ref),
		reference: ref,
	}, nil
}

// Value returns the live object. Callers may mutate it directly.
func (e *Editable) Value() Object {
	return e.live
}

func (e *Editable) Set(key string, value any) {
	e.live[key] = value
}

// GetEdits returns what changed since the last call and commits the live
// state as the new reference, so a second call without edits is empty.
func (e *Editable) GetEdits() Object {
	diff := Diff(e.reference, e.live)
	e.reference = CloneObject(e.live)
	return diff
}

// Original returns the committed reference.
func (e *Editable) Original() Object {
	return e.reference
}

// UpdateWithValue replaces the reference with value and copies its fields
// onto the live object, dropping uncommitted edits to those fields.
func (e *Editable) UpdateWithValue(value any) error {
	obj, err := ToObject(value)
	if err != nil {
		return err
	}
	normalise(obj)
	e.reference = CloneObject(obj)
	for k, v := range obj {
		e.live[k] = v
	}
	return nil
}

func normalise(obj Object) {
	for _, field := range identityFields {
		value, ok := obj[field]
		if !ok {
			continue
		}
		reduced := reduceToID(value)
		if reduced == nil {
			delete(obj, field)
			continue
		}
		obj[field] = reduced
	}
}

func reduceToID(value any) any {
	if items, ok := asArray(value); ok {
		out := make([]any, len(items))
		for i, item := range items {
			if r := idOnly(item); r != nil {
				out[i] = r
			}
		}
		return out
	}
	if r := idOnly(value); r != nil {
		return r
	}
	return nil
}

func idOnly(value any) Object {
	o, ok := asObject(value)
	if !ok {
		return nil
	}
	id, ok := o["id"]
	if !ok {
		return nil
	}
	return Object{"id": id}
}
