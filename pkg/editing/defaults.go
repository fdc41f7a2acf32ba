package editing

// ApplyDefaults sets every key of defaults that is absent or nil in resource.
// Present values and the id are never touched. resource is modified in place
// and returned.
func ApplyDefaults(resource, defaults Object) Object {
	if resource == nil {
		resource = Object{}
	}
	for key, value := range defaults {
		if key == "id" {
			continue
		}
		if current, ok := resource[key]; !ok || current == nil {
			resource[key] = Clone(value)
		}
	}
	return resource
}
