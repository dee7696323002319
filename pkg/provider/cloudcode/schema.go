package cloudcode

// droppedSchemaKeys are JSON Schema keywords the backend rejects outright.
var droppedSchemaKeys = map[string]bool{
	"additionalProperties": true,
	"$schema":              true,
	"default":              true,
}

// allowedFormats are the only "format" values the backend accepts on string
// properties. Any other format is dropped while the property itself is kept.
var allowedFormats = map[string]bool{
	"enum":      true,
	"date-time": true,
}

// CleanSchema returns a deep copy of a JSON Schema with the keywords the
// backend rejects removed, recursively. Structural keywords (type,
// properties, required, description, items, enum) pass through untouched.
// The input map is never modified. A nil schema stays nil.
func CleanSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	return cleanSchemaMap(schema)
}

func cleanSchemaMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		if droppedSchemaKeys[key] {
			continue
		}
		if key == "format" {
			if s, ok := value.(string); !ok || !allowedFormats[s] {
				continue
			}
		}
		out[key] = cleanSchemaValue(value)
	}
	return out
}

func cleanSchemaValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cleanSchemaMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cleanSchemaValue(item)
		}
		return out
	default:
		return v
	}
}
