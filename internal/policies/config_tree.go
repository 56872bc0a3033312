package policies

import "fmt"

// NormalizeTree returns a copy of a decoded YAML value in which every map is
// a map[string]any. The input is not modified.
func NormalizeTree(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = NormalizeTree(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(key)] = NormalizeTree(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = NormalizeTree(item)
		}
		return out
	default:
		return value
	}
}

// NormalizeMap is NormalizeTree for a value that must be a mapping. A nil
// value yields an empty map.
func NormalizeMap(value any) (map[string]any, error) {
	if value == nil {
		return map[string]any{}, nil
	}
	normalized, ok := NormalizeTree(value).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got %T", value)
	}
	return normalized, nil
}

// MergeTree merges override onto base and returns a new tree. Nested maps
// are merged key by key; any other override value, lists included, replaces
// the base value. A nil override value leaves the base value in place.
func MergeTree(base map[string]any, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for key, value := range base {
		merged[key] = NormalizeTree(value)
	}
	for key, value := range override {
		if value == nil {
			continue
		}
		if baseMap, ok := merged[key].(map[string]any); ok {
			if overrideMap, ok := NormalizeTree(value).(map[string]any); ok {
				merged[key] = MergeTree(baseMap, overrideMap)
				continue
			}
		}
		merged[key] = NormalizeTree(value)
	}
	return merged
}
