package ir

import "fmt"

// unknown is the sentinel for values that cannot be resolved until the
// referenced resource has been applied ("known after apply").
type unknown struct{}

func (unknown) String() string { return "(known after apply)" }

func (u unknown) MarshalJSON() ([]byte, error) {
	return []byte(`"(known after apply)"`), nil
}

func (u unknown) MarshalYAML() (any, error) {
	return u.String(), nil
}

// Unknown is the single unknown-value sentinel.
var Unknown = unknown{}

// IsUnknown reports whether v is, or contains, the unknown sentinel.
func IsUnknown(v any) bool {
	switch val := v.(type) {
	case unknown:
		return true
	case map[string]any:
		for _, item := range val {
			if IsUnknown(item) {
				return true
			}
		}
	case []any:
		for _, item := range val {
			if IsUnknown(item) {
				return true
			}
		}
	}
	return false
}

// NormalizeValue converts YAML-flavored shapes (map[any]any, ints) into the
// canonical JSON-like shapes the engine compares: map[string]any, []any,
// string, float64, bool, nil.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[fmt.Sprintf("%v", k)] = NormalizeValue(item)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = NormalizeValue(item)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, item := range val {
			s[i] = NormalizeValue(item)
		}
		return s
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}
