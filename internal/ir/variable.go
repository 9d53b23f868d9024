package ir

import "fmt"

// Variable declares an input value for a configuration.
type Variable struct {
	Name      string `yaml:"name" json:"name"`
	Type      string `yaml:"type,omitempty" json:"type,omitempty"` // "string", "number", "bool", "list", "map" or "" for any
	Default   any    `yaml:"default,omitempty" json:"default,omitempty"`
	Sensitive bool   `yaml:"sensitive,omitempty" json:"sensitive,omitempty"`
}

// CheckType validates a supplied value against the declared type constraint.
func (v *Variable) CheckType(value any) error {
	if v.Type == "" || value == nil {
		return nil
	}

	ok := false
	switch v.Type {
	case "string":
		_, ok = value.(string)
	case "number":
		switch value.(type) {
		case int, int64, float64:
			ok = true
		}
	case "bool":
		_, ok = value.(bool)
	case "list":
		_, ok = value.([]any)
	case "map":
		switch value.(type) {
		case map[string]any, map[any]any:
			ok = true
		}
	default:
		return fmt.Errorf("variable %q declares unknown type constraint %q", v.Name, v.Type)
	}

	if !ok {
		return fmt.Errorf("variable %q expects %s, got %T", v.Name, v.Type, value)
	}
	return nil
}
