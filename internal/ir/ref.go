package ir

import (
	"fmt"
	"strings"
)

// Reference expressions embedded in attribute values:
//
//	ref://<type>.<name>/<attribute>   value of another resource's attribute
//	var://<name>                      value of a declared variable
//
// The engine resolves these to concrete values before any comparison;
// the expression text itself is never diffed.
const (
	resourceRefScheme = "ref://"
	variableRefScheme = "var://"
)

// Ref is a parsed reference to another resource's attribute.
type Ref struct {
	Addr      string // target resource address (type.name)
	Attribute string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s%s/%s", resourceRefScheme, r.Addr, r.Attribute)
}

// ParseRef parses a resource reference expression. The second return is
// false when the string is not a ref:// expression.
func ParseRef(s string) (Ref, bool) {
	if !strings.HasPrefix(s, resourceRefScheme) {
		return Ref{}, false
	}
	rest := strings.TrimPrefix(s, resourceRefScheme)
	addr, attr, found := strings.Cut(rest, "/")
	if !found || addr == "" || attr == "" {
		return Ref{}, false
	}
	return Ref{Addr: addr, Attribute: attr}, true
}

// ParseVarRef parses a variable reference expression, returning the
// variable name.
func ParseVarRef(s string) (string, bool) {
	if !strings.HasPrefix(s, variableRefScheme) {
		return "", false
	}
	name := strings.TrimPrefix(s, variableRefScheme)
	if name == "" {
		return "", false
	}
	return name, true
}

// VarRef renders a variable reference expression for name.
func VarRef(name string) string {
	return variableRefScheme + name
}

// ExtractRefs walks an attribute value and collects every resource
// reference found in it, in encounter order.
func ExtractRefs(v any) []Ref {
	var refs []Ref
	walkStrings(v, func(s string) {
		if ref, ok := ParseRef(s); ok {
			refs = append(refs, ref)
		}
	})
	return refs
}

// ExtractVarRefs walks an attribute value and collects every variable
// reference found in it.
func ExtractVarRefs(v any) []string {
	var names []string
	walkStrings(v, func(s string) {
		if name, ok := ParseVarRef(s); ok {
			names = append(names, name)
		}
	})
	return names
}

func walkStrings(v any, fn func(string)) {
	switch val := v.(type) {
	case string:
		fn(val)
	case map[string]any:
		for _, item := range val {
			walkStrings(item, fn)
		}
	case map[any]any:
		for _, item := range val {
			walkStrings(item, fn)
		}
	case []any:
		for _, item := range val {
			walkStrings(item, fn)
		}
	}
}
