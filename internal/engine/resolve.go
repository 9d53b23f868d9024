package engine

import (
	"fmt"

	"github.com/reify-io/reify/internal/ir"
)

// AttrLookup resolves a resource attribute reference to a concrete value.
// The second return is false when the value cannot be known until apply.
type AttrLookup func(ref ir.Ref) (any, bool)

// Resolver holds the effective variable values for one planning cycle and
// resolves reference expressions inside attribute values.
type Resolver struct {
	variables map[string]*ir.Variable
	values    map[string]any
}

// NewResolver validates the supplied variable values against the declared
// variables and computes the effective value set. Declared variables with
// neither a supplied value nor a default, supplied values for undeclared
// variables, and type-constraint violations all fail with ValidationError.
func NewResolver(variables []*ir.Variable, supplied map[string]any) (*Resolver, error) {
	r := &Resolver{
		variables: make(map[string]*ir.Variable, len(variables)),
		values:    make(map[string]any, len(variables)),
	}

	for _, v := range variables {
		if _, dup := r.variables[v.Name]; dup {
			return nil, &ValidationError{Subject: v.Name, Reason: "duplicate variable declaration"}
		}
		r.variables[v.Name] = v

		value, ok := supplied[v.Name]
		if !ok {
			if v.Default == nil {
				return nil, &ValidationError{Subject: v.Name, Reason: "no value supplied and no default declared"}
			}
			value = v.Default
		}
		value = ir.NormalizeValue(value)
		if err := v.CheckType(value); err != nil {
			return nil, &ValidationError{Subject: v.Name, Reason: err.Error()}
		}
		r.values[v.Name] = value
	}

	for name := range supplied {
		if _, ok := r.variables[name]; !ok {
			return nil, &ValidationError{Subject: name, Reason: "value supplied for undeclared variable"}
		}
	}

	return r, nil
}

// Value returns the effective value of a declared variable.
func (r *Resolver) Value(name string) (any, error) {
	v, ok := r.values[name]
	if !ok {
		return nil, &ValidationError{Subject: name, Reason: "undeclared variable"}
	}
	return v, nil
}

// Sensitive reports whether name is declared sensitive.
func (r *Resolver) Sensitive(name string) bool {
	if v, ok := r.variables[name]; ok {
		return v.Sensitive
	}
	return false
}

// Resolve walks an attribute value, replacing every var:// and ref://
// expression with its concrete value. References whose value cannot be
// known yet resolve to the ir.Unknown sentinel. The second return reports
// whether any sensitive variable contributed to the result; such values
// must be redacted from rendered plans and logs.
func (r *Resolver) Resolve(v any, lookup AttrLookup) (any, bool, error) {
	switch val := v.(type) {
	case string:
		if name, ok := ir.ParseVarRef(val); ok {
			value, err := r.Value(name)
			if err != nil {
				return nil, false, err
			}
			return value, r.Sensitive(name), nil
		}
		if ref, ok := ir.ParseRef(val); ok {
			if lookup == nil {
				return ir.Unknown, false, nil
			}
			value, known := lookup(ref)
			if !known {
				return ir.Unknown, false, nil
			}
			return value, false, nil
		}
		return val, false, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		sensitive := false
		for k, item := range val {
			resolved, s, err := r.Resolve(item, lookup)
			if err != nil {
				return nil, false, err
			}
			out[k] = resolved
			sensitive = sensitive || s
		}
		return out, sensitive, nil
	case []any:
		out := make([]any, len(val))
		sensitive := false
		for i, item := range val {
			resolved, s, err := r.Resolve(item, lookup)
			if err != nil {
				return nil, false, err
			}
			out[i] = resolved
			sensitive = sensitive || s
		}
		return out, sensitive, nil
	default:
		return val, false, nil
	}
}

// ResolveVars substitutes variable references only, leaving resource
// references intact for resolution at apply time.
func (r *Resolver) ResolveVars(v any) (any, error) {
	switch val := v.(type) {
	case string:
		if name, ok := ir.ParseVarRef(val); ok {
			return r.Value(name)
		}
		return val, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := r.ResolveVars(item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := r.ResolveVars(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return val, nil
	}
}

// ResolveAttributes resolves every attribute of a resource, returning the
// resolved map and the set of attribute keys carrying sensitive values.
func (r *Resolver) ResolveAttributes(attrs map[string]any, lookup AttrLookup) (map[string]any, map[string]bool, error) {
	resolved := make(map[string]any, len(attrs))
	sensitive := make(map[string]bool)
	for key, value := range attrs {
		out, s, err := r.Resolve(ir.NormalizeValue(value), lookup)
		if err != nil {
			return nil, nil, fmt.Errorf("attribute %q: %w", key, err)
		}
		resolved[key] = out
		if s {
			sensitive[key] = true
		}
	}
	return resolved, sensitive, nil
}
