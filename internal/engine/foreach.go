package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reify-io/reify/internal/ir"
)

// ExpandResources expands resources carrying Count or ForEach into
// individual resource instances. This runs before graph construction so
// every instance has its own identity.
func ExpandResources(resources []*ir.Resource) []*ir.Resource {
	var expanded []*ir.Resource

	for _, res := range resources {
		switch {
		case res.Count > 0:
			for i := 0; i < res.Count; i++ {
				clone := cloneResource(res)
				clone.Name = fmt.Sprintf("%s[%d]", res.Name, i)
				clone.Attributes = substitute(clone.Attributes, map[string]any{
					"count.index": float64(i),
				})
				expanded = append(expanded, clone)
			}
		case len(res.ForEach) > 0:
			keys := make([]string, 0, len(res.ForEach))
			for key := range res.ForEach {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				clone := cloneResource(res)
				clone.Name = fmt.Sprintf("%s[%q]", res.Name, key)
				clone.Attributes = substitute(clone.Attributes, map[string]any{
					"each.key":   key,
					"each.value": res.ForEach[key],
				})
				expanded = append(expanded, clone)
			}
		default:
			expanded = append(expanded, res)
		}
	}

	return expanded
}

func cloneResource(res *ir.Resource) *ir.Resource {
	clone := &ir.Resource{
		Type:      res.Type,
		Name:      res.Name,
		Provider:  res.Provider,
		DependsOn: append([]string(nil), res.DependsOn...),
		Replace:   append([]string(nil), res.Replace...),
	}
	if res.Lifecycle != nil {
		clone.Lifecycle = &ir.Lifecycle{
			CreateBeforeDestroy: res.Lifecycle.CreateBeforeDestroy,
			PreventDestroy:      res.Lifecycle.PreventDestroy,
			IgnoreChanges:       append([]string(nil), res.Lifecycle.IgnoreChanges...),
		}
	}
	clone.Attributes = make(map[string]any, len(res.Attributes))
	for k, v := range res.Attributes {
		clone.Attributes[k] = v
	}
	return clone
}

// substitute replaces placeholder strings ("count.index", "each.key",
// "each.value") appearing as whole attribute values.
func substitute(v map[string]any, subs map[string]any) map[string]any {
	out := make(map[string]any, len(v))
	for k, item := range v {
		out[k] = substituteValue(item, subs)
	}
	return out
}

func substituteValue(v any, subs map[string]any) any {
	switch val := v.(type) {
	case string:
		if sub, ok := subs[strings.TrimSpace(val)]; ok {
			return sub
		}
		return val
	case map[string]any:
		return substitute(val, subs)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = substituteValue(item, subs)
		}
		return out
	default:
		return val
	}
}
