package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reify-io/reify/internal/ir"
)

// DAG represents a directed acyclic graph of resources for dependency
// ordering. Edges point from a resource to the resources it depends on.
type DAG struct {
	nodes    map[string]*dagNode
	order    []string // topological order (creation order)
	revOrder []string // reverse topological order (destruction order)
}

type dagNode struct {
	addr     string
	edges    []string // resources this node depends on
	revEdges []string // resources that depend on this node
}

// BuildDAG constructs a dependency graph from declared resources and
// variables. It resolves explicit DependsOn entries and implicit ref://
// references, validates every variable reference against the declared
// variables, and rejects cycles.
func BuildDAG(resources []*ir.Resource, variables []*ir.Variable) (*DAG, error) {
	dag := &DAG{nodes: make(map[string]*dagNode)}

	varSet := make(map[string]bool, len(variables))
	for _, v := range variables {
		varSet[v.Name] = true
	}

	for _, res := range resources {
		addr := res.Addr()
		if _, dup := dag.nodes[addr]; dup {
			return nil, &ValidationError{Subject: addr, Reason: "duplicate resource identity"}
		}
		dag.nodes[addr] = &dagNode{addr: addr}
	}

	for _, res := range resources {
		addr := res.Addr()
		node := dag.nodes[addr]
		seen := make(map[string]bool)

		for _, dep := range res.DependsOn {
			if _, ok := dag.nodes[dep]; !ok {
				return nil, &UnresolvedRefError{Referrer: addr, Target: dep}
			}
			if dep != addr && !seen[dep] {
				seen[dep] = true
				node.edges = append(node.edges, dep)
			}
		}

		for _, ref := range ir.ExtractRefs(res.Attributes) {
			if _, ok := dag.nodes[ref.Addr]; !ok {
				return nil, &UnresolvedRefError{Referrer: addr, Target: ref.Addr}
			}
			if ref.Addr != addr && !seen[ref.Addr] {
				seen[ref.Addr] = true
				node.edges = append(node.edges, ref.Addr)
			}
		}

		for _, name := range ir.ExtractVarRefs(res.Attributes) {
			if !varSet[name] {
				return nil, &ValidationError{Subject: addr, Reason: fmt.Sprintf("references undeclared variable %q", name)}
			}
		}

		sort.Strings(node.edges)
	}

	for _, addr := range dag.sortedAddrs() {
		for _, dep := range dag.nodes[addr].edges {
			dag.nodes[dep].revEdges = append(dag.nodes[dep].revEdges, addr)
		}
	}

	if cycle := dag.findCycle(); cycle != nil {
		return nil, &CycleError{Cycle: cycle}
	}

	dag.order = dag.topoSort()
	dag.revOrder = make([]string, len(dag.order))
	for i, addr := range dag.order {
		dag.revOrder[len(dag.order)-1-i] = addr
	}

	return dag, nil
}

// CreationOrder returns resources in dependency-respecting creation order.
func (d *DAG) CreationOrder() []string {
	return d.order
}

// DestructionOrder returns resources in reverse dependency order (safe for
// deletion).
func (d *DAG) DestructionOrder() []string {
	return d.revOrder
}

// Dependencies returns the resources addr depends on.
func (d *DAG) Dependencies(addr string) []string {
	if node, ok := d.nodes[addr]; ok {
		return node.edges
	}
	return nil
}

// Dependents returns the resources that depend on addr.
func (d *DAG) Dependents(addr string) []string {
	if node, ok := d.nodes[addr]; ok {
		return node.revEdges
	}
	return nil
}

// TransitiveDeps returns every resource reachable from addr along
// dependency edges.
func (d *DAG) TransitiveDeps(addr string) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(string)
	walk = func(a string) {
		for _, dep := range d.Dependencies(a) {
			if !seen[dep] {
				seen[dep] = true
				out = append(out, dep)
				walk(dep)
			}
		}
	}
	walk(addr)
	sort.Strings(out)
	return out
}

// Contains reports whether addr is a node of the graph.
func (d *DAG) Contains(addr string) bool {
	_, ok := d.nodes[addr]
	return ok
}

// findCycle runs a depth-first traversal with a recursion-stack marker and
// returns the first cycle found as the minimal set of identities forming
// it, or nil when the graph is acyclic.
func (d *DAG) findCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string
	var cycle []string

	var visit func(addr string) bool
	visit = func(addr string) bool {
		visited[addr] = true
		onStack[addr] = true
		stack = append(stack, addr)

		for _, dep := range d.nodes[addr].edges {
			if onStack[dep] {
				for i, a := range stack {
					if a == dep {
						cycle = append(append([]string(nil), stack[i:]...), dep)
						return true
					}
				}
			}
			if !visited[dep] && visit(dep) {
				return true
			}
		}

		onStack[addr] = false
		stack = stack[:len(stack)-1]
		return false
	}

	for _, addr := range d.sortedAddrs() {
		if !visited[addr] && visit(addr) {
			return cycle
		}
	}
	return nil
}

// topoSort performs Kahn's algorithm. The ready queue is kept sorted so the
// resulting order is deterministic for identical inputs. Must be called
// after findCycle has proven the graph acyclic.
func (d *DAG) topoSort() []string {
	inDegree := make(map[string]int, len(d.nodes))
	for addr, node := range d.nodes {
		inDegree[addr] = len(node.edges)
	}

	var queue []string
	for _, addr := range d.sortedAddrs() {
		if inDegree[addr] == 0 {
			queue = append(queue, addr)
		}
	}

	sorted := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		addr := queue[0]
		queue = queue[1:]
		sorted = append(sorted, addr)

		ready := false
		for _, dependent := range d.nodes[addr].revEdges {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
				ready = true
			}
		}
		if ready {
			sort.Strings(queue)
		}
	}

	return sorted
}

func (d *DAG) sortedAddrs() []string {
	addrs := make([]string, 0, len(d.nodes))
	for addr := range d.nodes {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

// ToDOT renders the graph in Graphviz DOT format.
func (d *DAG) ToDOT() string {
	var b strings.Builder
	b.WriteString("digraph resources {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, style=rounded];\n")
	for _, addr := range d.sortedAddrs() {
		fmt.Fprintf(&b, "  %q;\n", addr)
	}
	for _, addr := range d.sortedAddrs() {
		for _, dep := range d.nodes[addr].edges {
			fmt.Fprintf(&b, "  %q -> %q;\n", dep, addr)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
