package grove3d

import (
	"regexp"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// NodeFilter is a chain of predicates executed over a Node's subtree to
// collect matching descendants. Filters chain by value, so a partially built
// filter can be reused:
//
//	enemies := scene.Root().SearchTree().ByRegex("^Enemy")
//	closest := enemies.SortByDistance(player.GlobalLocation()).First()
//
// The start node itself is never included in the results.
type NodeFilter struct {
	start    *Node
	filters  []func(*Node) bool
	maxDepth int

	sortToSet bool
	sortTo    mgl32.Vec3
}

// SearchTree returns a NodeFilter over this node's subtree with no
// predicates installed, matching every descendant.
func (node *Node) SearchTree() NodeFilter {
	return NodeFilter{start: node, maxDepth: -1}
}

// ByFunc adds a predicate; only nodes it accepts stay in the results.
func (filter NodeFilter) ByFunc(fn func(node *Node) bool) NodeFilter {
	filter.filters = append(filter.filters, fn)
	return filter
}

// ByName keeps only nodes whose name is exactly the given string.
func (filter NodeFilter) ByName(name string) NodeFilter {
	return filter.ByFunc(func(node *Node) bool { return node.name == name })
}

// ByRegex keeps only nodes whose name matches the regex string. An invalid
// regex matches nothing.
func (filter NodeFilter) ByRegex(regexString string) NodeFilter {
	return filter.ByFunc(func(node *Node) bool {
		match, _ := regexp.MatchString(regexString, node.name)
		return match
	})
}

// Not excludes the given nodes from the results.
func (filter NodeFilter) Not(others ...*Node) NodeFilter {
	return filter.ByFunc(func(node *Node) bool {
		for _, other := range others {
			if node == other {
				return false
			}
		}
		return true
	})
}

// SetMaxDepth limits how deep below the start node the search walks; depth 1
// is direct children only. A negative depth walks the whole subtree.
func (filter NodeFilter) SetMaxDepth(depth int) NodeFilter {
	filter.maxDepth = depth
	return filter
}

// SortByDistance sorts the results nearest-first by global distance to the
// given world location.
func (filter NodeFilter) SortByDistance(to mgl32.Vec3) NodeFilter {
	filter.sortToSet = true
	filter.sortTo = to
	return filter
}

func (filter NodeFilter) matches(node *Node) bool {
	for _, fn := range filter.filters {
		if !fn(node) {
			return false
		}
	}
	return true
}

// ForEach calls fn for each matching node in traversal order, stopping early
// when fn returns false. It allocates nothing, but ignores any sort.
func (filter NodeFilter) ForEach(fn func(node *Node) bool) {
	var walk func(node *Node, depth int) bool
	walk = func(node *Node, depth int) bool {
		if node != filter.start && filter.matches(node) {
			if !fn(node) {
				return false
			}
		}
		if filter.maxDepth < 0 || depth < filter.maxDepth {
			for _, child := range node.children {
				if !walk(child, depth+1) {
					return false
				}
			}
		}
		return true
	}
	walk(filter.start, 0)
}

// Nodes returns the matching nodes as a slice, sorted if a sort was requested.
func (filter NodeFilter) Nodes() []*Node {

	var out []*Node
	filter.ForEach(func(node *Node) bool {
		out = append(out, node)
		return true
	})

	if filter.sortToSet {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].GlobalLocation().Sub(filter.sortTo).LenSqr() <
				out[j].GlobalLocation().Sub(filter.sortTo).LenSqr()
		})
	}

	return out
}

// First returns the first matching node, or nil when nothing matches.
func (filter NodeFilter) First() *Node {
	if filter.sortToSet {
		nodes := filter.Nodes()
		if len(nodes) == 0 {
			return nil
		}
		return nodes[0]
	}
	var result *Node
	filter.ForEach(func(node *Node) bool {
		result = node
		return false
	})
	return result
}

// Count returns the number of matching nodes.
func (filter NodeFilter) Count() int {
	count := 0
	filter.ForEach(func(node *Node) bool {
		count++
		return true
	})
	return count
}

// Contains returns whether the node is among the matches.
func (filter NodeFilter) Contains(target *Node) bool {
	found := false
	filter.ForEach(func(node *Node) bool {
		if node == target {
			found = true
			return false
		}
		return true
	})
	return found
}
