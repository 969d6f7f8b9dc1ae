// Package graph implements the object graph the repacker operates on: an
// arena of serialized font objects connected by typed offset links.
package graph

import (
	"errors"
	"sort"
)

// Errors returned by graph construction and serialization.
var (
	ErrInvalidObjIndex = errors.New("graph: link references an absent node")
	ErrReadTable       = errors.New("graph: malformed input table")
	ErrRepackSerialize = errors.New("graph: final serialize failed")
)

// Width is the declared byte width of a Link's offset field.
type Width int

const (
	Width16 Width = 16
	Width24 Width = 24
	Width32 Width = 32
)

// Link is a typed offset from a byte range within one Object's payload to
// another Object, or a virtual link (Width 0) expressing ordering only.
type Link struct {
	// Pos is the byte offset within the source object's payload where the
	// offset value is written (ignored for virtual links).
	Pos int
	// Target is the arena index of the referenced object.
	Target int
	Width  Width
	Signed bool
	// Bias is added to the computed offset before it is written.
	Bias int64
	// Virtual links order two objects without writing any bytes.
	Virtual bool
}

// Object is one node in the graph: a byte payload plus its outgoing links.
type Object struct {
	Data  []byte
	Links []Link

	// Space partitions nodes reachable only via 32-bit links into disjoint
	// groups so each group's 16-bit-reachable subgraph stays within 64 KB.
	Space int
	// Priority (0-3) raises a node's position in the shortest-distance sort,
	// used by the repacker to place frequently-overflowing nodes earlier.
	Priority int

	// assignedOffset is the byte offset of this object in the final
	// serialized output, set by sort/serialize.
	assignedOffset int64
}

// Graph is the arena-indexed object graph: Nodes[0] is always the root.
type Graph struct {
	Nodes []*Object
	order []int // Nodes[order[i]] is the i-th object in serialization order
}

// New constructs a Graph from root-first object list, validating that every
// link target is a valid index.
func New(objects []*Object) (*Graph, error) {
	for _, o := range objects {
		for _, l := range o.Links {
			if l.Target < 0 || l.Target >= len(objects) {
				return nil, ErrInvalidObjIndex
			}
		}
	}
	g := &Graph{Nodes: objects}
	g.order = make([]int, len(objects))
	for i := range g.order {
		g.order[i] = i
	}
	return g, nil
}

// RootIdx is the arena index of the root object.
func (g *Graph) RootIdx() int { return 0 }

// Vertex returns the object at index i.
func (g *Graph) Vertex(i int) *Object { return g.Nodes[i] }

// ChildIdxes returns the non-virtual-or-virtual target indices reachable
// directly from node i, including duplicates if referenced more than once.
func (g *Graph) ChildIdxes(i int) []int {
	var out []int
	for _, l := range g.Nodes[i].Links {
		out = append(out, l.Target)
	}
	return out
}

// TableSize returns the byte length of node i's own payload (not its
// subgraph).
func (g *Graph) TableSize(i int) int { return len(g.Nodes[i].Data) }

// Overflow describes a link whose offset does not fit in its declared
// width once final positions are assigned.
type Overflow struct {
	SourceIdx int
	LinkIdx   int
	Computed  int64
}

// Overflows computes every link whose resolved offset does not fit its
// declared width, using each node's currently assigned offset (set by the
// last SortShortestDistance call).
func (g *Graph) Overflows() []Overflow {
	var out []Overflow
	for srcIdx, o := range g.Nodes {
		for li, l := range o.Links {
			if l.Virtual {
				continue
			}
			delta := g.Nodes[l.Target].assignedOffset - o.assignedOffset + l.Bias
			if !fitsWidth(delta, l.Width, l.Signed) {
				out = append(out, Overflow{SourceIdx: srcIdx, LinkIdx: li, Computed: delta})
			}
		}
	}
	return out
}

// HasOverflows reports whether Overflows() would return a non-empty list.
func (g *Graph) HasOverflows() bool { return len(g.Overflows()) > 0 }

func fitsWidth(v int64, w Width, signed bool) bool {
	if signed {
		switch w {
		case Width16:
			return v >= -1<<15 && v < 1<<15
		case Width24:
			return v >= -1<<23 && v < 1<<23
		default:
			return v >= -1<<31 && v < 1<<31
		}
	}
	switch w {
	case Width16:
		return v >= 0 && v < 1<<16
	case Width24:
		return v >= 0 && v < 1<<24
	default:
		return v >= 0 && v < 1<<32
	}
}

// SortShortestDistance orders nodes by shortest distance from the root
// (BFS), breaking ties by descending priority then by current arena index,
// and assigns each node's offset according to that order (the order in
// which object payloads will be concatenated).
func (g *Graph) SortShortestDistance() {
	n := len(g.Nodes)
	dist := make([]int, n)
	for i := range dist {
		dist[i] = -1
	}
	dist[0] = 0
	queue := []int{0}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, l := range g.Nodes[cur].Links {
			if dist[l.Target] == -1 {
				dist[l.Target] = dist[cur] + 1
				queue = append(queue, l.Target)
			}
		}
	}
	// Unreachable nodes (shouldn't normally occur) sort last.
	maxDist := 0
	for _, d := range dist {
		if d > maxDist {
			maxDist = d
		}
	}
	for i, d := range dist {
		if d == -1 {
			dist[i] = maxDist + 1
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if dist[ia] != dist[ib] {
			return dist[ia] < dist[ib]
		}
		if g.Nodes[ia].Priority != g.Nodes[ib].Priority {
			return g.Nodes[ia].Priority > g.Nodes[ib].Priority
		}
		return ia < ib
	})
	g.order = order

	var cursor int64
	for _, idx := range order {
		g.Nodes[idx].assignedOffset = cursor
		cursor += int64(len(g.Nodes[idx].Data))
	}
}

// AssignSpaces partitions nodes into disjoint spaces: the root and what it
// reaches through non-32-bit links form space 0, and each not-yet-assigned
// 32-bit link target starts a new space with what it reaches the same way.
// A node reachable from more than one space stays in the first space that
// reaches it; no nodes are duplicated. Returns true if some node was reached
// from no space (its Space is left unchanged).
func (g *Graph) AssignSpaces() bool {
	owner := make([]int, len(g.Nodes))
	for i := range owner {
		owner[i] = -1
	}
	owner[0] = 0

	// A 32-bit link target starts a new space; everything reachable from it
	// via non-32-bit links stays in that space.
	nextSpace := 1
	spaceRoots := []int{0}
	for _, o := range g.Nodes {
		for _, l := range o.Links {
			if l.Width == Width32 && !l.Virtual {
				spaceRoots = append(spaceRoots, l.Target)
			}
		}
	}

	assign := func(root, space int) {
		stack := []int{root}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if owner[cur] != -1 {
				continue
			}
			owner[cur] = space
			for _, l := range g.Nodes[cur].Links {
				if l.Width != Width32 && owner[l.Target] == -1 {
					stack = append(stack, l.Target)
				}
			}
		}
	}
	assign(0, 0)
	for _, root := range spaceRoots[1:] {
		if owner[root] == -1 {
			assign(root, nextSpace)
			nextSpace++
		}
	}

	modified := false
	for i, sp := range owner {
		if sp >= 0 {
			g.Nodes[i].Space = sp
		} else {
			modified = true // node unreachable from any space root; leave default space
		}
	}
	return modified
}

// FindSubgraphSize returns the total payload size reachable from root,
// stopping recursion at maxDepth and not revisiting nodes already present
// in visited (visited is mutated to record the traversal).
func (g *Graph) FindSubgraphSize(root int, visited map[int]bool, maxDepth int) int {
	if visited[root] || maxDepth < 0 {
		return 0
	}
	visited[root] = true
	size := len(g.Nodes[root].Data)
	for _, l := range g.Nodes[root].Links {
		size += g.FindSubgraphSize(l.Target, visited, maxDepth-1)
	}
	return size
}

// Duplicate creates a copy of obj as a new arena entry and rewrites parent's
// link that pointed at the original (by arena index obj) to point at the
// duplicate instead. Returns the new node's index.
func (g *Graph) Duplicate(obj int, parent int) int {
	orig := g.Nodes[obj]
	dup := &Object{
		Data:     append([]byte(nil), orig.Data...),
		Links:    append([]Link(nil), orig.Links...),
		Space:    orig.Space,
		Priority: orig.Priority,
	}
	newIdx := len(g.Nodes)
	g.Nodes = append(g.Nodes, dup)
	g.order = append(g.order, newIdx)

	p := g.Nodes[parent]
	for i := range p.Links {
		if p.Links[i].Target == obj {
			p.Links[i].Target = newIdx
		}
	}
	return newIdx
}

// Serialize concatenates every node's payload in the last-assigned sort
// order, patching each non-virtual link's offset field in place. Fails with
// ErrRepackSerialize if any link still overflows.
func (g *Graph) Serialize() ([]byte, error) {
	if g.HasOverflows() {
		return nil, ErrRepackSerialize
	}

	var total int
	for _, idx := range g.order {
		total += len(g.Nodes[idx].Data)
	}
	out := make([]byte, total)
	for _, idx := range g.order {
		o := g.Nodes[idx]
		copy(out[o.assignedOffset:], o.Data)
	}

	for _, idx := range g.order {
		o := g.Nodes[idx]
		for _, l := range o.Links {
			if l.Virtual {
				continue
			}
			delta := g.Nodes[l.Target].assignedOffset - o.assignedOffset + l.Bias
			putOffset(out, int(o.assignedOffset)+l.Pos, delta, l.Width)
		}
	}
	return out, nil
}

func putOffset(buf []byte, pos int, v int64, w Width) {
	switch w {
	case Width16:
		buf[pos] = byte(v >> 8)
		buf[pos+1] = byte(v)
	case Width24:
		buf[pos] = byte(v >> 16)
		buf[pos+1] = byte(v >> 8)
		buf[pos+2] = byte(v)
	default:
		buf[pos] = byte(v >> 24)
		buf[pos+1] = byte(v >> 16)
		buf[pos+2] = byte(v >> 8)
		buf[pos+3] = byte(v)
	}
}

// Normalize returns a structurally-canonical copy of g suitable for
// deep-equality comparisons across repack(g) round trips: nodes reachable
// from the root are renumbered in depth-first preorder (following each
// node's links in order) and link targets rewritten to match, so two graphs that differ only by duplicate ordering or dead
// (unreachable) nodes compare equal.
func (g *Graph) Normalize() *Graph {
	reachable := map[int]bool{}
	var order []int
	var visit func(int)
	visit = func(i int) {
		if reachable[i] {
			return
		}
		reachable[i] = true
		order = append(order, i)
		for _, l := range g.Nodes[i].Links {
			visit(l.Target)
		}
	}
	visit(0)

	remap := make(map[int]int, len(order))
	for newIdx, oldIdx := range order {
		remap[oldIdx] = newIdx
	}
	nodes := make([]*Object, len(order))
	for newIdx, oldIdx := range order {
		o := g.Nodes[oldIdx]
		links := make([]Link, len(o.Links))
		for i, l := range o.Links {
			l.Target = remap[l.Target]
			links[i] = l
		}
		nodes[newIdx] = &Object{Data: append([]byte(nil), o.Data...), Links: links, Space: o.Space, Priority: o.Priority}
	}
	out := &Graph{Nodes: nodes}
	out.order = make([]int, len(nodes))
	for i := range out.order {
		out.order[i] = i
	}
	return out
}
