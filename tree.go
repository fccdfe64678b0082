package main

/*

spacial tree acceleration structure.
point quadtree, rebuilt from scratch every tick.
https://en.wikipedia.org/wiki/Quadtree

nodes are kept in a slice and addressed by index, so throwing away
the whole tree is just a length reset. no node is ever freed on its own.

*/

// defaultCapacity is the number of particles a node holds before it splits.
const defaultCapacity = 4

type nodekind uint8

// node types
const (
	external nodekind = iota
	internal
)

type quadrant uint8

// child positions, in the order children are tried on insert.
const (
	NE quadrant = iota
	NW
	SE
	SW
)

// rect is an axis aligned rectangle with its origin at the top left.
type rect struct {
	X, Y, W, H int
}

// does the rect contain the point? edges are excluded on all four sides.
func (r rect) contains(x, y int) bool {
	return x > r.X && x < r.X+r.W && y > r.Y && y < r.Y+r.H
}

// do the two rects overlap? touching edges count.
func (r rect) intersects(o rect) bool {
	return !(o.X > r.X+r.W || o.X+o.W < r.X ||
		o.Y > r.Y+r.H || o.Y+o.H < r.Y)
}

// generate the bounds for a quadrant of the parent's bounds.
// integer halving, so an odd parent loses a one unit seam.
func quadrantBound(parent rect, q quadrant) rect {
	w, h := parent.W/2, parent.H/2
	switch q {
	case NE:
		return rect{parent.X + w, parent.Y, w, h}
	case NW:
		return rect{parent.X, parent.Y, w, h}
	case SE:
		return rect{parent.X + w, parent.Y + h, w, h}
	default:
		return rect{parent.X, parent.Y + h, w, h}
	}
}

type node struct {
	kind     nodekind
	bounds   rect
	refs     int32 // offset of this node's slots in quadtree.refs
	count    int32
	children int32 // index of NE; NW, SE, SW follow
}

type quadtree struct {
	capacity  int
	nodes     []node
	refs      []int32
	particles []particle
}

func newQuadtree(capacity int) *quadtree {
	if capacity < 1 {
		capacity = defaultCapacity
	}
	return &quadtree{capacity: capacity}
}

// reset drops every node and starts a new root over bounds.
// the backing memory is kept for the next build.
func (t *quadtree) reset(bounds rect, particles []particle) {
	t.nodes = t.nodes[:0]
	t.refs = t.refs[:0]
	t.particles = particles
	t.alloc(bounds)
}

// append a fresh external node and its reference slots.
func (t *quadtree) alloc(bounds rect) int32 {
	n := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{
		kind:   external,
		bounds: bounds,
		refs:   int32(len(t.refs)),
	})
	for i := 0; i < t.capacity; i++ {
		t.refs = append(t.refs, -1)
	}
	return n
}

// create children nodes with appropriate bounds. does nothing
// if n is already internal.
func (t *quadtree) split(n int32) {
	if t.nodes[n].kind == internal {
		return
	}
	bounds := t.nodes[n].bounds
	first := t.alloc(quadrantBound(bounds, NE))
	for q := NW; q <= SW; q++ {
		t.alloc(quadrantBound(bounds, q))
	}
	// alloc may have moved t.nodes
	t.nodes[n].children = first
	t.nodes[n].kind = internal
}

// insert places particle i in the tree.
// returns false if no node would take it.
func (t *quadtree) insert(i int32) bool {
	if len(t.nodes) == 0 {
		return false
	}
	return t.push(0, i)
}

// place a particle in the tree rooted at node n.
// returns false if the particle doesn't belong in this node.
func (t *quadtree) push(n, i int32) bool {
	p := &t.particles[i]
	if !t.nodes[n].bounds.contains(p.X, p.Y) {
		return false
	}

	nd := &t.nodes[n]
	if int(nd.count) < t.capacity {
		t.refs[nd.refs+nd.count] = i
		nd.count++
		return true
	}

	t.split(n)
	first := t.nodes[n].children
	for q := NE; q <= SW; q++ {
		if t.push(first+int32(q), i) {
			return true
		}
	}
	return false
}

// query appends to found every particle strictly inside r and returns
// the extended slice. the tree is not modified, so concurrent queries
// are fine once building is finished.
func (t *quadtree) query(r rect, found []int32) []int32 {
	if len(t.nodes) == 0 {
		return found
	}
	return t.collect(0, r, found)
}

func (t *quadtree) collect(n int32, r rect, found []int32) []int32 {
	nd := &t.nodes[n]
	if !nd.bounds.intersects(r) {
		return found
	}
	for _, i := range t.refs[nd.refs : nd.refs+nd.count] {
		p := &t.particles[i]
		if r.contains(p.X, p.Y) {
			found = append(found, i)
		}
	}
	if nd.kind == internal {
		for q := NE; q <= SW; q++ {
			found = t.collect(nd.children+int32(q), r, found)
		}
	}
	return found
}

// number of nodes in the current tree.
func (t *quadtree) size() int {
	return len(t.nodes)
}

// depth of the deepest node, root is 1.
func (t *quadtree) depth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.depthFrom(0)
}

func (t *quadtree) depthFrom(n int32) int {
	nd := &t.nodes[n]
	if nd.kind == external {
		return 1
	}
	max := 0
	for q := NE; q <= SW; q++ {
		if d := t.depthFrom(nd.children + int32(q)); d > max {
			max = d
		}
	}
	return max + 1
}

// fill rebuilds the tree from every alive particle.
// returns how many alive particles no node accepted.
func (t *quadtree) fill(bounds rect, particles []particle) (dropped int) {
	t.reset(bounds, particles)
	for i := range particles {
		if particles[i].State != alive {
			continue
		}
		if !t.insert(int32(i)) {
			dropped++
		}
	}
	return
}

// builds a tree over a width x height arena holding every alive particle.
func buildIndex(particles []particle, width, height int) (root *quadtree, dropped int) {
	root = newQuadtree(defaultCapacity)
	dropped = root.fill(rect{0, 0, width, height}, particles)
	return
}
