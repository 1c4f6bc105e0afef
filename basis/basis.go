// Package basis maps strand-aware graph positions onto the linear
// forward-strand coordinate space the pileup is indexed by.
//
// The graph itself stays external: the pileup only needs where each node
// starts in the basis and how long it is.
package basis

// Graph is the coordinate source. Implementations must be pure: the same
// node id always yields the same start and length for the lifetime of a
// pileup built against it.
type Graph interface {
	// NodeStart returns the basis offset of the first forward-strand
	// base of the node.
	NodeStart(id int64) int
	// NodeLength returns the node's sequence length.
	NodeLength(id int64) int
}

// Position is a strand-aware position inside a graph node.
type Position struct {
	NodeID    int64
	Offset    int
	IsReverse bool
}

// PositionInBasis returns the absolute forward-strand basis index for p.
//
// For a reverse-strand position the offset counts from the node's far
// end, so the forward index is the node start plus the flipped offset,
// minus one to land on the base the reverse offset refers to.
func PositionInBasis(g Graph, p Position) int {
	if p.IsReverse {
		return g.NodeStart(p.NodeID) + (g.NodeLength(p.NodeID) - p.Offset) - 1
	}
	return g.NodeStart(p.NodeID) + p.Offset
}

// FlatGraph is a Graph over nodes laid end to end in id order, with ids
// starting at 1. Useful for tests and for purely linear bases.
type FlatGraph struct {
	lengths []int
	starts  []int
	total   int
}

// NewFlatGraph builds a FlatGraph from per-node sequence lengths. Node i+1
// has length lengths[i].
func NewFlatGraph(lengths ...int) *FlatGraph {
	g := &FlatGraph{
		lengths: lengths,
		starts:  make([]int, len(lengths)),
	}
	off := 0
	for i, n := range lengths {
		g.starts[i] = off
		off += n
	}
	g.total = off
	return g
}

// NodeStart implements Graph.
func (g *FlatGraph) NodeStart(id int64) int { return g.starts[id-1] }

// NodeLength implements Graph.
func (g *FlatGraph) NodeLength(id int64) int { return g.lengths[id-1] }

// Len returns the total basis length covered by the graph.
func (g *FlatGraph) Len() int { return g.total }
