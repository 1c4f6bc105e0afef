package basis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatGraph(t *testing.T) {
	g := NewFlatGraph(4, 6, 3)

	assert.Equal(t, 13, g.Len())
	assert.Equal(t, 0, g.NodeStart(1))
	assert.Equal(t, 4, g.NodeStart(2))
	assert.Equal(t, 10, g.NodeStart(3))
	assert.Equal(t, 6, g.NodeLength(2))
}

func TestPositionInBasisForward(t *testing.T) {
	g := NewFlatGraph(4, 6)

	assert.Equal(t, 0, PositionInBasis(g, Position{NodeID: 1}))
	assert.Equal(t, 3, PositionInBasis(g, Position{NodeID: 1, Offset: 3}))
	assert.Equal(t, 6, PositionInBasis(g, Position{NodeID: 2, Offset: 2}))
}

func TestPositionInBasisReverse(t *testing.T) {
	g := NewFlatGraph(4, 6)

	// Reverse offset 0 on node 2 is the node's last forward base.
	assert.Equal(t, 9, PositionInBasis(g, Position{NodeID: 2, IsReverse: true}))
	// Reverse offset counts inward from the far end.
	assert.Equal(t, 7, PositionInBasis(g, Position{NodeID: 2, Offset: 2, IsReverse: true}))
	assert.Equal(t, 3, PositionInBasis(g, Position{NodeID: 1, IsReverse: true}))
}
