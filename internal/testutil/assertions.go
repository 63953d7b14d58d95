package testutil

import (
	"testing"

	"github.com/dataflow-compiler/internal/graph"
)

// AssertContextStack fails unless the node's context stack matches the
// expected frames.
func AssertContextStack(t *testing.T, g *graph.Graph, n *graph.Node, want ...graph.Context) {
	t.Helper()
	if !graph.ContextsEqual(n.Context, want) {
		t.Errorf("node %s has context stack %v, want %v", g.FullyQualifiedName(n.ID), n.Context, want)
	}
}

// AssertScheduledBefore fails unless both nodes have schedule indices and a
// comes before b.
func AssertScheduledBefore(t *testing.T, g *graph.Graph, a, b *graph.Node) {
	t.Helper()
	if a.SchedOrder < 0 {
		t.Errorf("node %s was not scheduled", g.FullyQualifiedName(a.ID))
		return
	}
	if b.SchedOrder < 0 {
		t.Errorf("node %s was not scheduled", g.FullyQualifiedName(b.ID))
		return
	}
	if a.SchedOrder >= b.SchedOrder {
		t.Errorf("node %s (order %d) should be scheduled before %s (order %d)",
			g.FullyQualifiedName(a.ID), a.SchedOrder, g.FullyQualifiedName(b.ID), b.SchedOrder)
	}
}

// AssertParentKind fails unless the node's parent has the given kind.
func AssertParentKind(t *testing.T, g *graph.Graph, n *graph.Node, kind graph.NodeKind) *graph.Node {
	t.Helper()
	parent := g.Node(n.Parent)
	if parent == nil {
		t.Errorf("node %s has no parent, want a %s", g.FullyQualifiedName(n.ID), kind)
		return nil
	}
	if parent.Kind != kind {
		t.Errorf("node %s has parent of kind %s, want %s", g.FullyQualifiedName(n.ID), parent.Kind, kind)
	}
	return parent
}

// AssertArcBetween fails unless an arc exists from src to dst.
func AssertArcBetween(t *testing.T, g *graph.Graph, src, dst *graph.Node) {
	t.Helper()
	for _, a := range g.OutputArcs(src) {
		if a.Dst.Node == dst.ID {
			return
		}
	}
	t.Errorf("expected an arc from %s to %s", g.FullyQualifiedName(src.ID), g.FullyQualifiedName(dst.ID))
}
