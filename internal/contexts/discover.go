// Package contexts implements context analysis: it turns spatial nesting in
// the subsystem tree and combinational structure into explicit context
// stacks on every node, so later passes can reason about which conditional
// region owns a node.
package contexts

import (
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// DiscoverAndMark walks the hierarchy, assigns a context stack to every
// node, and records sub-context membership on each context root.  An
// unspecialized clock domain aborts the pass.
func DiscoverAndMark(g *graph.Graph, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}
	return discoverLevel(g, g.TopLevelNodes(), nil, log)
}

// discoverLevel classifies the nodes of one hierarchy level, marks mux
// contexts among them, and recurses into each discovered context root with
// an extended stack.
func discoverLevel(g *graph.Graph, nodes []*graph.Node, stack []graph.Context, log utils.Logger) error {
	var muxes, enabled, domains []*graph.Node

	if err := classify(g, nodes, stack, &muxes, &enabled, &domains); err != nil {
		return err
	}

	// Muxes at the same level are handled together so that nesting among
	// them is discovered.
	if err := markMuxContextsAtLevel(g, muxes, log); err != nil {
		return err
	}

	for _, root := range append(append([]*graph.Node{}, enabled...), domains...) {
		captureDriverArcs(g, root)
		childStack := append(graph.CopyContext(root.Context), graph.Context{Root: root.ID, SubContext: 0})
		if err := discoverLevel(g, g.ChildNodes(root), childStack, log); err != nil {
			return err
		}
	}

	return nil
}

// classify assigns the current stack to each node at this level and buckets
// the discovered context roots.  Plain subsystems are recursed into at the
// same stack; discovery stops at context roots, which are handled by the
// caller.
func classify(g *graph.Graph, nodes []*graph.Node, stack []graph.Context,
	muxes, enabled, domains *[]*graph.Node) error {

	for _, n := range nodes {
		setContext(g, n, stack)

		switch {
		case n.Kind == graph.KindMux:
			captureDriverArcs(g, n)
			*muxes = append(*muxes, n)
		case n.Kind == graph.KindClockDomain:
			return errors.NewNode(errors.CodeContextError,
				"found an unspecialized clock domain during context discovery; specialize to an upsample or downsample domain first",
				g.FullyQualifiedName(n.ID))
		case n.Kind == graph.KindUpsampleDomain || n.Kind == graph.KindDownsampleDomain:
			*domains = append(*domains, n)
		case n.Kind == graph.KindEnabledSubsystem:
			*enabled = append(*enabled, n)
		case n.IsSubsystem():
			if err := classify(g, g.ChildNodes(n), stack, muxes, enabled, domains); err != nil {
				return err
			}
		}
	}
	return nil
}

// setContext assigns a stack to a node and records membership in the
// innermost root's sub-context node list.
func setContext(g *graph.Graph, n *graph.Node, stack []graph.Context) {
	if root := g.Node(innermostRoot(n.Context)); root != nil {
		root.RemoveSubContextNode(n.ID)
	}
	n.Context = graph.CopyContext(stack)
	if len(stack) > 0 {
		inner := stack[len(stack)-1]
		g.Node(inner.Root).AddSubContextNode(inner.SubContext, n.ID)
	}
}

func innermostRoot(stack []graph.Context) graph.NodeID {
	if len(stack) == 0 {
		return graph.InvalidNode
	}
	return stack[len(stack)-1].Root
}

// captureDriverArcs records the context decision driver arcs on a root: the
// select arc for muxes, the enable driver for enabled subsystems.  Clock
// domains derive their rate relationship structurally and have no driver.
func captureDriverArcs(g *graph.Graph, root *graph.Node) {
	data := root.RootData()
	switch root.Kind {
	case graph.KindMux:
		data.NumSubContexts = len(root.Inputs)
		if root.Select != nil {
			data.DriverArcs = nil
			for _, a := range g.PortArcs(root.Select) {
				data.DriverArcs = append(data.DriverArcs, a.ID)
			}
		}
	case graph.KindEnabledSubsystem:
		data.NumSubContexts = 1
		if root.Enable != nil {
			data.DriverArcs = nil
			for _, a := range g.PortArcs(root.Enable) {
				data.DriverArcs = append(data.DriverArcs, a.ID)
			}
		}
	case graph.KindUpsampleDomain, graph.KindDownsampleDomain:
		// Latching and zero-filling state updates live in sub-contexts 0
		// and 1 of the governing domain.
		data.NumSubContexts = 2
	}
}
