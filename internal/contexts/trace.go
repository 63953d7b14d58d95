package contexts

import (
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
)

// traceBackAndMark walks backwards from an input-side port, marking arcs.
// The walk stops at nodes that have state, are enable boundaries, are
// rate-change nodes, or are masters.  A node joins the context only once
// every one of its output arcs has been marked, so the longest path into the
// context wins.  Combinational loops leave some arcs unmarked forever; the
// loop's nodes simply never join.
func traceBackAndMark(g *graph.Graph, from *graph.Port, marks map[graph.ArcID]bool) ([]graph.NodeID, error) {
	var contextNodes []graph.NodeID

	for _, arc := range g.PortArcs(from) {
		src := g.Node(arc.Src.Node)
		if src == nil || src.HasState() || src.IsEnableNode() || src.IsRateChange() || src.IsMaster() {
			continue
		}

		// Feedback makes an output arc stay unmarked rather than be visited
		// twice, so a double mark means the traversal itself is broken.
		if marks[arc.ID] {
			return nil, errors.NewNode(errors.CodeContextError,
				"context traceback marked an arc twice", g.FullyQualifiedName(src.ID))
		}
		marks[arc.ID] = true

		if !allOutputArcsMarked(g, src, marks) {
			continue
		}

		contextNodes = append(contextNodes, src.ID)
		for _, p := range src.InputPortsIncludingSpecial() {
			more, err := traceBackAndMark(g, p, marks)
			if err != nil {
				return nil, err
			}
			contextNodes = append(contextNodes, more...)
		}
	}

	return contextNodes, nil
}

// traceForwardAndMark is the forward analogue of traceBackAndMark, walking
// from an output port and admitting a node once all of its input arcs are
// marked.
func traceForwardAndMark(g *graph.Graph, from *graph.Port, marks map[graph.ArcID]bool) ([]graph.NodeID, error) {
	var contextNodes []graph.NodeID

	for _, arc := range g.PortArcs(from) {
		dst := g.Node(arc.Dst.Node)
		if dst == nil || dst.HasState() || dst.IsEnableNode() || dst.IsRateChange() || dst.IsMaster() {
			continue
		}

		if marks[arc.ID] {
			return nil, errors.NewNode(errors.CodeContextError,
				"context forward trace marked an arc twice", g.FullyQualifiedName(dst.ID))
		}
		marks[arc.ID] = true

		if !allInputArcsMarked(g, dst, marks) {
			continue
		}

		contextNodes = append(contextNodes, dst.ID)
		for _, p := range dst.Outputs {
			more, err := traceForwardAndMark(g, p, marks)
			if err != nil {
				return nil, err
			}
			contextNodes = append(contextNodes, more...)
		}
	}

	return contextNodes, nil
}

func allOutputArcsMarked(g *graph.Graph, n *graph.Node, marks map[graph.ArcID]bool) bool {
	for _, p := range n.Outputs {
		for _, id := range p.Arcs {
			if !marks[id] {
				return false
			}
		}
	}
	return true
}

func allInputArcsMarked(g *graph.Graph, n *graph.Node, marks map[graph.ArcID]bool) bool {
	for _, p := range n.InputPortsIncludingSpecial() {
		for _, id := range p.Arcs {
			if !marks[id] {
				return false
			}
		}
	}
	return true
}
