package encapsulate

import (
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
)

// Rewiring records one arc replacement: the original arc and the arcs that
// stand in for it (empty for context driver arcs, which are dropped because
// per-partition order-constraint drivers already exist).
type Rewiring struct {
	Orig        *graph.Arc
	Replacement []*graph.Arc
}

// RewireArcsToContexts computes the arc rewirings that make every
// context-crossing arc terminate at family-container order-constraint
// ports.  Nothing is mutated in place: replacement arcs are created
// connected, and the caller removes the originals atomically (the scheduler
// runs this on its clone).
func RewireArcsToContexts(g *graph.Graph) ([]Rewiring, error) {
	var rewirings []Rewiring

	// The original decision driver arcs are dropped: per-partition order
	// constraint arcs to each family container were created during
	// encapsulation (or driver replication).
	driverArcs := map[graph.ArcID]bool{}
	for _, root := range g.ContextRoots() {
		if root.Root == nil {
			continue
		}
		for _, id := range root.Root.DriverArcs {
			if a := g.Arc(id); a != nil && !driverArcs[id] {
				driverArcs[id] = true
				rewirings = append(rewirings, Rewiring{Orig: a})
			}
		}
	}

	for _, arc := range g.Arcs() {
		if driverArcs[arc.ID] {
			continue
		}

		src := g.Node(arc.Src.Node)
		dst := g.Node(arc.Dst.Node)
		if src == nil || dst == nil {
			continue
		}

		srcCtx := effectiveContext(src)
		dstCtx := effectiveContext(dst)
		partitionsDiffer := src.Partition != dst.Partition

		rewireSrc := !graph.IsEqOrSubContext(dstCtx, srcCtx) || (partitionsDiffer && len(srcCtx) > 0)
		rewireDst := !graph.IsEqOrSubContext(srcCtx, dstCtx) || (partitionsDiffer && len(dstCtx) > 0)
		if !rewireSrc && !rewireDst {
			continue
		}

		common := graph.MostSpecificCommonContext(srcCtx, dstCtx)

		newSrc := arc.Src
		if rewireSrc {
			rootID, err := boundaryRoot(srcCtx, common, g, src)
			if err != nil {
				return nil, err
			}
			family, err := familyForPartition(g, rootID, src.Partition, src)
			if err != nil {
				return nil, err
			}
			newSrc = graph.PortRef{Node: family, Kind: graph.PortOrderOut}
		}

		newDst := arc.Dst
		if rewireDst {
			rootID, err := boundaryRoot(dstCtx, common, g, dst)
			if err != nil {
				return nil, err
			}
			family, err := familyForPartition(g, rootID, dst.Partition, dst)
			if err != nil {
				return nil, err
			}
			newDst = graph.PortRef{Node: family, Kind: graph.PortOrderIn}
		}

		// Routing into a context root via its own family container would
		// create a self loop on the container; leave the original arc.
		if newSrc.Node == newDst.Node {
			if !dst.IsContextRoot() && dst.Kind != graph.KindDummyReplica {
				return nil, errors.NewNode(errors.CodeContextError,
					"attempted to rewire a context arc into a self loop", g.FullyQualifiedName(dst.ID))
			}
			continue
		}

		replacement, err := g.Connect(newSrc, newDst, arc.Type, arc.SampleTime)
		if err != nil {
			return nil, err
		}
		rewirings = append(rewirings, Rewiring{Orig: arc, Replacement: []*graph.Arc{replacement}})
	}

	return rewirings, nil
}

// ApplyRewirings removes the original arcs.  Replacements were created live
// by RewireArcsToContexts, so this completes the atomic swap.
func ApplyRewirings(g *graph.Graph, rewirings []Rewiring) {
	for _, r := range rewirings {
		g.RemoveArc(r.Orig)
	}
}

// effectiveContext returns a node's context stack, extended with a synthetic
// self frame for context roots and dummy replicas so their own arcs are
// elevated to their family container.
func effectiveContext(n *graph.Node) []graph.Context {
	ctx := graph.CopyContext(n.Context)
	switch {
	case n.IsContextRoot():
		ctx = append(ctx, graph.Context{Root: n.ID, SubContext: graph.SelfSubContext})
	case n.Kind == graph.KindDummyReplica && n.Dummy != nil:
		ctx = append(ctx, graph.Context{Root: n.Dummy.Of, SubContext: graph.SelfSubContext})
	}
	return ctx
}

// boundaryRoot picks the context root whose family container the arc
// endpoint is lifted to: the frame just below the most specific common
// context, or the endpoint's innermost frame when the other side is at or
// below it (the partitions differ in that case).
func boundaryRoot(ctx []graph.Context, common int, g *graph.Graph, n *graph.Node) (graph.NodeID, error) {
	switch {
	case common+1 < len(ctx):
		return ctx[common+1].Root, nil
	case common+1 == len(ctx):
		return ctx[common].Root, nil
	default:
		return graph.InvalidNode, errors.NewNode(errors.CodeContextError,
			"unexpected common context while rewiring arcs", g.FullyQualifiedName(n.ID))
	}
}

func familyForPartition(g *graph.Graph, rootID graph.NodeID, partition int, n *graph.Node) (graph.NodeID, error) {
	root := g.Node(rootID)
	if root == nil || root.Root == nil {
		return graph.InvalidNode, errors.NewNode(errors.CodeContextError,
			"arc endpoint context names a node without context root data", g.FullyQualifiedName(n.ID))
	}
	family, ok := root.Root.FamilyContainers[partition]
	if !ok {
		return graph.InvalidNode, errors.NewNode(errors.CodeContextError,
			"missing context-family-container for partition while rewiring", g.FullyQualifiedName(n.ID))
	}
	return family, nil
}
