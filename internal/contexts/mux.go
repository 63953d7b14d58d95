package contexts

import (
	"sort"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/utils"
)

// markMuxContextsAtLevel discovers the per-input-port contexts of the muxes
// at one hierarchy level, infers the nesting among them, and extends the
// context stacks of every node captured by a mux sub-context.
//
// Nesting is inferred by counting, for each mux, how many other muxes'
// contexts contain it: outermost muxes are contained by none, and each
// additional containment pushes the mux (and its captured nodes) one level
// deeper.  Outermost muxes are applied first so that frames append in
// outer-to-inner order.
func markMuxContextsAtLevel(g *graph.Graph, muxes []*graph.Node, log utils.Logger) error {
	if len(muxes) == 0 {
		return nil
	}

	// Discover the candidate node set of each (mux, input port) context.
	type muxContexts struct {
		mux     *graph.Node
		perPort [][]graph.NodeID
		members map[graph.NodeID]bool
	}

	discovered := make([]*muxContexts, 0, len(muxes))
	for _, mux := range muxes {
		mc := &muxContexts{mux: mux, members: map[graph.NodeID]bool{}}
		for _, port := range mux.Inputs {
			// A fresh mark map per input port keeps the sub-contexts
			// exclusive: a node feeding more than one branch saturates in
			// neither walk and stays outside the mux context.
			marks := map[graph.ArcID]bool{}
			nodes, err := traceBackAndMark(g, port, marks)
			if err != nil {
				return err
			}
			mc.perPort = append(mc.perPort, nodes)
			for _, id := range nodes {
				mc.members[id] = true
			}
		}
		discovered = append(discovered, mc)
	}

	// Count, for each mux, how many other muxes' contexts contain it.
	depth := map[graph.NodeID]int{}
	for _, mc := range discovered {
		for _, other := range discovered {
			if other != mc && other.members[mc.mux.ID] {
				depth[mc.mux.ID]++
			}
		}
	}

	// Apply outermost muxes first; ties break by id for determinism.
	sort.SliceStable(discovered, func(i, j int) bool {
		di, dj := depth[discovered[i].mux.ID], depth[discovered[j].mux.ID]
		if di != dj {
			return di < dj
		}
		return discovered[i].mux.ID < discovered[j].mux.ID
	})

	for _, mc := range discovered {
		for subContext, nodes := range mc.perPort {
			for _, id := range nodes {
				n := g.Node(id)
				if n == nil {
					continue
				}
				pushContextFrame(g, n, graph.Context{Root: mc.mux.ID, SubContext: subContext})
			}
		}
		log.Debug("mux %s captured %d nodes across %d sub-contexts",
			g.FullyQualifiedName(mc.mux.ID), len(mc.members), len(mc.perPort))
	}

	return nil
}

// pushContextFrame appends a frame to a node's stack and moves its
// sub-context membership to the new innermost root.
func pushContextFrame(g *graph.Graph, n *graph.Node, frame graph.Context) {
	if root := g.Node(innermostRoot(n.Context)); root != nil {
		root.RemoveSubContextNode(n.ID)
	}
	n.Context = append(n.Context, frame)
	g.Node(frame.Root).AddSubContextNode(frame.SubContext, n.ID)
}
