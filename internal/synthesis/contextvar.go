package synthesis

import (
	"fmt"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/utils"
)

// CreateContextVariableUpdateNodes materializes the assignment of each
// mux-like context variable as an explicit pseudo-node.  For every branch
// arc entering a mux, an update node is inserted between the branch's
// producer and the mux, placed inside that branch's sub-context, so the
// assignment is emitted inside the conditional without the emitter tracking
// which branch it is in.
func CreateContextVariableUpdateNodes(g *graph.Graph, includeContext bool, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}

	for _, mux := range g.Nodes() {
		if mux.Kind != graph.KindMux {
			continue
		}
		data := mux.RootData()
		data.ContextVariables = len(mux.Outputs)

		for subContext, port := range mux.Inputs {
			for _, branchArc := range g.PortArcs(port) {
				producer := g.Node(branchArc.Src.Node)
				if producer == nil {
					continue
				}

				update := g.NewNode(graph.KindContextVarUpdate,
					fmt.Sprintf("ContextVariableUpdate-For-%s-Sub%d", mux.Name, subContext),
					producer.Parent)
				update.Partition = producer.Partition
				update.CtxVar = &graph.ContextVarUpdateData{Root: mux.ID, VarIndex: 0}

				if includeContext {
					update.Context = append(graph.CopyContext(mux.Context),
						graph.Context{Root: mux.ID, SubContext: subContext})
					mux.AddSubContextNode(subContext, update.ID)
				}

				// Producer feeds the update; the original branch arc now
				// originates at the update so the mux still sees the value.
				if _, err := g.Connect(branchArc.Src,
					graph.PortRef{Node: update.ID, Kind: graph.PortInput, Num: 0},
					branchArc.Type, branchArc.SampleTime); err != nil {
					return err
				}
				g.SetArcSrc(branchArc, graph.PortRef{Node: update.ID, Kind: graph.PortOutput, Num: 0})

				log.Debug("inserted context variable update for %s sub-context %d",
					g.FullyQualifiedName(mux.ID), subContext)
			}
		}
	}
	return nil
}
