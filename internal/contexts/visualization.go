package contexts

import (
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// CreateEnableOutputsForVisualization routes every arc entering the
// visualization master through a synthesized enable output at each enabled
// subsystem on the source's ancestor chain.  Scheduling and encapsulation
// then see each visualization tap as a proper enable output.  Runs before
// context discovery; the ancestor chain stands in for the context stack.
func CreateEnableOutputsForVisualization(g *graph.Graph, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}

	visMaster := g.Node(g.VisMaster)
	for _, driverArc := range g.InputArcs(visMaster) {
		src := g.Node(driverArc.Src.Node)
		if src == nil {
			continue
		}

		rewireTo := driverArc.Src

		for cursor := src.Parent; cursor != graph.InvalidNode; {
			parent := g.Node(cursor)
			if parent == nil {
				break
			}
			if parent.Kind == graph.KindEnabledSubsystem {
				visOutput := g.NewNode(graph.KindEnableOutput, "VisEnableOutput", parent.ID)
				visOutput.Partition = parent.Partition

				// Copy the enable driver so the new latch is gated like the
				// subsystem's own outputs.
				enableArcs := g.PortArcs(parent.EnablePort())
				if len(enableArcs) == 0 {
					return errors.NewNode(errors.CodeContextError,
						"enabled subsystem has no enable driver while synthesizing a visualization output",
						g.FullyQualifiedName(parent.ID))
				}
				enableDriver := enableArcs[0]
				if _, err := g.Connect(enableDriver.Src,
					graph.PortRef{Node: visOutput.ID, Kind: graph.PortEnable},
					enableDriver.Type, enableDriver.SampleTime); err != nil {
					return err
				}

				if _, err := g.Connect(rewireTo,
					graph.PortRef{Node: visOutput.ID, Kind: graph.PortInput, Num: 0},
					driverArc.Type, driverArc.SampleTime); err != nil {
					return err
				}

				rewireTo = graph.PortRef{Node: visOutput.ID, Kind: graph.PortOutput, Num: 0}
				log.Debug("synthesized visualization enable output under %s",
					g.FullyQualifiedName(parent.ID))
			}
			cursor = parent.Parent
		}

		if rewireTo != driverArc.Src {
			g.SetArcSrc(driverArc, rewireTo)
		}
	}

	return nil
}
