package synthesis

import (
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// OrderConstrainZeroInDegreeNodes gives every contextual node with no
// incoming arcs an order constraint from each of its contexts' per-partition
// driver arcs, matched to the node's partition.  Such a node is then only
// scheduled once its enclosing conditional's decision is available.
func OrderConstrainZeroInDegreeNodes(g *graph.Graph, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}

	for _, n := range g.Nodes() {
		if n.IsMaster() || n.IsSubsystem() || len(n.Context) == 0 {
			continue
		}
		if g.InDegree(n) != 0 {
			continue
		}

		for _, frame := range n.Context {
			root := g.Node(frame.Root)
			if root == nil || root.Root == nil {
				continue
			}
			drivers := root.Root.PartitionDrivers[n.Partition]
			if len(drivers) == 0 && len(root.Root.DriverArcs) > 0 {
				return errors.NewNode(errors.CodeContextError,
					"no per-partition context drivers found for a zero-in-degree node; this pass must run after encapsulation",
					g.FullyQualifiedName(n.ID))
			}
			for _, driverID := range drivers {
				driver := g.Arc(driverID)
				if driver == nil {
					continue
				}
				if _, err := g.Connect(driver.Src,
					graph.PortRef{Node: n.ID, Kind: graph.PortOrderIn},
					driver.Type, driver.SampleTime); err != nil {
					return err
				}
			}
			log.Debug("order-constrained zero-in-degree node %s behind its context driver",
				g.FullyQualifiedName(n.ID))
		}
	}
	return nil
}
