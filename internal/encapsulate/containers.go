package encapsulate

import (
	"fmt"

	"github.com/dataflow-compiler/internal/graph"
)

// FamilyContainerCreateIfNot returns the context family container for a
// (root, partition) pair, creating it and its sub-context containers on
// first use.  New containers start parentless at the top level; parent
// assignment happens as a later encapsulation step.
//
// Unless the root requested driver replication, an order-constraint arc is
// placed from each distinct driver source port to the family container, so
// the context decision reaches every partition the context spans (FIFOs are
// inserted on these arcs when they cross partitions).
func FamilyContainerCreateIfNot(g *graph.Graph, root *graph.Node, partition int) (*graph.Node, error) {
	data := root.RootData()
	if id, ok := data.FamilyContainers[partition]; ok {
		return g.Node(id), nil
	}

	family := g.NewNode(graph.KindFamilyContainer,
		fmt.Sprintf("ContextFamilyContainer_For_%s_Partition_%d", g.FullyQualifiedName(root.ID), partition),
		graph.InvalidNode)
	family.Partition = partition
	family.Context = graph.CopyContext(root.Context)
	family.Family = &graph.FamilyContainerData{Root: root.ID, Dummy: graph.InvalidNode}
	data.FamilyContainers[partition] = family.ID

	if !data.ReplicateDriver {
		// Enabled subsystems can have several driver arcs sharing one
		// source; avoid duplicate order constraints per source port.
		seenSrc := map[graph.PortRef]bool{}
		var partitionDrivers []graph.ArcID
		for _, driverArcID := range data.DriverArcs {
			driverArc := g.Arc(driverArcID)
			if driverArc == nil || seenSrc[driverArc.Src] {
				continue
			}
			seenSrc[driverArc.Src] = true
			arc, err := g.Connect(driverArc.Src,
				graph.PortRef{Node: family.ID, Kind: graph.PortOrderIn},
				driverArc.Type, driverArc.SampleTime)
			if err != nil {
				return nil, err
			}
			partitionDrivers = append(partitionDrivers, arc.ID)
		}
		data.PartitionDrivers[partition] = append(data.PartitionDrivers[partition], partitionDrivers...)
	}

	for j := 0; j < data.NumSubContexts; j++ {
		container := g.NewNode(graph.KindContextContainer,
			fmt.Sprintf("ContextContainer_For_%s_Partition_%d_Subcontext_%d",
				g.FullyQualifiedName(root.ID), partition, j),
			family.ID)
		container.Partition = partition
		container.Context = graph.CopyContext(root.Context)
		container.Container = &graph.ContextContainerData{Ctx: graph.Context{Root: root.ID, SubContext: j}}
		family.Family.SubContainers = append(family.Family.SubContainers, container.ID)
	}

	return family, nil
}

// SubContextContainer resolves the container for one sub-context of a family
// container.
func SubContextContainer(g *graph.Graph, family *graph.Node, subContext int) *graph.Node {
	if family.Family == nil || subContext < 0 || subContext >= len(family.Family.SubContainers) {
		return nil
	}
	return g.Node(family.Family.SubContainers[subContext])
}
