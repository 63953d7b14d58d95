// Package encapsulate implements context encapsulation: every node in a
// context is moved under a context container inside a per-(root, partition)
// family container, context drivers are replicated or order-constrained into
// each partition, and cross-context arcs are rewired to terminate at
// container boundary ports.
package encapsulate

import (
	"fmt"
	"sort"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// ReplicateContextDrivers clones the decision driver of every context root
// that requests replication into each partition its context spans, standing
// up a dummy replica of the root in every foreign partition.  This keeps the
// context decision out of the thread-crossing FIFOs, preserving the
// per-cycle semantics of the conditional.
func ReplicateContextDrivers(g *graph.Graph, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}

	for _, root := range g.ContextRoots() {
		if root.Root == nil || !root.Root.ReplicateDriver {
			continue
		}

		partitions := partitionsInContext(g, root)
		rootName := g.FullyQualifiedName(root.ID)

		for _, driverArcID := range root.Root.DriverArcs {
			driverArc := g.Arc(driverArcID)
			if driverArc == nil {
				return errors.NewNode(errors.CodeContextError,
					"context root has a stale driver arc", rootName)
			}
			driverSrc := g.Node(driverArc.Src.Node)

			// Replication currently requires a self-contained driver: no
			// inputs and a single output arc.
			if len(g.InputArcs(driverSrc)) != 0 {
				return errors.NewNode(errors.CodeContextError,
					"context driver replication requires the driver source to have no inputs", rootName)
			}
			if len(g.OutputArcs(driverSrc)) != 1 {
				return errors.NewNode(errors.CodeContextError,
					"context driver replication requires the driver source to have exactly one output arc", rootName)
			}

			for _, partition := range partitions {
				var partitionDriver, partitionDst *graph.Node

				if driverSrc.Partition == partition {
					partitionDriver = driverSrc
					partitionDst = root
				} else {
					clone := cloneDriverNode(g, driverSrc, partition)
					partitionDriver = clone

					dummy := g.NewNode(graph.KindDummyReplica,
						fmt.Sprintf("%s_Dummy_Partition_%d", root.Name, partition), root.Parent)
					dummy.Partition = partition
					dummy.Dummy = &graph.DummyReplicaData{Of: root.ID}
					dummy.Context = graph.CopyContext(root.Context)
					addToInnermostSubContext(g, dummy)
					root.RootData().DummyReplicas[partition] = dummy.ID
					partitionDst = dummy

					log.Debug("replicated driver of %s into partition %d", rootName, partition)
				}

				arc, err := g.Connect(
					graph.PortRef{Node: partitionDriver.ID, Kind: graph.PortOutput, Num: driverArc.Src.Num},
					graph.PortRef{Node: partitionDst.ID, Kind: graph.PortOrderIn},
					driverArc.Type, driverArc.SampleTime)
				if err != nil {
					return err
				}
				data := root.RootData()
				data.PartitionDrivers[partition] = append(data.PartitionDrivers[partition], arc.ID)
			}
		}
	}

	return nil
}

// partitionsInContext returns the sorted partitions of the nodes inside a
// root's context, including the root's own.
func partitionsInContext(g *graph.Graph, root *graph.Node) []int {
	seen := map[int]bool{}
	if root.Partition != -1 {
		seen[root.Partition] = true
	}
	if root.Root != nil {
		for _, nodes := range root.Root.SubContextNodes {
			for _, id := range nodes {
				if n := g.Node(id); n != nil && n.Partition != -1 {
					seen[n.Partition] = true
				}
			}
		}
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// cloneDriverNode shallow-copies a driver source into a partition.
func cloneDriverNode(g *graph.Graph, src *graph.Node, partition int) *graph.Node {
	clone := g.NewNode(src.Kind, fmt.Sprintf("%s_Replicated_Partition_%d", src.Name, partition), src.Parent)
	clone.Partition = partition
	clone.Context = graph.CopyContext(src.Context)
	if src.Prim != nil {
		prim := *src.Prim
		prim.Values = append([]graph.NumericValue(nil), src.Prim.Values...)
		clone.Prim = &prim
	}
	addToInnermostSubContext(g, clone)
	return clone
}

// addToInnermostSubContext records sub-context membership for a node that
// was created with an inherited context stack.
func addToInnermostSubContext(g *graph.Graph, n *graph.Node) {
	if len(n.Context) == 0 {
		return
	}
	inner := n.Context[len(n.Context)-1]
	if root := g.Node(inner.Root); root != nil {
		root.AddSubContextNode(inner.SubContext, n.ID)
	}
}
