package synthesis

import (
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// AssignPartitionsToUnassignedSubsystems gives every subsystem still at
// partition -1 the first concrete partition found among its descendants.
// In strict mode the absence of any concrete assignment is an error;
// otherwise a warning is emitted and the subsystem stays unassigned.
func AssignPartitionsToUnassignedSubsystems(g *graph.Graph, strict bool, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}

	for _, n := range g.Nodes() {
		if !n.IsSubsystem() || n.Partition != -1 {
			continue
		}
		partition := firstDescendantValue(g, n, func(d *graph.Node) int { return d.Partition })
		if partition == -1 {
			if strict {
				return errors.NewNode(errors.CodeMissingPartition,
					"unable to find a partition for subsystem; no nested node has one assigned",
					g.FullyQualifiedName(n.ID))
			}
			log.Warn("subsystem %s has no partition and none could be inferred", g.FullyQualifiedName(n.ID))
			continue
		}
		n.Partition = partition
		log.Warn("setting unassigned subsystem %s to partition %d", g.FullyQualifiedName(n.ID), partition)
	}
	return nil
}

// AssignSubBlockingToUnassignedSubsystems backfills sub-blocking lengths the
// same way partitions are backfilled.
func AssignSubBlockingToUnassignedSubsystems(g *graph.Graph, strict bool, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}

	for _, n := range g.Nodes() {
		if !n.IsSubsystem() || n.SubBlockingLen != -1 {
			continue
		}
		length := firstDescendantValue(g, n, func(d *graph.Node) int { return d.SubBlockingLen })
		if length == -1 {
			if strict {
				return errors.NewNode(errors.CodeMissingPartition,
					"unable to find a base sub-blocking length for subsystem",
					g.FullyQualifiedName(n.ID))
			}
			log.Warn("subsystem %s has no sub-blocking length and none could be inferred",
				g.FullyQualifiedName(n.ID))
			continue
		}
		n.SubBlockingLen = length
		log.Warn("setting unassigned subsystem %s sub-blocking length to %d",
			g.FullyQualifiedName(n.ID), length)
	}
	return nil
}

// firstDescendantValue scans descendants depth-first for the first value
// other than -1.
func firstDescendantValue(g *graph.Graph, n *graph.Node, get func(*graph.Node) int) int {
	for _, child := range g.ChildNodes(n) {
		if v := get(child); v != -1 {
			return v
		}
		if child.IsSubsystem() {
			if v := firstDescendantValue(g, child, get); v != -1 {
				return v
			}
		}
	}
	return -1
}
