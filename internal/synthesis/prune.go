package synthesis

import (
	"sort"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/utils"
)

// Prune iteratively removes every node with no path to an output: a node
// whose out-degree is zero when arcs to the unconnected and terminator
// masters (and optionally the visualization master) are ignored.
// Subsystems and state-update pseudo-nodes are exempt.  After convergence,
// every dangling data port of the surviving nodes is rewired to the
// unconnected master.  Returns the number of nodes removed.
func Prune(g *graph.Graph, includeVisMaster bool, log utils.Logger) int {
	if log == nil {
		log = &utils.NullLogger{}
	}

	ignore := map[graph.NodeID]bool{
		g.UnconnectedMaster: true,
		g.TerminatorMaster:  true,
	}
	if includeVisMaster {
		ignore[g.VisMaster] = true
	}

	prunable := func(n *graph.Node) bool {
		return !n.IsMaster() && !n.IsSubsystem() && n.Kind != graph.KindStateUpdate &&
			g.OutDegreeExcludingTo(n, ignore) == 0
	}

	// Output ports losing arcs are tracked so fully disconnected ports can
	// be reported once pruning settles.
	touchedPorts := map[graph.PortRef]bool{}

	var zeroOut []*graph.Node
	for _, n := range g.Nodes() {
		if prunable(n) {
			zeroOut = append(zeroOut, n)
		}
	}

	pruned := 0
	for len(zeroOut) > 0 {
		// Only the upstream neighbors of removed nodes can newly reach
		// out-degree zero.
		candidateIDs := map[graph.NodeID]bool{}
		for _, n := range zeroOut {
			for _, a := range g.InputArcs(n) {
				touchedPorts[a.Src] = true
				candidateIDs[a.Src.Node] = true
			}
			g.RemoveNode(n)
			pruned++
			log.Debug("pruned node %s", n.Name)
		}

		zeroOut = zeroOut[:0]
		for id := range candidateIDs {
			if n := g.Node(id); n != nil && prunable(n) {
				zeroOut = append(zeroOut, n)
			}
		}
		sort.Slice(zeroOut, func(i, j int) bool { return zeroOut[i].ID < zeroOut[j].ID })
	}

	for ref := range touchedPorts {
		n := g.Node(ref.Node)
		if n == nil || ref.Kind != graph.PortOutput {
			continue
		}
		if p := g.Port(ref); p != nil && len(p.Arcs) == 0 {
			log.Warn("pruned: all arcs from output port %d of %s", ref.Num, g.FullyQualifiedName(n.ID))
		}
	}

	// Rewire every surviving dangling data port to the unconnected master.
	for _, n := range g.Nodes() {
		if n.IsMaster() || n.IsSubsystem() {
			continue
		}
		g.ConnectUnconnectedPorts(n)
	}

	// Cycles survive out-degree pruning even when they do no useful work;
	// surface them so the eventual scheduling failure is less surprising.
	for _, component := range g.StronglyConnectedComponents() {
		stateless := true
		for _, id := range component {
			if n := g.Node(id); n == nil || n.HasState() {
				stateless = false
				break
			}
		}
		if stateless {
			log.Warn("found a combinational cycle of %d nodes starting at %s; it cannot be scheduled",
				len(component), g.FullyQualifiedName(component[0]))
		}
	}

	return pruned
}

// CleanupEmptyHierarchy removes plain subsystems left childless by pruning,
// bottom-up.  Context roots and containers are never removed here.
func CleanupEmptyHierarchy(g *graph.Graph, reason string, log utils.Logger) int {
	if log == nil {
		log = &utils.NullLogger{}
	}

	removed := 0
	for {
		var empty []*graph.Node
		for _, n := range g.Nodes() {
			if n.Kind == graph.KindSubsystem && len(n.Children) == 0 {
				empty = append(empty, n)
			}
		}
		if len(empty) == 0 {
			return removed
		}
		for _, n := range empty {
			log.Info("subsystem %s was removed because %s", g.FullyQualifiedName(n.ID), reason)
			g.RemoveNode(n)
			removed++
		}
	}
}
