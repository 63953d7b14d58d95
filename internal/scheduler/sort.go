package scheduler

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
)

// sortDestructive performs the destructive topological sort over one level
// of the hierarchy.  Scheduling a node disconnects its output arcs, which
// releases its downstream neighbors.  Family containers are scheduled whole:
// the container first, then each sub-context container's contents by
// recursion, then the context root itself for muxes.
//
// If any discovered node is never released, the graph has a cycle and a
// diagnostic listing every surviving node and its residual in-edges is
// returned.
func sortDestructive(g *graph.Graph, params Params, rng *rand.Rand,
	nodesToSort []*graph.Node, limitToPartition bool, partition int) ([]*graph.Node, error) {

	var schedule []*graph.Node

	// Arcs into the unconnected and terminator masters are false
	// dependencies for scheduling; drop them.
	g.DisconnectNode(g.Node(g.TerminatorMaster))
	g.DisconnectNode(g.Node(g.UnconnectedMaster))

	inSortSet := map[graph.NodeID]bool{}
	for _, n := range nodesToSort {
		inSortSet[n.ID] = true
	}

	// Every schedulable node must leave this set; whatever survives the
	// worklist loop is part of a cycle (or depends on one).
	discovered := map[graph.NodeID]*graph.Node{}

	var worklist []*graph.Node
	for _, n := range nodesToSort {
		// Plain subsystems are not scheduled; the nodes within them are.
		// Family containers are the exception: they are scheduled whole.
		if n.IsSubsystem() && n.Kind != graph.KindFamilyContainer {
			continue
		}
		discovered[n.ID] = n
		if g.InDegree(n) == 0 {
			worklist = append(worklist, n)
		}
	}

	// The output master can end up in its own connected component when
	// everything feeding it is stateful; make sure it still appears.
	outputMaster := g.Node(g.OutputMaster)
	if inSortSet[outputMaster.ID] && g.InDegree(outputMaster) == 0 && !containsNode(worklist, outputMaster.ID) {
		worklist = append(worklist, outputMaster)
	}

	for len(worklist) > 0 {
		var idx int
		switch params.Heuristic {
		case HeuristicBFS:
			idx = 0
		case HeuristicDFS:
			idx = len(worklist) - 1
		case HeuristicRandom:
			idx = rng.Intn(len(worklist))
		default:
			return nil, errors.Newf(errors.CodeConfigError, "unknown scheduling heuristic %d", params.Heuristic)
		}

		toSched := worklist[idx]
		worklist = append(worklist[:idx], worklist[idx+1:]...)
		delete(discovered, toSched.ID)

		candidates := g.ConnectedOutputNodes(toSched)
		g.DisconnectNode(toSched)

		if toSched.Kind == graph.KindFamilyContainer {
			sub, err := scheduleFamilyContainer(g, params, rng, toSched, limitToPartition, partition)
			if err != nil {
				return nil, err
			}
			schedule = append(schedule, sub...)
		} else {
			schedule = append(schedule, toSched)
		}

		for _, candidate := range candidates {
			if candidate.IsMaster() && candidate.ID != g.OutputMaster {
				continue
			}
			if !inSortSet[candidate.ID] {
				continue
			}
			discovered[candidate.ID] = candidate
			if g.InDegree(candidate) == 0 && !containsNode(worklist, candidate.ID) {
				worklist = append(worklist, candidate)
			}
		}
	}

	if len(discovered) > 0 {
		return nil, cycleError(g, discovered)
	}

	return schedule, nil
}

// scheduleFamilyContainer emits the container itself, recursively sorts each
// sub-context container's children, then emits the context root node for
// muxes.  Enabled-subsystem and clock-domain roots are not emitted: their
// contents were already scheduled as part of the contexts.
func scheduleFamilyContainer(g *graph.Graph, params Params, rng *rand.Rand,
	family *graph.Node, limitToPartition bool, partition int) ([]*graph.Node, error) {

	schedule := []*graph.Node{family}

	for _, containerID := range family.Family.SubContainers {
		container := g.Node(containerID)
		if container == nil {
			continue
		}

		var nextLevel []*graph.Node
		if limitToPartition {
			nextLevel = g.FindNodesStopAtFamilyContainersInPartition(g.ChildNodes(container), partition)
		} else {
			nextLevel = g.FindNodesStopAtFamilyContainers(g.ChildNodes(container))
		}

		sub, err := sortDestructive(g, params, rng, nextLevel, limitToPartition, partition)
		if err != nil {
			return nil, err
		}
		schedule = append(schedule, sub...)
	}

	root := g.Node(family.Family.Root)
	if root == nil {
		return nil, errors.NewNode(errors.CodeContextError,
			"tried to schedule a family container whose context root is gone",
			g.FullyQualifiedName(family.ID))
	}
	if !limitToPartition || root.Partition == partition {
		if root.Kind == graph.KindMux {
			schedule = append(schedule, root)
		}
	}

	return schedule, nil
}

// cycleError builds the scheduling-cycle diagnostic: each surviving node
// with its residual in-degree and residual input sources.
func cycleError(g *graph.Graph, discovered map[graph.NodeID]*graph.Node) error {
	ids := make([]graph.NodeID, 0, len(discovered))
	for id := range discovered {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	fmt.Fprintf(&b, "topological sort encountered a cycle; %d nodes remain:", len(ids))
	for _, id := range ids {
		n := discovered[id]
		fmt.Fprintf(&b, "\n  %s [id %d] in-degree %d", g.FullyQualifiedName(id), id, g.InDegree(n))
		for _, a := range g.InputArcs(n) {
			fmt.Fprintf(&b, "\n    <- %s [id %d]", g.FullyQualifiedName(a.Src.Node), a.Src.Node)
		}
	}

	return errors.New(errors.CodeSchedulingCycle, b.String())
}

func containsNode(nodes []*graph.Node, id graph.NodeID) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
