package scheduler

import (
	"math/rand"

	"github.com/dataflow-compiler/internal/encapsulate"
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/internal/synthesis"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// Options configures a scheduling run.
type Options struct {
	Params Params
	// Prune removes dead subgraphs from the sort clone first.
	Prune bool
	// RewireContexts lifts context-crossing arcs to family-container
	// boundary ports on the clone before sorting.
	RewireContexts bool
	// SchedulePartitions sorts each partition independently; otherwise the
	// whole graph is sorted at once.
	SchedulePartitions bool
}

// Schedule runs the destructive hierarchical topological sort on a clone of
// the graph and back-propagates schedule indices to the canonical nodes by
// id.  The canonical graph is untouched otherwise.  Returns the number of
// nodes pruned from the clone.
func Schedule(g *graph.Graph, opts Options, log utils.Logger) (int, error) {
	if log == nil {
		log = &utils.NullLogger{}
	}

	clone := g.Clone()

	pruned := 0
	if opts.Prune {
		pruned = synthesis.Prune(clone, true, log)
		log.Debug("scheduler pruned %d nodes from the sort clone", pruned)
	}

	if err := prepareCloneForSort(clone, log); err != nil {
		return pruned, err
	}

	if opts.RewireContexts {
		rewirings, err := encapsulate.RewireArcsToContexts(clone)
		if err != nil {
			return pruned, err
		}
		encapsulate.ApplyRewirings(clone, rewirings)
	}

	rng := rand.New(rand.NewSource(int64(opts.Params.Seed)))

	// An unpartitioned design has nothing to split; sort it whole.
	partitions := partitionsToSchedule(g)
	if opts.SchedulePartitions && len(partitions) > 0 {
		// The output and visualization masters belong to the I/O thread.
		// It is sorted last: by then every partition has been scheduled and
		// has released its arcs into the masters.
		partitions = append(partitions, IOPartition)

		for _, partition := range partitions {
			nodes := clone.FindNodesStopAtFamilyContainersInPartition(clone.TopLevelNodes(), partition)
			if partition == IOPartition {
				nodes = append(nodes, clone.Node(clone.OutputMaster), clone.Node(clone.VisMaster))
			}

			sorted, err := sortDestructive(clone, opts.Params, rng, nodes, true, partition)
			if err != nil {
				return pruned, errors.Wrap(errors.CodeSchedulingCycle,
					"failed to schedule partition", err)
			}
			backPropagate(g, sorted)
			log.Debug("scheduled %d nodes in partition %d", len(sorted), partition)
		}

		// Tag the masters with the I/O partition so the emit plan groups
		// them with the thread that runs them.
		g.Node(g.OutputMaster).Partition = IOPartition
		g.Node(g.VisMaster).Partition = IOPartition
		return pruned, nil
	}

	nodes := clone.FindNodesStopAtFamilyContainers(clone.TopLevelNodes())
	nodes = append(nodes, clone.Node(clone.OutputMaster))

	sorted, err := sortDestructive(clone, opts.Params, rng, nodes, false, -1)
	if err != nil {
		return pruned, err
	}
	backPropagate(g, sorted)
	log.Debug("scheduled %d nodes", len(sorted))
	return pruned, nil
}

// prepareCloneForSort removes the dependencies that must not constrain the
// sort: input master fan-out, inlined constants, and the outputs of state
// elements that do not pass through combinationally.
func prepareCloneForSort(clone *graph.Graph, log utils.Logger) error {
	clone.DisconnectNode(clone.Node(clone.InputMaster))

	for _, n := range clone.Nodes() {
		switch {
		case n.Kind == graph.KindConstant:
			// Constants are emitted inline; they are neither scheduled nor
			// allowed to hold their consumers back.
			clone.DisconnectNode(n)
			clone.RemoveNode(n)

		case n.Kind == graph.KindBlackBox:
			disconnectRegisteredBlackBoxOutputs(clone, n)

		case n.HasState() && !n.HasCombinationalPath():
			if err := disconnectStatefulOutputs(clone, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// disconnectRegisteredBlackBoxOutputs drops output arcs only from the
// blackbox's registered ports; unregistered ports keep their combinational
// dependencies.  Arcs to the blackbox's own state update stay.
func disconnectRegisteredBlackBoxOutputs(clone *graph.Graph, n *graph.Node) {
	registered := map[int]bool{}
	if n.Prim != nil {
		for _, p := range n.Prim.RegisteredOutputs {
			registered[p] = true
		}
	}
	for _, port := range n.Outputs {
		if !registered[port.Num] {
			continue
		}
		for _, a := range clone.PortArcs(port) {
			dst := clone.Node(a.Dst.Node)
			if dst != nil && dst.Kind == graph.KindStateUpdate &&
				dst.Update != nil && dst.Update.Primary == n.ID {
				continue
			}
			clone.RemoveArc(a)
		}
	}
}

// disconnectStatefulOutputs releases the consumers of a state element: its
// output appears constant within a cycle, so only the arcs to its own state
// update must survive.  Thread-crossing FIFOs additionally drop arcs to
// state updates in foreign partitions; the read at the start of thread
// execution covers that dependency.
func disconnectStatefulOutputs(clone *graph.Graph, n *graph.Node) error {
	for _, a := range clone.OutputArcs(n) {
		dst := clone.Node(a.Dst.Node)
		if dst == nil {
			continue
		}
		if dst.Kind == graph.KindStateUpdate {
			if n.Kind != graph.KindFIFO || dst.Partition == n.Partition {
				continue
			}
			if dst.Update != nil && dst.Update.Primary == n.ID {
				return errors.NewNode(errors.CodeStructuralError,
					"arc from a thread-crossing FIFO to its own state update in another partition",
					clone.FullyQualifiedName(n.ID))
			}
		}
		clone.RemoveArc(a)
	}
	return nil
}

// backPropagate writes schedule indices onto the canonical graph; node ids
// are preserved by Clone, so the clone's emit order maps directly.
func backPropagate(g *graph.Graph, sorted []*graph.Node) {
	for i, cloneNode := range sorted {
		if orig := g.Node(cloneNode.ID); orig != nil {
			orig.SchedOrder = i
		}
	}
}

// partitionsToSchedule lists the partitions assigned to the canonical graph's
// non-master nodes; Schedule appends the I/O partition itself.
func partitionsToSchedule(g *graph.Graph) []int {
	return g.Partitions()
}
