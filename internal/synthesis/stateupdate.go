// Package synthesis implements the state-update and context-variable-update
// pseudo-node passes, dead-subgraph pruning, order constraints for
// zero-in-degree contextual nodes, and partition/sub-blocking backfill.
package synthesis

import (
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// CreateStateUpdateNodes synthesizes a state-update pseudo-node for every
// node holding state.  The update is order-constrained after every consumer
// of the stateful node's outputs (so each consumer observes the current
// state first) and after the stateful node itself (so the next state has
// been computed).
//
// Enable outputs governed by a clock domain get two variants, latching and
// zero-filling, placed in sub-contexts 0 and 1 of the governing domain.
func CreateStateUpdateNodes(g *graph.Graph, includeContext bool, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}

	for _, s := range g.NodesWithState() {
		if domain := governingClockDomain(g, s); domain != nil && s.Kind == graph.KindEnableOutput {
			if err := createDualStateUpdates(g, s, domain, includeContext); err != nil {
				return err
			}
			continue
		}
		if _, err := createStateUpdateDelayStyle(g, s, includeContext); err != nil {
			return err
		}
	}
	return nil
}

// createStateUpdateDelayStyle creates the single commit node used by
// delays, FIFOs, stateful blackboxes, and plain enable outputs.
func createStateUpdateDelayStyle(g *graph.Graph, s *graph.Node, includeContext bool) (*graph.Node, error) {
	update := g.NewNode(graph.KindStateUpdate, "StateUpdate-For-"+s.Name, s.Parent)
	update.Partition = s.Partition
	update.Update = &graph.StateUpdateData{Primary: s.ID, Mode: updateModeFor(s)}

	if includeContext {
		update.Context = graph.CopyContext(s.Context)
		if len(update.Context) > 0 {
			inner := update.Context[len(update.Context)-1]
			g.Node(inner.Root).AddSubContextNode(inner.SubContext, update.ID)
		}
	}

	if err := wireStateUpdate(g, s, update); err != nil {
		return nil, err
	}
	return update, nil
}

// createDualStateUpdates creates the latching and zero-filling commit pair
// for an enable output under a clock domain, one per domain sub-context.
func createDualStateUpdates(g *graph.Graph, s *graph.Node, domain *graph.Node, includeContext bool) error {
	modes := []graph.StateUpdateMode{graph.UpdateLatch, graph.UpdateZeroFill}
	names := []string{"StateUpdateLatch-For-", "StateUpdateZero-For-"}

	// The variants live under the domain's sub-context containers when the
	// hierarchy has been encapsulated, or beside the primary node before.
	stackPrefix := contextPrefixThrough(s.Context, domain.ID)

	for j, mode := range modes {
		parent := s.Parent
		if familyID, ok := domain.RootData().FamilyContainers[s.Partition]; ok {
			family := g.Node(familyID)
			if family != nil && family.Family != nil && j < len(family.Family.SubContainers) {
				parent = family.Family.SubContainers[j]
			}
		}

		update := g.NewNode(graph.KindStateUpdate, names[j]+s.Name, parent)
		update.Partition = s.Partition
		update.Update = &graph.StateUpdateData{Primary: s.ID, Mode: mode}

		if includeContext {
			update.Context = append(graph.CopyContext(stackPrefix), graph.Context{Root: domain.ID, SubContext: j})
			domain.AddSubContextNode(j, update.ID)
		}

		if err := wireStateUpdate(g, s, update); err != nil {
			return err
		}
	}
	return nil
}

// wireStateUpdate adds the order constraints: consumers first to avoid
// creating a false loop, the primary node last.  A thread-crossing FIFO's
// consumers live in the destination partition and their dependency is
// covered by the read at the start of thread execution, so they are not
// constrained.
func wireStateUpdate(g *graph.Graph, s, update *graph.Node) error {
	for _, consumer := range g.ConnectedOutputNodes(s) {
		if consumer.ID == update.ID {
			continue
		}
		if s.Kind == graph.KindFIFO && consumer.Partition != s.Partition {
			continue
		}
		// Masters are scheduled with the I/O thread, not inside the
		// primary's partition; constraining on them would deadlock the
		// partition sort.
		if consumer.IsMaster() {
			continue
		}
		if _, err := g.ConnectOrderConstraint(consumer, update); err != nil {
			return errors.Wrap(errors.CodeStructuralError,
				"failed to order-constrain state update after consumer", err)
		}
	}
	if _, err := g.ConnectOrderConstraint(s, update); err != nil {
		return errors.Wrap(errors.CodeStructuralError,
			"failed to order-constrain state update after its primary node", err)
	}
	return nil
}

func updateModeFor(s *graph.Node) graph.StateUpdateMode {
	if s.Kind == graph.KindEnableOutput {
		return graph.UpdateLatch
	}
	return graph.UpdateNormal
}

// governingClockDomain returns the innermost upsample/downsample domain on
// the node's context stack, or nil.
func governingClockDomain(g *graph.Graph, n *graph.Node) *graph.Node {
	for i := len(n.Context) - 1; i >= 0; i-- {
		root := g.Node(n.Context[i].Root)
		if root == nil {
			continue
		}
		if root.Kind == graph.KindUpsampleDomain || root.Kind == graph.KindDownsampleDomain {
			return root
		}
	}
	return nil
}

// contextPrefixThrough returns the stack up to but excluding the frame whose
// root is the given node.
func contextPrefixThrough(stack []graph.Context, root graph.NodeID) []graph.Context {
	for i, frame := range stack {
		if frame.Root == root {
			return graph.CopyContext(stack[:i])
		}
	}
	return graph.CopyContext(stack)
}
