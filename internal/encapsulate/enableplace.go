package encapsulate

import (
	"fmt"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// PlaceEnableNodesInPartitions assigns partitions to enable inputs, enable
// outputs, and enabled subsystems that are still unassigned.  An enable
// input whose consumers span several partitions is cloned once per
// destination partition, sharing the original enable driver, and its output
// arcs fan out to the clones.
func PlaceEnableNodesInPartitions(g *graph.Graph, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}

	for _, n := range g.Nodes() {
		switch n.Kind {
		case graph.KindEnableInput:
			if n.Partition == -1 {
				if err := placeEnableInput(g, n, log); err != nil {
					return err
				}
			}
		case graph.KindEnableOutput:
			if n.Partition == -1 {
				if err := placeEnableOutput(g, n); err != nil {
					return err
				}
			}
		}
	}

	// Enabled subsystems adopt the partition of their first enable input or
	// output; a subsystem with neither falls back to its first partitioned
	// child.
	for _, n := range g.Nodes() {
		if n.Kind != graph.KindEnabledSubsystem || n.Partition != -1 {
			continue
		}
		if err := placeEnabledSubsystem(g, n, log); err != nil {
			return err
		}
	}

	return nil
}

func placeEnableInput(g *graph.Graph, n *graph.Node, log utils.Logger) error {
	name := g.FullyQualifiedName(n.ID)

	inputArcs := g.PortArcs(n.InputPort(0))
	outArcs := g.PortArcs(n.OutputPort(0))
	var enableArcs []*graph.Arc
	if n.Enable != nil {
		enableArcs = g.PortArcs(n.Enable)
	}
	var orderOutArcs []*graph.Arc
	if n.OrderOut != nil {
		orderOutArcs = g.PortArcs(n.OrderOut)
	}

	replicas := map[int]*graph.Node{}

	for _, outArc := range outArcs {
		dst := g.Node(outArc.Dst.Node)
		if dst == nil {
			continue
		}
		if dst.Partition == -1 {
			if dst.Kind == graph.KindEnableOutput {
				return errors.NewNode(errors.CodeStructuralError,
					"encountered an enable input directly connected to an enable output", name)
			}
			return errors.NewNode(errors.CodeMissingPartition,
				"enable input is connected to a node not in a partition", name)
		}

		if n.Partition == -1 {
			n.Partition = dst.Partition
			replicas[dst.Partition] = n
			continue
		}

		replica, exists := replicas[dst.Partition]
		if !exists {
			replica = g.NewNode(graph.KindEnableInput,
				fmt.Sprintf("%s_Replicated_Partition_%d", n.Name, dst.Partition), n.Parent)
			replica.Partition = dst.Partition
			replicas[dst.Partition] = replica

			for _, inputArc := range inputArcs {
				if _, err := g.Connect(inputArc.Src,
					graph.PortRef{Node: replica.ID, Kind: graph.PortInput, Num: 0},
					inputArc.Type, inputArc.SampleTime); err != nil {
					return err
				}
			}
			for _, enableArc := range enableArcs {
				if _, err := g.Connect(enableArc.Src,
					graph.PortRef{Node: replica.ID, Kind: graph.PortEnable},
					enableArc.Type, enableArc.SampleTime); err != nil {
					return err
				}
			}
			log.Debug("replicated enable input %s into partition %d", name, dst.Partition)
		}

		if replica != n {
			g.SetArcSrc(outArc, graph.PortRef{Node: replica.ID, Kind: graph.PortOutput, Num: outArc.Src.Num})
		}
	}

	for _, orderArc := range orderOutArcs {
		dst := g.Node(orderArc.Dst.Node)
		if dst == nil {
			continue
		}
		replica, exists := replicas[dst.Partition]
		if !exists {
			return errors.NewNode(errors.CodeStructuralError,
				"found an order constraint to a partition with no enable input output", name)
		}
		if replica != n {
			g.SetArcSrc(orderArc, graph.PortRef{Node: replica.ID, Kind: graph.PortOrderOut})
		}
	}

	return nil
}

func placeEnableOutput(g *graph.Graph, n *graph.Node) error {
	name := g.FullyQualifiedName(n.ID)
	inputArcs := g.PortArcs(n.InputPort(0))
	if len(inputArcs) == 0 {
		return errors.NewNode(errors.CodeStructuralError, "enable output has no input driver", name)
	}
	src := g.Node(inputArcs[0].Src.Node)
	if src == nil || src.Partition == -1 {
		if src != nil && src.Kind == graph.KindEnableInput {
			return errors.NewNode(errors.CodeStructuralError,
				"encountered an enable input directly connected to an enable output", name)
		}
		return errors.NewNode(errors.CodeMissingPartition,
			"enable output is driven by a node not in a partition", name)
	}
	n.Partition = src.Partition
	return nil
}

func placeEnabledSubsystem(g *graph.Graph, n *graph.Node, log utils.Logger) error {
	var fallback *graph.Node
	for _, child := range g.ChildNodes(n) {
		switch child.Kind {
		case graph.KindEnableInput, graph.KindEnableOutput:
			if child.Partition != -1 {
				n.Partition = child.Partition
				return nil
			}
		default:
			if fallback == nil && child.Partition != -1 {
				fallback = child
			}
		}
	}
	if fallback != nil {
		n.Partition = fallback.Partition
		log.Warn("enabled subsystem %s has no enable inputs or outputs; adopting partition %d from %s",
			g.FullyQualifiedName(n.ID), fallback.Partition, fallback.Name)
		return nil
	}
	return errors.NewNode(errors.CodeMissingPartition,
		"found enabled subsystem with no partitioned inputs, outputs, or children",
		g.FullyQualifiedName(n.ID))
}
