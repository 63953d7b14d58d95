package graph

import (
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// Validate runs the per-node self checks over the whole graph.  It is called
// on demand at pass boundaries.  Warnings (e.g. floating-point select
// drivers) are logged; violations abort with a typed error carrying the
// offending node's fully qualified name.
func (g *Graph) Validate(log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}
	for _, n := range g.Nodes() {
		if err := g.ValidateNode(n, log); err != nil {
			return err
		}
	}
	return nil
}

// ValidateNode runs the self check for one node.
func (g *Graph) ValidateNode(n *Node, log utils.Logger) error {
	name := g.FullyQualifiedName(n.ID)

	if !n.IsMaster() {
		for _, p := range n.Inputs {
			if len(p.Arcs) > 1 {
				return errors.NewNode(errors.CodeStructuralError,
					"input port has more than one driving arc", name)
			}
		}
	}

	if n.Enable != nil {
		if len(n.Enable.Arcs) > 1 {
			return errors.NewNode(errors.CodeStructuralError,
				"enable port has more than one driving arc", name)
		}
		for _, a := range g.PortArcs(n.Enable) {
			if !a.Type.IsBool() || !a.Type.IsScalar() {
				return errors.NewNode(errors.CodeStructuralError,
					"enable port driver must be a boolean of width 1", name)
			}
		}
	}

	if n.Select != nil {
		if len(n.Select.Arcs) > 1 {
			return errors.NewNode(errors.CodeStructuralError,
				"select port has more than one driving arc", name)
		}
		for _, a := range g.PortArcs(n.Select) {
			if !a.Type.IsScalar() {
				return errors.NewNode(errors.CodeStructuralError,
					"select port driver must have width 1", name)
			}
			if a.Type.Float {
				log.Warn("select port of %s is driven by a floating-point value", name)
			}
		}
	}

	for _, p := range n.Outputs {
		arcs := g.PortArcs(p)
		for i := 1; i < len(arcs); i++ {
			if !arcs[i].Type.Equals(arcs[0].Type) {
				return errors.NewNode(errors.CodeStructuralError,
					"output port drives arcs with mismatched data types", name)
			}
			if arcs[i].SampleTime != arcs[0].SampleTime {
				return errors.NewNode(errors.CodeStructuralError,
					"output port drives arcs with mismatched sample times", name)
			}
		}
	}

	if err := g.validateReferences(n, name); err != nil {
		return err
	}

	if n.Kind == KindFIFO {
		return g.validateFIFO(n, name)
	}

	return nil
}

func (g *Graph) validateReferences(n *Node, name string) error {
	switch {
	case n.Kind == KindStateUpdate:
		if n.Update == nil || g.Node(n.Update.Primary) == nil {
			return errors.NewNode(errors.CodeStructuralError,
				"state update has no live primary node", name)
		}
	case n.Kind == KindDummyReplica:
		if n.Dummy == nil || g.Node(n.Dummy.Of) == nil {
			return errors.NewNode(errors.CodeStructuralError,
				"dummy replica has no live context root", name)
		}
	case n.Kind == KindFamilyContainer:
		if n.Family == nil || g.Node(n.Family.Root) == nil {
			return errors.NewNode(errors.CodeContextError,
				"family container has no live context root", name)
		}
	case n.Kind == KindContextVarUpdate:
		if n.CtxVar == nil || g.Node(n.CtxVar.Root) == nil {
			return errors.NewNode(errors.CodeStructuralError,
				"context variable update has no live context root", name)
		}
	}

	for _, ctx := range n.Context {
		root := g.Node(ctx.Root)
		if root == nil || !root.IsContextRoot() {
			return errors.NewNode(errors.CodeContextError,
				"context stack names a node that is not a live context root", name)
		}
	}
	return nil
}

// validateFIFO enforces the thread-crossing FIFO invariants: matched port
// pairs, type agreement ignoring the sub-blocking shape, single source and
// destination partition, and the initial-condition alignment rules.
func (g *Graph) validateFIFO(n *Node, name string) error {
	fifo := n.FIFO
	if fifo == nil {
		return errors.NewNode(errors.CodeFIFOError, "fifo node is missing its payload", name)
	}
	if len(n.Inputs) < 1 || len(n.Outputs) < 1 {
		return errors.NewNode(errors.CodeFIFOError,
			"fifo must have at least one input and one output port", name)
	}
	if len(n.Inputs) != len(n.Outputs) {
		return errors.NewNode(errors.CodeFIFOError,
			"fifo input and output port counts must match", name)
	}

	dstPartition := 0
	dstPartitionSet := false
	blockCount := -1

	for portNum := range n.Inputs {
		inArcs := g.PortArcs(n.Inputs[portNum])
		outArcs := g.PortArcs(n.Outputs[portNum])
		if len(inArcs) == 0 {
			return errors.NewNode(errors.CodeFIFOError, "fifo port has no driver arc", name)
		}
		if len(outArcs) == 0 {
			return errors.NewNode(errors.CodeFIFOError, "fifo port has no output arc", name)
		}

		if !inArcs[0].Type.EqualsIgnoringDimensions(outArcs[0].Type) {
			return errors.NewNode(errors.CodeFIFOError,
				"fifo port input and output data types must match", name)
		}

		if src := g.Node(inArcs[0].Src.Node); src != nil && src.Partition != n.Partition {
			return errors.NewNode(errors.CodeFIFOError,
				"fifo must live in the partition of its source", name)
		}
		for _, a := range outArcs {
			dst := g.Node(a.Dst.Node)
			if dst == nil {
				continue
			}
			if !dstPartitionSet {
				dstPartition = dst.Partition
				dstPartitionSet = true
			} else if dst.Partition != dstPartition {
				return errors.NewNode(errors.CodeFIFOError,
					"fifo outputs target more than one partition", name)
			}
		}

		elems := inArcs[0].Type.NumberOfElements()
		blockSize := fifo.BlockSize(portNum)
		subIn := fifo.SubBlockSizeIn(portNum)
		subOut := fifo.SubBlockSizeOut(portNum)
		unit := blockSize * elems / subIn
		initLen := len(fifo.InitConditions(portNum))

		// One block must always stay writable, otherwise the writer can
		// deadlock before the first consume.
		if initLen > (fifo.Length-1)*unit {
			return errors.Newf(errors.CodeFIFOError,
				"fifo %s port %d initial conditions (%d) exceed capacity minus one block (%d)",
				name, portNum, initLen, (fifo.Length-1)*unit)
		}
		if unit <= 0 || initLen%unit != 0 {
			return errors.Newf(errors.CodeFIFOError,
				"fifo %s port %d initial conditions (%d) must be a multiple of %d",
				name, portNum, initLen, unit)
		}
		if blockCount == -1 {
			blockCount = initLen / unit
		} else if initLen/unit != blockCount {
			return errors.NewNode(errors.CodeFIFOError,
				"fifo ports disagree on initial-condition block count", name)
		}
		if blockSize%subIn != 0 {
			return errors.NewNode(errors.CodeFIFOError,
				"input sub-block size must divide the block size", name)
		}
		if blockSize%subOut != 0 {
			return errors.NewNode(errors.CodeFIFOError,
				"output sub-block size must divide the block size", name)
		}
	}

	if n.OrderIn != nil {
		for _, a := range g.PortArcs(n.OrderIn) {
			if src := g.Node(a.Src.Node); src != nil && src.Partition != n.Partition {
				return errors.NewNode(errors.CodeFIFOError,
					"fifo order-constraint input must come from the fifo's own partition", name)
			}
		}
	}

	return nil
}
