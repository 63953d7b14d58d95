package fifos

import (
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// ReshapeInitialConditionsForBlockSize makes each port's initial-condition
// count an integer multiple of block-size × element-count ÷ sub-block-in by
// moving the excess (the modulo) into a delay synthesized at the FIFO's
// input.  The moved values are the newest ones, so stream order is
// preserved: the FIFO's remaining prefix is delivered first, then values
// flowing through the new delay.
func ReshapeInitialConditionsForBlockSize(g *graph.Graph, fifo *graph.Node, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}

	data := fifo.FIFO
	for portNum := range fifo.Inputs {
		inArcs := g.PortArcs(fifo.Inputs[portNum])
		if len(inArcs) != 1 {
			return errors.NewNode(errors.CodeFIFOError,
				"fifo port must have exactly one driver to reshape", g.FullyQualifiedName(fifo.ID))
		}
		elems := inArcs[0].Type.NumberOfElements()
		unit := data.BlockSize(portNum) * elems / data.SubBlockSizeIn(portNum)
		if unit <= 0 {
			return errors.NewNode(errors.CodeFIFOError,
				"fifo port has a non-positive block unit", g.FullyQualifiedName(fifo.ID))
		}

		excess := len(data.InitConditions(portNum)) % unit
		if excess == 0 {
			continue
		}
		if err := moveInitIntoInputDelay(g, fifo, portNum, excess, elems, log); err != nil {
			return err
		}
	}
	return nil
}

// ReshapeInitialConditionsToSize grows a port's initial conditions to the
// target by zero padding, or shrinks to the exact target by moving the
// excess into an input delay.
func ReshapeInitialConditionsToSize(g *graph.Graph, fifo *graph.Node, portNum, target int, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}

	data := fifo.FIFO
	current := len(data.InitConditions(portNum))
	switch {
	case target == current:
		return nil
	case target > current:
		padded := append([]graph.NumericValue{}, data.InitConditions(portNum)...)
		for len(padded) < target {
			padded = append(padded, graph.NumericValue{})
		}
		data.SetInitConditions(portNum, padded)
		log.Info("padded %s port %d initial conditions to %d elements", fifo.Name, portNum, target)
		return nil
	default:
		inArcs := g.PortArcs(fifo.InputPort(portNum))
		if len(inArcs) != 1 {
			return errors.NewNode(errors.CodeFIFOError,
				"fifo port must have exactly one driver to reshape", g.FullyQualifiedName(fifo.ID))
		}
		elems := inArcs[0].Type.NumberOfElements()
		return moveInitIntoInputDelay(g, fifo, portNum, current-target, elems, log)
	}
}

// moveInitIntoInputDelay splits the newest `count` initial-condition
// elements off a FIFO port into a delay inserted on the port's driver arc.
func moveInitIntoInputDelay(g *graph.Graph, fifo *graph.Node, portNum, count, elems int, log utils.Logger) error {
	data := fifo.FIFO
	init := data.InitConditions(portNum)
	if count > len(init) {
		return errors.NewNode(errors.CodeFIFOError,
			"cannot move more initial conditions than the fifo holds", g.FullyQualifiedName(fifo.ID))
	}

	keep := len(init) - count
	moved := append([]graph.NumericValue{}, init[keep:]...)
	data.SetInitConditions(portNum, append([]graph.NumericValue{}, init[:keep]...))

	inArcs := g.PortArcs(fifo.InputPort(portNum))
	driverArc := inArcs[0]

	delay := g.NewNode(graph.KindDelay, fifo.Name+"_InitReshapeDelay", fifo.Parent)
	delay.Partition = fifo.Partition
	delay.Context = graph.CopyContext(fifo.Context)
	delay.Delay = &graph.DelayData{Depth: count / maxInt(1, elems), Init: moved}
	if len(delay.Context) > 0 {
		inner := delay.Context[len(delay.Context)-1]
		if root := g.Node(inner.Root); root != nil {
			root.AddSubContextNode(inner.SubContext, delay.ID)
		}
	}

	if _, err := g.Connect(driverArc.Src,
		graph.PortRef{Node: delay.ID, Kind: graph.PortInput, Num: 0},
		driverArc.Type, driverArc.SampleTime); err != nil {
		return err
	}
	g.SetArcSrc(driverArc, graph.PortRef{Node: delay.ID, Kind: graph.PortOutput, Num: 0})

	log.Info("moved %d initial conditions of %s port %d into a reshape delay", count, fifo.Name, portNum)
	return nil
}
