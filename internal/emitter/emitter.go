package emitter

import (
	"sort"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// Shim supplies the emit-time contract for one primitive block function.
// Primitive semantic libraries register their shims here; the core only
// orders nodes and carries contracts through.
type Shim func(g *graph.Graph, n *graph.Node) EmitContract

// Emitter builds emit plans from scheduled graphs.
type Emitter struct {
	shims map[string]Shim
	log   utils.Logger
}

// New creates an Emitter.
func New(log utils.Logger) *Emitter {
	if log == nil {
		log = &utils.NullLogger{}
	}
	return &Emitter{shims: map[string]Shim{}, log: log}
}

// RegisterShim registers the contract shim for a primitive block function.
func (e *Emitter) RegisterShim(op string, shim Shim) {
	e.shims[op] = shim
}

// BuildPlan assembles the per-partition ordered node sequences and FIFO
// descriptors from a scheduled graph.  Every node with a schedule index
// participates; nodes the scheduler skipped (constants, plain subsystems)
// do not.
func (e *Emitter) BuildPlan(g *graph.Graph, designName string) (*Plan, error) {
	plan := &Plan{DesignName: designName}

	byPartition := map[int][]*graph.Node{}
	for _, n := range g.Nodes() {
		if n.SchedOrder < 0 {
			continue
		}
		byPartition[n.Partition] = append(byPartition[n.Partition], n)
	}

	partitions := make([]int, 0, len(byPartition))
	for p := range byPartition {
		partitions = append(partitions, p)
	}
	sort.Ints(partitions)

	for _, p := range partitions {
		nodes := byPartition[p]
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].SchedOrder < nodes[j].SchedOrder })

		pp := PartitionPlan{Partition: p}
		for _, n := range nodes {
			contract, err := e.contractFor(g, n)
			if err != nil {
				return nil, err
			}
			pp.Nodes = append(pp.Nodes, ScheduledNode{
				ID:            int(n.ID),
				Name:          n.Name,
				BlockFunction: blockFunction(n),
				ScheduleIndex: n.SchedOrder,
				Contract:      contract,
			})
		}
		plan.Partitions = append(plan.Partitions, pp)
	}

	for _, n := range g.Nodes() {
		if n.Kind != graph.KindFIFO {
			continue
		}
		desc, err := e.describeFIFO(g, n)
		if err != nil {
			return nil, err
		}
		plan.FIFOs = append(plan.FIFOs, desc)
	}

	return plan, nil
}

func blockFunction(n *graph.Node) string {
	if n.Kind == graph.KindPrimitive && n.Prim != nil && n.Prim.Op != "" {
		return n.Prim.Op
	}
	return n.Kind.String()
}

// contractFor derives the built-in contract for stateful kinds and defers
// to the registered shim for primitives.
func (e *Emitter) contractFor(g *graph.Graph, n *graph.Node) (EmitContract, error) {
	switch n.Kind {
	case graph.KindDelay:
		typeName := "double"
		if arcs := g.OutputArcs(n); len(arcs) > 0 {
			typeName = arcs[0].Type.String()
		} else if arcs := g.InputArcs(n); len(arcs) > 0 {
			typeName = arcs[0].Type.String()
		}
		contract := EmitContract{
			StateVariables: []StateVariable{{
				Name:     stateVarName(n.Name, int(n.ID)),
				TypeName: typeName,
			}},
		}
		if n.Delay != nil {
			contract.StateVariables[0].Initial = graph.FormatNumericList(n.Delay.Init)
			contract.NextStateExpressions = []string{
				stateVarName(n.Name, int(n.ID)) + " = <input>",
			}
		}
		return contract, nil

	case graph.KindEnableOutput:
		return EmitContract{
			StateVariables: []StateVariable{{
				Name:     stateVarName(n.Name, int(n.ID)),
				TypeName: "double",
			}},
		}, nil

	case graph.KindBlackBox:
		contract := EmitContract{}
		if n.Prim != nil {
			contract.ExternalIncludes = append(contract.ExternalIncludes, n.Prim.Op+".h")
		}
		return contract, nil

	case graph.KindPrimitive:
		if n.Prim != nil {
			if shim, ok := e.shims[n.Prim.Op]; ok {
				return shim(g, n), nil
			}
		}
		return EmitContract{}, nil

	default:
		return EmitContract{}, nil
	}
}

func (e *Emitter) describeFIFO(g *graph.Graph, n *graph.Node) (FIFODesc, error) {
	if n.FIFO == nil {
		return FIFODesc{}, errors.NewNode(errors.CodeEmitError,
			"fifo node has no payload", g.FullyQualifiedName(n.ID))
	}

	desc := FIFODesc{
		Name:         n.Name,
		TypeName:     fifoTypeName(n.Name, int(n.ID)),
		SrcPartition: n.Partition,
		DstPartition: n.Partition,
		Depth:        n.FIFO.Length,
		CopyMode:     n.FIFO.Mode.String(),
	}

	for portNum := range n.Inputs {
		inArcs := g.PortArcs(n.Inputs[portNum])
		if len(inArcs) == 0 {
			return FIFODesc{}, errors.NewNode(errors.CodeEmitError,
				"fifo port has no driver while building the emit plan", g.FullyQualifiedName(n.ID))
		}
		dt := inArcs[0].Type

		if outArcs := g.PortArcs(n.OutputPort(portNum)); len(outArcs) > 0 {
			if dst := g.Node(outArcs[0].Dst.Node); dst != nil {
				desc.DstPartition = dst.Partition
			}
		}

		init := n.FIFO.InitConditions(portNum)
		initStrs := make([]string, len(init))
		for i, v := range init {
			initStrs[i] = v.String()
		}

		desc.Ports = append(desc.Ports, FIFOPortDesc{
			Port:              portNum,
			DataType:          dt.String(),
			Dimensions:        dt.Dimensions,
			Complex:           dt.Complex,
			BlockSize:         n.FIFO.BlockSize(portNum),
			SubBlockIn:        n.FIFO.SubBlockSizeIn(portNum),
			SubBlockOut:       n.FIFO.SubBlockSizeOut(portNum),
			InitialConditions: initStrs,
		})
	}

	return desc, nil
}
