package fifos

import (
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/utils"
)

// AbsorptionStatus reports how much of an adjacent delay a FIFO absorbed.
type AbsorptionStatus int

const (
	// NoAbsorption means the adjacency conditions were not met.
	NoAbsorption AbsorptionStatus = iota
	// FullAbsorption means the delay was consumed entirely and removed.
	FullAbsorption
	// PartialAbsorptionFullFIFO means the FIFO's free capacity was filled
	// and a residual delay remains.
	PartialAbsorptionFullFIFO
)

// AbsorbAdjacentDelays folds delays sitting next to each FIFO into the
// FIFO's initial state, iterating per FIFO until nothing changes.  On the
// input side, a delay in another partition or context than the FIFO is left
// alone; output-side delays sit in the consumer's partition.
func AbsorbAdjacentDelays(g *graph.Graph, fifoMap map[PartitionPair][]*graph.Node, log utils.Logger) {
	if log == nil {
		log = &utils.NullLogger{}
	}

	for _, fifosForPair := range fifoMap {
		for _, fifo := range fifosForPair {
			for {
				status := absorbInputDelay(g, fifo, log)
				if status == FullAbsorption {
					continue
				}
				if absorbOutputDelays(g, fifo, log) == FullAbsorption {
					continue
				}
				break
			}
		}
	}
}

// absorbInputDelay absorbs the delay driving the FIFO input when the FIFO
// is the delay's only consumer and the FIFO has no order-constraint inputs.
// The delay's initial conditions are delivered first, so they become a
// prefix of the FIFO's initial state.  When the delay does not fully fit,
// what fits is absorbed and the residual stays as a shallower delay.
func absorbInputDelay(g *graph.Graph, fifo *graph.Node, log utils.Logger) AbsorptionStatus {
	if fifo.OrderIn != nil && len(fifo.OrderIn.Arcs) > 0 {
		return NoAbsorption
	}

	inArcs := g.PortArcs(fifo.InputPort(0))
	if len(inArcs) != 1 {
		return NoAbsorption
	}
	arcToFIFO := inArcs[0]
	delay := g.Node(arcToFIFO.Src.Node)
	if delay == nil || delay.Kind != graph.KindDelay || delay.Delay == nil {
		return NoAbsorption
	}
	if delay.Partition != fifo.Partition || !graph.ContextsEqual(delay.Context, fifo.Context) {
		return NoAbsorption
	}
	if len(g.OutputArcs(delay)) != 1 {
		return NoAbsorption
	}
	delayInArcs := g.PortArcs(delay.InputPort(0))
	if len(delayInArcs) != 1 {
		return NoAbsorption
	}

	data := fifo.FIFO
	elems := arcToFIFO.Type.NumberOfElements()
	unit := data.BlockSize(0) * elems / data.SubBlockSizeIn(0)
	space := (data.Length-1)*unit - len(data.InitConditions(0))
	if space <= 0 {
		return NoAbsorption
	}

	delayInit := delay.Delay.Init
	if len(delayInit) <= space {
		// Full absorption: splice the delay out entirely.
		data.SetInitConditions(0, append(append([]graph.NumericValue{}, delayInit...), data.InitConditions(0)...))
		g.SetArcSrc(arcToFIFO, delayInArcs[0].Src)
		g.RemoveNode(delay)
		log.Info("absorbed delay into %s input (%d initial conditions)", fifo.Name, len(delayInit))
		return FullAbsorption
	}

	// Partial absorption: the delay's oldest values enter the FIFO first.
	data.SetInitConditions(0, append(append([]graph.NumericValue{}, delayInit[:space]...), data.InitConditions(0)...))
	delay.Delay.Init = append([]graph.NumericValue{}, delayInit[space:]...)
	delay.Delay.Depth = len(delay.Delay.Init) / maxInt(1, elems)
	log.Info("partially absorbed delay into %s input; %d residual initial conditions remain",
		fifo.Name, len(delay.Delay.Init))
	return PartialAbsorptionFullFIFO
}

// absorbOutputDelays absorbs the delays on the FIFO output when every
// consumer is a delay with identical initial conditions and the FIFO has no
// order-constraint outputs.  Consumers see the delay values before any FIFO
// content, so they also become a prefix.
func absorbOutputDelays(g *graph.Graph, fifo *graph.Node, log utils.Logger) AbsorptionStatus {
	if fifo.OrderOut != nil && len(fifo.OrderOut.Arcs) > 0 {
		return NoAbsorption
	}

	outArcs := g.PortArcs(fifo.OutputPort(0))
	if len(outArcs) == 0 {
		return NoAbsorption
	}

	var delays []*graph.Node
	for _, a := range outArcs {
		d := g.Node(a.Dst.Node)
		if d == nil || d.Kind != graph.KindDelay || d.Delay == nil {
			return NoAbsorption
		}
		delays = append(delays, d)
	}

	first := delays[0].Delay.Init
	for _, d := range delays[1:] {
		if !numericValuesEqual(first, d.Delay.Init) {
			return NoAbsorption
		}
	}

	data := fifo.FIFO
	elems := outArcs[0].Type.NumberOfElements()
	unit := data.BlockSize(0) * elems / data.SubBlockSizeIn(0)
	space := (data.Length-1)*unit - len(data.InitConditions(0))
	if len(first) > space {
		return NoAbsorption
	}

	data.SetInitConditions(0, append(append([]graph.NumericValue{}, first...), data.InitConditions(0)...))

	for i, d := range delays {
		// Splice each delay out, moving its consumers onto the FIFO output.
		for _, a := range g.OutputArcs(d) {
			g.SetArcSrc(a, graph.PortRef{Node: fifo.ID, Kind: graph.PortOutput, Num: 0})
		}
		g.RemoveArc(outArcs[i])
		g.RemoveNode(d)
	}
	log.Info("absorbed %d output delays into %s (%d initial conditions)", len(delays), fifo.Name, len(first))
	return FullAbsorption
}

func numericValuesEqual(a, b []graph.NumericValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
