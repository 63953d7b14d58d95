package fifos

import (
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/utils"
)

// MergeFIFOs combines the FIFOs of each partition pair into multi-port
// FIFOs.  Only FIFOs with identical block sizes, matching depth, equal
// initial-condition block counts, and no order-constraint arcs are merged;
// anything less conservative risks reordering hazards, so richer merges are
// deliberately not attempted here.
func MergeFIFOs(g *graph.Graph, fifoMap map[PartitionPair][]*graph.Node, log utils.Logger) map[PartitionPair][]*graph.Node {
	if log == nil {
		log = &utils.NullLogger{}
	}

	merged := map[PartitionPair][]*graph.Node{}

	for pair, fifosForPair := range fifoMap {
		var base *graph.Node
		var kept []*graph.Node

		for _, fifo := range fifosForPair {
			if !mergeable(g, fifo) {
				kept = append(kept, fifo)
				continue
			}
			if base == nil {
				base = fifo
				kept = append(kept, fifo)
				continue
			}
			if !compatible(base, fifo) {
				kept = append(kept, fifo)
				continue
			}
			mergeInto(g, base, fifo)
			log.Info("merged %s into %s", fifo.Name, base.Name)
		}

		merged[pair] = kept
	}

	return merged
}

func mergeable(g *graph.Graph, fifo *graph.Node) bool {
	if fifo.OrderIn != nil && len(fifo.OrderIn.Arcs) > 0 {
		return false
	}
	if fifo.OrderOut != nil && len(fifo.OrderOut.Arcs) > 0 {
		return false
	}
	return fifo.FIFO != nil
}

func compatible(base, other *graph.Node) bool {
	if base.FIFO.Length != other.FIFO.Length {
		return false
	}
	if base.FIFO.BlockSize(0) != other.FIFO.BlockSize(0) {
		return false
	}
	if base.FIFO.SubBlockSizeIn(0) != other.FIFO.SubBlockSizeIn(0) ||
		base.FIFO.SubBlockSizeOut(0) != other.FIFO.SubBlockSizeOut(0) {
		return false
	}
	// All ports of a merged FIFO must agree on the number of initial
	// condition blocks.
	return len(base.FIFO.InitConditions(0)) == len(other.FIFO.InitConditions(0))
}

// mergeInto moves other's single port pair onto the next port of base and
// removes other.
func mergeInto(g *graph.Graph, base, other *graph.Node) {
	newPort := len(base.Inputs)
	base.InputPort(newPort)
	base.OutputPort(newPort)

	for _, a := range g.PortArcs(other.InputPort(0)) {
		g.SetArcDst(a, graph.PortRef{Node: base.ID, Kind: graph.PortInput, Num: newPort})
	}
	for _, a := range g.PortArcs(other.OutputPort(0)) {
		g.SetArcSrc(a, graph.PortRef{Node: base.ID, Kind: graph.PortOutput, Num: newPort})
	}

	baseData := base.FIFO
	otherData := other.FIFO
	baseData.BlockSizes = appendAt(baseData.BlockSizes, newPort, otherData.BlockSize(0))
	baseData.SubBlockIn = appendAt(baseData.SubBlockIn, newPort, otherData.SubBlockSizeIn(0))
	baseData.SubBlockOut = appendAt(baseData.SubBlockOut, newPort, otherData.SubBlockSizeOut(0))
	baseData.SetInitConditions(newPort, append([]graph.NumericValue{}, otherData.InitConditions(0)...))

	g.RemoveNode(other)
}

func appendAt(vec []int, idx, value int) []int {
	for len(vec) < idx {
		vec = append(vec, 1)
	}
	if len(vec) == idx {
		return append(vec, value)
	}
	vec[idx] = value
	return vec
}
