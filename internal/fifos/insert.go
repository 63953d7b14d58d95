// Package fifos implements the thread-crossing FIFO layer: insertion of
// FIFOs on partition-crossing arcs, absorption of adjacent delays into FIFO
// initial state, initial-condition reshaping to block-size alignment, and
// merging of compatible FIFOs between a partition pair.
package fifos

import (
	"fmt"
	"sort"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// PartitionPair identifies one directed partition crossing.
type PartitionPair struct {
	Src int
	Dst int
}

// InsertOptions configures FIFO creation.
type InsertOptions struct {
	// Length is the depth of each created FIFO in blocks.
	Length int
	// Mode is the copy strategy recorded for the emitter.
	Mode graph.CopyMode
}

// DefaultLength is the FIFO depth used when the caller does not configure
// one.
const DefaultLength = 8

// InsertPartitionCrossingFIFOs groups partition-crossing arcs by
// (src-partition, dst-partition) and source output port, so arcs sharing one
// source port cross together, and inserts one FIFO per group in the
// source's partition and context.  The source connects to the FIFO input
// and every crossing arc is rewired to the FIFO output.
func InsertPartitionCrossingFIFOs(g *graph.Graph, opts InsertOptions, log utils.Logger) (map[PartitionPair][]*graph.Node, error) {
	if log == nil {
		log = &utils.NullLogger{}
	}
	if opts.Length <= 1 {
		opts.Length = DefaultLength
	}

	type groupKey struct {
		pair PartitionPair
		src  graph.PortRef
	}
	groups := map[groupKey][]*graph.Arc{}
	var order []groupKey

	for _, a := range g.Arcs() {
		if a.Src.Kind != graph.PortOutput {
			continue
		}
		src := g.Node(a.Src.Node)
		dst := g.Node(a.Dst.Node)
		if src == nil || dst == nil || src.Partition == -1 || dst.Partition == -1 {
			continue
		}
		if src.Partition == dst.Partition || src.Kind == graph.KindFIFO {
			continue
		}
		key := groupKey{
			pair: PartitionPair{Src: src.Partition, Dst: dst.Partition},
			src:  a.Src,
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], a)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].pair != order[j].pair {
			if order[i].pair.Src != order[j].pair.Src {
				return order[i].pair.Src < order[j].pair.Src
			}
			return order[i].pair.Dst < order[j].pair.Dst
		}
		if order[i].src.Node != order[j].src.Node {
			return order[i].src.Node < order[j].src.Node
		}
		return order[i].src.Num < order[j].src.Num
	})

	fifoMap := map[PartitionPair][]*graph.Node{}
	groupIndex := map[PartitionPair]int{}

	for _, key := range order {
		arcs := groups[key]
		src := g.Node(key.src.Node)

		// The FIFO lives in the source's context, popped one level when the
		// source is an enable output so the FIFO sits outside the enabled
		// subsystem.
		fifoContext := graph.CopyContext(src.Context)
		fifoParent := src.Parent
		if src.Kind == graph.KindEnableOutput {
			if len(fifoContext) > 0 {
				fifoContext = fifoContext[:len(fifoContext)-1]
			}
			if parent := g.Node(src.Parent); parent != nil {
				fifoParent = parent.Parent
			}
		}

		idx := groupIndex[key.pair]
		groupIndex[key.pair]++

		fifo := g.NewNode(graph.KindFIFO,
			fmt.Sprintf("PartitionCrossingFIFO_%s_TO_%s_%d",
				partitionName(key.pair.Src), partitionName(key.pair.Dst), idx),
			fifoParent)
		fifo.Partition = key.pair.Src
		fifo.Context = fifoContext
		fifo.FIFO = &graph.FIFOData{Length: opts.Length, Mode: opts.Mode}

		if len(fifoContext) > 0 {
			inner := fifoContext[len(fifoContext)-1]
			if root := g.Node(inner.Root); root != nil {
				root.AddSubContextNode(inner.SubContext, fifo.ID)
			}
		}

		if _, err := g.Connect(key.src,
			graph.PortRef{Node: fifo.ID, Kind: graph.PortInput, Num: 0},
			arcs[0].Type, arcs[0].SampleTime); err != nil {
			return nil, errors.Wrap(errors.CodeFIFOError, "failed to connect fifo input", err)
		}

		for _, a := range arcs {
			g.SetArcSrc(a, graph.PortRef{Node: fifo.ID, Kind: graph.PortOutput, Num: 0})
		}

		fifoMap[key.pair] = append(fifoMap[key.pair], fifo)
		log.Debug("inserted %s for %d arcs", fifo.Name, len(arcs))
	}

	return fifoMap, nil
}

func partitionName(p int) string {
	if p < 0 {
		return fmt.Sprintf("N%d", -p)
	}
	return fmt.Sprintf("%d", p)
}

// Validate runs the FIFO invariant checks on every FIFO in the map.
func Validate(g *graph.Graph, fifoMap map[PartitionPair][]*graph.Node, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}
	for _, fifosForPair := range fifoMap {
		for _, fifo := range fifosForPair {
			if err := g.ValidateNode(fifo, log); err != nil {
				return err
			}
		}
	}
	return nil
}
