package graphml

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
)

// Exporter writes a graph back to GraphML.  Every pseudo-node created by
// the compiler carries its block_function tag and the identity-bearing
// attributes, so the result round-trips through the Ingester.
type Exporter struct{}

// NewExporter creates a GraphML exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export serializes the graph.
func (e *Exporter) Export(ctx context.Context, writer io.Writer, g *graph.Graph) error {
	extIDs := map[graph.NodeID]string{}
	for _, n := range g.Nodes() {
		extIDs[n.ID] = "n" + strconv.Itoa(int(n.ID))
	}

	doc := xmlDocument{Graph: xmlGraph{EdgeDefault: "directed"}}

	// Masters first, then the hierarchy.
	for _, id := range []graph.NodeID{g.InputMaster, g.OutputMaster, g.VisMaster, g.TerminatorMaster, g.UnconnectedMaster} {
		doc.Graph.Nodes = append(doc.Graph.Nodes, emitNode(g, g.Node(id), extIDs, false))
	}
	for _, n := range g.TopLevelNodes() {
		doc.Graph.Nodes = append(doc.Graph.Nodes, emitNode(g, n, extIDs, true))
	}

	for _, a := range g.Arcs() {
		doc.Graph.Edges = append(doc.Graph.Edges, emitEdge(a, extIDs))
	}

	raw, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(errors.CodeParseError, "failed to serialize graphml", err)
	}
	if _, err := writer.Write([]byte(xml.Header)); err != nil {
		return errors.Wrap(errors.CodeParseError, "failed to write graphml", err)
	}
	if _, err := writer.Write(raw); err != nil {
		return errors.Wrap(errors.CodeParseError, "failed to write graphml", err)
	}
	return nil
}

func emitNode(g *graph.Graph, n *graph.Node, extIDs map[graph.NodeID]string, recurse bool) xmlNode {
	xn := xmlNode{ID: extIDs[n.ID]}
	xn.Data = addData(xn.Data, keyName, n.Name)
	xn.Data = addData(xn.Data, keyBlockFunction, blockFunction(n))

	if n.Partition != -1 {
		xn.Data = addData(xn.Data, keyPartition, strconv.Itoa(n.Partition))
	}
	if n.SubBlockingLen != -1 {
		xn.Data = addData(xn.Data, keySubBlockingLen, strconv.Itoa(n.SubBlockingLen))
	}
	if len(n.Context) > 0 {
		xn.Data = addData(xn.Data, keyContextStack, formatContextStack(n.Context, extIDs))
	}

	emitKindData(&xn, n, extIDs)

	if recurse && len(n.Children) > 0 {
		child := &xmlGraph{}
		for _, c := range g.ChildNodes(n) {
			child.Nodes = append(child.Nodes, emitNode(g, c, extIDs, true))
		}
		xn.Graph = child
	}
	return xn
}

// blockFunction returns the GraphML tag for a node: the op name for
// primitives, the structural kind tag otherwise.
func blockFunction(n *graph.Node) string {
	if n.Kind == graph.KindPrimitive && n.Prim != nil && n.Prim.Op != "" {
		return n.Prim.Op
	}
	return n.Kind.String()
}

func emitKindData(xn *xmlNode, n *graph.Node, extIDs map[graph.NodeID]string) {
	switch n.Kind {
	case graph.KindPrimitive:
		if n.Prim == nil {
			return
		}
		if n.Prim.CompareOp != "" {
			xn.Data = addData(xn.Data, keyCompareOp, n.Prim.CompareOp)
		}
		if n.Prim.ReshapeMode != "" {
			xn.Data = addData(xn.Data, keyReshapeMode, n.Prim.ReshapeMode)
			if len(n.Prim.TargetDims) > 0 {
				xn.Data = addData(xn.Data, keyTargetDims, formatIntList(n.Prim.TargetDims))
			}
		}
		if n.Prim.Conjugate != "" {
			xn.Data = addData(xn.Data, keyConjugate, n.Prim.Conjugate)
		}

	case graph.KindConstant:
		if n.Prim != nil {
			xn.Data = addData(xn.Data, keyConstantValue, graph.FormatNumericList(n.Prim.Values))
		}

	case graph.KindBlackBox:
		if n.Prim != nil {
			xn.Data = addData(xn.Data, keyStateful, strconv.FormatBool(n.Prim.Stateful))
			xn.Data = addData(xn.Data, keyCombPath, strconv.FormatBool(n.Prim.CombPath))
			if len(n.Prim.RegisteredOutputs) > 0 {
				xn.Data = addData(xn.Data, keyRegisteredOutputs, formatIntList(n.Prim.RegisteredOutputs))
			}
		}

	case graph.KindDelay:
		if n.Delay != nil {
			xn.Data = addData(xn.Data, keyDelayDepth, strconv.Itoa(n.Delay.Depth))
			xn.Data = addData(xn.Data, keyInitConditions, graph.FormatNumericList(n.Delay.Init))
		}

	case graph.KindFIFO:
		if n.FIFO != nil {
			xn.Data = addData(xn.Data, keyFIFOLength, strconv.Itoa(n.FIFO.Length))
			xn.Data = addData(xn.Data, keyCopyMode, n.FIFO.Mode.String())
			if len(n.FIFO.BlockSizes) > 0 {
				xn.Data = addData(xn.Data, keyBlockSizes, formatIntList(n.FIFO.BlockSizes))
			}
			if len(n.FIFO.SubBlockIn) > 0 {
				xn.Data = addData(xn.Data, keySubBlockIn, formatIntList(n.FIFO.SubBlockIn))
			}
			if len(n.FIFO.SubBlockOut) > 0 {
				xn.Data = addData(xn.Data, keySubBlockOut, formatIntList(n.FIFO.SubBlockOut))
			}
			for port, init := range n.FIFO.Init {
				xn.Data = addData(xn.Data, keyInitPrefix+strconv.Itoa(port), graph.FormatNumericList(init))
			}
		}

	case graph.KindMux, graph.KindEnabledSubsystem, graph.KindUpsampleDomain, graph.KindDownsampleDomain:
		if n.Root != nil {
			xn.Data = addData(xn.Data, keyNumSubContexts, strconv.Itoa(n.Root.NumSubContexts))
			if n.Root.ReplicateDriver {
				xn.Data = addData(xn.Data, keyReplicateDriver, "true")
			}
		}

	case graph.KindStateUpdate:
		if n.Update != nil {
			xn.Data = addData(xn.Data, keyPrimaryNode, extIDs[n.Update.Primary])
			switch n.Update.Mode {
			case graph.UpdateLatch:
				xn.Data = addData(xn.Data, keyUpdateMode, "latch")
			case graph.UpdateZeroFill:
				xn.Data = addData(xn.Data, keyUpdateMode, "zero")
			}
		}

	case graph.KindContextVarUpdate:
		if n.CtxVar != nil {
			xn.Data = addData(xn.Data, keyContextVarRoot, extIDs[n.CtxVar.Root])
			xn.Data = addData(xn.Data, keyContextVarIndex, strconv.Itoa(n.CtxVar.VarIndex))
		}

	case graph.KindDummyReplica:
		if n.Dummy != nil {
			xn.Data = addData(xn.Data, keyDummyOf, extIDs[n.Dummy.Of])
		}

	case graph.KindFamilyContainer:
		if n.Family != nil {
			xn.Data = addData(xn.Data, keyContextRoot, extIDs[n.Family.Root])
		}

	case graph.KindContextContainer:
		if n.Container != nil {
			xn.Data = addData(xn.Data, keyContainerRoot, extIDs[n.Container.Ctx.Root])
			xn.Data = addData(xn.Data, keyContainerSubContext, strconv.Itoa(n.Container.Ctx.SubContext))
		}
	}
}

func emitEdge(a *graph.Arc, extIDs map[graph.NodeID]string) xmlEdge {
	xe := xmlEdge{Source: extIDs[a.Src.Node], Target: extIDs[a.Dst.Node]}
	xe.Data = addData(xe.Data, keyEdgeSrcPort, strconv.Itoa(a.Src.Num))
	xe.Data = addData(xe.Data, keyEdgeDstPort, strconv.Itoa(a.Dst.Num))
	xe.Data = addData(xe.Data, keyEdgeSrcPortKind, a.Src.Kind.String())
	xe.Data = addData(xe.Data, keyEdgeDstPortKind, a.Dst.Kind.String())
	xe.Data = addData(xe.Data, keyEdgeDataType, a.Type.String())
	xe.Data = addData(xe.Data, keyEdgeDimensions, formatIntList(a.Type.Dimensions))
	if a.Type.Complex {
		xe.Data = addData(xe.Data, keyEdgeComplex, "true")
	}
	xe.Data = addData(xe.Data, keyEdgeSampleTime, fmt.Sprintf("%g", a.SampleTime))
	if a.Delay != 0 {
		xe.Data = addData(xe.Data, keyEdgeDelay, strconv.Itoa(a.Delay))
	}
	if a.Slack != 0 {
		xe.Data = addData(xe.Data, keyEdgeSlack, strconv.Itoa(a.Slack))
	}
	return xe
}
