package graphml

import (
	"context"
	"encoding/xml"
	"io"
	"sort"

	"github.com/dataflow-compiler/internal/parser"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
)

// Ingester reads GraphML dataflow descriptions.
type Ingester struct{}

// NewIngester creates a GraphML ingester.
func NewIngester() *Ingester {
	return &Ingester{}
}

// Name returns the ingester name.
func (i *Ingester) Name() string { return "graphml" }

// SupportedFormats returns the supported format names.
func (i *Ingester) SupportedFormats() []string { return []string{"graphml", "xml"} }

// Ingest parses a GraphML document into a graph.
func (i *Ingester) Ingest(ctx context.Context, reader io.Reader) (*graph.Graph, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "failed to read input", err)
	}
	if len(raw) == 0 {
		return nil, errors.Wrap(errors.CodeParseError, "failed to parse graphml", parser.ErrEmptyInput)
	}

	var doc xmlDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "failed to parse graphml", err)
	}

	g := graph.New()
	state := &ingestState{
		g:        g,
		ids:      map[string]graph.NodeID{},
		nodeData: map[graph.NodeID][]xmlData{},
	}

	if err := state.createNodes(&doc.Graph, graph.InvalidNode); err != nil {
		return nil, err
	}
	if err := state.resolveLinks(); err != nil {
		return nil, err
	}
	if err := state.createEdges(); err != nil {
		return nil, err
	}
	state.captureDriverArcs()

	return g, nil
}

type ingestState struct {
	g        *graph.Graph
	ids      map[string]graph.NodeID
	nodeData map[graph.NodeID][]xmlData
	edges    []xmlEdge
}

// createNodes walks the nested graph structure, creating nodes under their
// parents and collecting edges from every level.
func (s *ingestState) createNodes(xg *xmlGraph, parent graph.NodeID) error {
	s.edges = append(s.edges, xg.Edges...)

	for idx := range xg.Nodes {
		xn := &xg.Nodes[idx]
		tag, _ := dataValue(xn.Data, keyBlockFunction)
		if tag == "" {
			return errors.Wrap(errors.CodeParseError,
				"node "+xn.ID+" has no block_function", parser.ErrMissingProperty)
		}

		if master, ok := masterKinds[tag]; ok {
			id := master(s.g)
			s.ids[xn.ID] = id
			if name, ok := dataValue(xn.Data, keyName); ok {
				s.g.Node(id).Name = name
			}
			continue
		}

		kind := kindFromBlockFunction(tag)
		name, _ := dataValue(xn.Data, keyName)
		if name == "" {
			name = xn.ID
		}

		n := s.g.NewNode(kind, name, parent)
		s.ids[xn.ID] = n.ID
		s.nodeData[n.ID] = xn.Data

		if v, ok := dataValue(xn.Data, keyPartition); ok {
			n.Partition = parseIntDefault(v, -1)
		}
		if v, ok := dataValue(xn.Data, keySubBlockingLen); ok {
			n.SubBlockingLen = parseIntDefault(v, -1)
		}

		if err := s.applyKindProperties(n, tag, xn.Data); err != nil {
			return err
		}

		if xn.Graph != nil {
			if err := s.createNodes(xn.Graph, n.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *ingestState) applyKindProperties(n *graph.Node, tag string, data []xmlData) error {
	switch n.Kind {
	case graph.KindPrimitive:
		prim := &graph.PrimitiveData{Op: tag}
		if v, ok := dataValue(data, keyCompareOp); ok {
			op, err := parseCompareOp(v)
			if err != nil {
				return err
			}
			prim.CompareOp = op
		}
		if v, ok := dataValue(data, keyReshapeMode); ok {
			mode, err := parseReshapeMode(v)
			if err != nil {
				return err
			}
			prim.ReshapeMode = mode
			if dims, ok := dataValue(data, keyTargetDims); ok {
				target, err := parseIntList(dims)
				if err != nil {
					return err
				}
				prim.TargetDims = target
			}
		}
		if v, ok := dataValue(data, keyConjugate); ok {
			conj, err := parseConjugate(v)
			if err != nil {
				return err
			}
			prim.Conjugate = conj
		}
		n.Prim = prim

	case graph.KindConstant:
		values, err := graph.ParseNumericList(dataValueOr(data, keyConstantValue, "[]"))
		if err != nil {
			return err
		}
		n.Prim = &graph.PrimitiveData{Op: tag, Values: values}

	case graph.KindBlackBox:
		registered, err := parseIntList(dataValueOr(data, keyRegisteredOutputs, ""))
		if err != nil {
			return err
		}
		n.Prim = &graph.PrimitiveData{
			Op:                tag,
			Stateful:          parseBool(dataValueOr(data, keyStateful, "false")),
			CombPath:          parseBool(dataValueOr(data, keyCombPath, "true")),
			RegisteredOutputs: registered,
		}

	case graph.KindDelay:
		init, err := graph.ParseNumericList(dataValueOr(data, keyInitConditions, "[]"))
		if err != nil {
			return err
		}
		n.Delay = &graph.DelayData{
			Depth: parseIntDefault(dataValueOr(data, keyDelayDepth, ""), len(init)),
			Init:  init,
		}

	case graph.KindFIFO:
		fifo := &graph.FIFOData{
			Length: parseIntDefault(dataValueOr(data, keyFIFOLength, "8"), 8),
			Mode:   parseCopyMode(dataValueOr(data, keyCopyMode, "")),
		}
		var err error
		if fifo.BlockSizes, err = parseIntList(dataValueOr(data, keyBlockSizes, "")); err != nil {
			return err
		}
		if fifo.SubBlockIn, err = parseIntList(dataValueOr(data, keySubBlockIn, "")); err != nil {
			return err
		}
		if fifo.SubBlockOut, err = parseIntList(dataValueOr(data, keySubBlockOut, "")); err != nil {
			return err
		}
		for port := 0; ; port++ {
			v, ok := dataValue(data, keyInitPrefix+itoa(port))
			if !ok {
				break
			}
			init, err := graph.ParseNumericList(v)
			if err != nil {
				return err
			}
			fifo.SetInitConditions(port, init)
		}
		n.FIFO = fifo

	case graph.KindMux:
		n.RootData().ReplicateDriver = parseBool(dataValueOr(data, keyReplicateDriver, "false"))
		if v, ok := dataValue(data, keyNumSubContexts); ok {
			n.RootData().NumSubContexts = parseIntDefault(v, 1)
		}

	case graph.KindEnabledSubsystem, graph.KindUpsampleDomain, graph.KindDownsampleDomain:
		n.RootData().ReplicateDriver = parseBool(dataValueOr(data, keyReplicateDriver, "false"))
		if v, ok := dataValue(data, keyNumSubContexts); ok {
			n.RootData().NumSubContexts = parseIntDefault(v, 1)
		}
	}
	return nil
}

// resolveLinks runs after all nodes exist and translates the identity-
// bearing properties (primary nodes, dummy targets, container roots, and
// context stacks) through the external-id map.
func (s *ingestState) resolveLinks() error {
	ids := make([]graph.NodeID, 0, len(s.nodeData))
	for id := range s.nodeData {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		n := s.g.Node(id)
		data := s.nodeData[id]

		if v, ok := dataValue(data, keyContextStack); ok {
			stack, err := parseContextStack(v, s.ids)
			if err != nil {
				return err
			}
			n.Context = stack
			if len(stack) > 0 {
				inner := stack[len(stack)-1]
				s.g.Node(inner.Root).AddSubContextNode(inner.SubContext, n.ID)
			}
		}

		switch n.Kind {
		case graph.KindStateUpdate:
			primary, err := s.lookup(data, keyPrimaryNode, n)
			if err != nil {
				return err
			}
			mode := graph.UpdateNormal
			switch dataValueOr(data, keyUpdateMode, "") {
			case "latch":
				mode = graph.UpdateLatch
			case "zero":
				mode = graph.UpdateZeroFill
			}
			n.Update = &graph.StateUpdateData{Primary: primary, Mode: mode}

		case graph.KindDummyReplica:
			of, err := s.lookup(data, keyDummyOf, n)
			if err != nil {
				return err
			}
			n.Dummy = &graph.DummyReplicaData{Of: of}
			if root := s.g.Node(of); root != nil && n.Partition != -1 {
				root.RootData().DummyReplicas[n.Partition] = n.ID
			}

		case graph.KindFamilyContainer:
			rootID, err := s.lookup(data, keyContextRoot, n)
			if err != nil {
				return err
			}
			n.Family = &graph.FamilyContainerData{Root: rootID, Dummy: graph.InvalidNode}
			if root := s.g.Node(rootID); root != nil {
				root.RootData().FamilyContainers[n.Partition] = n.ID
			}

		case graph.KindContextVarUpdate:
			rootID, err := s.lookup(data, keyContextVarRoot, n)
			if err != nil {
				return err
			}
			n.CtxVar = &graph.ContextVarUpdateData{
				Root:     rootID,
				VarIndex: parseIntDefault(dataValueOr(data, keyContextVarIndex, "0"), 0),
			}

		case graph.KindContextContainer:
			rootID, err := s.lookup(data, keyContainerRoot, n)
			if err != nil {
				return err
			}
			sub := parseIntDefault(dataValueOr(data, keyContainerSubContext, "0"), 0)
			n.Container = &graph.ContextContainerData{Ctx: graph.Context{Root: rootID, SubContext: sub}}
		}
	}

	// Attach each context container to its family container's ordered
	// sub-container list.
	for _, id := range ids {
		n := s.g.Node(id)
		if n.Kind != graph.KindContextContainer || n.Container == nil {
			continue
		}
		family := s.g.Node(n.Parent)
		if family == nil || family.Family == nil {
			return errors.NewNode(errors.CodeParseError,
				"context container is not nested in a family container", s.g.FullyQualifiedName(n.ID))
		}
		for len(family.Family.SubContainers) <= n.Container.Ctx.SubContext {
			family.Family.SubContainers = append(family.Family.SubContainers, graph.InvalidNode)
		}
		family.Family.SubContainers[n.Container.Ctx.SubContext] = n.ID
	}

	return nil
}

func (s *ingestState) lookup(data []xmlData, key string, n *graph.Node) (graph.NodeID, error) {
	v, ok := dataValue(data, key)
	if !ok {
		return graph.InvalidNode, errors.Wrap(errors.CodeParseError,
			"node "+n.Name+" is missing "+key, parser.ErrMissingProperty)
	}
	id, ok := s.ids[v]
	if !ok {
		return graph.InvalidNode, errors.Newf(errors.CodeParseError,
			"node %s references unknown node %q via %s", n.Name, v, key)
	}
	return id, nil
}

func (s *ingestState) createEdges() error {
	for _, xe := range s.edges {
		srcID, ok := s.ids[xe.Source]
		if !ok {
			return errors.Newf(errors.CodeParseError, "edge references unknown source %q", xe.Source)
		}
		dstID, ok := s.ids[xe.Target]
		if !ok {
			return errors.Newf(errors.CodeParseError, "edge references unknown target %q", xe.Target)
		}

		srcKind, err := parsePortKind(dataValueOr(xe.Data, keyEdgeSrcPortKind, "out"), false)
		if err != nil {
			return err
		}
		dstKind, err := parsePortKind(dataValueOr(xe.Data, keyEdgeDstPortKind, "in"), true)
		if err != nil {
			return err
		}

		dt := graph.BoolType
		if v, ok := dataValue(xe.Data, keyEdgeDataType); ok {
			if dt, err = graph.ParseDataType(v); err != nil {
				return err
			}
			if dims, ok := dataValue(xe.Data, keyEdgeDimensions); ok {
				d, err := parseIntList(dims)
				if err != nil {
					return err
				}
				if len(d) > 0 {
					dt.Dimensions = d
				}
			}
			dt.Complex = parseBool(dataValueOr(xe.Data, keyEdgeComplex, "false"))
		}

		sampleTime := 0.0
		if v, ok := dataValue(xe.Data, keyEdgeSampleTime); ok {
			sampleTime = parseFloatDefault(v, 0)
		}

		arc, err := s.g.Connect(
			graph.PortRef{Node: srcID, Kind: srcKind, Num: parseIntDefault(dataValueOr(xe.Data, keyEdgeSrcPort, "0"), 0)},
			graph.PortRef{Node: dstID, Kind: dstKind, Num: parseIntDefault(dataValueOr(xe.Data, keyEdgeDstPort, "0"), 0)},
			dt, sampleTime)
		if err != nil {
			return err
		}
		arc.Delay = parseIntDefault(dataValueOr(xe.Data, keyEdgeDelay, "0"), 0)
		arc.Slack = parseIntDefault(dataValueOr(xe.Data, keyEdgeSlack, "0"), 0)
	}
	return nil
}

// captureDriverArcs records the context decision drivers now that the arcs
// exist: select arcs for muxes, enable arcs for enabled subsystems.
func (s *ingestState) captureDriverArcs() {
	for _, n := range s.g.Nodes() {
		switch n.Kind {
		case graph.KindMux:
			data := n.RootData()
			if data.NumSubContexts < len(n.Inputs) {
				data.NumSubContexts = len(n.Inputs)
			}
			if n.Select != nil {
				for _, a := range s.g.PortArcs(n.Select) {
					data.DriverArcs = append(data.DriverArcs, a.ID)
				}
			}
		case graph.KindEnabledSubsystem:
			if n.Enable != nil {
				data := n.RootData()
				for _, a := range s.g.PortArcs(n.Enable) {
					data.DriverArcs = append(data.DriverArcs, a.ID)
				}
			}
		}
	}
}

func dataValueOr(data []xmlData, key, def string) string {
	if v, ok := dataValue(data, key); ok {
		return v
	}
	return def
}
