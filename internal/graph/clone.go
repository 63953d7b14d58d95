package graph

// Clone produces a deep structural copy of the graph.  Node and arc ids are
// preserved, so the orig-to-copy relation is the identity on ids: the
// scheduler sorts the copy destructively and back-propagates schedule
// indices to the canonical graph by id.  All payload maps and slices are
// copied so mutations of the clone never alias the original.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:             make(map[NodeID]*Node, len(g.nodes)),
		arcs:              make(map[ArcID]*Arc, len(g.arcs)),
		nextNode:          g.nextNode,
		nextArc:           g.nextArc,
		topLevel:          make(map[NodeID]struct{}, len(g.topLevel)),
		InputMaster:       g.InputMaster,
		OutputMaster:      g.OutputMaster,
		VisMaster:         g.VisMaster,
		TerminatorMaster:  g.TerminatorMaster,
		UnconnectedMaster: g.UnconnectedMaster,
	}

	for id := range g.topLevel {
		c.topLevel[id] = struct{}{}
	}
	for id, n := range g.nodes {
		c.nodes[id] = cloneNode(n)
	}
	for id, a := range g.arcs {
		clone := *a
		c.arcs[id] = &clone
	}

	return c
}

func cloneNode(n *Node) *Node {
	c := *n

	c.Inputs = clonePorts(n.Inputs)
	c.Outputs = clonePorts(n.Outputs)
	c.Enable = clonePort(n.Enable)
	c.Select = clonePort(n.Select)
	c.OrderIn = clonePort(n.OrderIn)
	c.OrderOut = clonePort(n.OrderOut)

	c.Context = CopyContext(n.Context)
	c.Children = append([]NodeID(nil), n.Children...)

	if n.Root != nil {
		root := ContextRootData{
			NumSubContexts:   n.Root.NumSubContexts,
			FamilyContainers: make(map[int]NodeID, len(n.Root.FamilyContainers)),
			DummyReplicas:    make(map[int]NodeID, len(n.Root.DummyReplicas)),
			DriverArcs:       append([]ArcID(nil), n.Root.DriverArcs...),
			PartitionDrivers: make(map[int][]ArcID, len(n.Root.PartitionDrivers)),
			ReplicateDriver:  n.Root.ReplicateDriver,
			ContextVariables: n.Root.ContextVariables,
		}
		for _, nodes := range n.Root.SubContextNodes {
			root.SubContextNodes = append(root.SubContextNodes, append([]NodeID(nil), nodes...))
		}
		for partition, arcs := range n.Root.PartitionDrivers {
			root.PartitionDrivers[partition] = append([]ArcID(nil), arcs...)
		}
		for partition, id := range n.Root.FamilyContainers {
			root.FamilyContainers[partition] = id
		}
		for partition, id := range n.Root.DummyReplicas {
			root.DummyReplicas[partition] = id
		}
		c.Root = &root
	}
	if n.Family != nil {
		family := FamilyContainerData{
			Root:          n.Family.Root,
			SubContainers: append([]NodeID(nil), n.Family.SubContainers...),
			Dummy:         n.Family.Dummy,
		}
		c.Family = &family
	}
	if n.Container != nil {
		container := *n.Container
		c.Container = &container
	}
	if n.Update != nil {
		update := *n.Update
		c.Update = &update
	}
	if n.CtxVar != nil {
		ctxVar := *n.CtxVar
		c.CtxVar = &ctxVar
	}
	if n.Dummy != nil {
		dummy := *n.Dummy
		c.Dummy = &dummy
	}
	if n.Delay != nil {
		delay := DelayData{
			Depth: n.Delay.Depth,
			Init:  append([]NumericValue(nil), n.Delay.Init...),
		}
		c.Delay = &delay
	}
	if n.FIFO != nil {
		fifo := FIFOData{
			Length:      n.FIFO.Length,
			Mode:        n.FIFO.Mode,
			BlockSizes:  append([]int(nil), n.FIFO.BlockSizes...),
			SubBlockIn:  append([]int(nil), n.FIFO.SubBlockIn...),
			SubBlockOut: append([]int(nil), n.FIFO.SubBlockOut...),
		}
		for _, init := range n.FIFO.Init {
			fifo.Init = append(fifo.Init, append([]NumericValue(nil), init...))
		}
		c.FIFO = &fifo
	}
	if n.Prim != nil {
		prim := PrimitiveData{
			Op:                n.Prim.Op,
			CompareOp:         n.Prim.CompareOp,
			ReshapeMode:       n.Prim.ReshapeMode,
			TargetDims:        append([]int(nil), n.Prim.TargetDims...),
			Conjugate:         n.Prim.Conjugate,
			Values:            append([]NumericValue(nil), n.Prim.Values...),
			Stateful:          n.Prim.Stateful,
			CombPath:          n.Prim.CombPath,
			RegisteredOutputs: append([]int(nil), n.Prim.RegisteredOutputs...),
		}
		c.Prim = &prim
	}

	return &c
}

func clonePorts(ports []*Port) []*Port {
	if ports == nil {
		return nil
	}
	out := make([]*Port, len(ports))
	for i, p := range ports {
		out[i] = clonePort(p)
	}
	return out
}

func clonePort(p *Port) *Port {
	if p == nil {
		return nil
	}
	c := *p
	c.Arcs = append([]ArcID(nil), p.Arcs...)
	return &c
}
