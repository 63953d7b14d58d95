// Package graph implements the dataflow graph store: nodes, arcs, and ports
// keyed by stable integer ids, hierarchy traversal, cloning, and the atomic
// mutation primitive the compile passes go through.
//
// Cross-references between nodes, ports, and arcs are ids rather than
// pointers.  Deletion scrubs the id from every dependent index, which keeps
// the cyclic node/port/arc and container/root shapes safe without weak
// references.
package graph

import (
	"sort"

	"github.com/dataflow-compiler/pkg/errors"
)

// Graph owns all nodes and arcs of one design.
type Graph struct {
	nodes    map[NodeID]*Node
	arcs     map[ArcID]*Arc
	nextNode NodeID
	nextArc  ArcID
	topLevel map[NodeID]struct{}

	// The five singleton masters.  Masters have no parent and are not
	// top-level nodes.
	InputMaster       NodeID
	OutputMaster      NodeID
	VisMaster         NodeID
	TerminatorMaster  NodeID
	UnconnectedMaster NodeID
}

// New creates an empty graph with its five master nodes.
func New() *Graph {
	g := &Graph{
		nodes:    make(map[NodeID]*Node),
		arcs:     make(map[ArcID]*Arc),
		topLevel: make(map[NodeID]struct{}),
	}

	g.InputMaster = g.newMaster(KindMasterInput, "Input")
	g.OutputMaster = g.newMaster(KindMasterOutput, "Output")
	g.VisMaster = g.newMaster(KindMasterVis, "Visualization")
	g.TerminatorMaster = g.newMaster(KindMasterTerminator, "Terminator")
	g.UnconnectedMaster = g.newMaster(KindMasterUnconnected, "Unconnected")

	return g
}

func (g *Graph) newMaster(kind NodeKind, name string) NodeID {
	n := g.allocNode(kind, name)
	return n.ID
}

func (g *Graph) allocNode(kind NodeKind, name string) *Node {
	n := &Node{
		ID:             g.nextNode,
		Name:           name,
		Kind:           kind,
		Parent:         InvalidNode,
		Partition:      -1,
		SubBlockingLen: -1,
		SchedOrder:     -1,
	}
	g.nodes[n.ID] = n
	g.nextNode++
	return n
}

// NewNode creates a node under the given parent (InvalidNode for top-level)
// and registers it with the store.
func (g *Graph) NewNode(kind NodeKind, name string, parent NodeID) *Node {
	n := g.allocNode(kind, name)
	n.Parent = parent
	if parent == InvalidNode {
		g.topLevel[n.ID] = struct{}{}
	} else {
		p := g.nodes[parent]
		p.Children = append(p.Children, n.ID)
	}
	return n
}

// Node looks a node up by id.  Returns nil for removed or unknown ids.
func (g *Graph) Node(id NodeID) *Node {
	return g.nodes[id]
}

// Arc looks an arc up by id.
func (g *Graph) Arc(id ArcID) *Arc {
	return g.arcs[id]
}

// NumNodes returns the live node count including masters.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumArcs returns the live arc count.
func (g *Graph) NumArcs() int {
	return len(g.arcs)
}

// Nodes returns all live nodes ordered by id so repeated runs traverse
// identically.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Arcs returns all live arcs ordered by id.
func (g *Graph) Arcs() []*Arc {
	out := make([]*Arc, 0, len(g.arcs))
	for _, a := range g.arcs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TopLevelNodes returns the nodes at the root of the hierarchy ordered by id.
// Masters are not included.
func (g *Graph) TopLevelNodes() []*Node {
	out := make([]*Node, 0, len(g.topLevel))
	for id := range g.topLevel {
		out = append(out, g.nodes[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddTopLevelNode registers an existing parentless node as top-level.
func (g *Graph) AddTopLevelNode(id NodeID) {
	g.topLevel[id] = struct{}{}
}

// RemoveTopLevelNode drops a node from the top-level set without removing it
// from the graph.
func (g *Graph) RemoveTopLevelNode(id NodeID) {
	delete(g.topLevel, id)
}

// ChildNodes returns a subsystem's children ordered by id.
func (g *Graph) ChildNodes(n *Node) []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, id := range n.Children {
		if child := g.nodes[id]; child != nil {
			out = append(out, child)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Port resolves a port ref against the live node set.  Returns nil when the
// node no longer exists.
func (g *Graph) Port(ref PortRef) *Port {
	n := g.nodes[ref.Node]
	if n == nil {
		return nil
	}
	return n.Port(ref.Kind, ref.Num)
}

// FullyQualifiedName walks the parent chain and joins names with "::".
func (g *Graph) FullyQualifiedName(id NodeID) string {
	n := g.nodes[id]
	if n == nil {
		return "<removed>"
	}
	name := n.Name
	for cursor := n.Parent; cursor != InvalidNode; {
		p := g.nodes[cursor]
		if p == nil {
			break
		}
		name = p.Name + "::" + name
		cursor = p.Parent
	}
	return name
}

// Connect creates an arc between two port refs.  The src must be an
// output-side port and the dst an input-side port.
func (g *Graph) Connect(src, dst PortRef, dt DataType, sampleTime float64) (*Arc, error) {
	if src.Kind.IsInputSide() {
		return nil, errors.NewNode(errors.CodeStructuralError,
			"arc source must be an output-side port", g.FullyQualifiedName(src.Node))
	}
	if !dst.Kind.IsInputSide() {
		return nil, errors.NewNode(errors.CodeStructuralError,
			"arc destination must be an input-side port", g.FullyQualifiedName(dst.Node))
	}
	srcPort := g.Port(src)
	dstPort := g.Port(dst)
	if srcPort == nil || dstPort == nil {
		return nil, errors.New(errors.CodeStructuralError, "arc endpoint node does not exist")
	}

	a := &Arc{
		ID:         g.nextArc,
		Src:        src,
		Dst:        dst,
		Type:       dt,
		SampleTime: sampleTime,
	}
	g.arcs[a.ID] = a
	g.nextArc++
	srcPort.addArc(a.ID)
	dstPort.addArc(a.ID)
	return a, nil
}

// ConnectNodes creates a data arc between two nodes' numbered data ports.
func (g *Graph) ConnectNodes(src *Node, srcPort int, dst *Node, dstPort int, dt DataType, sampleTime float64) (*Arc, error) {
	return g.Connect(
		PortRef{Node: src.ID, Kind: PortOutput, Num: srcPort},
		PortRef{Node: dst.ID, Kind: PortInput, Num: dstPort},
		dt, sampleTime)
}

// ConnectOrderConstraint creates an order-constraint arc between two nodes.
// Data type and sample time are not meaningful on these arcs; the default
// boolean type is used.
func (g *Graph) ConnectOrderConstraint(src, dst *Node) (*Arc, error) {
	return g.Connect(
		PortRef{Node: src.ID, Kind: PortOrderOut},
		PortRef{Node: dst.ID, Kind: PortOrderIn},
		BoolType, 0)
}

// RemoveArc detaches the arc from both endpoint ports and destroys it.
func (g *Graph) RemoveArc(a *Arc) {
	if a == nil {
		return
	}
	if p := g.Port(a.Src); p != nil {
		p.removeArc(a.ID)
	}
	if p := g.Port(a.Dst); p != nil {
		p.removeArc(a.ID)
	}
	delete(g.arcs, a.ID)
}

// SetArcSrc rewires an arc's source, updating both the old and new port arc
// lists.
func (g *Graph) SetArcSrc(a *Arc, newSrc PortRef) {
	if p := g.Port(a.Src); p != nil {
		p.removeArc(a.ID)
	}
	a.Src = newSrc
	g.Port(newSrc).addArc(a.ID)
}

// SetArcDst rewires an arc's destination, updating both port arc lists.
func (g *Graph) SetArcDst(a *Arc, newDst PortRef) {
	if p := g.Port(a.Dst); p != nil {
		p.removeArc(a.ID)
	}
	a.Dst = newDst
	g.Port(newDst).addArc(a.ID)
}

// PortArcs returns the arcs on a port ordered by id.
func (g *Graph) PortArcs(p *Port) []*Arc {
	out := make([]*Arc, 0, len(p.Arcs))
	for _, id := range p.Arcs {
		if a := g.arcs[id]; a != nil {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InputArcs returns every arc terminating at the node, ordered by id.
func (g *Graph) InputArcs(n *Node) []*Arc {
	var out []*Arc
	for _, p := range n.AllInputSidePorts() {
		out = append(out, g.PortArcs(p)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OutputArcs returns every arc originating at the node, ordered by id.
func (g *Graph) OutputArcs(n *Node) []*Arc {
	var out []*Arc
	for _, p := range n.AllOutputSidePorts() {
		out = append(out, g.PortArcs(p)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InDegree counts arcs terminating at the node, order-constraint arcs
// included.
func (g *Graph) InDegree(n *Node) int {
	deg := 0
	for _, p := range n.AllInputSidePorts() {
		deg += len(p.Arcs)
	}
	return deg
}

// OutDegree counts arcs originating at the node.
func (g *Graph) OutDegree(n *Node) int {
	deg := 0
	for _, p := range n.AllOutputSidePorts() {
		deg += len(p.Arcs)
	}
	return deg
}

// OutDegreeExcludingTo counts output arcs whose destinations are not in the
// ignore set.
func (g *Graph) OutDegreeExcludingTo(n *Node, ignore map[NodeID]bool) int {
	deg := 0
	for _, a := range g.OutputArcs(n) {
		if !ignore[a.Dst.Node] {
			deg++
		}
	}
	return deg
}

// DisconnectNode removes every arc touching the node and returns them.
func (g *Graph) DisconnectNode(n *Node) []*Arc {
	arcs := append(g.InputArcs(n), g.OutputArcs(n)...)
	for _, a := range arcs {
		g.RemoveArc(a)
	}
	return arcs
}

// ConnectedOutputNodes returns the distinct downstream neighbor nodes,
// ordered by id.
func (g *Graph) ConnectedOutputNodes(n *Node) []*Node {
	return g.collectNeighbors(g.OutputArcs(n), false)
}

// ConnectedInputNodes returns the distinct upstream neighbor nodes, ordered
// by id.
func (g *Graph) ConnectedInputNodes(n *Node) []*Node {
	return g.collectNeighbors(g.InputArcs(n), true)
}

// ConnectedNodes returns all distinct neighbors, ordered by id.
func (g *Graph) ConnectedNodes(n *Node) []*Node {
	seen := map[NodeID]bool{}
	var out []*Node
	for _, nb := range append(g.ConnectedInputNodes(n), g.ConnectedOutputNodes(n)...) {
		if !seen[nb.ID] {
			seen[nb.ID] = true
			out = append(out, nb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (g *Graph) collectNeighbors(arcs []*Arc, srcSide bool) []*Node {
	seen := map[NodeID]bool{}
	var out []*Node
	for _, a := range arcs {
		id := a.Dst.Node
		if srcSide {
			id = a.Src.Node
		}
		if !seen[id] {
			seen[id] = true
			if nb := g.nodes[id]; nb != nil {
				out = append(out, nb)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MoveNode reparents a node, updating children lists and the top-level set.
func (g *Graph) MoveNode(n *Node, newParent NodeID) {
	g.detachFromParent(n)
	n.Parent = newParent
	if newParent == InvalidNode {
		g.topLevel[n.ID] = struct{}{}
	} else {
		p := g.nodes[newParent]
		p.Children = append(p.Children, n.ID)
	}
}

func (g *Graph) detachFromParent(n *Node) {
	if n.Parent == InvalidNode {
		delete(g.topLevel, n.ID)
		return
	}
	if p := g.nodes[n.Parent]; p != nil {
		for i, id := range p.Children {
			if id == n.ID {
				p.Children = append(p.Children[:i], p.Children[i+1:]...)
				break
			}
		}
	}
	n.Parent = InvalidNode
}

// RemoveNode disconnects a node, detaches it from its parent, scrubs every
// reference held by context roots, family containers, and dummy-replica
// maps, and destroys it.  Children are not removed; callers delete
// hierarchies bottom-up.
func (g *Graph) RemoveNode(n *Node) {
	g.DisconnectNode(n)
	g.detachFromParent(n)
	delete(g.topLevel, n.ID)

	for _, other := range g.nodes {
		if other.Root != nil {
			other.RemoveSubContextNode(n.ID)
			for partition, id := range other.Root.DummyReplicas {
				if id == n.ID {
					delete(other.Root.DummyReplicas, partition)
				}
			}
			for partition, id := range other.Root.FamilyContainers {
				if id == n.ID {
					delete(other.Root.FamilyContainers, partition)
				}
			}
		}
		if other.Family != nil && other.Family.Dummy == n.ID {
			other.Family.Dummy = InvalidNode
		}
	}

	delete(g.nodes, n.ID)
}

// AddRemoveNodesAndArcs atomically applies a batch of additions and
// removals.  Added nodes and arcs must already have been created through the
// store; removal scrubs all dangling references.
func (g *Graph) AddRemoveNodesAndArcs(addNodes, removeNodes []*Node, addArcs, removeArcs []*Arc) {
	for _, n := range addNodes {
		if g.nodes[n.ID] != n {
			g.nodes[n.ID] = n
		}
	}
	for _, a := range addArcs {
		if g.arcs[a.ID] != a {
			g.arcs[a.ID] = a
		}
	}
	for _, a := range removeArcs {
		g.RemoveArc(a)
	}
	for _, n := range removeNodes {
		g.RemoveNode(n)
	}
}

// Partitions returns the sorted distinct partition numbers assigned to
// non-master nodes, excluding the unassigned marker -1.
func (g *Graph) Partitions() []int {
	seen := map[int]bool{}
	for _, n := range g.nodes {
		if !n.IsMaster() && n.Partition != -1 {
			seen[n.Partition] = true
		}
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// ContextRoots returns every context root node ordered by id.
func (g *Graph) ContextRoots() []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.IsContextRoot() {
			out = append(out, n)
		}
	}
	return out
}

// NodesWithState returns every node holding state, ordered by id.
func (g *Graph) NodesWithState() []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.HasState() {
			out = append(out, n)
		}
	}
	return out
}

// FindNodesStopAtFamilyContainers flattens a hierarchy selection, recursing
// into subsystems but treating context family containers as leaves so they
// are scheduled whole.
func (g *Graph) FindNodesStopAtFamilyContainers(nodes []*Node) []*Node {
	var found []*Node
	for _, n := range nodes {
		switch {
		case n.Kind == KindFamilyContainer:
			found = append(found, n)
		case n.IsSubsystem():
			found = append(found, n)
			found = append(found, g.FindNodesStopAtFamilyContainers(g.ChildNodes(n))...)
		default:
			found = append(found, n)
		}
	}
	return found
}

// FindNodesStopAtFamilyContainersInPartition is the partition-restricted
// variant.  Subsystems of other partitions are still descended into because
// they may be mixed; family containers are only taken when they belong to
// the partition.
func (g *Graph) FindNodesStopAtFamilyContainersInPartition(nodes []*Node, partition int) []*Node {
	var found []*Node
	for _, n := range nodes {
		switch {
		case n.Kind == KindFamilyContainer:
			if n.Partition == partition {
				found = append(found, n)
			}
		case n.IsSubsystem():
			if n.Partition == partition {
				found = append(found, n)
			}
			found = append(found, g.FindNodesStopAtFamilyContainersInPartition(g.ChildNodes(n), partition)...)
		case n.Partition == partition:
			found = append(found, n)
		}
	}
	return found
}

// Descendants returns every node below a subsystem, depth first, ordered by
// id at each level.
func (g *Graph) Descendants(n *Node) []*Node {
	var out []*Node
	for _, child := range g.ChildNodes(n) {
		out = append(out, child)
		if child.IsSubsystem() {
			out = append(out, g.Descendants(child)...)
		}
	}
	return out
}

// ConnectedComponents partitions the non-master nodes into weakly connected
// components, each ordered by id; components are ordered by their smallest
// member.
func (g *Graph) ConnectedComponents() [][]NodeID {
	parent := map[NodeID]NodeID{}
	var find func(NodeID) NodeID
	find = func(id NodeID) NodeID {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	union := func(a, b NodeID) {
		ra, rb := find(a), find(b)
		if ra != rb {
			if ra < rb {
				parent[rb] = ra
			} else {
				parent[ra] = rb
			}
		}
	}

	for _, n := range g.Nodes() {
		if !n.IsMaster() {
			parent[n.ID] = n.ID
		}
	}
	for _, a := range g.Arcs() {
		src, dst := g.nodes[a.Src.Node], g.nodes[a.Dst.Node]
		if src == nil || dst == nil || src.IsMaster() || dst.IsMaster() {
			continue
		}
		union(src.ID, dst.ID)
	}

	groups := map[NodeID][]NodeID{}
	for id := range parent {
		root := find(id)
		groups[root] = append(groups[root], id)
	}

	var roots []NodeID
	for root := range groups {
		sort.Slice(groups[root], func(i, j int) bool { return groups[root][i] < groups[root][j] })
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	out := make([][]NodeID, 0, len(groups))
	for _, root := range roots {
		out = append(out, groups[root])
	}
	return out
}

// ConnectUnconnectedPorts wires every portless data port of the node to the
// unconnected master and returns the created arcs.
func (g *Graph) ConnectUnconnectedPorts(n *Node) []*Arc {
	var created []*Arc
	master := g.nodes[g.UnconnectedMaster]
	for _, p := range n.Inputs {
		if len(p.Arcs) == 0 {
			a, err := g.Connect(
				PortRef{Node: master.ID, Kind: PortOutput, Num: 0},
				PortRef{Node: n.ID, Kind: PortInput, Num: p.Num},
				BoolType, 0)
			if err == nil {
				created = append(created, a)
			}
		}
	}
	for _, p := range n.Outputs {
		if len(p.Arcs) == 0 {
			a, err := g.Connect(
				PortRef{Node: n.ID, Kind: PortOutput, Num: p.Num},
				PortRef{Node: master.ID, Kind: PortInput, Num: 0},
				BoolType, 0)
			if err == nil {
				created = append(created, a)
			}
		}
	}
	return created
}
