package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CreatesMasters(t *testing.T) {
	g := New()

	for _, id := range []NodeID{g.InputMaster, g.OutputMaster, g.VisMaster, g.TerminatorMaster, g.UnconnectedMaster} {
		n := g.Node(id)
		require.NotNil(t, n)
		assert.True(t, n.IsMaster())
		assert.Equal(t, InvalidNode, n.Parent)
	}
	assert.Empty(t, g.TopLevelNodes())
}

func TestNewNode_Hierarchy(t *testing.T) {
	g := New()

	sub := g.NewNode(KindSubsystem, "sub", InvalidNode)
	leaf := g.NewNode(KindPrimitive, "leaf", sub.ID)

	assert.Equal(t, sub.ID, leaf.Parent)
	assert.Equal(t, []NodeID{leaf.ID}, sub.Children)

	top := g.TopLevelNodes()
	require.Len(t, top, 1)
	assert.Equal(t, sub.ID, top[0].ID)

	assert.Equal(t, "sub::leaf", g.FullyQualifiedName(leaf.ID))
}

func TestConnect_PortBookkeeping(t *testing.T) {
	g := New()
	a := g.NewNode(KindPrimitive, "a", InvalidNode)
	b := g.NewNode(KindPrimitive, "b", InvalidNode)

	arc, err := g.ConnectNodes(a, 0, b, 0, Int32Type, 1)
	require.NoError(t, err)

	assert.Contains(t, a.OutputPort(0).Arcs, arc.ID)
	assert.Contains(t, b.InputPort(0).Arcs, arc.ID)
	assert.Equal(t, 1, g.OutDegree(a))
	assert.Equal(t, 1, g.InDegree(b))

	g.RemoveArc(arc)
	assert.Empty(t, a.OutputPort(0).Arcs)
	assert.Empty(t, b.InputPort(0).Arcs)
	assert.Nil(t, g.Arc(arc.ID))
}

func TestConnect_RejectsWrongPortSides(t *testing.T) {
	g := New()
	a := g.NewNode(KindPrimitive, "a", InvalidNode)
	b := g.NewNode(KindPrimitive, "b", InvalidNode)

	_, err := g.Connect(
		PortRef{Node: a.ID, Kind: PortInput, Num: 0},
		PortRef{Node: b.ID, Kind: PortInput, Num: 0},
		Int32Type, 0)
	assert.Error(t, err)

	_, err = g.Connect(
		PortRef{Node: a.ID, Kind: PortOutput, Num: 0},
		PortRef{Node: b.ID, Kind: PortOutput, Num: 0},
		Int32Type, 0)
	assert.Error(t, err)
}

func TestConnectOrderConstraint(t *testing.T) {
	g := New()
	a := g.NewNode(KindPrimitive, "a", InvalidNode)
	b := g.NewNode(KindStateUpdate, "b_update", InvalidNode)

	arc, err := g.ConnectOrderConstraint(a, b)
	require.NoError(t, err)
	assert.True(t, arc.IsOrderConstraint())
	assert.Equal(t, 1, g.InDegree(b))
	assert.Equal(t, 0, len(b.Inputs))
}

func TestSetArcSrcDst(t *testing.T) {
	g := New()
	a := g.NewNode(KindPrimitive, "a", InvalidNode)
	b := g.NewNode(KindPrimitive, "b", InvalidNode)
	c := g.NewNode(KindPrimitive, "c", InvalidNode)

	arc, err := g.ConnectNodes(a, 0, b, 0, Int32Type, 0)
	require.NoError(t, err)

	g.SetArcSrc(arc, PortRef{Node: c.ID, Kind: PortOutput, Num: 0})
	assert.Empty(t, a.OutputPort(0).Arcs)
	assert.Contains(t, c.OutputPort(0).Arcs, arc.ID)

	g.SetArcDst(arc, PortRef{Node: a.ID, Kind: PortInput, Num: 0})
	assert.Empty(t, b.InputPort(0).Arcs)
	assert.Contains(t, a.InputPort(0).Arcs, arc.ID)
}

func TestRemoveNode_ScrubsReferences(t *testing.T) {
	g := New()
	mux := g.NewNode(KindMux, "mux", InvalidNode)
	member := g.NewNode(KindPrimitive, "member", InvalidNode)
	dummy := g.NewNode(KindDummyReplica, "dummy", InvalidNode)
	dummy.Dummy = &DummyReplicaData{Of: mux.ID}

	mux.AddSubContextNode(0, member.ID)
	mux.RootData().DummyReplicas[1] = dummy.ID

	g.RemoveNode(member)
	assert.Empty(t, mux.Root.SubContextNodes[0])

	g.RemoveNode(dummy)
	assert.Empty(t, mux.Root.DummyReplicas)
	assert.Nil(t, g.Node(member.ID))
}

func TestRemoveNode_DetachesArcsAndParent(t *testing.T) {
	g := New()
	sub := g.NewNode(KindSubsystem, "sub", InvalidNode)
	a := g.NewNode(KindPrimitive, "a", sub.ID)
	b := g.NewNode(KindPrimitive, "b", sub.ID)
	_, err := g.ConnectNodes(a, 0, b, 0, Int32Type, 0)
	require.NoError(t, err)

	g.RemoveNode(a)
	assert.Equal(t, []NodeID{b.ID}, sub.Children)
	assert.Equal(t, 0, g.InDegree(b))
	assert.Equal(t, 0, g.NumArcs())
}

func TestMoveNode(t *testing.T) {
	g := New()
	sub1 := g.NewNode(KindSubsystem, "sub1", InvalidNode)
	sub2 := g.NewNode(KindSubsystem, "sub2", InvalidNode)
	leaf := g.NewNode(KindPrimitive, "leaf", sub1.ID)

	g.MoveNode(leaf, sub2.ID)
	assert.Empty(t, sub1.Children)
	assert.Equal(t, []NodeID{leaf.ID}, sub2.Children)
	assert.Equal(t, sub2.ID, leaf.Parent)

	g.MoveNode(leaf, InvalidNode)
	assert.Empty(t, sub2.Children)
	assert.Contains(t, g.TopLevelNodes(), leaf)
}

func TestConnectedNeighbors_OrderedByID(t *testing.T) {
	g := New()
	src := g.NewNode(KindPrimitive, "src", InvalidNode)
	d1 := g.NewNode(KindPrimitive, "d1", InvalidNode)
	d2 := g.NewNode(KindPrimitive, "d2", InvalidNode)

	// Connect in reverse id order; the neighbor list must still come back
	// sorted by id.
	_, err := g.ConnectNodes(src, 0, d2, 0, Int32Type, 0)
	require.NoError(t, err)
	_, err = g.ConnectNodes(src, 0, d1, 0, Int32Type, 0)
	require.NoError(t, err)

	neighbors := g.ConnectedOutputNodes(src)
	require.Len(t, neighbors, 2)
	assert.Equal(t, d1.ID, neighbors[0].ID)
	assert.Equal(t, d2.ID, neighbors[1].ID)
}

func TestPartitions(t *testing.T) {
	g := New()
	a := g.NewNode(KindPrimitive, "a", InvalidNode)
	b := g.NewNode(KindPrimitive, "b", InvalidNode)
	g.NewNode(KindPrimitive, "c", InvalidNode) // stays unassigned

	a.Partition = 2
	b.Partition = 0

	assert.Equal(t, []int{0, 2}, g.Partitions())
}

func TestFindNodesStopAtFamilyContainers(t *testing.T) {
	g := New()
	sub := g.NewNode(KindSubsystem, "sub", InvalidNode)
	inner := g.NewNode(KindPrimitive, "inner", sub.ID)
	family := g.NewNode(KindFamilyContainer, "family", InvalidNode)
	g.NewNode(KindPrimitive, "hidden", family.ID)

	found := g.FindNodesStopAtFamilyContainers(g.TopLevelNodes())

	ids := map[NodeID]bool{}
	for _, n := range found {
		ids[n.ID] = true
	}
	assert.True(t, ids[sub.ID])
	assert.True(t, ids[inner.ID])
	assert.True(t, ids[family.ID])
	// Family container contents are not descended into.
	assert.Len(t, found, 3)
}

func TestFindNodesStopAtFamilyContainersInPartition(t *testing.T) {
	g := New()
	sub := g.NewNode(KindSubsystem, "sub", InvalidNode)
	sub.Partition = 0
	p0 := g.NewNode(KindPrimitive, "p0", sub.ID)
	p0.Partition = 0
	p1 := g.NewNode(KindPrimitive, "p1", sub.ID)
	p1.Partition = 1
	family0 := g.NewNode(KindFamilyContainer, "family0", InvalidNode)
	family0.Partition = 0
	family1 := g.NewNode(KindFamilyContainer, "family1", InvalidNode)
	family1.Partition = 1

	found := g.FindNodesStopAtFamilyContainersInPartition(g.TopLevelNodes(), 0)
	ids := map[NodeID]bool{}
	for _, n := range found {
		ids[n.ID] = true
	}
	assert.True(t, ids[sub.ID])
	assert.True(t, ids[p0.ID])
	assert.True(t, ids[family0.ID])
	assert.False(t, ids[p1.ID])
	assert.False(t, ids[family1.ID])
}

func TestConnectedComponents(t *testing.T) {
	g := New()
	a := g.NewNode(KindPrimitive, "a", InvalidNode)
	b := g.NewNode(KindPrimitive, "b", InvalidNode)
	c := g.NewNode(KindPrimitive, "c", InvalidNode)
	_, err := g.ConnectNodes(a, 0, b, 0, Int32Type, 0)
	require.NoError(t, err)

	components := g.ConnectedComponents()
	require.Len(t, components, 2)
	assert.Equal(t, []NodeID{a.ID, b.ID}, components[0])
	assert.Equal(t, []NodeID{c.ID}, components[1])
}

func TestConnectUnconnectedPorts(t *testing.T) {
	g := New()
	n := g.NewNode(KindPrimitive, "n", InvalidNode)
	n.InputPort(0)
	n.OutputPort(0)

	created := g.ConnectUnconnectedPorts(n)
	assert.Len(t, created, 2)
	assert.Equal(t, 1, len(n.InputPort(0).Arcs))
	assert.Equal(t, 1, len(n.OutputPort(0).Arcs))

	// Already connected ports are left alone.
	assert.Empty(t, g.ConnectUnconnectedPorts(n))
}

func TestAddRemoveNodesAndArcs(t *testing.T) {
	g := New()
	a := g.NewNode(KindPrimitive, "a", InvalidNode)
	b := g.NewNode(KindPrimitive, "b", InvalidNode)
	arc, err := g.ConnectNodes(a, 0, b, 0, Int32Type, 0)
	require.NoError(t, err)

	g.AddRemoveNodesAndArcs(nil, []*Node{b}, nil, []*Arc{arc})
	assert.Nil(t, g.Node(b.ID))
	assert.Nil(t, g.Arc(arc.ID))
	assert.Equal(t, 0, g.OutDegree(a))
}

func TestCapabilities(t *testing.T) {
	g := New()

	delay := g.NewNode(KindDelay, "delay", InvalidNode)
	assert.True(t, delay.HasState())
	assert.False(t, delay.HasCombinationalPath())

	enOut := g.NewNode(KindEnableOutput, "enOut", InvalidNode)
	assert.True(t, enOut.HasState())
	assert.True(t, enOut.HasCombinationalPath())

	fifo := g.NewNode(KindFIFO, "fifo", InvalidNode)
	assert.True(t, fifo.HasState())
	assert.False(t, fifo.HasCombinationalPath())

	bb := g.NewNode(KindBlackBox, "bb", InvalidNode)
	bb.Prim = &PrimitiveData{Stateful: true, CombPath: false}
	assert.True(t, bb.HasState())
	assert.False(t, bb.HasCombinationalPath())

	mux := g.NewNode(KindMux, "mux", InvalidNode)
	assert.True(t, mux.IsContextRoot())
	assert.False(t, mux.IsSubsystem())

	clk := g.NewNode(KindClockDomain, "clk", InvalidNode)
	assert.False(t, clk.IsContextRoot())
	assert.True(t, clk.IsSubsystem())

	up := g.NewNode(KindUpsampleDomain, "up", InvalidNode)
	assert.True(t, up.IsContextRoot())
	assert.True(t, up.IsSubsystem())
}

func TestContextHelpers(t *testing.T) {
	c1 := Context{Root: 1, SubContext: 0}
	c2 := Context{Root: 2, SubContext: 1}
	c3 := Context{Root: 3, SubContext: 0}

	assert.True(t, IsEqOrSubContext([]Context{c1, c2}, []Context{c1}))
	assert.True(t, IsEqOrSubContext([]Context{c1}, []Context{c1}))
	assert.True(t, IsEqOrSubContext([]Context{c1}, nil))
	assert.False(t, IsEqOrSubContext([]Context{c1}, []Context{c1, c2}))
	assert.False(t, IsEqOrSubContext([]Context{c3}, []Context{c1}))

	assert.Equal(t, 1, MostSpecificCommonContext([]Context{c1, c2, c3}, []Context{c1, c2}))
	assert.Equal(t, -1, MostSpecificCommonContext([]Context{c1}, []Context{c3}))
	assert.Equal(t, -1, MostSpecificCommonContext(nil, []Context{c1}))
}
