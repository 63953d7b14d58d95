package contexts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/internal/testutil"
	"github.com/dataflow-compiler/pkg/errors"
)

func TestDiscoverAndMark_TopLevelNodesHaveEmptyStacks(t *testing.T) {
	g := graph.New()
	a := testutil.Prim(g, "a", graph.InvalidNode)
	sub := g.NewNode(graph.KindSubsystem, "sub", graph.InvalidNode)
	b := testutil.Prim(g, "b", sub.ID)

	require.NoError(t, DiscoverAndMark(g, nil))

	assert.Empty(t, a.Context)
	assert.Empty(t, b.Context)
}

func TestDiscoverAndMark_EnabledSubsystem(t *testing.T) {
	g := graph.New()
	sub, _ := testutil.EnabledSubsystem(t, g, "gate", graph.InvalidNode)
	n1 := testutil.Prim(g, "n1", sub.ID)
	n2 := testutil.Prim(g, "n2", sub.ID)
	n3 := testutil.Prim(g, "n3", sub.ID)
	testutil.Connect(t, g, n1, 0, n2, 0)
	testutil.Connect(t, g, n2, 0, n3, 0)

	require.NoError(t, DiscoverAndMark(g, nil))

	want := graph.Context{Root: sub.ID, SubContext: 0}
	for _, n := range []*graph.Node{n1, n2, n3} {
		testutil.AssertContextStack(t, g, n, want)
	}
	assert.Empty(t, sub.Context)

	// Membership is recorded on the root.
	require.NotNil(t, sub.Root)
	assert.Len(t, sub.Root.SubContextNodes[0], 3)
	require.Len(t, sub.Root.DriverArcs, 1)
}

func TestDiscoverAndMark_NestedEnabledSubsystems(t *testing.T) {
	g := graph.New()
	outer, _ := testutil.EnabledSubsystem(t, g, "outer", graph.InvalidNode)
	inner, innerDriver := testutil.EnabledSubsystem(t, g, "inner", outer.ID)
	_ = innerDriver
	leaf := testutil.Prim(g, "leaf", inner.ID)

	require.NoError(t, DiscoverAndMark(g, nil))

	testutil.AssertContextStack(t, g, inner, graph.Context{Root: outer.ID, SubContext: 0})
	testutil.AssertContextStack(t, g, leaf,
		graph.Context{Root: outer.ID, SubContext: 0},
		graph.Context{Root: inner.ID, SubContext: 0})
}

func TestDiscoverAndMark_UnspecializedClockDomainFails(t *testing.T) {
	g := graph.New()
	g.NewNode(graph.KindClockDomain, "clk", graph.InvalidNode)

	err := DiscoverAndMark(g, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeContextError, errors.GetErrorCode(err))
}

func TestDiscoverAndMark_SpecializedClockDomain(t *testing.T) {
	g := graph.New()
	domain := g.NewNode(graph.KindUpsampleDomain, "up", graph.InvalidNode)
	inner := testutil.Prim(g, "inner", domain.ID)

	require.NoError(t, DiscoverAndMark(g, nil))

	testutil.AssertContextStack(t, g, inner, graph.Context{Root: domain.ID, SubContext: 0})
	assert.Equal(t, 2, domain.Root.NumSubContexts)
}

func TestDiscoverAndMark_MuxCapturesExclusiveBranch(t *testing.T) {
	g := graph.New()
	src := testutil.Prim(g, "src", graph.InvalidNode)
	branch0 := testutil.Prim(g, "branch0", graph.InvalidNode)
	branch1 := testutil.Prim(g, "branch1", graph.InvalidNode)
	mux, _ := testutil.Mux2(t, g, "mux", graph.InvalidNode)
	sink := testutil.Prim(g, "sink", graph.InvalidNode)

	testutil.Connect(t, g, src, 0, branch0, 0)
	testutil.Connect(t, g, src, 0, branch1, 0)
	testutil.Connect(t, g, branch0, 0, mux, 0)
	testutil.Connect(t, g, branch1, 0, mux, 1)
	testutil.Connect(t, g, mux, 0, sink, 0)

	require.NoError(t, DiscoverAndMark(g, nil))

	testutil.AssertContextStack(t, g, branch0, graph.Context{Root: mux.ID, SubContext: 0})
	testutil.AssertContextStack(t, g, branch1, graph.Context{Root: mux.ID, SubContext: 1})

	// src fans out to both branches, so only one of its arcs is marked per
	// sub-context walk and it never joins either context.
	assert.Empty(t, src.Context)
	assert.Empty(t, sink.Context)
	assert.Equal(t, 2, mux.Root.NumSubContexts)
}

func TestDiscoverAndMark_MuxStopsAtState(t *testing.T) {
	g := graph.New()
	src := testutil.Prim(g, "src", graph.InvalidNode)
	delay := testutil.DelayNode(g, "delay", graph.InvalidNode, 0)
	comb := testutil.Prim(g, "comb", graph.InvalidNode)
	mux, _ := testutil.Mux2(t, g, "mux", graph.InvalidNode)

	testutil.Connect(t, g, src, 0, delay, 0)
	testutil.Connect(t, g, delay, 0, comb, 0)
	testutil.Connect(t, g, comb, 0, mux, 0)
	other := testutil.Prim(g, "other", graph.InvalidNode)
	testutil.Connect(t, g, other, 0, mux, 1)

	require.NoError(t, DiscoverAndMark(g, nil))

	// The walk stops at the delay: comb joins, src and delay do not.
	testutil.AssertContextStack(t, g, comb, graph.Context{Root: mux.ID, SubContext: 0})
	assert.Empty(t, delay.Context)
	assert.Empty(t, src.Context)
}

func TestDiscoverAndMark_NestedMuxesAtOneLevel(t *testing.T) {
	g := graph.New()
	innerMux, _ := testutil.Mux2(t, g, "innerMux", graph.InvalidNode)
	outerMux, _ := testutil.Mux2(t, g, "outerMux", graph.InvalidNode)

	in0 := testutil.Prim(g, "in0", graph.InvalidNode)
	in1 := testutil.Prim(g, "in1", graph.InvalidNode)
	testutil.Connect(t, g, in0, 0, innerMux, 0)
	testutil.Connect(t, g, in1, 0, innerMux, 1)

	// The inner mux's output feeds outer mux input 0; a plain node feeds
	// input 1.
	testutil.Connect(t, g, innerMux, 0, outerMux, 0)
	side := testutil.Prim(g, "side", graph.InvalidNode)
	testutil.Connect(t, g, side, 0, outerMux, 1)

	sink := testutil.Prim(g, "sink", graph.InvalidNode)
	testutil.Connect(t, g, outerMux, 0, sink, 0)

	require.NoError(t, DiscoverAndMark(g, nil))

	// The inner mux is captured by the outer mux's input-0 context, so its
	// own branches carry both frames, outermost first.
	testutil.AssertContextStack(t, g, innerMux, graph.Context{Root: outerMux.ID, SubContext: 0})
	testutil.AssertContextStack(t, g, in0,
		graph.Context{Root: outerMux.ID, SubContext: 0},
		graph.Context{Root: innerMux.ID, SubContext: 0})
	testutil.AssertContextStack(t, g, in1,
		graph.Context{Root: outerMux.ID, SubContext: 0},
		graph.Context{Root: innerMux.ID, SubContext: 1})
	testutil.AssertContextStack(t, g, side, graph.Context{Root: outerMux.ID, SubContext: 1})
}

func TestDiscoverAndMark_CombinationalLoopNeverSaturates(t *testing.T) {
	g := graph.New()
	a := testutil.Prim(g, "a", graph.InvalidNode)
	b := testutil.Prim(g, "b", graph.InvalidNode)
	mux, _ := testutil.Mux2(t, g, "mux", graph.InvalidNode)

	// a and b form a combinational loop feeding the mux.
	testutil.Connect(t, g, a, 0, b, 0)
	testutil.Connect(t, g, b, 0, a, 0)
	testutil.Connect(t, g, a, 0, mux, 0)
	other := testutil.Prim(g, "other", graph.InvalidNode)
	testutil.Connect(t, g, other, 0, mux, 1)

	// Cyclic marking is not an error here; the loop nodes simply never
	// join the context.
	require.NoError(t, DiscoverAndMark(g, nil))
	assert.Empty(t, a.Context)
	assert.Empty(t, b.Context)
}

func TestCreateEnableOutputsForVisualization(t *testing.T) {
	g := graph.New()
	sub, driver := testutil.EnabledSubsystem(t, g, "gate", graph.InvalidNode)
	inner := testutil.Prim(g, "inner", sub.ID)
	visArc := testutil.ConnectToMaster(t, g, inner, 0, g.VisMaster)

	require.NoError(t, CreateEnableOutputsForVisualization(g, nil))

	// The arc now originates at a synthesized enable output inside the
	// subsystem.
	newSrc := g.Node(visArc.Src.Node)
	require.NotNil(t, newSrc)
	assert.Equal(t, graph.KindEnableOutput, newSrc.Kind)
	assert.Equal(t, sub.ID, newSrc.Parent)

	// The latch is fed by the tapped port and gated by the enable driver.
	inputArcs := g.PortArcs(newSrc.InputPort(0))
	require.Len(t, inputArcs, 1)
	assert.Equal(t, inner.ID, inputArcs[0].Src.Node)

	enableArcs := g.PortArcs(newSrc.EnablePort())
	require.Len(t, enableArcs, 1)
	assert.Equal(t, driver.ID, enableArcs[0].Src.Node)
}

func TestCreateEnableOutputsForVisualization_NoEnabledAncestors(t *testing.T) {
	g := graph.New()
	n := testutil.Prim(g, "n", graph.InvalidNode)
	visArc := testutil.ConnectToMaster(t, g, n, 0, g.VisMaster)

	require.NoError(t, CreateEnableOutputsForVisualization(g, nil))
	assert.Equal(t, n.ID, visArc.Src.Node)
}
