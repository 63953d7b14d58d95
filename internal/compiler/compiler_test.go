package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/internal/scheduler"
	"github.com/dataflow-compiler/internal/testutil"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/model"
)

func defaultRequest() *model.CompileRequest {
	return &model.CompileRequest{
		DesignName:         "test",
		Heuristic:          "bfs",
		SchedulePartitions: true,
		FIFOLength:         8,
	}
}

// Pure combinational chain: input -> compare against a constant -> output.
// One partition, no FIFOs, no state updates; compare precedes the output
// master in the schedule.
func TestCompile_PureCombinationalChain(t *testing.T) {
	g := graph.New()
	compare := testutil.Prim(g, "compare", graph.InvalidNode)
	compare.Prim = &graph.PrimitiveData{Op: "Compare", CompareOp: ">"}
	compare.Partition = 0
	zero := testutil.Const(g, "zero", graph.InvalidNode, 0)
	zero.Partition = 0
	testutil.ConnectFromInput(t, g, compare, 0)
	testutil.Connect(t, g, zero, 0, compare, 1)
	testutil.ConnectToMaster(t, g, compare, 0, g.OutputMaster)

	plan, report, err := New(nil).Compile(context.Background(), g, defaultRequest())
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.True(t, report.Succeeded())
	assert.Equal(t, 0, report.ExitCode)
	assert.Equal(t, 0, report.FIFOCount)

	for _, n := range g.Nodes() {
		assert.NotEqual(t, graph.KindStateUpdate, n.Kind)
		assert.NotEqual(t, graph.KindFIFO, n.Kind)
	}
	assert.Equal(t, 0, compare.SchedOrder)

	// The output master is guaranteed to appear in the schedule even under
	// partitioned scheduling: it runs with the I/O thread.
	outputMaster := g.Node(g.OutputMaster)
	require.GreaterOrEqual(t, outputMaster.SchedOrder, 0)
	assert.Equal(t, scheduler.IOPartition, outputMaster.Partition)

	var planned bool
	for _, pp := range plan.Partitions {
		for _, node := range pp.Nodes {
			if node.BlockFunction == "MasterOutput" {
				planned = true
				assert.Equal(t, scheduler.IOPartition, pp.Partition)
			}
		}
	}
	assert.True(t, planned, "output master must appear in the emitted plan")
}

// Single enabled subsystem: the three inner nodes land in one context
// container and are scheduled after their family container.
func TestCompile_EnabledSubsystem(t *testing.T) {
	g := graph.New()
	sub, driver := testutil.EnabledSubsystem(t, g, "gate", graph.InvalidNode)
	driver.Partition = 0
	n1 := testutil.Prim(g, "n1", sub.ID)
	n2 := testutil.Prim(g, "n2", sub.ID)
	enOut := g.NewNode(graph.KindEnableOutput, "enOut", sub.ID)
	for _, n := range []*graph.Node{n1, n2} {
		n.Partition = 0
	}
	testutil.ConnectFromInput(t, g, n1, 0)
	testutil.Connect(t, g, n1, 0, n2, 0)
	testutil.Connect(t, g, n2, 0, enOut, 0)
	testutil.ConnectToMaster(t, g, enOut, 0, g.OutputMaster)

	plan, report, err := New(nil).Compile(context.Background(), g, defaultRequest())
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.True(t, report.Succeeded())

	// The inner nodes live under a context container inside the family
	// container.
	container := testutil.AssertParentKind(t, g, n1, graph.KindContextContainer)
	require.NotNil(t, container)
	family := testutil.AssertParentKind(t, g, container, graph.KindFamilyContainer)
	require.NotNil(t, family)

	// One latch-style state update exists for the enable output.
	var updates []*graph.Node
	for _, n := range g.Nodes() {
		if n.Kind == graph.KindStateUpdate {
			updates = append(updates, n)
		}
	}
	require.Len(t, updates, 1)
	assert.Equal(t, enOut.ID, updates[0].Update.Primary)

	testutil.AssertScheduledBefore(t, g, family, n1)
	testutil.AssertScheduledBefore(t, g, n1, n2)
	testutil.AssertScheduledBefore(t, g, n2, enOut)
	testutil.AssertScheduledBefore(t, g, enOut, updates[0])
}

// Two partitions with a delay on the boundary: after the FIFO pass one FIFO
// carries the delay's [0,0,0] initial conditions and the delay is gone.
func TestCompile_DelayAbsorbedIntoBoundaryFIFO(t *testing.T) {
	g := graph.New()
	src := testutil.Prim(g, "src", graph.InvalidNode)
	src.Partition = 0
	delay := testutil.DelayNode(g, "boundary", graph.InvalidNode, 0, 0, 0)
	delay.Partition = 0
	dst := testutil.Prim(g, "dst", graph.InvalidNode)
	dst.Partition = 1
	testutil.ConnectFromInput(t, g, src, 0)
	testutil.Connect(t, g, src, 0, delay, 0)
	testutil.Connect(t, g, delay, 0, dst, 0)
	testutil.ConnectToMaster(t, g, dst, 0, g.OutputMaster)

	plan, report, err := New(nil).Compile(context.Background(), g, defaultRequest())
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Equal(t, 1, report.FIFOCount)

	assert.Nil(t, g.Node(delay.ID), "boundary delay should be absorbed")

	var fifo *graph.Node
	for _, n := range g.Nodes() {
		if n.Kind == graph.KindFIFO {
			fifo = n
		}
	}
	require.NotNil(t, fifo)
	assert.GreaterOrEqual(t, fifo.FIFO.Length, 4)
	assert.Len(t, fifo.FIFO.InitConditions(0), 3)

	require.Len(t, plan.FIFOs, 1)
	assert.Equal(t, 0, plan.FIFOs[0].SrcPartition)
	assert.Equal(t, 1, plan.FIFOs[0].DstPartition)
}

func TestCompile_CycleReportsFailure(t *testing.T) {
	g := graph.New()
	a := testutil.Prim(g, "a", graph.InvalidNode)
	a.Partition = 0
	b := testutil.Prim(g, "b", graph.InvalidNode)
	b.Partition = 0
	testutil.Connect(t, g, a, 0, b, 0)
	testutil.Connect(t, g, b, 0, a, 0)
	testutil.ConnectToMaster(t, g, a, 0, g.OutputMaster)

	_, report, err := New(nil).Compile(context.Background(), g, defaultRequest())
	require.Error(t, err)
	assert.Equal(t, errors.CodeSchedulingCycle, errors.GetErrorCode(err))
	assert.Equal(t, errors.ExitSchedulingCycle, report.ExitCode)
	assert.False(t, report.Succeeded())
}

func TestCompile_UnspecializedClockDomainExitStatus(t *testing.T) {
	g := graph.New()
	clk := g.NewNode(graph.KindClockDomain, "clk", graph.InvalidNode)
	inner := testutil.Prim(g, "inner", clk.ID)
	inner.Partition = 0
	testutil.ConnectToMaster(t, g, inner, 0, g.OutputMaster)

	_, report, err := New(nil).Compile(context.Background(), g, defaultRequest())
	require.Error(t, err)
	assert.Equal(t, errors.ExitContextError, report.ExitCode)
}

func TestCompile_StrictMissingPartition(t *testing.T) {
	build := func() *graph.Graph {
		g := graph.New()
		sub := g.NewNode(graph.KindSubsystem, "wrapper", graph.InvalidNode)
		inner := testutil.Prim(g, "inner", sub.ID)
		testutil.ConnectFromInput(t, g, inner, 0)
		testutil.ConnectToMaster(t, g, inner, 0, g.OutputMaster)
		return g
	}

	// Non-strict mode warns and keeps going.
	_, report, err := New(nil).Compile(context.Background(), build(), defaultRequest())
	require.NoError(t, err)
	assert.True(t, report.Succeeded())

	// Strict mode fails with the missing-partition exit status.
	req := defaultRequest()
	req.Strict = true
	_, report, err = New(nil).Compile(context.Background(), build(), req)
	require.Error(t, err)
	assert.Equal(t, errors.ExitMissingPartition, report.ExitCode)
}

func TestCompile_ReportCarriesPassStats(t *testing.T) {
	g := graph.New()
	n := testutil.Prim(g, "n", graph.InvalidNode)
	n.Partition = 0
	testutil.ConnectFromInput(t, g, n, 0)
	testutil.ConnectToMaster(t, g, n, 0, g.OutputMaster)

	_, report, err := New(nil).Compile(context.Background(), g, defaultRequest())
	require.NoError(t, err)

	names := map[string]bool{}
	for _, p := range report.Passes {
		names[p.Name] = true
	}
	for _, want := range []string{"discover_contexts", "encapsulate", "insert_fifos", "schedule", "build_plan"} {
		assert.True(t, names[want], "missing pass stat %s", want)
	}
}
