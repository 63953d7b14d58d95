package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataflow-compiler/internal/contexts"
	"github.com/dataflow-compiler/internal/encapsulate"
	"github.com/dataflow-compiler/internal/fifos"
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/internal/synthesis"
	"github.com/dataflow-compiler/internal/testutil"
	"github.com/dataflow-compiler/pkg/errors"
)

func TestSchedule_PureCombinationalChain(t *testing.T) {
	g := graph.New()
	compare := testutil.Prim(g, "compare", graph.InvalidNode)
	compare.Prim = &graph.PrimitiveData{Op: "Compare", CompareOp: ">"}
	zero := testutil.Const(g, "zero", graph.InvalidNode, 0)

	testutil.ConnectFromInput(t, g, compare, 0)
	testutil.Connect(t, g, zero, 0, compare, 1)
	testutil.ConnectToMaster(t, g, compare, 0, g.OutputMaster)

	_, err := Schedule(g, Options{Params: Params{Heuristic: HeuristicBFS}}, nil)
	require.NoError(t, err)

	// Schedule is [compare, output master]; the canonical graph keeps all
	// its arcs.
	assert.Equal(t, 0, compare.SchedOrder)
	assert.Equal(t, 1, g.Node(g.OutputMaster).SchedOrder)
	assert.Equal(t, 3, g.NumArcs())
}

func TestSchedule_StatefulBreaksDependency(t *testing.T) {
	g := graph.New()
	src := testutil.Prim(g, "src", graph.InvalidNode)
	delay := testutil.DelayNode(g, "delay", graph.InvalidNode, 0)
	consumer := testutil.Prim(g, "consumer", graph.InvalidNode)
	testutil.ConnectFromInput(t, g, src, 0)
	testutil.Connect(t, g, src, 0, delay, 0)
	testutil.Connect(t, g, delay, 0, consumer, 0)
	testutil.ConnectToMaster(t, g, consumer, 0, g.OutputMaster)

	require.NoError(t, synthesis.CreateStateUpdateNodes(g, false, nil))

	_, err := Schedule(g, Options{Params: Params{Heuristic: HeuristicBFS}}, nil)
	require.NoError(t, err)

	// The delay's output does not constrain the consumer, but the state
	// update runs after both the consumer and the delay.
	var update *graph.Node
	for _, n := range g.Nodes() {
		if n.Kind == graph.KindStateUpdate {
			update = n
		}
	}
	require.NotNil(t, update)
	testutil.AssertScheduledBefore(t, g, consumer, update)
	testutil.AssertScheduledBefore(t, g, delay, update)
}

func TestSchedule_CycleDetection(t *testing.T) {
	g := graph.New()
	a := testutil.Prim(g, "a", graph.InvalidNode)
	b := testutil.Prim(g, "b", graph.InvalidNode)
	testutil.Connect(t, g, a, 0, b, 0)
	testutil.Connect(t, g, b, 0, a, 0)
	testutil.ConnectToMaster(t, g, a, 0, g.OutputMaster)

	_, err := Schedule(g, Options{Params: Params{Heuristic: HeuristicBFS}}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeSchedulingCycle, errors.GetErrorCode(err))

	// The diagnostic lists both surviving nodes and their residual inputs.
	msg := err.Error()
	assert.Contains(t, msg, "a")
	assert.Contains(t, msg, "b")
	assert.Contains(t, msg, "in-degree")
}

func TestSchedule_EnabledSubsystemHierarchy(t *testing.T) {
	g := graph.New()
	sub, driver := testutil.EnabledSubsystem(t, g, "gate", graph.InvalidNode)
	driver.Partition = 0
	n1 := testutil.Prim(g, "n1", sub.ID)
	n2 := testutil.Prim(g, "n2", sub.ID)
	n3 := testutil.Prim(g, "n3", sub.ID)
	for _, n := range []*graph.Node{n1, n2, n3} {
		n.Partition = 0
	}
	testutil.Connect(t, g, n1, 0, n2, 0)
	testutil.Connect(t, g, n2, 0, n3, 0)
	sink := testutil.Prim(g, "sink", graph.InvalidNode)
	sink.Partition = 0
	testutil.Connect(t, g, n3, 0, sink, 0)
	testutil.ConnectToMaster(t, g, sink, 0, g.OutputMaster)

	require.NoError(t, contexts.DiscoverAndMark(g, nil))
	require.NoError(t, encapsulate.PlaceEnableNodesInPartitions(g, nil))
	require.NoError(t, encapsulate.Encapsulate(g, nil))

	_, err := Schedule(g, Options{
		Params:         Params{Heuristic: HeuristicBFS},
		RewireContexts: true,
	}, nil)
	require.NoError(t, err)

	// The family container is scheduled whole: container first, then its
	// contents in dependency order, then the downstream sink.
	family := g.Node(sub.Root.FamilyContainers[0])
	require.NotNil(t, family)
	testutil.AssertScheduledBefore(t, g, family, n1)
	testutil.AssertScheduledBefore(t, g, n1, n2)
	testutil.AssertScheduledBefore(t, g, n2, n3)
	testutil.AssertScheduledBefore(t, g, n3, sink)
}

func TestSchedule_MuxHierarchyDFS(t *testing.T) {
	g := graph.New()
	b0 := testutil.Prim(g, "b0", graph.InvalidNode)
	b0.Partition = 0
	b1 := testutil.Prim(g, "b1", graph.InvalidNode)
	b1.Partition = 0
	mux, sel := testutil.Mux2(t, g, "mux", graph.InvalidNode)
	mux.Partition = 0
	sel.Partition = 0
	sink := testutil.Prim(g, "sink", graph.InvalidNode)
	sink.Partition = 0

	testutil.Connect(t, g, b0, 0, mux, 0)
	testutil.Connect(t, g, b1, 0, mux, 1)
	testutil.Connect(t, g, mux, 0, sink, 0)
	testutil.ConnectToMaster(t, g, sink, 0, g.OutputMaster)

	require.NoError(t, contexts.DiscoverAndMark(g, nil))
	require.NoError(t, synthesis.CreateContextVariableUpdateNodes(g, true, nil))
	require.NoError(t, encapsulate.Encapsulate(g, nil))

	_, err := Schedule(g, Options{
		Params:         Params{Heuristic: HeuristicDFS},
		RewireContexts: true,
	}, nil)
	require.NoError(t, err)

	family := g.Node(mux.Root.FamilyContainers[0])
	require.NotNil(t, family)

	// Family container, then sub-context 0 contents, then sub-context 1
	// contents, then the mux root, then the downstream consumer.
	var updates []*graph.Node
	for _, n := range g.Nodes() {
		if n.Kind == graph.KindContextVarUpdate {
			updates = append(updates, n)
		}
	}
	require.Len(t, updates, 2)

	testutil.AssertScheduledBefore(t, g, family, b0)
	testutil.AssertScheduledBefore(t, g, b0, updates[0])
	testutil.AssertScheduledBefore(t, g, updates[0], b1)
	testutil.AssertScheduledBefore(t, g, b1, updates[1])
	testutil.AssertScheduledBefore(t, g, updates[1], mux)
	testutil.AssertScheduledBefore(t, g, mux, sink)
}

func TestSchedule_PartitionedWithFIFO(t *testing.T) {
	g := graph.New()
	src := testutil.Prim(g, "src", graph.InvalidNode)
	src.Partition = 0
	dst := testutil.Prim(g, "dst", graph.InvalidNode)
	dst.Partition = 1
	testutil.ConnectFromInput(t, g, src, 0)
	testutil.Connect(t, g, src, 0, dst, 0)

	fifoMap, err := fifos.InsertPartitionCrossingFIFOs(g, fifos.InsertOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, fifoMap[fifos.PartitionPair{Src: 0, Dst: 1}], 1)
	fifo := fifoMap[fifos.PartitionPair{Src: 0, Dst: 1}][0]

	require.NoError(t, synthesis.CreateStateUpdateNodes(g, true, nil))

	_, err = Schedule(g, Options{
		Params:             Params{Heuristic: HeuristicBFS},
		RewireContexts:     true,
		SchedulePartitions: true,
	}, nil)
	require.NoError(t, err)

	// Partition 0 scheduled src then the FIFO; partition 1 scheduled the
	// consumer independently.
	testutil.AssertScheduledBefore(t, g, src, fifo)
	assert.GreaterOrEqual(t, dst.SchedOrder, 0)

	// The masters are scheduled with the I/O thread after all partitions.
	outputMaster := g.Node(g.OutputMaster)
	assert.GreaterOrEqual(t, outputMaster.SchedOrder, 0)
	assert.Equal(t, IOPartition, outputMaster.Partition)
	assert.GreaterOrEqual(t, g.Node(g.VisMaster).SchedOrder, 0)
}

func TestSchedule_RandomHeuristicDeterministic(t *testing.T) {
	build := func() (*graph.Graph, []*graph.Node) {
		g := graph.New()
		var nodes []*graph.Node
		for _, name := range []string{"a", "b", "c", "d", "e"} {
			n := testutil.Prim(g, name, graph.InvalidNode)
			testutil.ConnectToMaster(t, g, n, 0, g.OutputMaster)
			nodes = append(nodes, n)
		}
		return g, nodes
	}

	orders := func(seed uint64) []int {
		g, nodes := build()
		_, err := Schedule(g, Options{Params: Params{Heuristic: HeuristicRandom, Seed: seed}}, nil)
		require.NoError(t, err)
		var out []int
		for _, n := range nodes {
			out = append(out, n.SchedOrder)
		}
		return out
	}

	assert.Equal(t, orders(42), orders(42))
	assert.Equal(t, orders(7), orders(7))
}

func TestParseHeuristic(t *testing.T) {
	tests := []struct {
		input   string
		want    Heuristic
		wantErr bool
	}{
		{"bfs", HeuristicBFS, false},
		{"DFS", HeuristicDFS, false},
		{"random", HeuristicRandom, false},
		{" rand ", HeuristicRandom, false},
		{"fancy", HeuristicBFS, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHeuristic(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
