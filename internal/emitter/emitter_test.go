package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/internal/testutil"
)

func TestBuildPlan_PartitionOrdering(t *testing.T) {
	g := graph.New()
	a := testutil.Prim(g, "a", graph.InvalidNode)
	a.Partition = 0
	a.SchedOrder = 1
	b := testutil.Prim(g, "b", graph.InvalidNode)
	b.Partition = 0
	b.SchedOrder = 0
	c := testutil.Prim(g, "c", graph.InvalidNode)
	c.Partition = 1
	c.SchedOrder = 0
	unscheduled := testutil.Prim(g, "unscheduled", graph.InvalidNode)
	_ = unscheduled

	plan, err := New(nil).BuildPlan(g, "demo")
	require.NoError(t, err)

	require.Len(t, plan.Partitions, 2)
	assert.Equal(t, 0, plan.Partitions[0].Partition)
	require.Len(t, plan.Partitions[0].Nodes, 2)
	assert.Equal(t, "b", plan.Partitions[0].Nodes[0].Name)
	assert.Equal(t, "a", plan.Partitions[0].Nodes[1].Name)
	require.Len(t, plan.Partitions[1].Nodes, 1)
	assert.Equal(t, "c", plan.Partitions[1].Nodes[0].Name)
}

func TestBuildPlan_DelayContract(t *testing.T) {
	g := graph.New()
	delay := testutil.DelayNode(g, "tap", graph.InvalidNode, 0, 0)
	delay.Partition = 0
	delay.SchedOrder = 0
	sink := testutil.Prim(g, "sink", graph.InvalidNode)
	testutil.Connect(t, g, delay, 0, sink, 0)

	plan, err := New(nil).BuildPlan(g, "demo")
	require.NoError(t, err)

	node := plan.Partitions[0].Nodes[0]
	require.Len(t, node.Contract.StateVariables, 1)
	sv := node.Contract.StateVariables[0]
	assert.Contains(t, sv.Name, "tap_n")
	assert.Contains(t, sv.Name, "_state")
	assert.Equal(t, "int32", sv.TypeName)
	assert.Equal(t, "[0, 0]", sv.Initial)
}

func TestBuildPlan_FIFODescriptor(t *testing.T) {
	g := graph.New()
	src := testutil.Prim(g, "src", graph.InvalidNode)
	src.Partition = 0
	dst := testutil.Prim(g, "dst", graph.InvalidNode)
	dst.Partition = 1

	fifo := g.NewNode(graph.KindFIFO, "xing", graph.InvalidNode)
	fifo.Partition = 0
	fifo.SchedOrder = 1
	fifo.FIFO = &graph.FIFOData{
		Length:     8,
		Mode:       graph.CopyFastUnaligned,
		BlockSizes: []int{2},
		Init:       [][]graph.NumericValue{{{Real: 0}, {Real: 0}}},
	}
	testutil.Connect(t, g, src, 0, fifo, 0)
	testutil.Connect(t, g, fifo, 0, dst, 0)

	plan, err := New(nil).BuildPlan(g, "demo")
	require.NoError(t, err)

	require.Len(t, plan.FIFOs, 1)
	desc := plan.FIFOs[0]
	assert.Regexp(t, `^xing_n\d+_t$`, desc.TypeName)
	assert.Equal(t, 0, desc.SrcPartition)
	assert.Equal(t, 1, desc.DstPartition)
	assert.Equal(t, "FAST_COPY_UNALIGNED", desc.CopyMode)
	require.Len(t, desc.Ports, 1)
	assert.Equal(t, 2, desc.Ports[0].BlockSize)
	assert.Equal(t, []string{"0", "0"}, desc.Ports[0].InitialConditions)
}

// Sub-blocked inner product: two length-8 vector inputs with sub-blocking
// length 2 shape a 2-lane accumulator, an outer loop over 4 steps, and an
// inner loop over the 2 lanes.
func TestInnerProductShim_SubBlocked(t *testing.T) {
	g := graph.New()
	vecType := graph.DataType{Signed: true, TotalBits: 32, Dimensions: []int{8}}
	a := testutil.Prim(g, "a", graph.InvalidNode)
	b := testutil.Prim(g, "b", graph.InvalidNode)
	ip := testutil.Prim(g, "dot", graph.InvalidNode)
	ip.Prim = &graph.PrimitiveData{Op: "InnerProduct", Conjugate: "None"}
	ip.SubBlockingLen = 2
	ip.Partition = 0
	ip.SchedOrder = 0
	testutil.ConnectTyped(t, g, a, 0, ip, 0, vecType)
	testutil.ConnectTyped(t, g, b, 0, ip, 1, vecType)

	e := New(nil)
	RegisterBuiltinShims(e)
	plan, err := e.BuildPlan(g, "demo")
	require.NoError(t, err)

	contract := plan.Partitions[0].Nodes[0].Contract
	require.Len(t, contract.StateVariables, 1)
	assert.Contains(t, contract.StateVariables[0].Name, "[2]")

	require.GreaterOrEqual(t, len(contract.NextStateExpressions), 3)
	assert.Contains(t, contract.NextStateExpressions[0], "i < 4")
	assert.Contains(t, contract.NextStateExpressions[1], "j < 2")
}

func TestCompareShim(t *testing.T) {
	g := graph.New()
	cmp := testutil.Prim(g, "cmp", graph.InvalidNode)
	cmp.Prim = &graph.PrimitiveData{Op: "Compare", CompareOp: ">="}
	cmp.Partition = 0
	cmp.SchedOrder = 0

	e := New(nil)
	RegisterBuiltinShims(e)
	plan, err := e.BuildPlan(g, "demo")
	require.NoError(t, err)

	contract := plan.Partitions[0].Nodes[0].Contract
	require.Len(t, contract.NextStateExpressions, 1)
	assert.Contains(t, contract.NextStateExpressions[0], ">=")
}
