package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataflow-compiler/pkg/errors"
)

func TestValidate_CleanGraph(t *testing.T) {
	g := New()
	a := g.NewNode(KindPrimitive, "a", InvalidNode)
	b := g.NewNode(KindPrimitive, "b", InvalidNode)
	_, err := g.ConnectNodes(a, 0, b, 0, Int32Type, 0)
	require.NoError(t, err)

	assert.NoError(t, g.Validate(nil))
}

func TestValidate_DoubleDrivenInput(t *testing.T) {
	g := New()
	a := g.NewNode(KindPrimitive, "a", InvalidNode)
	b := g.NewNode(KindPrimitive, "b", InvalidNode)
	c := g.NewNode(KindPrimitive, "c", InvalidNode)
	_, err := g.ConnectNodes(a, 0, c, 0, Int32Type, 0)
	require.NoError(t, err)
	_, err = g.ConnectNodes(b, 0, c, 0, Int32Type, 0)
	require.NoError(t, err)

	err = g.Validate(nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeStructuralError, errors.GetErrorCode(err))
}

func TestValidate_EnablePortMustBeBool(t *testing.T) {
	g := New()
	driver := g.NewNode(KindPrimitive, "driver", InvalidNode)
	enabled := g.NewNode(KindEnableInput, "enIn", InvalidNode)

	_, err := g.Connect(
		PortRef{Node: driver.ID, Kind: PortOutput, Num: 0},
		PortRef{Node: enabled.ID, Kind: PortEnable},
		Int32Type, 0)
	require.NoError(t, err)

	err = g.Validate(nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeStructuralError, errors.GetErrorCode(err))
}

func TestValidate_OutputTypeMismatch(t *testing.T) {
	g := New()
	a := g.NewNode(KindPrimitive, "a", InvalidNode)
	b := g.NewNode(KindPrimitive, "b", InvalidNode)
	c := g.NewNode(KindPrimitive, "c", InvalidNode)
	_, err := g.ConnectNodes(a, 0, b, 0, Int32Type, 0)
	require.NoError(t, err)
	_, err = g.ConnectNodes(a, 0, c, 0, DoubleType, 0)
	require.NoError(t, err)

	err = g.Validate(nil)
	require.Error(t, err)
}

func TestValidate_StaleStateUpdatePrimary(t *testing.T) {
	g := New()
	update := g.NewNode(KindStateUpdate, "upd", InvalidNode)
	update.Update = &StateUpdateData{Primary: 9999}

	err := g.Validate(nil)
	require.Error(t, err)
}

func TestValidateFIFO(t *testing.T) {
	build := func(initLen int, fifoLen int) (*Graph, *Node) {
		g := New()
		src := g.NewNode(KindPrimitive, "src", InvalidNode)
		src.Partition = 0
		dst := g.NewNode(KindPrimitive, "dst", InvalidNode)
		dst.Partition = 1
		fifo := g.NewNode(KindFIFO, "fifo", InvalidNode)
		fifo.Partition = 0
		init := make([]NumericValue, initLen)
		fifo.FIFO = &FIFOData{Length: fifoLen, Init: [][]NumericValue{init}}

		_, err := g.ConnectNodes(src, 0, fifo, 0, Int32Type, 0)
		require.NoError(t, err)
		_, err = g.ConnectNodes(fifo, 0, dst, 0, Int32Type, 0)
		require.NoError(t, err)
		return g, fifo
	}

	t.Run("valid", func(t *testing.T) {
		g, _ := build(3, 8)
		assert.NoError(t, g.Validate(nil))
	})

	t.Run("init exceeds capacity", func(t *testing.T) {
		g, _ := build(9, 8)
		err := g.Validate(nil)
		require.Error(t, err)
		assert.Equal(t, errors.CodeFIFOError, errors.GetErrorCode(err))
	})

	t.Run("init not multiple of block unit", func(t *testing.T) {
		g, fifo := build(3, 8)
		fifo.FIFO.BlockSizes = []int{2}
		err := g.Validate(nil)
		require.Error(t, err)
		assert.Equal(t, errors.CodeFIFOError, errors.GetErrorCode(err))
	})

	t.Run("sub-block must divide block", func(t *testing.T) {
		g, fifo := build(0, 8)
		fifo.FIFO.BlockSizes = []int{4}
		fifo.FIFO.SubBlockIn = []int{4}
		fifo.FIFO.SubBlockOut = []int{3}
		err := g.Validate(nil)
		require.Error(t, err)
	})

	t.Run("outputs to two partitions", func(t *testing.T) {
		g, fifo := build(0, 8)
		other := g.NewNode(KindPrimitive, "other", InvalidNode)
		other.Partition = 2
		_, err := g.ConnectNodes(fifo, 0, other, 0, Int32Type, 0)
		require.NoError(t, err)
		err = g.Validate(nil)
		require.Error(t, err)
	})

	t.Run("fifo in wrong partition", func(t *testing.T) {
		g, fifo := build(0, 8)
		fifo.Partition = 1
		err := g.Validate(nil)
		require.Error(t, err)
	})
}
