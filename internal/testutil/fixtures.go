// Package testutil provides graph fixtures and assertion helpers shared by
// the compiler pass tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dataflow-compiler/internal/graph"
)

// Prim creates a primitive compute node.
func Prim(g *graph.Graph, name string, parent graph.NodeID) *graph.Node {
	return g.NewNode(graph.KindPrimitive, name, parent)
}

// Const creates a constant node with the given literal.
func Const(g *graph.Graph, name string, parent graph.NodeID, value float64) *graph.Node {
	n := g.NewNode(graph.KindConstant, name, parent)
	n.Prim = &graph.PrimitiveData{Op: "Constant", Values: []graph.NumericValue{{Real: value}}}
	return n
}

// DelayNode creates a delay with the given initial conditions.
func DelayNode(g *graph.Graph, name string, parent graph.NodeID, init ...float64) *graph.Node {
	n := g.NewNode(graph.KindDelay, name, parent)
	values := make([]graph.NumericValue, len(init))
	for i, v := range init {
		values[i] = graph.NumericValue{Real: v}
	}
	n.Delay = &graph.DelayData{Depth: len(init), Init: values}
	return n
}

// Connect wires src output port sp to dst input port dp with an int32 scalar.
func Connect(t *testing.T, g *graph.Graph, src *graph.Node, sp int, dst *graph.Node, dp int) *graph.Arc {
	t.Helper()
	a, err := g.ConnectNodes(src, sp, dst, dp, graph.Int32Type, 1)
	require.NoError(t, err)
	return a
}

// ConnectTyped wires two data ports with an explicit type.
func ConnectTyped(t *testing.T, g *graph.Graph, src *graph.Node, sp int, dst *graph.Node, dp int, dt graph.DataType) *graph.Arc {
	t.Helper()
	a, err := g.ConnectNodes(src, sp, dst, dp, dt, 1)
	require.NoError(t, err)
	return a
}

// ConnectEnable wires a boolean arc from src output port 0 to dst's enable
// port.
func ConnectEnable(t *testing.T, g *graph.Graph, src *graph.Node, dst *graph.Node) *graph.Arc {
	t.Helper()
	a, err := g.Connect(
		graph.PortRef{Node: src.ID, Kind: graph.PortOutput, Num: 0},
		graph.PortRef{Node: dst.ID, Kind: graph.PortEnable},
		graph.BoolType, 1)
	require.NoError(t, err)
	return a
}

// ConnectSelect wires an int32 arc from src output port 0 to dst's select
// port.
func ConnectSelect(t *testing.T, g *graph.Graph, src *graph.Node, dst *graph.Node) *graph.Arc {
	t.Helper()
	a, err := g.Connect(
		graph.PortRef{Node: src.ID, Kind: graph.PortOutput, Num: 0},
		graph.PortRef{Node: dst.ID, Kind: graph.PortSelect},
		graph.Int32Type, 1)
	require.NoError(t, err)
	return a
}

// ConnectToMaster wires a node output to one of the graph's masters.
func ConnectToMaster(t *testing.T, g *graph.Graph, src *graph.Node, sp int, master graph.NodeID) *graph.Arc {
	t.Helper()
	a, err := g.Connect(
		graph.PortRef{Node: src.ID, Kind: graph.PortOutput, Num: sp},
		graph.PortRef{Node: master, Kind: graph.PortInput, Num: 0},
		graph.Int32Type, 1)
	require.NoError(t, err)
	return a
}

// ConnectFromInput wires the input master to a node's data input port.
func ConnectFromInput(t *testing.T, g *graph.Graph, dst *graph.Node, dp int) *graph.Arc {
	t.Helper()
	a, err := g.Connect(
		graph.PortRef{Node: g.InputMaster, Kind: graph.PortOutput, Num: 0},
		graph.PortRef{Node: dst.ID, Kind: graph.PortInput, Num: dp},
		graph.Int32Type, 1)
	require.NoError(t, err)
	return a
}

// EnabledSubsystem creates an enabled subsystem gated by a boolean constant
// driver and returns both.
func EnabledSubsystem(t *testing.T, g *graph.Graph, name string, parent graph.NodeID) (*graph.Node, *graph.Node) {
	t.Helper()
	driver := g.NewNode(graph.KindConstant, name+"_en", parent)
	driver.Prim = &graph.PrimitiveData{Op: "Constant", Values: []graph.NumericValue{{Real: 1}}}
	sub := g.NewNode(graph.KindEnabledSubsystem, name, parent)
	a, err := g.Connect(
		graph.PortRef{Node: driver.ID, Kind: graph.PortOutput, Num: 0},
		graph.PortRef{Node: sub.ID, Kind: graph.PortEnable},
		graph.BoolType, 1)
	require.NoError(t, err)
	_ = a
	return sub, driver
}

// Mux2 creates a two-input mux with a select driver and returns both.
func Mux2(t *testing.T, g *graph.Graph, name string, parent graph.NodeID) (*graph.Node, *graph.Node) {
	t.Helper()
	mux := g.NewNode(graph.KindMux, name, parent)
	mux.InputPort(0)
	mux.InputPort(1)
	mux.OutputPort(0)
	sel := Const(g, name+"_sel", parent, 0)
	ConnectSelect(t, g, sel, mux)
	return mux, sel
}
