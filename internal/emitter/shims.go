package emitter

import (
	"fmt"

	"github.com/dataflow-compiler/internal/graph"
)

// RegisterBuiltinShims installs the contract shims for the primitive ops
// the core ships with.  External primitive libraries register theirs the
// same way.
func RegisterBuiltinShims(e *Emitter) {
	e.RegisterShim("Compare", compareShim)
	e.RegisterShim("InnerProduct", innerProductShim)
}

// compareShim: a compare is pure combinational; the contract only names the
// operator for the emitter.
func compareShim(g *graph.Graph, n *graph.Node) EmitContract {
	op := "=="
	if n.Prim != nil && n.Prim.CompareOp != "" {
		op = n.Prim.CompareOp
	}
	return EmitContract{
		NextStateExpressions: []string{fmt.Sprintf("<out> = <in0> %s <in1>", op)},
	}
}

// innerProductShim shapes the sub-blocked inner product: one accumulator
// lane per sub-block element, an outer loop over vector-length ÷ sub-block
// steps, and an inner loop accumulating each lane.
func innerProductShim(g *graph.Graph, n *graph.Node) EmitContract {
	vectorLen := 1
	if arcs := g.InputArcs(n); len(arcs) > 0 {
		vectorLen = arcs[0].Type.NumberOfElements()
	}
	subBlock := n.SubBlockingLen
	if subBlock <= 0 || vectorLen%subBlock != 0 {
		subBlock = 1
	}
	steps := vectorLen / subBlock

	acc := fmt.Sprintf("%s_n%d_acc", n.Name, n.ID)
	contract := EmitContract{
		StateVariables: []StateVariable{{
			Name:     acc + fmt.Sprintf("[%d]", subBlock),
			TypeName: "accumulator",
		}},
		NextStateExpressions: []string{
			fmt.Sprintf("for (i = 0; i < %d; i++)", steps),
			fmt.Sprintf("  for (j = 0; j < %d; j++)", subBlock),
			fmt.Sprintf("    %s[j] += <a>[i*%d+j] * <b>[i*%d+j]", acc, subBlock, subBlock),
		},
	}
	if n.Prim != nil && n.Prim.Conjugate != "" && n.Prim.Conjugate != "None" {
		contract.NextStateExpressions = append(contract.NextStateExpressions,
			fmt.Sprintf("// conjugate %s operand", n.Prim.Conjugate))
	}
	return contract
}
