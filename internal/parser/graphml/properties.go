package graphml

import (
	"strconv"
	"strings"

	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
)

// kindFromBlockFunction resolves a block_function tag to a node kind.
// Structural tags map to their kinds; any other tag is a primitive compute
// node whose op is the tag itself (Compare, InnerProduct, Exp, ...).
func kindFromBlockFunction(tag string) graph.NodeKind {
	switch tag {
	case "Constant":
		return graph.KindConstant
	case "BlackBox":
		return graph.KindBlackBox
	case "SubSystem":
		return graph.KindSubsystem
	case "EnabledSubSystem":
		return graph.KindEnabledSubsystem
	case "ClockDomain":
		return graph.KindClockDomain
	case "UpsampleClockDomain":
		return graph.KindUpsampleDomain
	case "DownsampleClockDomain":
		return graph.KindDownsampleDomain
	case "RateChange":
		return graph.KindRateChange
	case "Mux":
		return graph.KindMux
	case "Delay":
		return graph.KindDelay
	case "EnableInput":
		return graph.KindEnableInput
	case "EnableOutput":
		return graph.KindEnableOutput
	case "StateUpdate":
		return graph.KindStateUpdate
	case "ContextVariableUpdate":
		return graph.KindContextVarUpdate
	case "ContextFamilyContainer":
		return graph.KindFamilyContainer
	case "ContextContainer":
		return graph.KindContextContainer
	case "DummyReplica":
		return graph.KindDummyReplica
	case "ThreadCrossingFIFO":
		return graph.KindFIFO
	default:
		return graph.KindPrimitive
	}
}

// masterKinds maps master block_function tags to graph master selectors.
var masterKinds = map[string]func(*graph.Graph) graph.NodeID{
	"MasterInput":       func(g *graph.Graph) graph.NodeID { return g.InputMaster },
	"MasterOutput":      func(g *graph.Graph) graph.NodeID { return g.OutputMaster },
	"MasterVis":         func(g *graph.Graph) graph.NodeID { return g.VisMaster },
	"MasterTerminator":  func(g *graph.Graph) graph.NodeID { return g.TerminatorMaster },
	"MasterUnconnected": func(g *graph.Graph) graph.NodeID { return g.UnconnectedMaster },
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

func parseFloatDefault(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}

func parseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// parseIntList parses a comma- or space-separated list of integers, with or
// without brackets.
func parseIntList(s string) ([]int, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return nil, nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Newf(errors.CodeParseError, "unparseable integer list %q", s)
		}
		out = append(out, v)
	}
	return out, nil
}

func formatIntList(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// parseCompareOp validates a compare operator.
func parseCompareOp(s string) (string, error) {
	switch s {
	case "<", "<=", ">", ">=", "==", "!=":
		return s, nil
	default:
		return "", errors.Newf(errors.CodeParseError, "unsupported compare operator %q", s)
	}
}

// parseReshapeMode validates a reshape mode.
func parseReshapeMode(s string) (string, error) {
	switch s {
	case "VEC_1D", "ROW_VEC", "COL_VEC", "MANUAL", "REF_INPUT":
		return s, nil
	default:
		return "", errors.Newf(errors.CodeParseError, "unsupported reshape mode %q", s)
	}
}

// parseConjugate validates an inner-product conjugation behavior.
func parseConjugate(s string) (string, error) {
	switch s {
	case "First", "Second", "None":
		return s, nil
	default:
		return "", errors.Newf(errors.CodeParseError, "unsupported conjugate behavior %q", s)
	}
}

func parseCopyMode(s string) graph.CopyMode {
	switch s {
	case "FAST_COPY_UNALIGNED":
		return graph.CopyFastUnaligned
	case "MEMCPY":
		return graph.CopyMemcpy
	default:
		return graph.CopyClangMemcpyInlined
	}
}

// parsePortKind resolves an edge endpoint kind tag.
func parsePortKind(s string, inputSide bool) (graph.PortKind, error) {
	switch s {
	case "", "in":
		if inputSide {
			return graph.PortInput, nil
		}
		return graph.PortOutput, nil
	case "out":
		return graph.PortOutput, nil
	case "enable":
		return graph.PortEnable, nil
	case "select":
		return graph.PortSelect, nil
	case "orderIn":
		return graph.PortOrderIn, nil
	case "orderOut":
		return graph.PortOrderOut, nil
	default:
		return graph.PortInput, errors.Newf(errors.CodeParseError, "unsupported port kind %q", s)
	}
}

// parseContextStack parses "extID:sub,extID:sub" using the external-id map.
func parseContextStack(s string, ids map[string]graph.NodeID) ([]graph.Context, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var stack []graph.Context
	for _, frame := range strings.Split(s, ",") {
		rootStr, subStr, ok := strings.Cut(strings.TrimSpace(frame), ":")
		if !ok {
			return nil, errors.Newf(errors.CodeParseError, "unparseable context stack %q", s)
		}
		rootID, ok := ids[rootStr]
		if !ok {
			return nil, errors.Newf(errors.CodeParseError, "context stack names unknown node %q", rootStr)
		}
		sub, err := strconv.Atoi(subStr)
		if err != nil {
			return nil, errors.Newf(errors.CodeParseError, "unparseable context stack %q", s)
		}
		stack = append(stack, graph.Context{Root: rootID, SubContext: sub})
	}
	return stack, nil
}

func formatContextStack(stack []graph.Context, extIDs map[graph.NodeID]string) string {
	parts := make([]string, 0, len(stack))
	for _, frame := range stack {
		parts = append(parts, extIDs[frame.Root]+":"+strconv.Itoa(frame.SubContext))
	}
	return strings.Join(parts, ",")
}
