package graph

import "fmt"

// PortKind distinguishes the port classes on a node.
type PortKind int

const (
	// PortInput is a standard data input.  At most one driving arc.
	PortInput PortKind = iota
	// PortOutput is a standard data output.  May drive many arcs.
	PortOutput
	// PortEnable is the boolean enable input of enable nodes.
	PortEnable
	// PortSelect is the integer select input of a mux.
	PortSelect
	// PortOrderIn accepts any number of order-constraint arcs.
	PortOrderIn
	// PortOrderOut emits order-constraint arcs.
	PortOrderOut
)

// String returns a short name for the port kind.
func (k PortKind) String() string {
	switch k {
	case PortInput:
		return "in"
	case PortOutput:
		return "out"
	case PortEnable:
		return "enable"
	case PortSelect:
		return "select"
	case PortOrderIn:
		return "orderIn"
	case PortOrderOut:
		return "orderOut"
	default:
		return "unknown"
	}
}

// IsInputSide reports whether arcs terminate at this kind of port.
func (k PortKind) IsInputSide() bool {
	switch k {
	case PortInput, PortEnable, PortSelect, PortOrderIn:
		return true
	default:
		return false
	}
}

// Port is a connection point owned by exactly one node for its lifetime.
type Port struct {
	Owner NodeID
	Kind  PortKind
	Num   int
	Arcs  []ArcID
}

func (p *Port) addArc(id ArcID) {
	p.Arcs = append(p.Arcs, id)
}

func (p *Port) removeArc(id ArcID) {
	for i, a := range p.Arcs {
		if a == id {
			p.Arcs = append(p.Arcs[:i], p.Arcs[i+1:]...)
			return
		}
	}
}

// PortRef names a port by its owner, kind, and number.  Arcs store refs, not
// pointers, so destroying a node cannot leave arcs aliasing freed ports.
type PortRef struct {
	Node NodeID
	Kind PortKind
	Num  int
}

// String prints the ref for diagnostics.
func (r PortRef) String() string {
	return fmt.Sprintf("n%d.%s%d", r.Node, r.Kind, r.Num)
}
