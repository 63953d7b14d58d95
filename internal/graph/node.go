package graph

// NodeID is the stable identity of a node within a graph.
type NodeID int

// InvalidNode marks an unset node reference (e.g. the parent of a top-level
// node or master).
const InvalidNode NodeID = -1

// NodeKind tags the variant payload of a node.  Pseudo-nodes (containers,
// state updates, dummy replicas, FIFOs) are ordinary nodes so they take part
// in the same ordering machinery as compute nodes.
type NodeKind int

const (
	// KindPrimitive is a leaf compute node (arithmetic, compare, trig, ...).
	KindPrimitive NodeKind = iota
	// KindConstant is a primitive whose output is a compile-time literal.
	KindConstant
	// KindBlackBox is a user-authored node with declared state and
	// registered-output-port behavior.
	KindBlackBox
	// KindSubsystem is a plain non-leaf grouping node.
	KindSubsystem
	// KindEnabledSubsystem is a context root gated by a boolean enable.
	KindEnabledSubsystem
	// KindClockDomain is an unspecialized rate-change subsystem.  It must be
	// specialized to an upsample or downsample domain before context
	// discovery.
	KindClockDomain
	// KindUpsampleDomain is a clock domain specialized for rate increase.
	KindUpsampleDomain
	// KindDownsampleDomain is a clock domain specialized for rate decrease.
	KindDownsampleDomain
	// KindRateChange is a leaf upsample/downsample node at a domain boundary.
	KindRateChange
	// KindMux is a context root with N sub-contexts selected by an integer.
	KindMux
	// KindDelay is a state node delaying its input by a number of cycles.
	KindDelay
	// KindEnableInput is the input latch of an enabled subsystem.
	KindEnableInput
	// KindEnableOutput is the output latch of an enabled subsystem.
	KindEnableOutput
	// KindStateUpdate is the pseudo-node committing a stateful node's
	// next state.
	KindStateUpdate
	// KindContextVarUpdate is the pseudo-node assigning a mux-like context
	// variable inside its sub-context.
	KindContextVarUpdate
	// KindFamilyContainer wraps all sub-context containers of one context
	// root in one partition.
	KindFamilyContainer
	// KindContextContainer wraps the nodes of one sub-context.
	KindContextContainer
	// KindDummyReplica stands in for a context root in a foreign partition.
	KindDummyReplica
	// KindFIFO is a thread-crossing FIFO.
	KindFIFO
	// KindMasterInput is the singleton graph input master.
	KindMasterInput
	// KindMasterOutput is the singleton graph output master.
	KindMasterOutput
	// KindMasterVis is the singleton visualization master.
	KindMasterVis
	// KindMasterTerminator is the singleton terminator master.
	KindMasterTerminator
	// KindMasterUnconnected is the singleton unconnected master.
	KindMasterUnconnected
)

// String returns the GraphML-visible block function tag for the kind.
func (k NodeKind) String() string {
	switch k {
	case KindPrimitive:
		return "Primitive"
	case KindConstant:
		return "Constant"
	case KindBlackBox:
		return "BlackBox"
	case KindSubsystem:
		return "SubSystem"
	case KindEnabledSubsystem:
		return "EnabledSubSystem"
	case KindClockDomain:
		return "ClockDomain"
	case KindUpsampleDomain:
		return "UpsampleClockDomain"
	case KindDownsampleDomain:
		return "DownsampleClockDomain"
	case KindRateChange:
		return "RateChange"
	case KindMux:
		return "Mux"
	case KindDelay:
		return "Delay"
	case KindEnableInput:
		return "EnableInput"
	case KindEnableOutput:
		return "EnableOutput"
	case KindStateUpdate:
		return "StateUpdate"
	case KindContextVarUpdate:
		return "ContextVariableUpdate"
	case KindFamilyContainer:
		return "ContextFamilyContainer"
	case KindContextContainer:
		return "ContextContainer"
	case KindDummyReplica:
		return "DummyReplica"
	case KindFIFO:
		return "ThreadCrossingFIFO"
	case KindMasterInput:
		return "MasterInput"
	case KindMasterOutput:
		return "MasterOutput"
	case KindMasterVis:
		return "MasterVis"
	case KindMasterTerminator:
		return "MasterTerminator"
	case KindMasterUnconnected:
		return "MasterUnconnected"
	default:
		return "Unknown"
	}
}

// StateUpdateMode selects the flavor of a state-update pseudo-node.
type StateUpdateMode int

const (
	// UpdateNormal commits the next state computed this cycle.
	UpdateNormal StateUpdateMode = iota
	// UpdateLatch re-latches the current output (enable/upsample style).
	UpdateLatch
	// UpdateZeroFill clears the state between domain phases.
	UpdateZeroFill
)

// CopyMode selects the memory-copy strategy a FIFO's emitted accessors use.
type CopyMode int

const (
	// CopyClangMemcpyInlined uses the compiler-inlined memcpy intrinsic.
	CopyClangMemcpyInlined CopyMode = iota
	// CopyFastUnaligned uses the unaligned wide-load copy loop.
	CopyFastUnaligned
	// CopyMemcpy calls libc memcpy.
	CopyMemcpy
)

// String names the copy mode for the emit plan.
func (m CopyMode) String() string {
	switch m {
	case CopyClangMemcpyInlined:
		return "CLANG_MEMCPY_INLINED"
	case CopyFastUnaligned:
		return "FAST_COPY_UNALIGNED"
	case CopyMemcpy:
		return "MEMCPY"
	default:
		return "UNKNOWN"
	}
}

// ContextRootData is carried by every context root (mux, enabled subsystem,
// specialized clock domain).
type ContextRootData struct {
	// NumSubContexts is the number of numbered regions under the root.
	NumSubContexts int
	// SubContextNodes lists the nodes assigned to each sub-context.
	SubContextNodes [][]NodeID
	// FamilyContainers maps partition number to the family container
	// wrapping this root's sub-contexts in that partition.
	FamilyContainers map[int]NodeID
	// DummyReplicas maps partition number to the dummy replica standing in
	// for this root there.
	DummyReplicas map[int]NodeID
	// DriverArcs are the context decision driver arcs (select or enable).
	DriverArcs []ArcID
	// PartitionDrivers are the per-partition order-constraint driver arcs
	// created during encapsulation or driver replication.
	PartitionDrivers map[int][]ArcID
	// ReplicateDriver requests per-partition driver replication instead of
	// routing the decision through a FIFO.
	ReplicateDriver bool
	// ContextVariables counts the mux-like context output variables.
	ContextVariables int
}

// FamilyContainerData is carried by context family containers.
type FamilyContainerData struct {
	Root          NodeID
	SubContainers []NodeID
	Dummy         NodeID
}

// ContextContainerData is carried by sub-context containers.
type ContextContainerData struct {
	Ctx Context
}

// StateUpdateData is carried by state-update pseudo-nodes.
type StateUpdateData struct {
	Primary NodeID
	Mode    StateUpdateMode
}

// ContextVarUpdateData is carried by context-variable-update pseudo-nodes.
type ContextVarUpdateData struct {
	Root     NodeID
	VarIndex int
}

// DummyReplicaData is carried by dummy replicas.
type DummyReplicaData struct {
	Of NodeID
}

// DelayData is carried by delay-like state nodes.
type DelayData struct {
	Depth int
	Init  []NumericValue
}

// FIFOData is carried by thread-crossing FIFOs.  Per-port vectors are
// indexed by port number.
type FIFOData struct {
	Length      int
	Mode        CopyMode
	BlockSizes  []int
	SubBlockIn  []int
	SubBlockOut []int
	Init        [][]NumericValue
}

// BlockSize returns the block size for a port, growing the vector with the
// default of 1 as needed.
func (f *FIFOData) BlockSize(port int) int {
	return fifoVecGet(&f.BlockSizes, port)
}

// SubBlockSizeIn returns the input-side sub-block size for a port.
func (f *FIFOData) SubBlockSizeIn(port int) int {
	return fifoVecGet(&f.SubBlockIn, port)
}

// SubBlockSizeOut returns the output-side sub-block size for a port.
func (f *FIFOData) SubBlockSizeOut(port int) int {
	return fifoVecGet(&f.SubBlockOut, port)
}

// InitConditions returns the initial conditions for a port, growing the
// vector as needed.
func (f *FIFOData) InitConditions(port int) []NumericValue {
	for port >= len(f.Init) {
		f.Init = append(f.Init, nil)
	}
	return f.Init[port]
}

// SetInitConditions replaces the initial conditions for a port.
func (f *FIFOData) SetInitConditions(port int, init []NumericValue) {
	for port >= len(f.Init) {
		f.Init = append(f.Init, nil)
	}
	f.Init[port] = init
}

func fifoVecGet(vec *[]int, port int) int {
	for port >= len(*vec) {
		*vec = append(*vec, 1)
	}
	return (*vec)[port]
}

// PrimitiveData is carried by primitive, constant, and blackbox nodes.
type PrimitiveData struct {
	// Op is the block function (e.g. "Compare", "InnerProduct", "Exp").
	Op string
	// CompareOp is one of < <= > >= == != for compare nodes.
	CompareOp string
	// ReshapeMode is VEC_1D, ROW_VEC, COL_VEC, MANUAL, or REF_INPUT.
	ReshapeMode string
	// TargetDims are the manual reshape target dimensions.
	TargetDims []int
	// Conjugate is First, Second, or None for inner products.
	Conjugate string
	// Values are the literals of a constant node.
	Values []NumericValue
	// Stateful marks a blackbox that holds state.
	Stateful bool
	// CombPath marks a blackbox with a combinational input-to-output path.
	CombPath bool
	// RegisteredOutputs lists blackbox output ports that are registered.
	RegisteredOutputs []int
}

// Node is a vertex in the dataflow graph: a common header plus a
// kind-selected payload.  All cross-references are ids into the owning
// graph's arenas.
type Node struct {
	ID             NodeID
	Name           string
	Kind           NodeKind
	Parent         NodeID
	Partition      int
	SubBlockingLen int
	SchedOrder     int

	Inputs   []*Port
	Outputs  []*Port
	Enable   *Port
	Select   *Port
	OrderIn  *Port
	OrderOut *Port

	Context  []Context
	Children []NodeID

	Root      *ContextRootData
	Family    *FamilyContainerData
	Container *ContextContainerData
	Update    *StateUpdateData
	CtxVar    *ContextVarUpdateData
	Dummy     *DummyReplicaData
	Delay     *DelayData
	FIFO      *FIFOData
	Prim      *PrimitiveData
}

// IsSubsystem reports whether the node has children in the hierarchy.
func (n *Node) IsSubsystem() bool {
	switch n.Kind {
	case KindSubsystem, KindEnabledSubsystem, KindClockDomain,
		KindUpsampleDomain, KindDownsampleDomain,
		KindFamilyContainer, KindContextContainer:
		return true
	default:
		return false
	}
}

// IsContextRoot reports whether the node's presence creates a conditional or
// rate-changed region.  Unspecialized clock domains are not roots; context
// discovery errors on them instead.
func (n *Node) IsContextRoot() bool {
	switch n.Kind {
	case KindMux, KindEnabledSubsystem, KindUpsampleDomain, KindDownsampleDomain:
		return true
	default:
		return false
	}
}

// IsMaster reports whether the node is one of the five singleton masters.
func (n *Node) IsMaster() bool {
	switch n.Kind {
	case KindMasterInput, KindMasterOutput, KindMasterVis,
		KindMasterTerminator, KindMasterUnconnected:
		return true
	default:
		return false
	}
}

// IsEnableNode reports whether the node is an enable input or output latch.
func (n *Node) IsEnableNode() bool {
	return n.Kind == KindEnableInput || n.Kind == KindEnableOutput
}

// IsRateChange reports whether the node is a leaf rate-change node.
func (n *Node) IsRateChange() bool {
	return n.Kind == KindRateChange
}

// HasState reports whether the node holds state across cycles.
func (n *Node) HasState() bool {
	switch n.Kind {
	case KindDelay, KindEnableOutput, KindFIFO:
		return true
	case KindBlackBox:
		return n.Prim != nil && n.Prim.Stateful
	default:
		return false
	}
}

// HasCombinationalPath reports whether an input can influence an output in
// the same cycle.  Enable outputs behave as transparent latches while
// enabled, so they do have a combinational path despite holding state.
func (n *Node) HasCombinationalPath() bool {
	switch n.Kind {
	case KindDelay, KindFIFO:
		return false
	case KindEnableOutput:
		return true
	case KindBlackBox:
		return n.Prim == nil || n.Prim.CombPath
	default:
		return true
	}
}

// InputPorts returns the data input ports.
func (n *Node) InputPorts() []*Port {
	return n.Inputs
}

// InputPortsIncludingSpecial returns input, enable, and select ports.
// These are the ports context marking traverses; order-constraint ports are
// excluded.
func (n *Node) InputPortsIncludingSpecial() []*Port {
	ports := make([]*Port, 0, len(n.Inputs)+2)
	ports = append(ports, n.Inputs...)
	if n.Enable != nil {
		ports = append(ports, n.Enable)
	}
	if n.Select != nil {
		ports = append(ports, n.Select)
	}
	return ports
}

// AllInputSidePorts returns every port arcs can terminate at.
func (n *Node) AllInputSidePorts() []*Port {
	ports := n.InputPortsIncludingSpecial()
	if n.OrderIn != nil {
		ports = append(ports, n.OrderIn)
	}
	return ports
}

// AllOutputSidePorts returns every port arcs can originate from.
func (n *Node) AllOutputSidePorts() []*Port {
	ports := make([]*Port, 0, len(n.Outputs)+1)
	ports = append(ports, n.Outputs...)
	if n.OrderOut != nil {
		ports = append(ports, n.OrderOut)
	}
	return ports
}

// InputPort returns data input port i, growing the port list as needed.
func (n *Node) InputPort(i int) *Port {
	for i >= len(n.Inputs) {
		n.Inputs = append(n.Inputs, &Port{Owner: n.ID, Kind: PortInput, Num: len(n.Inputs)})
	}
	return n.Inputs[i]
}

// OutputPort returns data output port i, growing the port list as needed.
func (n *Node) OutputPort(i int) *Port {
	for i >= len(n.Outputs) {
		n.Outputs = append(n.Outputs, &Port{Owner: n.ID, Kind: PortOutput, Num: len(n.Outputs)})
	}
	return n.Outputs[i]
}

// EnablePort returns the enable port, creating it on first use.
func (n *Node) EnablePort() *Port {
	if n.Enable == nil {
		n.Enable = &Port{Owner: n.ID, Kind: PortEnable}
	}
	return n.Enable
}

// SelectPort returns the select port, creating it on first use.
func (n *Node) SelectPort() *Port {
	if n.Select == nil {
		n.Select = &Port{Owner: n.ID, Kind: PortSelect}
	}
	return n.Select
}

// OrderConstraintInPort returns the order-constraint input port, creating it
// on first use.
func (n *Node) OrderConstraintInPort() *Port {
	if n.OrderIn == nil {
		n.OrderIn = &Port{Owner: n.ID, Kind: PortOrderIn}
	}
	return n.OrderIn
}

// OrderConstraintOutPort returns the order-constraint output port, creating
// it on first use.
func (n *Node) OrderConstraintOutPort() *Port {
	if n.OrderOut == nil {
		n.OrderOut = &Port{Owner: n.ID, Kind: PortOrderOut}
	}
	return n.OrderOut
}

// Port resolves a kind/number pair to the node's port, creating data and
// order-constraint ports on demand.
func (n *Node) Port(kind PortKind, num int) *Port {
	switch kind {
	case PortInput:
		return n.InputPort(num)
	case PortOutput:
		return n.OutputPort(num)
	case PortEnable:
		return n.EnablePort()
	case PortSelect:
		return n.SelectPort()
	case PortOrderIn:
		return n.OrderConstraintInPort()
	case PortOrderOut:
		return n.OrderConstraintOutPort()
	default:
		return nil
	}
}

// RootData returns the node's context root payload, allocating it for
// context-root kinds on first use.
func (n *Node) RootData() *ContextRootData {
	if n.Root == nil {
		n.Root = &ContextRootData{
			NumSubContexts:   1,
			FamilyContainers: map[int]NodeID{},
			DummyReplicas:    map[int]NodeID{},
			PartitionDrivers: map[int][]ArcID{},
		}
		if n.Kind == KindMux && len(n.Inputs) > 0 {
			n.Root.NumSubContexts = len(n.Inputs)
		}
	}
	return n.Root
}

// AddSubContextNode records membership of a node in one of this root's
// sub-contexts.
func (n *Node) AddSubContextNode(subContext int, member NodeID) {
	root := n.RootData()
	for subContext >= len(root.SubContextNodes) {
		root.SubContextNodes = append(root.SubContextNodes, nil)
	}
	root.SubContextNodes[subContext] = append(root.SubContextNodes[subContext], member)
}

// RemoveSubContextNode drops a node from every sub-context membership list.
func (n *Node) RemoveSubContextNode(member NodeID) {
	if n.Root == nil {
		return
	}
	for i, nodes := range n.Root.SubContextNodes {
		for j, id := range nodes {
			if id == member {
				n.Root.SubContextNodes[i] = append(nodes[:j], nodes[j+1:]...)
				break
			}
		}
	}
}
