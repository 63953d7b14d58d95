package graph

// MoveNodePreserveHierarchy relocates a node under a destination subsystem,
// replicating the chain of subsystems between them so the node keeps its
// qualified position.  Replicated subsystems get the moveSuffix appended to
// their names; an existing subsystem with the plain or suffixed name is
// reused.
func (g *Graph) MoveNodePreserveHierarchy(n *Node, moveUnder NodeID, moveSuffix string) {
	dest := g.Node(moveUnder)
	if dest == nil {
		return
	}

	destParent := dest.Parent

	// Walk up from the node collecting the subsystems between it and the
	// destination (or the destination's parent).
	var chain []*Node
	cursor := n.Parent
	for cursor != InvalidNode && cursor != moveUnder && cursor != destParent {
		parent := g.Node(cursor)
		if parent == nil {
			break
		}
		chain = append(chain, parent)
		cursor = parent.Parent
	}

	// Reaching the root while the destination is nested, or reaching the
	// destination itself, means there is no shared hierarchy to replicate.
	if (destParent != InvalidNode && cursor == InvalidNode) || cursor == moveUnder {
		chain = nil
	}

	// Recreate the chain under the destination, outermost first.
	cursorDown := dest
	for i := len(chain) - 1; i >= 0; i-- {
		wanted := chain[i].Name
		wantedSuffixed := wanted + moveSuffix

		var target *Node
		for _, child := range g.ChildNodes(cursorDown) {
			if child.IsSubsystem() && (child.Name == wanted || child.Name == wantedSuffixed) {
				target = child
				break
			}
		}
		if target == nil {
			target = g.NewNode(KindSubsystem, wantedSuffixed, cursorDown.ID)
			target.Partition = chain[i].Partition
		}
		cursorDown = target
	}

	g.MoveNode(n, cursorDown.ID)
}
