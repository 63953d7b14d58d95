package graph

import "sort"

// StronglyConnectedComponents runs an iterative Tarjan over the non-master
// nodes and returns the components, each ordered by id, components ordered
// by their smallest member.  Single nodes without a self loop are not
// returned; the callers only care about cycles.
func (g *Graph) StronglyConnectedComponents() [][]NodeID {
	type frame struct {
		node     NodeID
		neighbor int
	}

	index := map[NodeID]int{}
	lowLink := map[NodeID]int{}
	onStack := map[NodeID]bool{}
	var stack []NodeID
	next := 0

	neighbors := map[NodeID][]NodeID{}
	for _, n := range g.Nodes() {
		if n.IsMaster() {
			continue
		}
		for _, nb := range g.ConnectedOutputNodes(n) {
			if !nb.IsMaster() {
				neighbors[n.ID] = append(neighbors[n.ID], nb.ID)
			}
		}
	}

	var components [][]NodeID

	visit := func(root NodeID) {
		work := []frame{{node: root}}
		index[root] = next
		lowLink[root] = next
		next++
		stack = append(stack, root)
		onStack[root] = true

		for len(work) > 0 {
			top := &work[len(work)-1]
			if top.neighbor < len(neighbors[top.node]) {
				nb := neighbors[top.node][top.neighbor]
				top.neighbor++
				if _, seen := index[nb]; !seen {
					index[nb] = next
					lowLink[nb] = next
					next++
					stack = append(stack, nb)
					onStack[nb] = true
					work = append(work, frame{node: nb})
				} else if onStack[nb] && index[nb] < lowLink[top.node] {
					lowLink[top.node] = index[nb]
				}
				continue
			}

			done := top.node
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := &work[len(work)-1]
				if lowLink[done] < lowLink[parent.node] {
					lowLink[parent.node] = lowLink[done]
				}
			}
			if lowLink[done] == index[done] {
				var component []NodeID
				for {
					member := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[member] = false
					component = append(component, member)
					if member == done {
						break
					}
				}
				if len(component) > 1 || hasSelfLoop(neighbors, done) {
					sortNodeIDs(component)
					components = append(components, component)
				}
			}
		}
	}

	for _, n := range g.Nodes() {
		if n.IsMaster() {
			continue
		}
		if _, seen := index[n.ID]; !seen {
			visit(n.ID)
		}
	}

	sortComponents(components)
	return components
}

func hasSelfLoop(neighbors map[NodeID][]NodeID, id NodeID) bool {
	for _, nb := range neighbors[id] {
		if nb == id {
			return true
		}
	}
	return false
}

func sortNodeIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortComponents(components [][]NodeID) {
	sort.Slice(components, func(i, j int) bool { return components[i][0] < components[j][0] })
}
