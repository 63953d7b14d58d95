package encapsulate

import (
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/utils"
)

// Encapsulate moves every node with a context stack under the sub-context
// container of its innermost context in its own partition, moves context
// roots and dummy replicas into their family containers, and parents each
// family container according to the root's own innermost context.
//
// Afterwards every (root, partition) pair the context touches has exactly
// one family container, and every contextual node's parent chain is
// context-container then family container.
func Encapsulate(g *graph.Graph, log utils.Logger) error {
	if log == nil {
		log = &utils.NullLogger{}
	}

	var contextRoots []*graph.Node
	var nodesInContext []*graph.Node
	for _, n := range g.Nodes() {
		if n.Kind == graph.KindFamilyContainer || n.Kind == graph.KindContextContainer {
			continue
		}
		if n.IsContextRoot() {
			contextRoots = append(contextRoots, n)
		}
		if len(n.Context) > 0 && n.Kind != graph.KindDummyReplica {
			nodesInContext = append(nodesInContext, n)
		}
	}

	// A node inside a context may not be driven by that context's own root:
	// delays are permitted to break such loops, so flag the combinational
	// case here where the error is actionable rather than as a scheduler
	// cycle later.
	for _, n := range nodesInContext {
		for _, a := range g.InputArcs(n) {
			if a.IsOrderConstraint() {
				continue
			}
			for _, frame := range n.Context {
				if a.Src.Node == frame.Root {
					return errors.NewNode(errors.CodeContextError,
						"node is combinationally driven by its own context root",
						g.FullyQualifiedName(n.ID))
				}
			}
		}
	}

	// Move contextual nodes under their innermost sub-context container,
	// materializing family containers for every level of the stack in the
	// node's partition along the way.
	for _, n := range nodesInContext {
		for j := 0; j < len(n.Context)-1; j++ {
			outerRoot := g.Node(n.Context[j].Root)
			if _, err := FamilyContainerCreateIfNot(g, outerRoot, n.Partition); err != nil {
				return err
			}
		}

		inner := n.Context[len(n.Context)-1]
		family, err := FamilyContainerCreateIfNot(g, g.Node(inner.Root), n.Partition)
		if err != nil {
			return err
		}
		container := SubContextContainer(g, family, inner.SubContext)
		if container == nil {
			return errors.NewNode(errors.CodeContextError,
				"missing sub-context container during encapsulation", g.FullyQualifiedName(n.ID))
		}
		g.MoveNode(n, container.ID)
	}

	// Move each context root into its own family container; the root's
	// stack does not include its own context, so the sub-context is
	// irrelevant here.  Dummy replicas go to the family container of the
	// partition they serve.
	for _, root := range contextRoots {
		family, err := FamilyContainerCreateIfNot(g, root, root.Partition)
		if err != nil {
			return err
		}
		g.MoveNode(root, family.ID)

		for partition, dummyID := range root.Root.DummyReplicas {
			dummy := g.Node(dummyID)
			if dummy == nil {
				continue
			}
			dummyFamily, err := FamilyContainerCreateIfNot(g, root, partition)
			if err != nil {
				return err
			}
			g.MoveNode(dummy, dummyFamily.ID)
			dummyFamily.Family.Dummy = dummy.ID
		}
	}

	// Parent each family container from the root's innermost context, in
	// the family container's own partition.  Rootless containers stay at
	// the top level.
	for _, root := range contextRoots {
		if len(root.Context) == 0 {
			continue
		}
		inner := root.Context[len(root.Context)-1]
		parentRoot := g.Node(inner.Root)

		for partition, familyID := range root.Root.FamilyContainers {
			parentFamilyID, ok := parentRoot.RootData().FamilyContainers[partition]
			if !ok {
				return errors.NewNode(errors.CodeContextError,
					"unable to find parent context-family-container for partition during encapsulation",
					g.FullyQualifiedName(root.ID))
			}
			newParent := SubContextContainer(g, g.Node(parentFamilyID), inner.SubContext)
			if newParent == nil {
				return errors.NewNode(errors.CodeContextError,
					"missing sub-context container on parent family container",
					g.FullyQualifiedName(root.ID))
			}
			g.MoveNode(g.Node(familyID), newParent.ID)
		}
	}

	log.Debug("encapsulated %d contextual nodes under %d context roots",
		len(nodesInContext), len(contextRoots))
	return nil
}
