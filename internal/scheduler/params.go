// Package scheduler implements the destructive hierarchical topological sort
// that assigns per-partition schedule indices, running on a clone of the
// canonical graph.
package scheduler

import (
	"strings"

	"github.com/dataflow-compiler/pkg/errors"
)

// Heuristic selects which zero-in-degree node the sort pops next.  The
// choice is an optimization knob; ordering correctness and cycle reporting
// do not depend on it.
type Heuristic int

const (
	// HeuristicBFS pops the oldest worklist entry.
	HeuristicBFS Heuristic = iota
	// HeuristicDFS pops the newest worklist entry.
	HeuristicDFS
	// HeuristicRandom pops a uniformly random entry from a seeded generator.
	HeuristicRandom
)

// String names the heuristic.
func (h Heuristic) String() string {
	switch h {
	case HeuristicBFS:
		return "bfs"
	case HeuristicDFS:
		return "dfs"
	case HeuristicRandom:
		return "random"
	default:
		return "unknown"
	}
}

// ParseHeuristic parses a heuristic name.
func ParseHeuristic(s string) (Heuristic, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bfs":
		return HeuristicBFS, nil
	case "dfs":
		return HeuristicDFS, nil
	case "random", "rand":
		return HeuristicRandom, nil
	default:
		return HeuristicBFS, errors.Newf(errors.CodeConfigError, "unknown scheduling heuristic %q", s)
	}
}

// Params configures the topological sort.
type Params struct {
	Heuristic Heuristic
	Seed      uint64
}

// IOPartition is the partition number reserved for the I/O thread; the
// output and visualization masters are scheduled with it.
const IOPartition = -2
