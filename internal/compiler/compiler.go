// Package compiler sequences the compile passes: context analysis,
// encapsulation, pseudo-node synthesis, pruning, FIFO insertion, and
// scheduling, producing the emit plan and a run report.
package compiler

import (
	"context"

	"github.com/dataflow-compiler/internal/contexts"
	"github.com/dataflow-compiler/internal/emitter"
	"github.com/dataflow-compiler/internal/encapsulate"
	"github.com/dataflow-compiler/internal/fifos"
	"github.com/dataflow-compiler/internal/graph"
	"github.com/dataflow-compiler/internal/scheduler"
	"github.com/dataflow-compiler/internal/synthesis"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/model"
	"github.com/dataflow-compiler/pkg/telemetry"
	"github.com/dataflow-compiler/pkg/utils"
)

// Compiler runs the pass pipeline over an ingested graph.
type Compiler struct {
	log     utils.Logger
	emitter *emitter.Emitter
}

// New creates a Compiler with the built-in primitive shims registered.
func New(log utils.Logger) *Compiler {
	if log == nil {
		log = &utils.NullLogger{}
	}
	e := emitter.New(log)
	emitter.RegisterBuiltinShims(e)
	return &Compiler{log: log, emitter: e}
}

// Emitter exposes the emitter so callers can register additional primitive
// shims before compiling.
func (c *Compiler) Emitter() *emitter.Emitter {
	return c.emitter
}

// Compile lowers the graph in place and returns the emit plan plus a run
// report.  On failure the report carries the error and its exit status.
func (c *Compiler) Compile(ctx context.Context, g *graph.Graph, req *model.CompileRequest) (*emitter.Plan, *model.CompileReport, error) {
	report := &model.CompileReport{
		DesignName: req.DesignName,
		Status:     model.StatusRunning,
	}
	timer := utils.NewStageTimer()

	plan, err := c.run(ctx, g, req, report, timer)

	for _, stage := range timer.Stages() {
		if d, ok := timer.Duration(stage); ok {
			report.Passes = append(report.Passes, model.PassStat{Name: stage, Duration: d})
		}
	}
	report.Partitions = g.Partitions()
	report.NodeCount = g.NumNodes()
	report.ArcCount = g.NumArcs()
	for _, n := range g.Nodes() {
		if n.Kind == graph.KindFIFO {
			report.FIFOCount++
		}
	}

	if err != nil {
		report.Status = model.StatusFailed
		report.Error = err.Error()
		report.ExitCode = errors.ExitStatus(err)
		return nil, report, err
	}
	report.Status = model.StatusSucceeded
	report.ExitCode = errors.ExitSuccess
	return plan, report, nil
}

func (c *Compiler) run(ctx context.Context, g *graph.Graph, req *model.CompileRequest,
	report *model.CompileReport, timer *utils.StageTimer) (*emitter.Plan, error) {

	heuristic, err := scheduler.ParseHeuristic(req.Heuristic)
	if err != nil {
		return nil, err
	}

	pass := func(name string, fn func() error) error {
		_, span := telemetry.StartPass(ctx, name, req.DesignName)
		defer span.End()
		return timer.Time(name, fn)
	}

	if err := pass("validate_input", func() error { return g.Validate(c.log) }); err != nil {
		return nil, err
	}

	if err := pass("visualization_fixup", func() error {
		return contexts.CreateEnableOutputsForVisualization(g, c.log)
	}); err != nil {
		return nil, err
	}

	if err := pass("discover_contexts", func() error {
		return contexts.DiscoverAndMark(g, c.log)
	}); err != nil {
		return nil, err
	}

	if err := pass("replicate_context_drivers", func() error {
		return encapsulate.ReplicateContextDrivers(g, c.log)
	}); err != nil {
		return nil, err
	}

	if err := pass("place_enable_nodes", func() error {
		return encapsulate.PlaceEnableNodesInPartitions(g, c.log)
	}); err != nil {
		return nil, err
	}

	if err := pass("encapsulate", func() error {
		return encapsulate.Encapsulate(g, c.log)
	}); err != nil {
		return nil, err
	}

	if err := pass("context_variable_updates", func() error {
		return synthesis.CreateContextVariableUpdateNodes(g, true, c.log)
	}); err != nil {
		return nil, err
	}

	if err := pass("prune", func() error {
		report.PrunedNodes = synthesis.Prune(g, !req.RetainVisualization, c.log)
		synthesis.CleanupEmptyHierarchy(g, "it was emptied by pruning", c.log)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := pass("backfill", func() error {
		if err := synthesis.AssignPartitionsToUnassignedSubsystems(g, req.Strict, c.log); err != nil {
			return err
		}
		return synthesis.AssignSubBlockingToUnassignedSubsystems(g, req.Strict, c.log)
	}); err != nil {
		return nil, err
	}

	var fifoMap map[fifos.PartitionPair][]*graph.Node
	if err := pass("insert_fifos", func() error {
		var err error
		fifoMap, err = fifos.InsertPartitionCrossingFIFOs(g,
			fifos.InsertOptions{Length: req.FIFOLength}, c.log)
		return err
	}); err != nil {
		return nil, err
	}

	if err := pass("absorb_delays", func() error {
		fifos.AbsorbAdjacentDelays(g, fifoMap, c.log)
		for _, fifosForPair := range fifoMap {
			for _, fifo := range fifosForPair {
				if err := fifos.ReshapeInitialConditionsForBlockSize(g, fifo, c.log); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if req.MergeFIFOs {
		if err := pass("merge_fifos", func() error {
			fifoMap = fifos.MergeFIFOs(g, fifoMap, c.log)
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if err := pass("validate_fifos", func() error {
		return fifos.Validate(g, fifoMap, c.log)
	}); err != nil {
		return nil, err
	}

	if err := pass("state_updates", func() error {
		return synthesis.CreateStateUpdateNodes(g, true, c.log)
	}); err != nil {
		return nil, err
	}

	if err := pass("order_constrain", func() error {
		return synthesis.OrderConstrainZeroInDegreeNodes(g, c.log)
	}); err != nil {
		return nil, err
	}

	if err := pass("validate_graph", func() error { return g.Validate(c.log) }); err != nil {
		return nil, err
	}

	if err := pass("schedule", func() error {
		_, err := scheduler.Schedule(g, scheduler.Options{
			Params:             scheduler.Params{Heuristic: heuristic, Seed: req.Seed},
			Prune:              true,
			RewireContexts:     true,
			SchedulePartitions: req.SchedulePartitions,
		}, c.log)
		return err
	}); err != nil {
		return nil, err
	}

	var plan *emitter.Plan
	if err := pass("build_plan", func() error {
		var err error
		plan, err = c.emitter.BuildPlan(g, req.DesignName)
		return err
	}); err != nil {
		return nil, err
	}

	return plan, nil
}
