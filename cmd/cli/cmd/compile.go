package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dataflow-compiler/internal/compiler"
	"github.com/dataflow-compiler/internal/parser/graphml"
	"github.com/dataflow-compiler/internal/repository"
	"github.com/dataflow-compiler/internal/storage"
	"github.com/dataflow-compiler/pkg/compression"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/model"
	"github.com/dataflow-compiler/pkg/writer"

	"github.com/dataflow-compiler/internal/emitter"
)

var (
	// Compile command flags
	inputFile         string
	outputDir         string
	designName        string
	heuristicFlag     string
	seedFlag          uint64
	strictFlag        bool
	retainVisFlag     bool
	fifoLengthFlag    int
	mergeFIFOsFlag    bool
	wholeGraphFlag    bool
	emitGraphFlag     bool
	compressFlag      string
	fromStorageFlag   bool
	recordHistoryFlag bool
)

// compileCmd represents the compile command
var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a GraphML dataflow design into an emit plan",
	Long: `Compile ingests a GraphML dataflow description, runs the pass
pipeline (context discovery, encapsulation, pruning, state-update
synthesis, FIFO insertion, scheduling), and writes the emit plan consumed
by the C emitter.

Exit statuses: 0 success, 2 parse error, 3 structural violation,
4 context invariant violation, 5 scheduling cycle, 6 FIFO invariant
violation, 7 missing partition in strict mode, 8 configuration error.`,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	binName := BinName()
	compileCmd.Example = fmt.Sprintf(`  # Compile a design with the default BFS heuristic
  %s compile -i ./designs/radio_rx.graphml -o ./out

  # Use the seeded random heuristic and strict partition checking
  %s compile -i rx.graphml --heuristic random --seed 12345 --strict

  # Keep visualization taps through pruning and emit the lowered graph
  %s compile -i rx.graphml --retain-vis --emit-graphml

  # Fetch the design from configured object storage
  %s compile -i designs/radio_rx.graphml --from-storage`,
		binName, binName, binName, binName)

	compileCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input GraphML design file (required)")
	compileCmd.Flags().StringVarP(&outputDir, "output", "o", "./output", "Output directory for the emit plan")
	compileCmd.Flags().StringVar(&designName, "name", "", "Design name (defaults to the input file stem)")
	compileCmd.MarkFlagRequired("input")

	compileCmd.Flags().StringVar(&heuristicFlag, "heuristic", "", "Scheduling heuristic: bfs, dfs, or random")
	compileCmd.Flags().Uint64Var(&seedFlag, "seed", 0, "Seed for the random scheduling heuristic")
	compileCmd.Flags().BoolVar(&strictFlag, "strict", false, "Fail on missing partition or sub-blocking assignments")
	compileCmd.Flags().BoolVar(&retainVisFlag, "retain-vis", false, "Keep visualization arcs through pruning")
	compileCmd.Flags().IntVar(&fifoLengthFlag, "fifo-length", 0, "Depth of inserted thread-crossing FIFOs")
	compileCmd.Flags().BoolVar(&mergeFIFOsFlag, "merge-fifos", false, "Merge compatible FIFOs per partition pair")
	compileCmd.Flags().BoolVar(&wholeGraphFlag, "whole-graph", false, "Sort the whole graph instead of per partition")
	compileCmd.Flags().BoolVar(&emitGraphFlag, "emit-graphml", false, "Also write the lowered graph as GraphML")
	compileCmd.Flags().StringVar(&compressFlag, "compress", "", "Compress the emit plan: gzip or zstd")
	compileCmd.Flags().BoolVar(&fromStorageFlag, "from-storage", false, "Fetch the input from configured object storage")
	compileCmd.Flags().BoolVar(&recordHistoryFlag, "record", false, "Record the run in the compile-history database")
}

func runCompile(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	ctx := cmd.Context()

	req := buildRequest()
	log.Info("compiling %s (heuristic=%s, strict=%v)", req.DesignName, req.Heuristic, req.Strict)

	input, err := openInput(cmd)
	if err != nil {
		return err
	}
	defer input.Close()

	g, err := graphml.NewIngester().Ingest(ctx, input)
	if err != nil {
		return err
	}
	log.Info("ingested %d nodes and %d arcs", g.NumNodes(), g.NumArcs())

	c := compiler.New(log)
	plan, report, compileErr := c.Compile(ctx, g, req)

	if recordHistoryFlag || cfg.Database.Enabled {
		if err := recordRun(cmd, report, req); err != nil {
			log.Warn("failed to record compile run: %v", err)
		}
	}

	if compileErr != nil {
		log.Error("compile failed: %v", compileErr)
		return compileErr
	}

	planPath, err := writePlan(plan)
	if err != nil {
		return err
	}
	log.Info("emit plan written to %s", planPath)

	if emitGraphFlag {
		graphPath := filepath.Join(outputDir, req.DesignName+"_lowered.graphml")
		file, err := os.Create(graphPath)
		if err != nil {
			return errors.Wrap(errors.CodeEmitError, "failed to create graphml output", err)
		}
		defer file.Close()
		if err := graphml.NewExporter().Export(ctx, file, g); err != nil {
			return err
		}
		log.Info("lowered graph written to %s", graphPath)
	}

	log.Info("compile succeeded: %d partitions, %d fifos, %d nodes pruned, %s total",
		len(report.Partitions), report.FIFOCount, report.PrunedNodes, report.TotalDuration())
	return nil
}

func buildRequest() *model.CompileRequest {
	name := designName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
	}

	req := &model.CompileRequest{
		DesignName:          name,
		InputPath:           inputFile,
		OutputDir:           outputDir,
		Heuristic:           cfg.Compile.Heuristic,
		Seed:                cfg.Compile.Seed,
		Strict:              cfg.Compile.Strict || strictFlag,
		RetainVisualization: cfg.Compile.RetainVisualization || retainVisFlag,
		SchedulePartitions:  cfg.Compile.SchedulePartitions && !wholeGraphFlag,
		FIFOLength:          cfg.Compile.FIFOLength,
		MergeFIFOs:          cfg.Compile.MergeFIFOs || mergeFIFOsFlag,
	}
	if heuristicFlag != "" {
		req.Heuristic = heuristicFlag
	}
	if seedFlag != 0 {
		req.Seed = seedFlag
	}
	if fifoLengthFlag > 0 {
		req.FIFOLength = fifoLengthFlag
	}
	return req
}

func openInput(cmd *cobra.Command) (io.ReadCloser, error) {
	if fromStorageFlag {
		store, err := storage.New(&cfg.Storage)
		if err != nil {
			return nil, err
		}
		reader, err := store.Download(cmd.Context(), inputFile)
		if err != nil {
			return nil, errors.Wrap(errors.CodeStorageError, "failed to fetch design from storage", err)
		}
		return reader, nil
	}

	file, err := os.Open(inputFile)
	if err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "input file not found", err)
	}
	return file, nil
}

func writePlan(plan *emitter.Plan) (string, error) {
	compressionType, err := compression.ParseType(compressFlag)
	if err != nil {
		return "", errors.Wrap(errors.CodeConfigError, "invalid --compress value", err)
	}

	w := writer.NewCompressedJSONWriter[*emitter.Plan](compressionType)
	if compressionType == compression.TypeNone {
		w = writer.NewPrettyJSONWriter[*emitter.Plan]()
	}
	path, err := w.WriteToFile(plan, filepath.Join(outputDir, plan.DesignName+"_plan.json"))
	if err != nil {
		return "", errors.Wrap(errors.CodeEmitError, "failed to write emit plan", err)
	}
	return path, nil
}

func recordRun(cmd *cobra.Command, report *model.CompileReport, req *model.CompileRequest) error {
	db, err := repository.NewGormDB(&cfg.Database)
	if err != nil {
		return err
	}
	repo := repository.NewGormRunRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		return err
	}
	return repo.SaveRun(cmd.Context(), report, req)
}
