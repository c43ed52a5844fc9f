package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AndreLecona/Dotate/config"
	"github.com/AndreLecona/Dotate/internal/adapter/ecod"
	"github.com/AndreLecona/Dotate/internal/adapter/fs"
	"github.com/AndreLecona/Dotate/internal/adapter/hmmer"
	"github.com/AndreLecona/Dotate/internal/adapter/seqio"
	"github.com/AndreLecona/Dotate/internal/adapter/sink"
	"github.com/AndreLecona/Dotate/internal/domain"
	"github.com/AndreLecona/Dotate/internal/port"
	"github.com/AndreLecona/Dotate/internal/usecase"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <domtbl...>",
	Short: "Resolve domain annotations from HMMER domain tables",
	Long: `Annotate reads one or more HMMER --domtblout files (plain, .gz, or - for
stdin; glob patterns are expanded), filters the per-domain hits, resolves
overlaps per protein, and writes the surviving annotations plus the
unannotated regions between them.

Without --tsv, --fasta or --sql, each input gets a TSV next to it at
<input>.dotate.tsv.

Examples:
  dotate annotate search.domtbl
  dotate annotate --max-ievalue 1e-5 --cores -1 'runs/**/*.domtbl.gz'
  dotate annotate --mapping ecod.db --sql anno.db search.domtbl
  dotate annotate --fasta arch.fa --source-fasta proteins.fa search.domtbl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnnotate,
}

var (
	flagLayout       string
	flagMaxIEvalue   float64
	flagMinHMMCov    float64
	flagMinDomainCov float64
	flagOverlapTol   float64
	flagMinUnn       int
	flagCores        int
	flagChunkSize    int
	flagMapping      string
	flagTSV          string
	flagFasta        string
	flagSourceFasta  string
	flagSQL          string
	flagTable        string
)

func init() {
	def := config.DefaultConfig()
	f := annotateCmd.Flags()
	f.StringVar(&flagLayout, "layout", def.Input.Layout, "domain table layout: hmmsearch or hmmscan")
	f.Float64Var(&flagMaxIEvalue, "max-ievalue", def.Thresholds.MaxIEvalue, "keep hits with i-Evalue at or below this")
	f.Float64Var(&flagMinHMMCov, "min-hmm-cov", def.Thresholds.MinHMMCov, "keep hits covering at least this fraction of the HMM")
	f.Float64Var(&flagMinDomainCov, "min-domain-cov", def.Thresholds.MinDomainCov, "keep hits whose alignment covers at least this fraction of the envelope")
	f.Float64Var(&flagOverlapTol, "overlap-tolerance", def.Resolve.OverlapTolerance, "fraction of a candidate allowed to overlap accepted domains")
	f.IntVar(&flagMinUnn, "min-unannotated", def.Resolve.MinUnannotated, "shortest unannotated region worth reporting")
	f.IntVar(&flagCores, "cores", def.Run.Cores, "worker count (-1 = all CPUs but one)")
	f.IntVar(&flagChunkSize, "chunk-size", def.Run.ChunkSize, "proteins per worker batch")
	f.StringVar(&flagMapping, "mapping", "", "ECOD mapping file (.db, .json or .tsv); enables the f_id column")
	f.StringVar(&flagTSV, "tsv", "", "write all annotations to this TSV file")
	f.StringVar(&flagFasta, "fasta", "", "write FASTA-like architectures to this file")
	f.StringVar(&flagSourceFasta, "source-fasta", "", "protein FASTA; switches --fasta to per-domain sequence records")
	f.StringVar(&flagSQL, "sql", "", "SQLite database; each input gets its own table")
	f.StringVar(&flagTable, "table", "", "override the SQLite table name")
	rootCmd.AddCommand(annotateCmd)
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("layout") {
		cfg.Input.Layout = flagLayout
	}
	if f.Changed("max-ievalue") {
		cfg.Thresholds.MaxIEvalue = flagMaxIEvalue
	}
	if f.Changed("min-hmm-cov") {
		cfg.Thresholds.MinHMMCov = flagMinHMMCov
	}
	if f.Changed("min-domain-cov") {
		cfg.Thresholds.MinDomainCov = flagMinDomainCov
	}
	if f.Changed("overlap-tolerance") {
		cfg.Resolve.OverlapTolerance = flagOverlapTol
	}
	if f.Changed("min-unannotated") {
		cfg.Resolve.MinUnannotated = flagMinUnn
	}
	if f.Changed("cores") {
		cfg.Run.Cores = flagCores
	}
	if f.Changed("chunk-size") {
		cfg.Run.ChunkSize = flagChunkSize
	}
	if f.Changed("mapping") {
		cfg.Mapping.Path = flagMapping
		cfg.Mapping.Enabled = flagMapping != ""
	}
	if f.Changed("tsv") {
		cfg.Output.TSV = flagTSV
	}
	if f.Changed("fasta") {
		cfg.Output.Fasta = flagFasta
	}
	if f.Changed("source-fasta") {
		cfg.Output.SourceFasta = flagSourceFasta
	}
	if f.Changed("sql") {
		cfg.Output.SQL = flagSQL
	}
	if f.Changed("table") {
		cfg.Output.Table = flagTable
	}
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	layout, err := hmmer.ParseLayout(cfg.Input.Layout)
	if err != nil {
		return err
	}

	inputs, err := fs.ResolveInputs(args)
	if err != nil {
		return err
	}
	if cfg.Output.Table != "" && len(inputs) > 1 {
		return fmt.Errorf("--table fixes a single table name; it cannot be combined with %d inputs", len(inputs))
	}

	// Load the mapping table once; workers share it read-only.
	var mapper port.Mapper
	if cfg.Mapping.Enabled {
		table, err := ecod.LoadFile(cfg.Mapping.Path)
		if err != nil {
			return fmt.Errorf("failed to load mapping: %w", err)
		}
		logger.Info("mapping loaded",
			zap.Int("entries", table.Len()),
			zap.String("release", table.Release()))
		mapper = table
	}

	var seqs *seqio.Index
	if cfg.Output.SourceFasta != "" {
		seqs, err = seqio.LoadFasta(cfg.Output.SourceFasta)
		if err != nil {
			return fmt.Errorf("failed to load source fasta: %w", err)
		}
		logger.Info("source fasta loaded", zap.Int("sequences", seqs.Len()))
	}

	uc := usecase.NewAnnotateUseCase(mapper, usecase.Options{
		Thresholds: usecase.Thresholds{
			MaxIEvalue:   cfg.Thresholds.MaxIEvalue,
			MinHMMCov:    cfg.Thresholds.MinHMMCov,
			MinDomainCov: cfg.Thresholds.MinDomainCov,
		},
		Resolve: usecase.ResolveOptions{
			OverlapTolerance: cfg.Resolve.OverlapTolerance,
			MinUnannotated:   cfg.Resolve.MinUnannotated,
		},
		ChunkSize: cfg.Run.ChunkSize,
		Cores:     cfg.Run.Cores,
	})
	uc.SetLogger(logger)

	summary := domain.Summary{Inputs: len(inputs)}
	withFID := cfg.Mapping.Enabled

	// Sinks given an explicit path span all inputs; their absence turns on
	// the per-input TSV fallback.
	shared, sharedOpenFailed := openSharedSinks(cfg, withFID, seqs)
	summary.SinksFailed += sharedOpenFailed
	sharedClosed := false
	closeShared := func() {
		if sharedClosed {
			return
		}
		sharedClosed = true
		for _, s := range shared {
			if s.close() {
				summary.SinksWritten++
			} else {
				summary.SinksFailed++
			}
		}
	}
	defer closeShared()

	for _, input := range inputs {
		if err := annotateInput(cmd.Context(), input, layout, cfg, uc, withFID, shared, &summary); err != nil {
			return err
		}
	}
	closeShared()

	printSummary(cfg, summary)

	if summary.SinksWritten == 0 {
		return fmt.Errorf("no output produced")
	}
	if summary.Partial() {
		exitCode = 1
	}
	return nil
}

// annotateInput runs the pipeline for one domain table and feeds the sinks.
func annotateInput(ctx context.Context, input string, layout hmmer.Layout, cfg *config.Config, uc *usecase.AnnotateUseCase, withFID bool, shared []*sinkEntry, summary *domain.Summary) error {
	reader := hmmer.NewReader(input, layout)
	reader.SetLogger(logger)
	groups, stats, err := reader.ReadGroups()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}
	summary.LinesRead += stats.Lines
	summary.LinesSkipped += stats.Skipped

	fmt.Printf("Annotating %s (%d proteins)...\n", input, len(groups))

	// Progress over chunks, initialized lazily once the total is known.
	var (
		bar   *progressbar.ProgressBar
		barMu sync.Mutex
	)
	progress := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Annotating[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	result, err := uc.Run(ctx, groups, progress)
	if err != nil {
		return fmt.Errorf("annotation of %s failed: %w", input, err)
	}
	summary.Proteins += len(result.Proteins)
	summary.Domains += result.DomainCount()
	summary.Unannotated += result.UnannotatedCount()
	summary.Unmapped += result.Unmapped
	summary.ChunksFailed += len(result.Failed)

	perInput, openFailed := openInputSinks(cfg, input, withFID)
	summary.SinksFailed += openFailed

	all := make([]*sinkEntry, 0, len(shared)+len(perInput))
	all = append(all, shared...)
	all = append(all, perInput...)
	for _, pa := range result.Proteins {
		rows := pa.Rows()
		for _, s := range all {
			s.write(rows, pa)
		}
	}
	for _, s := range perInput {
		if s.close() {
			summary.SinksWritten++
		} else {
			summary.SinksFailed++
		}
	}
	return nil
}

// openSharedSinks opens the sinks that concatenate all inputs. Failures are
// logged and counted; the run continues with whatever opened.
func openSharedSinks(cfg *config.Config, withFID bool, seqs *seqio.Index) ([]*sinkEntry, int) {
	var (
		entries []*sinkEntry
		failed  int
	)

	if cfg.Output.TSV != "" {
		t, err := sink.CreateTSV(cfg.Output.TSV, withFID)
		if err != nil {
			logger.Error("sink failed", zap.Error(&domain.SinkError{Sink: "tsv", Err: err}))
			failed++
		} else {
			entries = append(entries, &sinkEntry{name: "tsv", rows: t})
		}
	}

	if cfg.Output.Fasta != "" {
		var (
			f   *sink.Fasta
			err error
		)
		if seqs != nil {
			f, err = sink.CreateSequenceFasta(cfg.Output.Fasta, withFID, seqs)
		} else {
			f, err = sink.CreateFasta(cfg.Output.Fasta, withFID)
		}
		if err != nil {
			logger.Error("sink failed", zap.Error(&domain.SinkError{Sink: "fasta", Err: err}))
			failed++
		} else {
			f.SetLogger(logger)
			entries = append(entries, &sinkEntry{name: "fasta", proteins: f})
		}
	}

	return entries, failed
}

// openInputSinks opens the per-input sinks: the SQLite table for this input
// and, when no explicit sink is configured at all, the TSV fallback.
func openInputSinks(cfg *config.Config, input string, withFID bool) ([]*sinkEntry, int) {
	var (
		entries []*sinkEntry
		failed  int
	)

	if cfg.Output.SQL != "" {
		table := cfg.Output.Table
		if table == "" {
			table = input
		}
		s, err := sink.NewSQLite(cfg.Output.SQL, table, withFID)
		if err != nil {
			logger.Error("sink failed", zap.Error(&domain.SinkError{Sink: "sqlite", Err: err}))
			failed++
		} else {
			logger.Debug("sqlite table opened", zap.String("table", s.Table()))
			entries = append(entries, &sinkEntry{name: "sqlite", rows: s})
		}
	}

	if cfg.Output.TSV == "" && cfg.Output.Fasta == "" && cfg.Output.SQL == "" {
		path := fs.DefaultTSVPath(input)
		t, err := sink.CreateTSV(path, withFID)
		if err != nil {
			logger.Error("sink failed", zap.Error(&domain.SinkError{Sink: "tsv", Err: err}))
			failed++
		} else {
			entries = append(entries, &sinkEntry{name: "tsv", rows: t})
		}
	}

	return entries, failed
}

// sinkEntry tracks one open output. After the first write error the sink is
// skipped so the remaining sinks keep receiving results.
type sinkEntry struct {
	name     string
	rows     port.RowSink // exactly one of rows and proteins is set
	proteins port.ProteinSink
	failed   bool
}

func (s *sinkEntry) write(rows []domain.Row, pa domain.ProteinAnnotation) {
	if s.failed {
		return
	}
	var err error
	if s.rows != nil {
		err = s.rows.WriteBatch(rows)
	} else {
		err = s.proteins.WriteProtein(pa)
	}
	if err != nil {
		s.failed = true
		logger.Error("sink failed", zap.Error(&domain.SinkError{Sink: s.name, Err: err}))
	}
}

// close flushes the sink and reports whether it completed cleanly.
func (s *sinkEntry) close() bool {
	var err error
	if s.rows != nil {
		err = s.rows.Close()
	} else {
		err = s.proteins.Close()
	}
	if err != nil && !s.failed {
		s.failed = true
		logger.Error("sink failed", zap.Error(&domain.SinkError{Sink: s.name, Err: err}))
	}
	return !s.failed
}

func printSummary(cfg *config.Config, s domain.Summary) {
	fmt.Printf("\nAnnotation complete:\n")
	fmt.Printf("  Inputs:               %d\n", s.Inputs)
	fmt.Printf("  Proteins:             %d\n", s.Proteins)
	fmt.Printf("  Domains called:       %d\n", s.Domains)
	fmt.Printf("  Unannotated segments: %d\n", s.Unannotated)
	fmt.Printf("  Lines read:           %d\n", s.LinesRead)
	if cfg.Mapping.Enabled {
		fmt.Printf("  Unmapped ids:         %d\n", s.Unmapped)
	}
	fmt.Printf("  Sinks written:        %d\n", s.SinksWritten)

	if s.LinesSkipped > 0 || s.ChunksFailed > 0 || s.SinksFailed > 0 {
		fmt.Printf("\nWarnings:\n")
		if s.LinesSkipped > 0 {
			fmt.Printf("  Lines skipped: %d\n", s.LinesSkipped)
		}
		if s.ChunksFailed > 0 {
			fmt.Printf("  Chunks failed: %d\n", s.ChunksFailed)
		}
		if s.SinksFailed > 0 {
			fmt.Printf("  Sinks failed:  %d\n", s.SinksFailed)
		}
	}
}
