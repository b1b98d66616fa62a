// Package cli implements the dux command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/veykal/dux/internal/breakdown"
	"github.com/veykal/dux/internal/ops"
	"github.com/veykal/dux/internal/remote"
	"github.com/veykal/dux/internal/scan"
)

type options struct {
	summary    bool
	topDirs    int
	maxSeconds int
	maxDirs    int
	operations int
	exclude    []string
	jsonOut    bool
	exportPath string
	importPath string
	noProgress bool

	coverage       float64
	minItemPercent float64
	maxItems       int
	fileCoverage   float64
	minFilePercent float64
	maxFilesLeaf   int
	largeFile      string

	sshPort    int
	sshBatch   bool
	sshSeconds int
}

// Execute runs the dux command with os.Args.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "dux [flags] [path | user@host [remote-path]]",
		Short: "Bounded disk usage scanner with a size breakdown report",
		Long: heredoc.Doc(`
			dux scans a directory tree under soft time and directory budgets and
			reports how the space is used: total bytes, the biggest folders, and
			a bounded per-top-level-folder breakdown that covers most of the
			bytes with a handful of representative entries.

			A scan that hits a budget (or Ctrl-C) still produces a result; it is
			marked partial together with the reason. Symbolic links are never
			followed and permission-denied directories are skipped and counted.

			With a user@host target the same scan runs over SFTP.
		`),
		Example: heredoc.Doc(`
			dux .                          scan the current directory
			dux --summary /var             totals only, no breakdown
			dux --max-duration 60 /home    allow a longer scan
			dux --json / > usage.json      machine-readable report
			dux --export scan.json /srv    store the report for later
			dux --import scan.json         re-render a stored report
			dux user@192.168.1.10 /var     scan a remote tree over SFTP
		`),
		Version:       version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts, version)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.summary, "summary", false, "Track totals only, skip per-directory statistics")
	f.IntVarP(&opts.topDirs, "top", "t", scan.DefaultTopDirectoriesLimit, "Number of top directories to report")
	f.IntVar(&opts.maxSeconds, "max-duration", int(scan.DefaultMaxDuration/time.Second), "Soft scan time budget in seconds")
	f.IntVar(&opts.maxDirs, "max-dirs", scan.DefaultMaxDirectories, "Soft cap on directories visited")
	f.IntVarP(&opts.operations, "concurrency", "j", scan.DefaultConcurrentOperations, "Max concurrent filesystem operations")
	f.StringSliceVarP(&opts.exclude, "exclude", "e", nil, "Entry names to skip (e.g. node_modules,.git)")
	f.BoolVar(&opts.jsonOut, "json", false, "Emit the report as JSON")
	f.StringVar(&opts.exportPath, "export", "", "Write the report to a file ('-' for stdout)")
	f.StringVar(&opts.importPath, "import", "", "Render a previously exported report")
	f.BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress line")

	f.Float64Var(&opts.coverage, "coverage", breakdown.DefaultCoverageTarget, "Fraction of each folder's bytes the breakdown aims to cover")
	f.Float64Var(&opts.minItemPercent, "min-item-percent", breakdown.DefaultMinItemPercent, "Smallest share of a folder worth its own row")
	f.IntVar(&opts.maxItems, "max-items", 0, "Cap on breakdown rows per folder (0 = derived)")
	f.Float64Var(&opts.fileCoverage, "file-coverage", breakdown.DefaultFileCoverageTarget, "Coverage target for per-directory file lists")
	f.Float64Var(&opts.minFilePercent, "min-file-percent", breakdown.DefaultMinFilePercent, "Smallest share of a directory worth a file row")
	f.IntVar(&opts.maxFilesLeaf, "max-files-per-leaf", 0, "Cap on file rows per directory (0 = derived)")
	f.StringVar(&opts.largeFile, "large-file-threshold", "50MiB", "List files only in directories whose largest file exceeds this size")

	f.IntVar(&opts.sshPort, "ssh-port", 22, "SSH port for remote scans")
	f.BoolVar(&opts.sshBatch, "ssh-batch", false, "Disable SSH prompts (key/agent auth only)")
	f.IntVar(&opts.sshSeconds, "ssh-timeout", 15, "SSH connection timeout in seconds")

	return cmd
}

func run(cmd *cobra.Command, args []string, opts *options, version string) error {
	out := cmd.OutOrStdout()

	if opts.importPath != "" {
		if len(args) > 0 {
			return fmt.Errorf("--import cannot be combined with a scan target")
		}
		env, err := ops.Import(opts.importPath)
		if err != nil {
			return err
		}
		return render(out, env.Result, env.Breakdown, opts, version)
	}

	target, err := resolveTarget(args)
	if err != nil {
		return err
	}

	largeFile, err := humanize.ParseBytes(opts.largeFile)
	if err != nil {
		return fmt.Errorf("invalid large-file-threshold: %w", err)
	}

	cfg := scan.Config{
		MaxDuration:          time.Duration(opts.maxSeconds) * time.Second,
		MaxDirectories:       opts.maxDirs,
		ConcurrentOperations: opts.operations,
	}

	scanOpts := scan.Detailed()
	if opts.summary {
		scanOpts = scan.Summary()
	}
	scanOpts.TopDirectoriesLimit = opts.topDirs
	scanOpts.ExcludeNames = opts.exclude

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scanner, cleanup, err := buildScanner(ctx, target, cfg, opts)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	var onProgress func(scan.Progress)
	progress := newProgressPrinter(cmd.ErrOrStderr())
	if !opts.noProgress && isatty.IsTerminal(os.Stderr.Fd()) {
		onProgress = progress.update
		defer progress.finish()
	}

	res, err := scanner.Scan(ctx, target.path, scanOpts, onProgress)
	if err != nil {
		return err
	}
	progress.finish()

	var bd *breakdown.Result
	if !opts.summary {
		bd = breakdown.Compute(breakdown.Input{
			RootPath:              res.RootPath,
			DirectorySizes:        res.DirectorySizes,
			DirectoryFileCounts:   res.DirectoryFileCounts,
			DirectoryMaxFileBytes: res.DirectoryMaxFileBytes,
			TopFilesByDirectory:   res.TopFilesByDirectory,
		}, breakdown.Options{
			CoverageTarget:     opts.coverage,
			MinItemPercent:     opts.minItemPercent,
			MaxItems:           opts.maxItems,
			FileCoverageTarget: opts.fileCoverage,
			MinFilePercent:     opts.minFilePercent,
			MaxFilesPerLeaf:    opts.maxFilesLeaf,
			LargeFileThreshold: int64(largeFile),
		})
	}

	if opts.exportPath != "" {
		if err := ops.Export(res, bd, opts.exportPath, version); err != nil {
			return fmt.Errorf("export error: %w", err)
		}
		if opts.exportPath != "-" {
			fmt.Fprintf(out, "Exported to %s\n", opts.exportPath)
		}
		return nil
	}

	return render(out, res, bd, opts, version)
}

func buildScanner(ctx context.Context, target scanTarget, cfg scan.Config, opts *options) (*scan.Scanner, func(), error) {
	if !target.remote {
		return scan.New(cfg), nil, nil
	}

	fsys, err := remote.Dial(ctx, remote.Config{
		Target:    target.destination,
		Port:      opts.sshPort,
		BatchMode: opts.sshBatch,
		Timeout:   time.Duration(opts.sshSeconds) * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}
	return scan.NewWithFS(fsys, cfg), func() { fsys.Close() }, nil
}
