package cli

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ElectronicsArchiver/splat/internal/cache"
	"github.com/ElectronicsArchiver/splat/internal/config"
	"github.com/ElectronicsArchiver/splat/internal/console"
	"github.com/ElectronicsArchiver/splat/internal/linker"
	"github.com/ElectronicsArchiver/splat/internal/pipeline"
	"github.com/ElectronicsArchiver/splat/internal/segment"
	"github.com/ElectronicsArchiver/splat/internal/symbols"
)

// SplitOptions holds flags for the split command.
type SplitOptions struct {
	*RootOptions
	Target   string
	BaseDir  string
	Modes    []string
	UseCache bool
}

// NewSplitCommand creates the split command.
func NewSplitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SplitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "split <config.yaml> [more-configs...]",
		Short: "Split a ROM per its configuration",
		Long: `Split a ROM into per-segment artifacts.

Multiple configuration files merge in argument order: segment lists
concatenate, option mappings merge recursively, and later scalar values
win. The merged document is schema-validated before anything runs.

Example:
  splat split ./config.yaml --target ./baserom.z64 --basedir ./out
  splat split ./base.yaml ./us-version.yaml --use-cache`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Target, "target", "", "path to the binary to split (overrides target_path)")
	cmd.Flags().StringVar(&opts.BaseDir, "basedir", "", "directory to extract into (overrides base_path)")
	cmd.Flags().StringSliceVar(&opts.Modes, "modes", nil, "processing modes to run (default: all)")
	cmd.Flags().BoolVar(&opts.UseCache, "use-cache", false, "only re-split segments whose inputs changed")

	return cmd
}

func runSplit(opts *SplitOptions, configPaths []string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	doc, err := config.Load(configPaths...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	options, err := config.NewOptions(doc, opts.BaseDir, opts.Target)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid options block", err)
	}
	options.SetModes(opts.Modes)
	if opts.Verbose {
		options.Verbose = true
	}

	if options.TargetPath == "" {
		return NewExitError(ExitCommandError, "no binary to split: set target_path or pass --target")
	}
	rom, err := os.ReadFile(options.TargetPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read target binary", err)
	}
	slog.Info("target loaded", "path", options.TargetPath, "bytes", len(rom))

	// The checksum gate runs before any segment processing.
	if err := config.VerifyChecksum(doc, rom); err != nil {
		return WrapExitError(ExitFailure, "target binary does not match configuration", err)
	}

	if options.BasePath != "" {
		if err := os.MkdirAll(options.BasePath, 0o755); err != nil {
			return WrapExitError(ExitCommandError, "failed to create output directory", err)
		}
	}

	store := cache.Open(options.CacheFile(), opts.UseCache)
	defer store.Close()

	if fp, err := cache.ComputeValue(options.Raw); err == nil {
		if store.InvalidateOnOptionsChange(fp) {
			slog.Info("options changed, cache discarded")
		}
	} else {
		slog.Warn("options block not fingerprintable, cache discarded", "error", err)
		store.InvalidateOnOptionsChange(cache.Fingerprint{})
	}

	rawSegments, _ := doc["segments"].([]any)
	descs, err := segment.ParseDescriptors(rawSegments)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad segment descriptor", err)
	}
	segs, err := segment.Build(descs, options)
	if err != nil {
		return WrapExitError(ExitCommandError, "segment graph rejected", err)
	}
	slog.Info("segment graph built", "segments", len(segs))

	table := symbols.NewTable()
	if options.ModeActive("code") && options.SymbolAddrsPath != "" {
		if err := table.LoadAddrsFile(options.ResolvePath(options.SymbolAddrsPath)); err != nil {
			return WrapExitError(ExitCommandError, "failed to load symbol addrs", err)
		}
		slog.Info("symbols loaded", "count", table.Len())
	}

	out := console.New(cmd.OutOrStdout(), options.Verbose)
	p := pipeline.New(options, rom, segs, table, store, out)
	if err := p.Run(); err != nil {
		return WrapExitError(ExitFailure, "split run failed", err)
	}

	if options.ModeActive("ld") {
		if err := emitLinkerMetadata(options, segs); err != nil {
			return WrapExitError(ExitCommandError, "failed to write linker metadata", err)
		}
	}
	if err := emitUndefinedListings(options, table); err != nil {
		return WrapExitError(ExitCommandError, "failed to write undefined symbol listings", err)
	}

	p.ReportWarnings()
	p.ReportStatistics()

	// A failed save costs the next run some time, never correctness.
	if err := store.Save(); err != nil {
		slog.Warn("cache not persisted", "error", err)
	}
	return nil
}

func emitLinkerMetadata(options *config.Options, segs []segment.Segment) error {
	w := linker.NewWriter()
	for _, seg := range segs {
		w.Add(seg)
	}

	if err := writeText(options.ResolvePath(options.LdScriptPath), w.LinkerScript()); err != nil {
		return err
	}
	if err := writeText(options.ResolvePath(options.SymbolHeaderPath), w.SymbolHeader()); err != nil {
		return err
	}
	if options.CreateElfSectionList {
		if err := writeText(options.ResolvePath(options.ElfSectionListPath), linker.SectionList(segs)); err != nil {
			return err
		}
	}
	return nil
}

// emitUndefinedListings writes the fixup listings. A listing with no
// qualifying symbols produces no file.
func emitUndefinedListings(options *config.Options, table *symbols.Table) error {
	if options.CreateUndefinedFuncsAuto {
		if data := linker.UndefinedFuncs(table); data != nil {
			if err := writeText(options.ResolvePath(options.UndefinedFuncsAutoPath), data); err != nil {
				return err
			}
		}
	}
	if options.CreateUndefinedSymsAuto {
		if data := linker.UndefinedSyms(table); data != nil {
			if err := writeText(options.ResolvePath(options.UndefinedSymsAutoPath), data); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeText(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
