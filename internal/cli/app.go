package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdejongh/audiopatch/pkg/cache"
	"github.com/sdejongh/audiopatch/pkg/catalog"
	"github.com/sdejongh/audiopatch/pkg/config"
	"github.com/sdejongh/audiopatch/pkg/logging"
	"github.com/sdejongh/audiopatch/pkg/media"
	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/output"
	"github.com/sdejongh/audiopatch/pkg/process"
	"github.com/sdejongh/audiopatch/pkg/resolve"
	"github.com/sdejongh/audiopatch/pkg/scan"
	"github.com/sdejongh/audiopatch/pkg/selection"
)

// ExitError reports a completed operation whose status maps to a non-zero exit code
type ExitError struct {
	Status models.Status
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("finished with status %s", e.Status)
}

// Code returns the process exit code
func (e *ExitError) Code() int {
	return e.Status.ExitCode()
}

// statusError returns nil for a successful status
func statusError(s models.Status) error {
	if s == models.StatusSuccess {
		return nil
	}
	return &ExitError{Status: s}
}

// loadConfig loads the file named by --config or the default location
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides configuration with global flags
func applyFlagsToConfig(cfg *config.Config) {
	if globalFlags.Output != "" {
		cfg.Output.Format = globalFlags.Output
	}
	if globalFlags.Quiet {
		cfg.Output.Quiet = true
	}
	if globalFlags.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = globalFlags.LogFile
	}
	if globalFlags.LogFormat != "" {
		cfg.Logging.Format = globalFlags.LogFormat
	}
	if globalFlags.LogLevel != "" {
		cfg.Logging.Level = globalFlags.LogLevel
	}
	if globalFlags.Verbose {
		cfg.Logging.Enabled = true
		cfg.Logging.Level = "debug"
	}
}

// createLogger creates a logger based on configuration
func createLogger(cfg config.LoggingConfig, quiet bool) (logging.Logger, error) {
	if !cfg.Enabled {
		return logging.NewNullLogger(), nil
	}

	format := logging.FormatText
	if cfg.Format == "json" {
		format = logging.FormatJSON
	}
	level := logging.ParseLevel(cfg.Level)

	if cfg.File == "" {
		if quiet && level < logging.ErrorLevel {
			level = logging.ErrorLevel
		}
		return logging.NewConsoleLogger(os.Stderr, level, format), nil
	}

	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.File,
		Format:     format,
		Level:      level,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
	})
}

// workspace bundles what every command needs: configuration, logger,
// output and, once scanned, the conflicts and chosen winners
type workspace struct {
	cfg       *config.Config
	logger    logging.Logger
	formatter output.Formatter
	out       io.Writer
	layout    catalog.Layout

	report     *models.ScanReport
	session    *resolve.Session
	selection  *selection.Selection
	unresolved []selection.Choice
}

func openWorkspace(cmd *cobra.Command) (*workspace, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagsToConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := createLogger(cfg.Logging, cfg.Output.Quiet)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if cfg.Output.Quiet {
		out = io.Discard
	}
	formatter, err := output.New(cfg.Output.Format, out)
	if err != nil {
		logger.Close()
		return nil, err
	}

	manifest, err := catalog.LoadManifest(cfg.Paths.Manifest)
	if err != nil {
		logger.Close()
		return nil, err
	}
	layout, err := cfg.Layout(manifest)
	if err != nil {
		logger.Close()
		return nil, err
	}

	return &workspace{
		cfg:       cfg,
		logger:    logger,
		formatter: formatter,
		out:       out,
		layout:    layout,
	}, nil
}

// scan builds the conflict map, starts a session and re-applies the saved selection
func (w *workspace) scan(ctx context.Context) error {
	sources, err := w.layout.Sources()
	if err != nil {
		return err
	}

	scanner := scan.New(
		scan.WithExclude(w.cfg.Exclude),
		scan.WithLogger(w.logger.WithFields(logging.Fields{"component": "scan"})),
	)
	conflicts, report, err := scanner.Scan(ctx, sources)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	w.report = report
	w.session = resolve.NewSession(conflicts)

	sel, err := selection.Load(w.cfg.Paths.Selection)
	if err != nil {
		w.logger.Warn(ctx, "ignoring saved selection", logging.Fields{"path": w.cfg.Paths.Selection, "error": err.Error()})
		sel = selection.New()
	}
	w.selection = sel

	applied, unresolved := sel.Apply(w.session)
	w.unresolved = unresolved
	w.logger.Debug(ctx, "selection applied", logging.Fields{"applied": applied, "unresolved": len(unresolved)})
	for _, c := range unresolved {
		w.logger.Warn(ctx, "saved winner no longer available", logging.Fields{"key": c.Key, "source": c.Source})
	}
	return nil
}

// filter returns the configured conflict filter
func (w *workspace) filter() resolve.Filter {
	return resolve.Filter{
		SafeMode:    w.cfg.Filters.SafeMode,
		ShowVanilla: w.cfg.Filters.ShowVanilla,
	}
}

// saveSelection persists the explicit winners of the session
func (w *workspace) saveSelection() error {
	sel := selection.FromWinners(w.session.Winners)
	if err := sel.Save(w.cfg.Paths.Selection); err != nil {
		return err
	}
	w.selection = sel
	return nil
}

// media returns the extractor, transcoder and prober sharing one temp cache.
// The caller clears the cache when done with the files.
func (w *workspace) media() (*cache.FileCache, *media.Extractor, *media.Transcoder, *media.Prober, error) {
	c, err := cache.New(w.cfg.Media.CacheDir)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	runner := process.NewExecRunner()
	ffmpeg := media.ResolveFFmpeg(w.cfg.Media.FFmpegPath)
	return c,
		media.NewExtractor(c),
		media.NewTranscoder(ffmpeg, runner, c),
		media.NewProber(ffmpeg, runner),
		nil
}

// probeDurations fills the missing durations of variants in the background
// and waits for the results. Writes are serialized on one dispatcher goroutine.
func (w *workspace) probeDurations(ctx context.Context, variants []*models.Variant) error {
	c, ex, _, prober, err := w.media()
	if err != nil {
		return err
	}
	defer c.Clear()

	dispatch := media.NewLoopDispatcher(len(variants))
	worker := media.NewDurationWorker(ex, prober, dispatch, w.logger.WithFields(logging.Fields{"component": "durations"}))
	worker.Start(ctx, variants)
	worker.Wait()
	worker.Stop()
	dispatch.Close()
	return ctx.Err()
}

func (w *workspace) Close() error {
	return w.logger.Close()
}
