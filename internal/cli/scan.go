package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/output"
	"github.com/sdejongh/audiopatch/pkg/resolve"
)

// ScanFlags holds scan command flags
type ScanFlags struct {
	Search       string
	Source       string
	Safe         bool
	Vanilla      bool
	Durations    bool
	Report       string
	ReportFormat string
}

var scanFlags ScanFlags

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List audio conflicts between the base game and mods",
		Long: `Scan the base game data directory and every enabled mod for audio files
(loose or inside BSA/BA2 archives) and list the keys provided by more than one source.`,
		Args: cobra.NoArgs,
		RunE: runScan,
	}

	cmd.Flags().StringVar(&scanFlags.Search, "search", "", "only keys containing this text")
	cmd.Flags().StringVar(&scanFlags.Source, "source", "", "only conflicts involving this mod")
	cmd.Flags().BoolVar(&scanFlags.Safe, "safe", false, "only conflicts between the base game and mods")
	cmd.Flags().BoolVar(&scanFlags.Vanilla, "vanilla", false, "include base game vs single mod conflicts")
	cmd.Flags().BoolVar(&scanFlags.Durations, "durations", false, "probe durations of the listed variants with ffmpeg")
	cmd.Flags().StringVar(&scanFlags.Report, "report", "", "write the listed conflicts to a file")
	cmd.Flags().StringVar(&scanFlags.ReportFormat, "report-format", "human", "conflict report format: human, json")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.scan(ctx); err != nil {
		return err
	}

	f := ws.filter()
	f.Search = scanFlags.Search
	f.Source = scanFlags.Source
	if cmd.Flags().Changed("safe") {
		f.SafeMode = scanFlags.Safe
	}
	if cmd.Flags().Changed("vanilla") {
		f.ShowVanilla = scanFlags.Vanilla
	}

	conflicts := ws.session.Conflicts
	keys := resolve.FilterKeys(conflicts, f)

	if scanFlags.Durations || ws.cfg.Media.Durations {
		var variants []*models.Variant
		for _, key := range keys {
			variants = append(variants, conflicts[key]...)
		}
		if err := ws.probeDurations(ctx, variants); err != nil {
			return err
		}
	}

	if err := ws.formatter.Scan(ws.report, conflicts, keys, ws.session.Winners); err != nil {
		return err
	}

	reportPath := scanFlags.Report
	if reportPath == "" {
		reportPath = ws.cfg.Output.ReportFile
	}
	if reportPath != "" {
		if err := output.WriteConflictReport(reportPath, scanFlags.ReportFormat, conflicts, keys, ws.session.Winners); err != nil {
			return fmt.Errorf("failed to write conflict report: %w", err)
		}
	}

	return statusError(ws.report.Status)
}
