package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdejongh/audiopatch/pkg/config"
	"github.com/sdejongh/audiopatch/pkg/logging"
	"github.com/sdejongh/audiopatch/pkg/output"
	"github.com/sdejongh/audiopatch/pkg/resolve"
	"github.com/sdejongh/audiopatch/pkg/synth"
)

// GenerateFlags holds generate command flags
type GenerateFlags struct {
	OutputRoot string
	Folder     string
	Pack       bool
	Packer     string
	Safe       bool
	Yes        bool
}

var generateFlags GenerateFlags

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the patch mod from the chosen winners",
		Long: `Write every chosen winner into the patch folder, as loose files or packed
into a single archive by an external packer. The patch is built in a staging
directory and swapped into place once complete.`,
		Args: cobra.NoArgs,
		RunE: runGenerate,
	}

	cmd.Flags().StringVar(&generateFlags.OutputRoot, "output-root", "", "directory receiving the patch folder (default: mods root)")
	cmd.Flags().StringVar(&generateFlags.Folder, "folder", "", "patch folder name")
	cmd.Flags().BoolVar(&generateFlags.Pack, "pack", false, "pack the patch into one archive")
	cmd.Flags().StringVar(&generateFlags.Packer, "packer", "", "path to the packer executable (BSArch)")
	cmd.Flags().BoolVar(&generateFlags.Safe, "safe", false, "warn about winners outside base game conflicts")
	cmd.Flags().BoolVarP(&generateFlags.Yes, "yes", "y", false, "include winners flagged by the safe mode check")

	return cmd
}

func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config) {
	if generateFlags.OutputRoot != "" {
		cfg.Paths.OutputRoot = generateFlags.OutputRoot
	}
	if generateFlags.Folder != "" {
		cfg.Patch.FolderName = generateFlags.Folder
	}
	if cmd.Flags().Changed("pack") {
		cfg.Patch.Pack = generateFlags.Pack
	}
	if generateFlags.Packer != "" {
		cfg.Patch.PackerPath = generateFlags.Packer
	}
	if cmd.Flags().Changed("safe") {
		cfg.Filters.SafeMode = generateFlags.Safe
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	applyGenerateFlags(cmd, ws.cfg)
	if err := ws.cfg.Validate(); err != nil {
		return err
	}
	if ws.layout, err = ws.cfg.Layout(ws.layout.Manifest); err != nil {
		return err
	}

	if err := ws.scan(ctx); err != nil {
		return err
	}

	winners := ws.session.Winners
	if ws.cfg.Filters.SafeMode {
		if keys := resolve.NonSafeWinners(ws.session.Conflicts, winners); len(keys) > 0 && !generateFlags.Yes {
			return safeModeError(ws, keys)
		}
	}

	packer := synth.NewPacker(ws.cfg.Patch.PackerPath, nil)
	if len(ws.cfg.Patch.PackerArgs) > 0 {
		packer.Args = ws.cfg.Patch.PackerArgs
	}

	progress := output.NewProgressBar(os.Stderr, "Generating", ws.cfg.Output.Progress && !ws.cfg.Output.Quiet)
	synthesizer := synth.NewSynthesizer()
	synthesizer.Logger = ws.logger.WithFields(logging.Fields{"component": "synth"})
	synthesizer.Progress = progress.Update

	builder := synth.NewBuilder(synthesizer, packer, ws.logger)
	report, err := builder.Build(ctx, winners, synth.BuildOptions{
		OutputRoot:       ws.layout.Output(),
		FolderName:       ws.cfg.Patch.FolderName,
		Pack:             ws.cfg.Patch.Pack,
		ArchiveExtension: ws.cfg.Patch.ArchiveExtension,
	})
	progress.Finish()

	if report != nil {
		if ferr := ws.formatter.Synthesis(report); ferr != nil {
			return ferr
		}
	}
	if err != nil {
		return err
	}
	return statusError(report.Status)
}

// safeModeError lists the winners of conflicts that do not involve the base game
func safeModeError(ws *workspace, keys []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "safe mode is enabled but %d winner(s) belong to mod-vs-mod conflicts:\n", len(keys))
	for _, key := range keys {
		v := ws.session.Winners[key]
		fmt.Fprintf(&b, "  - %s: %s%s (%s)\n", v.SourceName(), key, v.Extension(), v.SourceDescription())
	}
	b.WriteString("rerun with --yes to include them")
	return errors.New(b.String())
}
