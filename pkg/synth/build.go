package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sdejongh/audiopatch/pkg/logging"
	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/storage"
)

var (
	// ErrNothingToGenerate is returned when no winner is selected
	ErrNothingToGenerate = errors.New("no winners selected, the patch would be empty")
	// ErrEmptyOutput is returned when synthesis wrote no audio file
	ErrEmptyOutput = errors.New("no audio files were written to the patch output")
)

// DefaultFolderName is the directory (and archive base name) of the generated patch
const DefaultFolderName = "SkyrimAudioSelector_Patch"

// BuildOptions controls a patch build
type BuildOptions struct {
	// OutputRoot is the directory receiving the patch folder
	OutputRoot string

	// FolderName is the patch folder, DefaultFolderName when empty
	FolderName string

	// Pack hands the staged files to the packer and keeps only the archive
	Pack bool

	// ArchiveExtension of the packed archive, ".bsa" when empty
	ArchiveExtension string
}

func (o BuildOptions) folder() string {
	if strings.TrimSpace(o.FolderName) == "" {
		return DefaultFolderName
	}
	return o.FolderName
}

func (o BuildOptions) archiveName() string {
	ext := o.ArchiveExtension
	if ext == "" {
		ext = ".bsa"
	}
	return o.folder() + ext
}

// FinalPath returns the patch folder path
func (o BuildOptions) FinalPath() string {
	return filepath.Join(o.OutputRoot, o.folder())
}

// Builder runs the full pipeline: stage, synthesize, pack, swap
type Builder struct {
	Synth  *Synthesizer
	Packer *Packer
	Logger logging.Logger

	// TempDir receives the packer output, os.TempDir() when empty
	TempDir string
}

// NewBuilder creates a builder; packer may be nil when packing is never requested
func NewBuilder(synth *Synthesizer, packer *Packer, logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Builder{
		Synth:  synth,
		Packer: packer,
		Logger: logger,
	}
}

// Build generates the patch for winners. Configuration problems are
// reported before any file is touched. Synthesis failures remove the
// staging directory; packer failures keep it for inspection (its path is
// in the report) and never touch the existing patch folder.
func (b *Builder) Build(ctx context.Context, winners models.WinnerMap, opts BuildOptions) (*models.SynthesisReport, error) {
	if len(winners) == 0 {
		return nil, ErrNothingToGenerate
	}
	if strings.TrimSpace(opts.OutputRoot) == "" {
		return nil, &models.ValidationError{Field: "paths.output_root", Message: "is required"}
	}
	if opts.Pack && !b.Packer.Available() {
		return nil, &models.ValidationError{Field: "patch.packer_path", Message: "packing requested but the packer executable was not found"}
	}

	if err := os.MkdirAll(opts.OutputRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output root: %w", err)
	}
	root, err := storage.NewLocal(opts.OutputRoot)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	final := opts.FinalPath()
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	name := opts.folder() + models.StagingInfix + id
	staging := filepath.Join(opts.OutputRoot, name)
	log := b.Logger.WithFields(logging.Fields{"staging": staging})

	// The cleanup must run even when ctx is already cancelled
	cleanup := func() {
		if err := root.Delete(context.Background(), name); err != nil {
			log.Warn(ctx, "failed to remove staging directory", logging.Fields{"error": err.Error()})
		}
	}

	if err := root.MkdirAll(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	synth := b.Synth
	if synth == nil {
		synth = NewSynthesizer()
	}

	report, err := synth.Synthesize(ctx, staging, winners)
	if err != nil {
		cleanup()
		log.Error(ctx, "synthesis failed", err, nil)
		return report, fmt.Errorf("failed to generate patch: %w", err)
	}

	if !HasAnyAudioFiles(staging) {
		cleanup()
		report.Status = models.StatusFailed
		report.Finish()
		return report, ErrEmptyOutput
	}

	if opts.Pack {
		if err := b.pack(ctx, staging, opts, id); err != nil {
			report.StagingPath = staging
			report.Status = models.StatusFailed
			report.Finish()
			log.Error(ctx, "packing failed, staging kept", err, nil)
			return report, fmt.Errorf("packing failed (staged files kept at %s): %w", staging, err)
		}
		report.Packed = true
		report.ArchivePath = filepath.Join(final, opts.archiveName())
	}

	method, err := Replace(final, staging)
	if err != nil {
		report.StagingPath = staging
		report.Status = models.StatusFailed
		report.Finish()
		return report, fmt.Errorf("failed to replace %s: %w", final, err)
	}

	report.OutputPath = final
	report.Status = models.StatusSuccess
	report.Finish()

	b.Logger.Info(ctx, "patch generated", logging.Fields{
		"output": final,
		"method": string(method),
		"packed": report.Packed,
	})
	return report, nil
}

// pack builds the archive outside the staged tree, moves it in and
// removes the loose audio it now contains
func (b *Builder) pack(ctx context.Context, staging string, opts BuildOptions, id string) error {
	tempRoot := b.TempDir
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	tempDir := filepath.Join(tempRoot, "audiopatch", "packer")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("failed to create packer output directory: %w", err)
	}

	ext := filepath.Ext(opts.archiveName())
	tempArchive := filepath.Join(tempDir, fmt.Sprintf("%s_%s%s", opts.folder(), id, ext))
	os.Remove(tempArchive)

	if err := b.Packer.Pack(ctx, staging, tempArchive); err != nil {
		os.Remove(tempArchive)
		return err
	}
	tmp, err := storage.NewLocal(tempDir)
	if err != nil {
		return err
	}
	defer tmp.Close()

	info, err := tmp.Stat(ctx, filepath.Base(tempArchive))
	if err != nil {
		return fmt.Errorf("packer reported success but produced no archive: %w", err)
	}
	if info.Size == 0 {
		tmp.Delete(ctx, filepath.Base(tempArchive))
		return fmt.Errorf("packer produced an empty archive: %s", tempArchive)
	}

	inStaging := filepath.Join(staging, opts.archiveName())
	os.Remove(inStaging)
	if err := moveFile(tempArchive, inStaging); err != nil {
		return fmt.Errorf("failed to move archive into staging: %w", err)
	}

	return DeleteAudioFiles(staging, inStaging)
}
