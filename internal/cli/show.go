package cli

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdejongh/audiopatch/pkg/audiofile"
	"github.com/sdejongh/audiopatch/pkg/media"
	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/resolve"
	"github.com/sdejongh/audiopatch/pkg/storage"
)

// NewShowCommand creates the show command
func NewShowCommand() *cobra.Command {
	var durations bool

	cmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Show the variants of one conflict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			ws, err := openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer ws.Close()

			if err := ws.scan(ctx); err != nil {
				return err
			}

			key := normalizeKey(args[0])
			list, _, err := ws.session.Select(key)
			if err != nil {
				return err
			}

			if durations || ws.cfg.Media.Durations {
				if err := ws.probeDurations(ctx, list); err != nil {
					return err
				}
			}

			return ws.formatter.Conflict(key, list, ws.session.Effective(key))
		},
	}

	cmd.Flags().BoolVar(&durations, "durations", false, "probe durations with ffmpeg")

	return cmd
}

// NewChooseCommand creates the choose command
func NewChooseCommand() *cobra.Command {
	var (
		fromArchive bool
		clearChoice bool
	)

	cmd := &cobra.Command{
		Use:   "choose <key> [source]",
		Short: "Pick the winning source of a conflict",
		Long: `Record which source wins a conflict. The choice is saved to the selection
file and used by generate. Without a source, --clear removes the choice.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			ws, err := openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer ws.Close()

			if err := ws.scan(ctx); err != nil {
				return err
			}

			key := normalizeKey(args[0])
			list, _, err := ws.session.Select(key)
			if err != nil {
				return err
			}

			if clearChoice {
				ws.session.ClearWinner(key)
			} else {
				if len(args) < 2 {
					return fmt.Errorf("a source name is required unless --clear is given")
				}
				v := pickVariant(list, args[1], fromArchive)
				if v == nil {
					return fmt.Errorf("%s has no variant from %q", key, args[1])
				}
				if _, err := ws.session.SetWinner(key, v); err != nil {
					return err
				}
			}

			if err := ws.saveSelection(); err != nil {
				return err
			}
			return ws.formatter.Conflict(key, list, ws.session.Effective(key))
		},
	}

	cmd.Flags().BoolVar(&fromArchive, "archive", false, "prefer the source's archive entry over its loose file")
	cmd.Flags().BoolVar(&clearChoice, "clear", false, "remove the choice for this key")

	return cmd
}

// NewLocateCommand creates the locate command
func NewLocateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "locate <key>",
		Short: "Print the file path of a conflict's winner",
		Long:  `Print the path of the winning loose file. Archive winners have no file path.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			ws, err := openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer ws.Close()

			if err := ws.scan(ctx); err != nil {
				return err
			}

			location, err := resolve.LooseLocation(ws.session.Conflicts, ws.session.Winners, normalizeKey(args[0]))
			if err != nil {
				return err
			}
			return ws.formatter.Message(location)
		},
	}
}

// NewExtractCommand creates the extract command
func NewExtractCommand() *cobra.Command {
	var (
		source string
		wav    bool
		dest   string
	)

	cmd := &cobra.Command{
		Use:   "extract <key>",
		Short: "Write a variant of a conflict to disk",
		Long: `Resolve a variant (the winner unless --source is given) to a playable file,
extracting it from its archive when needed and optionally converting it to WAV.
Without --dest the printed file lives in the media cache directory; later
runs for the same entry overwrite it instead of adding files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			ws, err := openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer ws.Close()

			if err := ws.scan(ctx); err != nil {
				return err
			}

			key := normalizeKey(args[0])
			list, _, err := ws.session.Select(key)
			if err != nil {
				return err
			}

			v := ws.session.Effective(key)
			if source != "" {
				v = pickVariant(list, source, false)
				if v == nil {
					return fmt.Errorf("%s has no variant from %q", key, source)
				}
			}

			c, ex, tr, _, err := ws.media()
			if err != nil {
				return err
			}

			var file string
			if wav {
				file, err = media.Playable(ctx, ex, tr, v)
			} else {
				file, err = ex.SourceFile(ctx, v)
			}
			if err != nil {
				return err
			}

			if dest == "" {
				return ws.formatter.Message(file)
			}
			defer c.Clear()

			written, err := copyToDir(ctx, file, dest, path.Base(key)+strings.ToLower(fileExtension(file, v)))
			if err != nil {
				return err
			}
			return ws.formatter.Message(written)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "extract the variant of this mod instead of the winner")
	cmd.Flags().BoolVar(&wav, "wav", false, "convert to WAV with ffmpeg")
	cmd.Flags().StringVar(&dest, "dest", "", "copy the file into this directory (default: print the cached path)")

	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// normalizeKey accepts keys typed with backslashes, mixed case or an extension
func normalizeKey(arg string) string {
	if key, ok := audiofile.KeyFromRelative(arg); ok {
		return key
	}
	return strings.ToLower(strings.ReplaceAll(arg, "\\", "/"))
}

// pickVariant returns the variant of list provided by source, preferring
// the loose file unless fromArchive is set
func pickVariant(list []*models.Variant, source string, fromArchive bool) *models.Variant {
	var pick *models.Variant
	for _, v := range list {
		if !v.Source.HasName(source) {
			continue
		}
		if pick == nil || (v.FromArchive == fromArchive && pick.FromArchive != fromArchive) {
			pick = v
		}
	}
	return pick
}

func fileExtension(file string, v *models.Variant) string {
	if ext := path.Ext(strings.ReplaceAll(file, "\\", "/")); ext != "" {
		return ext
	}
	return v.Extension()
}

// copyToDir copies file into dir under name and returns the written path
func copyToDir(ctx context.Context, file, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create destination: %w", err)
	}
	dst, err := storage.NewLocal(dir)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	src, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", err
	}
	if err := dst.Write(ctx, name, src, info.Size()); err != nil {
		return "", err
	}
	return filepath.Join(dst.Root(), name), nil
}
