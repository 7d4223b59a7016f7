package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/resolve"
)

// styles used by the human formatter; the renderer drops colors when the
// writer is not a terminal
type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	winner  lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("245")),
		winner:  r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		failure: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer io.Writer
	style  styles
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter(w io.Writer) *HumanFormatter {
	if w == nil {
		w = io.Discard
	}
	return &HumanFormatter{writer: w, style: newStyles(w)}
}

// Scan prints the statistics followed by one line per conflict
func (f *HumanFormatter) Scan(report *models.ScanReport, conflicts models.ConflictMap, keys []string, winners models.WinnerMap) error {
	w := f.writer
	s := report.Stats

	fmt.Fprintf(w, "%s\n\n", f.style.title.Render(fmt.Sprintf("Scan completed in %s", report.Duration.Round(time.Millisecond))))
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Sources:        %d\n", s.SourcesScanned)
	fmt.Fprintf(w, "  Loose files:    %d\n", s.LooseFilesScanned)
	fmt.Fprintf(w, "  Archives:       %d (%d skipped)\n", s.ArchivesScanned, s.ArchivesSkipped)
	fmt.Fprintf(w, "  Archive audio:  %d\n", s.EntriesScanned)
	fmt.Fprintf(w, "  Keys:           %d\n", s.KeysSeen)
	fmt.Fprintf(w, "  Conflicts:      %d\n", s.Conflicts)
	if s.LooseSkipped {
		fmt.Fprintf(w, "  %s\n", f.style.warning.Render("Base game loose files skipped (virtual filesystem active)"))
	}

	if len(keys) > 0 {
		width := 0
		for _, k := range keys {
			if len(k) > width {
				width = len(k)
			}
		}

		fmt.Fprintf(w, "\nConflicts (%d shown):\n", len(keys))
		for _, key := range keys {
			list := conflicts[key]
			winner := resolve.EffectiveWinner(conflicts, winners, key)
			line := fmt.Sprintf("  %-*s  %d variants", width, key, len(list))
			if winner != nil {
				line += "  " + f.style.muted.Render("winner: "+describe(winner))
			}
			if _, explicit := winners[key]; explicit {
				line += " " + f.style.winner.Render("★")
			}
			fmt.Fprintln(w, line)
		}
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "\n%s\n", f.style.warning.Render("Errors:"))
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  %s: %s: %s\n", e.Source, e.Path, e.Error)
		}
	}

	fmt.Fprintf(w, "\nStatus: %s\n", f.status(report.Status))
	return nil
}

// Conflict prints a table of the variants of key
func (f *HumanFormatter) Conflict(key string, variants []*models.Variant, winner *models.Variant) error {
	w := f.writer

	fmt.Fprintf(w, "%s\n", f.style.title.Render(key))
	if resolve.IsSafe(variants) {
		fmt.Fprintf(w, "%s\n", f.style.muted.Render("Base game overridden by a single mod"))
	}

	sourceWidth := len("Source")
	for _, v := range variants {
		if n := len(v.SourceName()); n > sourceWidth {
			sourceWidth = n
		}
	}

	fmt.Fprintf(w, "\n  %-2s %-8s %-*s  %-5s %-8s  %s\n", "", "Priority", sourceWidth, "Source", "Ext", "Duration", "Location")
	for i, v := range variants {
		marker := ""
		if v == winner {
			marker = f.style.winner.Render("★")
		}
		fmt.Fprintf(w, "  %-2s %-8s %-*s  %-5s %-8s  %s\n",
			marker,
			v.Source.DisplayPriority(),
			sourceWidth, v.SourceName(),
			strings.ToLower(v.Extension()),
			v.DurationDisplay(),
			v.SourceDescription(),
		)
		if i == len(variants)-1 {
			fmt.Fprintln(w)
		}
	}
	return nil
}

// Synthesis prints the outcome of a patch build
func (f *HumanFormatter) Synthesis(report *models.SynthesisReport) error {
	w := f.writer

	fmt.Fprintf(w, "\n%s\n\n", f.style.title.Render(fmt.Sprintf("Patch generated in %s", report.Duration.Round(time.Millisecond))))
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Winners:        %d\n", report.Winners)
	fmt.Fprintf(w, "  Copied:         %d\n", report.LooseCopied)
	fmt.Fprintf(w, "  Already there:  %d\n", report.LooseSkipped)
	fmt.Fprintf(w, "  Extracted:      %d\n", report.Extracted)
	if report.OutputPath != "" {
		fmt.Fprintf(w, "  Output:         %s\n", report.OutputPath)
	}
	if report.Packed {
		fmt.Fprintf(w, "  Archive:        %s\n", report.ArchivePath)
	}
	if report.StagingPath != "" {
		fmt.Fprintf(w, "  %s %s\n", f.style.warning.Render("Staged files kept at:"), report.StagingPath)
	}

	fmt.Fprintf(w, "\nStatus: %s\n", f.status(report.Status))
	return nil
}

// Message prints msg on its own line
func (f *HumanFormatter) Message(msg string) error {
	_, err := fmt.Fprintln(f.writer, msg)
	return err
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	fmt.Fprintf(f.writer, "%s %v\n", f.style.failure.Render("Error:"), err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func (f *HumanFormatter) status(s models.Status) string {
	switch s {
	case models.StatusSuccess:
		return f.style.winner.Render(string(s))
	case models.StatusPartial:
		return f.style.warning.Render(string(s))
	default:
		return f.style.failure.Render(string(s))
	}
}

// describe names the source of v and, for archive entries, the container
func describe(v *models.Variant) string {
	if v.FromArchive {
		return v.SourceName() + " [" + strings.TrimPrefix(v.SourceDescription(), "Archive: ") + "]"
	}
	return v.SourceName()
}
