package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/resolve"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct {
	writer io.Writer
}

// JSONEvent represents a single event in the JSON output stream
type JSONEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// JSONScanData represents the data of a scan event
type JSONScanData struct {
	Status     string             `json:"status"`
	Duration   string             `json:"duration"`
	DurationMs int64              `json:"duration_ms"`
	Stats      JSONScanStats      `json:"stats"`
	Conflicts  []JSONConflictData `json:"conflicts,omitempty"`
	Errors     []JSONErrorData    `json:"errors,omitempty"`
}

// JSONScanStats represents scan statistics in JSON format
type JSONScanStats struct {
	Sources      int  `json:"sources"`
	LooseFiles   int  `json:"loose_files"`
	Archives     int  `json:"archives"`
	Skipped      int  `json:"archives_skipped"`
	Entries      int  `json:"archive_entries"`
	Keys         int  `json:"keys"`
	Conflicts    int  `json:"conflicts"`
	LooseSkipped bool `json:"base_loose_skipped,omitempty"`
}

// JSONConflictData represents one conflict key and its variants
type JSONConflictData struct {
	Key      string            `json:"key"`
	Safe     bool              `json:"safe"`
	Explicit bool              `json:"explicit,omitempty"`
	Variants []JSONVariantData `json:"variants"`
}

// JSONVariantData represents a variant in JSON
type JSONVariantData struct {
	Source   string   `json:"source"`
	Priority string   `json:"priority"`
	Origin   string   `json:"origin"`
	Archive  string   `json:"archive,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	Winner   bool     `json:"winner,omitempty"`
}

// JSONSynthesisData represents the data of a synthesis event
type JSONSynthesisData struct {
	Status       string `json:"status"`
	Duration     string `json:"duration"`
	DurationMs   int64  `json:"duration_ms"`
	Output       string `json:"output,omitempty"`
	Archive      string `json:"archive,omitempty"`
	Staging      string `json:"staging,omitempty"`
	Winners      int    `json:"winners"`
	LooseCopied  int    `json:"loose_copied"`
	LooseSkipped int    `json:"loose_skipped"`
	Extracted    int    `json:"extracted"`
	Packed       bool   `json:"packed"`
}

// JSONErrorData represents an error in JSON
type JSONErrorData struct {
	Source string `json:"source,omitempty"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	if w == nil {
		w = io.Discard
	}
	return &JSONFormatter{writer: w}
}

// Scan emits a scan event with every listed conflict
func (f *JSONFormatter) Scan(report *models.ScanReport, conflicts models.ConflictMap, keys []string, winners models.WinnerMap) error {
	s := report.Stats
	data := JSONScanData{
		Status:     string(report.Status),
		Duration:   report.Duration.String(),
		DurationMs: report.Duration.Milliseconds(),
		Stats: JSONScanStats{
			Sources:      s.SourcesScanned,
			LooseFiles:   s.LooseFilesScanned,
			Archives:     s.ArchivesScanned,
			Skipped:      s.ArchivesSkipped,
			Entries:      s.EntriesScanned,
			Keys:         s.KeysSeen,
			Conflicts:    s.Conflicts,
			LooseSkipped: s.LooseSkipped,
		},
	}

	for _, key := range keys {
		_, explicit := winners[key]
		c := conflictData(key, conflicts[key], resolve.EffectiveWinner(conflicts, winners, key))
		c.Explicit = explicit
		data.Conflicts = append(data.Conflicts, c)
	}

	for _, e := range report.Errors {
		data.Errors = append(data.Errors, JSONErrorData{Source: e.Source, Path: e.Path, Error: e.Error})
	}

	return f.emit("scan", data)
}

// Conflict emits a conflict event
func (f *JSONFormatter) Conflict(key string, variants []*models.Variant, winner *models.Variant) error {
	return f.emit("conflict", conflictData(key, variants, winner))
}

// Synthesis emits a synthesis event
func (f *JSONFormatter) Synthesis(report *models.SynthesisReport) error {
	return f.emit("synthesis", JSONSynthesisData{
		Status:       string(report.Status),
		Duration:     report.Duration.String(),
		DurationMs:   report.Duration.Milliseconds(),
		Output:       report.OutputPath,
		Archive:      report.ArchivePath,
		Staging:      report.StagingPath,
		Winners:      report.Winners,
		LooseCopied:  report.LooseCopied,
		LooseSkipped: report.LooseSkipped,
		Extracted:    report.Extracted,
		Packed:       report.Packed,
	})
}

// Message emits a message event
func (f *JSONFormatter) Message(msg string) error {
	return f.emit("message", map[string]string{"message": msg})
}

// Error emits an error event
func (f *JSONFormatter) Error(err error) error {
	return f.emit("error", JSONErrorData{Error: err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func (f *JSONFormatter) emit(eventType string, data any) error {
	return json.NewEncoder(f.writer).Encode(JSONEvent{
		Timestamp: time.Now(),
		Type:      eventType,
		Data:      data,
	})
}

func conflictData(key string, variants []*models.Variant, winner *models.Variant) JSONConflictData {
	c := JSONConflictData{
		Key:      key,
		Safe:     resolve.IsSafe(variants),
		Variants: make([]JSONVariantData, 0, len(variants)),
	}
	for _, v := range variants {
		c.Variants = append(c.Variants, variantData(v, v == winner))
	}
	return c
}

func variantData(v *models.Variant, winner bool) JSONVariantData {
	return JSONVariantData{
		Source:   v.SourceName(),
		Priority: v.Source.DisplayPriority(),
		Origin:   v.OriginPath,
		Archive:  v.ArchivePath,
		Duration: v.Duration,
		Winner:   winner,
	}
}
