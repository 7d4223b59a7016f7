package models

import (
	"time"
)

// ScanReport represents the results of a conflict scan
type ScanReport struct {
	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Statistics
	Stats ScanStatistics

	// Errors contained to a single source or archive
	Errors []ScanError

	// Overall status
	Status Status
}

// ScanStatistics holds scan metrics
type ScanStatistics struct {
	SourcesScanned    int
	LooseFilesScanned int // Audio files with a key
	ArchivesScanned   int
	ArchivesSkipped   int // Unreadable or unsupported containers
	EntriesScanned    int // Audio archive entries with a key
	KeysSeen          int
	Conflicts         int
	LooseSkipped      bool // Base loose files skipped because an overlay is active
}

// ScanError represents a recoverable error during a scan
type ScanError struct {
	Source    string
	Path      string
	Error     string
	Timestamp time.Time
}

// SynthesisReport represents the results of patch generation
type SynthesisReport struct {
	OutputPath  string
	StagingPath string // Set when staging was kept for inspection
	ArchivePath string // Set when the output was packed

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Winners      int
	LooseCopied  int
	LooseSkipped int // Loose winners already at their destination
	Extracted    int // Archive entries written
	Packed       bool

	Status Status
}

// Status represents the overall result of an operation
type Status string

const (
	// StatusSuccess indicates all operations completed successfully
	StatusSuccess Status = "success"
	// StatusPartial indicates some sources or archives could not be read
	StatusPartial Status = "partial"
	// StatusFailed indicates the operation failed
	StatusFailed Status = "failed"
	// StatusCancelled indicates the operation was cancelled
	StatusCancelled Status = "cancelled"
)

// ExitCode returns the appropriate exit code for the status
func (s Status) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}

// Finish stamps the end time and duration
func (r *ScanReport) Finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// Finish stamps the end time and duration
func (r *SynthesisReport) Finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}
