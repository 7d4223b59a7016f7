package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/audiopatch/pkg/models"
)

// Formatter defines the interface for output formatting
// Implementations include human-readable and JSON formatters
type Formatter interface {
	// Scan reports the scan statistics and the listed conflict keys
	Scan(report *models.ScanReport, conflicts models.ConflictMap, keys []string, winners models.WinnerMap) error

	// Conflict lists the variants of one key; winner is the effective winner
	Conflict(key string, variants []*models.Variant, winner *models.Variant) error

	// Synthesis reports the outcome of a patch build
	Synthesis(report *models.SynthesisReport) error

	// Message prints an informational line
	Message(msg string) error

	// Error reports an error
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter for format ("human" or "json") writing to w
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "", "human":
		return NewHumanFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
