package output

import (
	"io"
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"
)

const progressTemplate = `{{string . "prefix"}} {{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{etime . }}`

// ProgressBar renders "done of total" progress for long operations.
// It is a no-op when disabled or when the writer is not a terminal.
type ProgressBar struct {
	mu      sync.Mutex
	writer  io.Writer
	enabled bool
	prefix  string
	bar     *pb.ProgressBar
}

// NewProgressBar creates a progress bar writing to w. enabled is the
// user's preference; it only takes effect on a terminal.
func NewProgressBar(w io.Writer, prefix string, enabled bool) *ProgressBar {
	return &ProgressBar{
		writer:  w,
		enabled: enabled && IsTerminal(w),
		prefix:  prefix,
	}
}

// IsTerminal reports whether w is a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Enabled reports whether the bar renders anything
func (p *ProgressBar) Enabled() bool {
	return p != nil && p.enabled
}

// Update sets the progress, starting the bar on the first call. Its
// signature matches synth.ProgressFunc.
func (p *ProgressBar) Update(done, total int) {
	if !p.Enabled() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = pb.New(total).
			SetWriter(p.writer).
			SetTemplateString(progressTemplate).
			Set("prefix", p.prefix).
			Start()
	}
	p.bar.SetTotal(int64(total))
	p.bar.SetCurrent(int64(done))
}

// Finish stops the bar and moves to a new line
func (p *ProgressBar) Finish() {
	if !p.Enabled() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
