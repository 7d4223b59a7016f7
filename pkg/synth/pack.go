package synth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sdejongh/audiopatch/pkg/process"
)

// DefaultPackArgs is the BSArch command line for a compressed Skyrim SE archive
var DefaultPackArgs = []string{"pack", "{source}", "{archive}", "-sse", "-z"}

// PackError reports a packer that exited with a non-zero code
type PackError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *PackError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "packer exited with code %d", e.ExitCode)
	if s := strings.TrimSpace(e.Stdout); s != "" {
		fmt.Fprintf(&b, "\nSTDOUT:\n%s", s)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, "\nSTDERR:\n%s", s)
	}
	return b.String()
}

// Packer hands a directory to an external archive tool
type Packer struct {
	// Exe is the packer executable
	Exe string

	// Args is the argument template; {source} and {archive} are substituted
	Args []string

	Runner process.Runner
}

// NewPacker creates a packer running exe with the default BSArch arguments
func NewPacker(exe string, runner process.Runner) *Packer {
	return &Packer{
		Exe:    exe,
		Args:   DefaultPackArgs,
		Runner: runner,
	}
}

// Available reports whether the packer executable exists
func (p *Packer) Available() bool {
	if p == nil || strings.TrimSpace(p.Exe) == "" {
		return false
	}
	info, err := os.Stat(p.Exe)
	return err == nil && !info.IsDir()
}

// Arguments expands the template for source and archive
func (p *Packer) Arguments(source, archive string) []string {
	tmpl := p.Args
	if len(tmpl) == 0 {
		tmpl = DefaultPackArgs
	}

	args := make([]string, len(tmpl))
	r := strings.NewReplacer("{source}", source, "{archive}", archive)
	for i, a := range tmpl {
		args[i] = r.Replace(a)
	}
	return args
}

// Pack packs source into archive. A non-zero exit is returned as *PackError.
func (p *Packer) Pack(ctx context.Context, source, archive string) error {
	runner := p.Runner
	if runner == nil {
		runner = process.NewExecRunner()
	}

	result, err := runner.Run(ctx, p.Exe, p.Arguments(source, archive)...)
	if err != nil {
		return fmt.Errorf("failed to start packer: %w", err)
	}
	if !result.Success() {
		return &PackError{
			ExitCode: result.ExitCode,
			Stdout:   result.Stdout,
			Stderr:   result.Stderr,
		}
	}
	return nil
}
