package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var spinnerFrames = [...]string{"-", "\\", "|", "/"}

// scanProgress draws a one-line spinner on stderr while files are scanned.
// It stays silent unless stderr is a terminal.
type scanProgress struct {
	out     io.Writer
	label   string
	started time.Time
	frame   int
	width   int
}

func newScanProgress(label string, quiet bool) *scanProgress {
	p := &scanProgress{label: label, started: time.Now()}
	if !quiet && isTerminal(os.Stderr) {
		p.out = os.Stderr
	}
	return p
}

func (p *scanProgress) Update(path string, count, total int) {
	if p.out == nil {
		return
	}
	p.frame = (p.frame + 1) % len(spinnerFrames)
	name := filepath.ToSlash(strings.TrimSpace(path))
	if len(name) > 80 {
		name = "..." + name[len(name)-77:]
	}
	counter := fmt.Sprint(count)
	if total > 0 {
		counter = fmt.Sprintf("%d/%d", count, total)
	}
	p.draw(fmt.Sprintf("%s %s %s %s", spinnerFrames[p.frame], p.label, counter, name))
}

func (p *scanProgress) Done(count int) {
	if p.out == nil {
		return
	}
	p.draw(fmt.Sprintf("%s: %d files in %s", p.label, count, time.Since(p.started).Round(time.Millisecond)))
	fmt.Fprintln(p.out)
}

// draw overwrites the previous status, padding over leftovers of a longer one.
func (p *scanProgress) draw(status string) {
	if pad := p.width - len(status); pad > 0 {
		status += strings.Repeat(" ", pad)
	}
	p.width = len(status)
	fmt.Fprintf(p.out, "\r%s", status)
}
