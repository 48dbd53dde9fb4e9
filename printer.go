package buildprobe

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Printer writes one colored line per [Result]. It is safe for concurrent use:
// each line is written under a lock so parallel checks never interleave.
type Printer struct {
	mu   sync.Mutex
	w    io.Writer
	pass *color.Color
	warn *color.Color
	fail *color.Color
	hint *color.Color
}

// NewPrinter returns a Printer writing to w. When colorize is false the
// output carries no escape sequences.
func NewPrinter(w io.Writer, colorize bool) *Printer {
	p := &Printer{
		w:    w,
		pass: color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgRed),
		hint: color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.pass, p.warn, p.fail, p.hint} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Print writes r as a single line, followed by its hint if any.
// Escape sequences never span a newline.
func (p *Printer) Print(r Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := p.pass
	switch r.Status {
	case StatusWarn:
		c = p.warn
	case StatusFail:
		c = p.fail
	}
	fmt.Fprintln(p.w, c.Sprintf("[%s] %s", r.Status, r.Message))
	if r.Hint != "" && r.Status != StatusPass {
		fmt.Fprintln(p.w, p.hint.Sprintf("       %s", r.Hint))
	}
}
