package tracker

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/colorstring"
)

// --------------------------------------------------------------------------------------------- //

/*
tracer renders one colorized line per session/binding state transition, mirroring the
tracker_debug flag from the original source: off by default, and diagnostic only — nothing in
this package's correctness depends on trace output. Color escape codes are written whether or not
w is a terminal.
*/
type tracer struct {
	enabled bool
	w       io.Writer
}

func newTracer(enabled bool) *tracer {
	return &tracer{enabled: enabled, w: os.Stderr}
}

func (t *tracer) connect(subject string, format string, args ...interface{}) {
	t.line("[blue]connect[reset]", subject, format, args...)
}

func (t *tracer) announce(subject string, format string, args ...interface{}) {
	t.line("[green]announce[reset]", subject, format, args...)
}

func (t *tracer) errorf(subject string, format string, args ...interface{}) {
	t.line("[red]error[reset]", subject, format, args...)
}

func (t *tracer) line(tag, subject, format string, args ...interface{}) {
	if !t.enabled {
		return
	}
	msg := fmt.Sprintf(format, args...)
	colorstring.Fprintf(t.w, tag+" [light_gray]%s[reset] %s\n", subject, msg)
}
