package output

import (
	"fmt"
	"io"
)

// Success writes a confirmation line in text mode. JSON callers emit a
// result object instead, so nothing is written for them.
func (f *Formatter) Success(format string, args ...any) {
	if f.IsJSON() {
		return
	}
	_, _ = fmt.Fprintf(f.writer, "✅ "+format+"\n", args...)
}

// Warn writes a warning line to w regardless of format; w is normally
// stderr so JSON on stdout stays parseable.
func Warn(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "⚠️  "+format+"\n", args...)
}
