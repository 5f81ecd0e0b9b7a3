package asm

import (
	"io"
	"strings"
)

// Span is a half-open byte range [Start, End) of emitted text.
type Span struct {
	Start, End int
}

// Layout records where raw blocks landed in the emitted text, keyed by the
// owning function.
type Layout struct {
	Blocks map[string]Span
	Size   int
}

// countingWriter remembers the first write error and stops writing after it.
type countingWriter struct {
	w   io.Writer
	n   int
	err error
}

func (cw *countingWriter) write(s string) {
	if cw.err != nil {
		return
	}
	n, err := io.WriteString(cw.w, s)
	cw.n += n
	cw.err = err
}

// Emit writes l to w, one item per line. Raw blocks are written unchanged;
// a newline follows a raw block only when it does not already end in one.
// The returned error is the first error reported by w.
func Emit(w io.Writer, l *Listing) (*Layout, error) {
	cw := &countingWriter{w: w}
	layout := &Layout{Blocks: make(map[string]Span)}

	for _, it := range l.Items {
		if it.Kind == KindRaw {
			start := cw.n
			cw.write(it.Text)
			layout.Blocks[it.Owner] = Span{Start: start, End: start + len(it.Text)}
			if !strings.HasSuffix(it.Text, "\n") {
				cw.write("\n")
			}
			continue
		}
		cw.write(it.String())
		cw.write("\n")
	}

	layout.Size = cw.n
	return layout, cw.err
}
