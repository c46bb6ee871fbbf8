package vdf

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// WriteOptions configures the text writer.
type WriteOptions struct {
	// Pretty emits one pair per line with tab indentation proportional
	// to nesting depth. Compact output (the default) separates tokens
	// with single spaces and emits no newlines.
	Pretty bool

	// Encoding encodes the output into a non-UTF-8 single-byte
	// encoding. Nil writes UTF-8.
	Encoding encoding.Encoding
}

// Write serializes m as text-format VDF. Scalar values are coerced to
// string literals; nested Maps are serialized recursively. The output of
// either mode parses back to an equal Map.
func Write(w io.Writer, m *Map, opts WriteOptions) error {
	if opts.Encoding != nil {
		tw := transform.NewWriter(w, opts.Encoding.NewEncoder())
		if err := writeTo(tw, m, opts.Pretty); err != nil {
			return err
		}
		return tw.Close()
	}
	return writeTo(w, m, opts.Pretty)
}

// WriteString serializes m to a string.
func WriteString(m *Map, opts WriteOptions) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, m, opts); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeTo(w io.Writer, m *Map, pretty bool) error {
	e := &textWriter{w: bufio.NewWriter(w), pretty: pretty}
	e.writeMap(m, 0)
	return e.w.Flush()
}

type textWriter struct {
	w      *bufio.Writer
	pretty bool
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// literal renders a scalar as a quoted token with backslash escapes for
// the two characters that cannot appear raw inside quotes.
func (e *textWriter) literal(s string) {
	e.w.WriteByte('"')
	literalEscaper.WriteString(e.w, s)
	e.w.WriteByte('"')
}

func (e *textWriter) indent(depth int) {
	if !e.pretty {
		return
	}
	for i := 0; i < depth; i++ {
		e.w.WriteByte('\t')
	}
}

func (e *textWriter) writeMap(m *Map, depth int) {
	for _, entry := range m.Entries() {
		if sub, err := entry.Value.AsMap(); err == nil {
			e.indent(depth)
			e.literal(entry.Key)
			if e.pretty {
				e.w.WriteByte('\n')
				e.indent(depth)
				e.w.WriteString("{\n")
				e.writeMap(sub, depth+1)
				e.indent(depth)
				e.w.WriteString("}\n")
			} else {
				e.w.WriteString(" {")
				e.writeMap(sub, depth)
				e.w.WriteString("} ")
			}
		} else {
			e.indent(depth)
			e.literal(entry.Key)
			if e.pretty {
				e.w.WriteString("\t\t")
			} else {
				e.w.WriteByte(' ')
			}
			e.literal(entry.Value.Text())
			if e.pretty {
				e.w.WriteByte('\n')
			} else {
				e.w.WriteByte(' ')
			}
		}
	}
}
