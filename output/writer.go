package output

import (
	"bytes"
	"io"
)

// Part is the materialized result of writing one expression in
// isolation, reusable as a substitution value. A part built from a single
// hex digit carries only a nibble.
type Part struct {
	Bytes     []byte
	Nibble    uint8
	HasNibble bool
}

// HexPart returns a part holding a lone nibble.
func HexPart(h uint8) Part { return Part{Nibble: h, HasNibble: true} }

// BytesPart returns a part holding literal bytes.
func BytesPart(b []byte) Part { return Part{Bytes: b} }

// Writer wraps a byte sink with one pending hex nibble. A nibble stays
// pending across literal writes until a second nibble completes the byte.
type Writer struct {
	w       io.Writer
	buf     *bytes.Buffer // set for isolated writers
	hex     uint8
	pending bool
}

// NewWriter returns a writer streaming into w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// newPartWriter returns an isolated, buffer-backed writer.
func newPartWriter() *Writer {
	buf := new(bytes.Buffer)
	return &Writer{w: buf, buf: buf}
}

// WriteHex feeds one nibble.
func (w *Writer) WriteHex(h uint8) error {
	if !w.pending {
		w.hex, w.pending = h&0xf, true
		return nil
	}
	w.pending = false
	return w.WriteBytes([]byte{w.hex<<4 | h&0xf})
}

// WriteBytes passes p straight to the sink, leaving any pending nibble
// untouched.
func (w *Writer) WriteBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := w.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &IOError{Err: err}
	}
	return nil
}

// WritePart replays a previously captured part through this writer.
func (w *Writer) WritePart(p Part) error {
	if err := w.WriteBytes(p.Bytes); err != nil {
		return err
	}
	if p.HasNibble {
		return w.WriteHex(p.Nibble)
	}
	return nil
}

// Pending returns the pending nibble, if any.
func (w *Writer) Pending() (uint8, bool) { return w.hex, w.pending }

// Part converts the buffered bytes and any pending nibble into a Part.
// Writers that stream to an external sink have no buffered bytes.
func (w *Writer) Part() Part {
	p := Part{Nibble: w.hex, HasNibble: w.pending}
	if w.buf != nil && w.buf.Len() > 0 {
		p.Bytes = bytes.Clone(w.buf.Bytes())
	}
	return p
}
