package squiggle

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/pkg/errors"
)

// Writer writes a container file in the requested layout variant.  It is
// used by tests and by squiggle-pack; the basecalling pipeline itself only
// reads containers.
type Writer struct {
	typ FileType
	out io.Writer
	rio recordio.Writer
	n   int
	err error
}

// NewWriter returns a Writer emitting the given layout variant to w.
func NewWriter(w io.Writer, typ FileType) *Writer {
	sw := &Writer{typ: typ, out: w}
	if typ == MultiRead {
		recordiozstd.Init()
		sw.rio = recordio.NewWriter(w, recordio.WriterOpts{
			Transformers: []string{recordiozstd.Name},
		})
		sw.rio.AddHeader(multiVersionKey, multiVersion)
	}
	return sw
}

// Write appends one read record.  The single-read variant holds exactly one
// read; a second Write fails.
func (w *Writer) Write(read *Read) error {
	if w.err != nil {
		return w.err
	}
	switch w.typ {
	case SingleRead:
		if w.n > 0 {
			w.err = errors.Errorf("squiggle: single-read container cannot hold %d reads", w.n+1)
			return w.err
		}
		if _, err := io.WriteString(w.out, singleMagic); err != nil {
			w.err = err
			return w.err
		}
		if err := gob.NewEncoder(w.out).Encode(read); err != nil {
			w.err = err
			return w.err
		}
	case MultiRead:
		b := bytes.NewBuffer(nil)
		if err := gob.NewEncoder(b).Encode(read); err != nil {
			w.err = err
			return w.err
		}
		w.rio.Append(b.Bytes())
	}
	w.n++
	return nil
}

// Finish flushes the container.  It must be called exactly once, after the
// last Write; it does not close the underlying writer.
func (w *Writer) Finish() error {
	if w.typ == MultiRead {
		if err := w.rio.Finish(); err != nil && w.err == nil {
			w.err = err
		}
	}
	return w.err
}
