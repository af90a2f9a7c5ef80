package squiggle

import (
	"bytes"
	"context"
	"encoding/gob"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/pkg/errors"
)

// ErrCorrupt is the cause of errors returned when a file is structurally
// unreadable: truncated magic, unrecognized layout, or a bad version header.
// Callers treat any Open or Err failure as a whole-file condition; there is
// no partial recovery within a corrupt container.
var ErrCorrupt = errors.New("corrupt squiggle file")

// File is an open container positioned for read iteration.  Files are not
// threadsafe.
type File struct {
	path string
	typ  FileType
	in   file.File

	// Exactly one of the two is active, per typ.
	rio recordio.Scanner
	dec *gob.Decoder

	scanned bool // SingleRead: the one record was consumed
	err     error
}

// Open opens a container file and detects its layout variant.  Any
// structural problem (including an empty or truncated file) is reported as
// an error wrapping ErrCorrupt.
func Open(ctx context.Context, path string) (*File, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	r := in.Reader(ctx)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		_ = in.Close(ctx)
		return nil, errors.Wrapf(ErrCorrupt, "%s: reading magic: %v", path, err)
	}
	if string(magic[:]) == singleMagic {
		return &File{path: path, typ: SingleRead, in: in, dec: gob.NewDecoder(r)}, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		_ = in.Close(ctx)
		return nil, errors.Wrapf(err, "%s: seek", path)
	}
	recordiozstd.Init()
	sc := recordio.NewScanner(r, recordio.ScannerOpts{})
	version := ""
	for _, kv := range sc.Header() {
		if kv.Key == multiVersionKey {
			version, _ = kv.Value.(string)
			break
		}
	}
	if version != multiVersion {
		_ = in.Close(ctx)
		return nil, errors.Wrapf(ErrCorrupt, "%s: not a squiggle container (version %q)", path, version)
	}
	return &File{path: path, typ: MultiRead, in: in, rio: sc}, nil
}

// Type returns the layout variant detected at Open.
func (f *File) Type() FileType { return f.typ }

// Scan reads the next read record into *read, returning false at end of
// container or on error.  Records are presented in container order, never
// reordered.  Once Scan returns false it never returns true again; check Err
// to distinguish end of data from corruption.
func (f *File) Scan(read *Read) bool {
	if f.err != nil {
		return false
	}
	switch f.typ {
	case SingleRead:
		if f.scanned {
			return false
		}
		f.scanned = true
		*read = Read{}
		if err := f.dec.Decode(read); err != nil {
			f.err = errors.Wrapf(ErrCorrupt, "%s: decoding read: %v", f.path, err)
			return false
		}
		return true
	case MultiRead:
		if !f.rio.Scan() {
			return false
		}
		payload, ok := f.rio.Get().([]byte)
		if !ok {
			f.err = errors.Wrapf(ErrCorrupt, "%s: unexpected record type", f.path)
			return false
		}
		*read = Read{}
		if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(read); err != nil {
			f.err = errors.Wrapf(ErrCorrupt, "%s: decoding read: %v", f.path, err)
			return false
		}
		return true
	}
	return false
}

// Err returns the first error encountered during iteration, if any.
func (f *File) Err() error {
	if f.err != nil {
		return f.err
	}
	if f.typ == MultiRead {
		if err := f.rio.Err(); err != nil {
			return errors.Wrapf(ErrCorrupt, "%s: %v", f.path, err)
		}
	}
	return nil
}

// Close releases the underlying file.  It must be called exactly once.
func (f *File) Close(ctx context.Context) error {
	return f.in.Close(ctx)
}
