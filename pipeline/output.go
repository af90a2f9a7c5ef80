// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"fmt"
	"io"
)

var newline = []byte{'\n'}

// RecordWriter serializes Results to an output stream in FASTA or FASTQ
// form.  It is indifferent to which worker produced a result and to whether
// the underlying stream is compressed.  The first write error is latched;
// subsequent writes are no-ops returning the same error.
type RecordWriter struct {
	w      io.Writer
	format Format
	err    error
}

// NewRecordWriter returns a RecordWriter emitting the given format to w.
func NewRecordWriter(w io.Writer, format Format) *RecordWriter {
	return &RecordWriter{w: w, format: format}
}

// Write writes one result.  A result with an empty basecall writes nothing:
// the read was undecodable and is dropped by design.
func (w *RecordWriter) Write(r *Result) error {
	if r.Seq == "" {
		return w.err
	}
	switch w.format {
	case FASTA:
		w.writeln(">" + r.ReadID)
		w.writeln(r.Seq)
	case FASTQ:
		w.writeln(fmt.Sprintf("@%s runid=%s read=%d ch=%s start_time=%s",
			r.ReadID, r.RunID, r.ReadNum, r.Channel, r.StartTime))
		w.writeln(r.Seq)
		w.writeln("+")
		w.writeln(r.Qual)
	}
	return w.err
}

// Err returns the first write error encountered, if any.
func (w *RecordWriter) Err() error { return w.err }

func (w *RecordWriter) writeln(line string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, line)
	if w.err == nil {
		_, w.err = w.w.Write(newline)
	}
}
