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

// Package pipeline drives basecalling across a set of squiggle container
// files: per-read metadata reconstruction, signal normalization, decoder
// dispatch, and per-input-file FASTA/FASTQ output.
//
// The unit of parallelism is one input file.  Files are fully independent:
// each is processed to completion by one worker, and its results are written
// to an output stream owned by exactly that file.  Reads within a file are
// processed serially, in container order.
package pipeline

import (
	"github.com/pkg/errors"
)

// Result is the outcome of basecalling one read.  Seq may be empty when the
// decoder could not call the read; such results are dropped at output time.
// Results are value types with no shared state and may freely cross worker
// boundaries.
type Result struct {
	ReadID    string
	RunID     string
	ReadNum   int
	Channel   string
	StartTime string
	Seq       string
	Qual      string
}

// Format selects the output record format.
type Format int

const (
	// FASTA writes two lines per read: ">"+ID and the basecall.
	FASTA Format = iota
	// FASTQ writes four lines per read: the annotated header, the basecall,
	// "+", and the quality string.
	FASTQ
)

// ParseFormat parses "fasta" or "fastq".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "fasta":
		return FASTA, nil
	case "fastq":
		return FASTQ, nil
	}
	return FASTA, errors.Errorf("unknown output format %q (want fasta or fastq)", s)
}

func (f Format) String() string {
	if f == FASTQ {
		return "fastq"
	}
	return "fasta"
}
