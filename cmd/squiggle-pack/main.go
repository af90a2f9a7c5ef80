// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
squiggle-pack converts TSV signal dumps into squiggle container files, one
multi-read container per input dump (or, with -single, one legacy
single-read container per read).  Each dump line holds eight tab-separated
columns: read ID, run ID, read number, channel, sampling rate, start offset,
experiment start time, and the space-separated raw samples.
*/

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/nanocall/encoding/squiggle"
	"github.com/pkg/errors"
)

var (
	output = flag.String("output", ".", "Output directory")
	single = flag.Bool("single", false, "Write one legacy single-read container per read, named after the read ID")
)

const dumpColumns = 8

// maxLineBytes bounds a dump line; long reads run to millions of samples.
const maxLineBytes = 64 * 1024 * 1024

func parseRead(line string) (*squiggle.Read, error) {
	cols := strings.Split(line, "\t")
	if len(cols) != dumpColumns {
		return nil, errors.Errorf("expected %d columns, got %d", dumpColumns, len(cols))
	}
	number, err := strconv.Atoi(cols[2])
	if err != nil {
		return nil, errors.Wrap(err, "read number")
	}
	rate, err := strconv.ParseFloat(cols[4], 64)
	if err != nil {
		return nil, errors.Wrap(err, "sampling rate")
	}
	offset, err := strconv.ParseUint(cols[5], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "start offset")
	}
	samples := strings.Fields(cols[7])
	sig := make([]int16, len(samples))
	for i, s := range samples {
		v, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d", i)
		}
		sig[i] = int16(v)
	}
	return &squiggle.Read{
		ID:           cols[0],
		RunID:        cols[1],
		Number:       number,
		Channel:      cols[3],
		SamplingRate: rate,
		StartOffset:  offset,
		ExpStartTime: cols[6],
		Signal:       sig,
	}, nil
}

func scanDump(path string, fn func(*squiggle.Read) error) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close() // nolint: errcheck
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 1024*1024), maxLineBytes)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		read, err := parseRead(line)
		if err != nil {
			return errors.Wrapf(err, "%s:%d", path, lineno)
		}
		if err := fn(read); err != nil {
			return err
		}
	}
	return sc.Err()
}

func writeContainer(path string, typ squiggle.FileType, reads []*squiggle.Read) (err error) {
	ctx := vcontext.Background()
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := squiggle.NewWriter(out.Writer(ctx), typ)
	for _, r := range reads {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return w.Finish()
}

func packDump(path string) error {
	if *single {
		n := 0
		err := scanDump(path, func(r *squiggle.Read) error {
			n++
			return writeContainer(filepath.Join(*output, r.ID+".sqg"), squiggle.SingleRead, []*squiggle.Read{r})
		})
		if err != nil {
			return err
		}
		log.Printf("%s: wrote %d single-read containers", path, n)
		return nil
	}
	var reads []*squiggle.Read
	if err := scanDump(path, func(r *squiggle.Read) error {
		reads = append(reads, r)
		return nil
	}); err != nil {
		return err
	}
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	outPath := filepath.Join(*output, base+".sqg")
	if err := writeContainer(outPath, squiggle.MultiRead, reads); err != nil {
		return err
	}
	log.Printf("%s: wrote %d reads to %s", path, len(reads), outPath)
	return nil
}

func usage() {
	fmt.Printf("Usage: %s [-output DIR] [-single] dump.tsv...\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	dumps := flag.Args()
	if len(dumps) == 0 {
		log.Printf("no input dumps, nothing to do")
		return
	}
	if err := os.MkdirAll(*output, 0777); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}
	if err := traverse.Each(len(dumps), func(i int) error {
		return packDump(dumps[i])
	}); err != nil {
		log.Fatalf("%v", err)
	}
}
