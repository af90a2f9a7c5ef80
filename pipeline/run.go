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
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	berrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/nanocall/basecall"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Opts configures a pipeline run.
type Opts struct {
	// OutputDir receives one output file per input file, named after the
	// input file's stem (base name cut at the first '.').
	OutputDir string
	// Format is the output record format.
	Format Format
	// GzipOutput compresses each output stream and appends ".gz" to its name.
	GzipOutput bool
	// Threads is the worker count.  Values below 1 mean sequential.
	Threads int
	// FileTimeout, when positive, abandons any single input file that takes
	// longer than this, logging it as a failed file.  Other files are
	// unaffected.
	FileTimeout time.Duration
	// NewCaller constructs a decoder instance.  One instance is created per
	// worker: decoders are assumed not threadsafe unless proven otherwise.
	NewCaller func() (basecall.Caller, error)
}

// DefaultOpts is the default pipeline configuration.
var DefaultOpts = Opts{
	Threads: 1,
}

// fileResult is one completed file: the input path it came from plus its
// ordered results.  Workers hand these to the orchestrator whole, so output
// streams never interleave across files.
type fileResult struct {
	path    string
	results []Result
}

type runner struct {
	opts  Opts
	total int
	done  int // reads written, sequential and drain loop only
}

// Run basecalls the given container files.  With Threads <= 1 the files are
// processed one at a time in input order, each output stream opened and
// closed around the file's processing, so a crash mid-file leaves all prior
// files fully written.  With Threads > 1 a fixed pool of workers processes
// files independently and the orchestrator writes each file's output as it
// completes, in completion order.
//
// Zero files is not an error; Run returns nil without touching OutputDir.
func Run(ctx context.Context, files []string, opts Opts) error {
	if len(files) == 0 {
		return nil
	}
	if opts.NewCaller == nil {
		return errors.New("pipeline: NewCaller is required")
	}
	r := &runner{opts: opts, total: len(files)}
	if opts.Threads <= 1 {
		return r.runSequential(ctx, files)
	}
	return r.runParallel(ctx, files)
}

func (r *runner) runSequential(ctx context.Context, files []string) error {
	caller, err := r.opts.NewCaller()
	if err != nil {
		return err
	}
	for _, path := range files {
		// The stream opens before the file's first result exists and closes
		// right after its last, keeping completed files intact on a crash.
		out, closeOut, err := r.createOutput(ctx, path)
		if err != nil {
			return err
		}
		results := r.processWithTimeout(ctx, path, caller)
		werr := r.writeResults(out, results)
		if err := closeOut(); err != nil && werr == nil {
			werr = err
		}
		if werr != nil {
			return werr
		}
	}
	return nil
}

func (r *runner) runParallel(ctx context.Context, files []string) error {
	// One decoder per worker, constructed up front so configuration errors
	// surface before any output file is created.
	callers := make([]basecall.Caller, r.opts.Threads)
	for i := range callers {
		c, err := r.opts.NewCaller()
		if err != nil {
			return err
		}
		callers[i] = c
	}

	reqCh := make(chan string, len(files))
	for _, path := range files {
		reqCh <- path
	}
	close(reqCh)

	resCh := make(chan fileResult, r.opts.Threads)
	wg := sync.WaitGroup{}
	for i := 0; i < r.opts.Threads; i++ {
		wg.Add(1)
		go func(caller basecall.Caller) {
			defer wg.Done()
			for path := range reqCh {
				resCh <- fileResult{path: path, results: r.processWithTimeout(ctx, path, caller)}
			}
		}(callers[i])
	}
	go func() {
		wg.Wait()
		close(resCh)
	}()

	// Completed files arrive in completion order.  Each gets its own output
	// stream, keyed by the input path carried with the results; there is no
	// shared "current" stream to misattribute reads to.  On a write error,
	// keep draining so the workers can finish.
	err := berrors.Once{}
	for fr := range resCh {
		if err.Err() != nil {
			continue
		}
		out, closeOut, cerr := r.createOutput(ctx, fr.path)
		if cerr != nil {
			err.Set(cerr)
			continue
		}
		err.Set(r.writeResults(out, fr.results))
		err.Set(closeOut())
	}
	return err.Err()
}

func (r *runner) processWithTimeout(ctx context.Context, path string, caller basecall.Caller) []Result {
	if r.opts.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.FileTimeout)
		defer cancel()
	}
	return processFile(ctx, path, caller)
}

// writeResults writes one file's results and reports progress for each read
// actually written.
func (r *runner) writeResults(out *RecordWriter, results []Result) error {
	for i := range results {
		if results[i].Seq == "" {
			continue
		}
		if err := out.Write(&results[i]); err != nil {
			return err
		}
		r.done++
		log.Printf("done %d/%d %s", r.done, r.total, results[i].ReadID)
	}
	return out.Err()
}

// outputStem cuts the input's base name at the first '.', matching the
// container naming convention where everything after the first dot is
// extension.
func outputStem(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

// createOutput opens the output stream for one input file:
// <OutputDir>/<stem>.<format>[.gz].  The returned close function flushes and
// closes every layer; it must be called on all exit paths.
func (r *runner) createOutput(ctx context.Context, inputPath string) (*RecordWriter, func() error, error) {
	name := outputStem(inputPath) + "." + r.opts.Format.String()
	if r.opts.GzipOutput {
		name += ".gz"
	}
	out, err := file.Create(ctx, filepath.Join(r.opts.OutputDir, name))
	if err != nil {
		return nil, nil, err
	}
	w := out.Writer(ctx)
	var gz *gzip.Writer
	if r.opts.GzipOutput {
		gz = gzip.NewWriter(w)
		w = gz
	}
	closeOut := func() error {
		err := berrors.Once{}
		if gz != nil {
			err.Set(gz.Close())
		}
		err.Set(out.Close(ctx))
		return err.Err()
	}
	return NewRecordWriter(w, r.opts.Format), closeOut, nil
}
