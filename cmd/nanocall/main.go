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
nanocall basecalls nanopore squiggle container files: it normalizes each
read's raw signal, runs the signal-to-sequence decoder, and writes one
FASTA/FASTQ file per input file.
*/

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/nanocall/basecall"
	"github.com/grailbio/nanocall/pipeline"
)

var (
	reads       = flag.String("reads", "", "Comma-separated list of read container files")
	directories = flag.String("directory", "", "Comma-separated list of directories with read container files (non-recursive)")
	output      = flag.String("output", "", "Output directory (required)")
	threads     = flag.Int("threads", pipeline.DefaultOpts.Threads, "Number of workers for basecalling")
	networkType = flag.String("network-type", basecall.DefaultOpts.NetworkType, "Decoder network size, one of "+strings.Join(basecall.NetworkTypes, ", "))
	weights     = flag.String("weights", "", "Path to network weights, only used for custom weights")
	beamSize    = flag.Int("beam-size", 0, "Decoder beam size; 1 means greedy decoding; 0 selects the network-type default (5, or 20 for 256)")
	beamCut     = flag.Float64("beam-cut-threshold", 0, "Threshold for creating beams; higher is faster but less accurate; 0 selects the network-type default (0.1, or 0.0001 for 256)")
	format      = flag.String("output-format", "fasta", "Output format, fasta or fastq")
	gzipOutput  = flag.Bool("gzip-output", false, "Compress output files with gzip")
	fileTimeout = flag.Duration("file-timeout", 0, "Abandon any single input file after this long and log it as failed; 0 disables")
)

func nanocallUsage() {
	fmt.Printf("Usage: %s -output DIR [-reads f1,f2,...] [-directory d1,d2,...] [OPTIONS]\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

// inputFiles gathers explicit read files plus every regular file of the
// listed directories.  Directory entries are not filtered by extension;
// non-container files surface later as skipped unreadable files.
func inputFiles() ([]string, error) {
	var files []string
	for _, f := range splitList(*reads) {
		files = append(files, f)
	}
	for _, dir := range splitList(*directories) {
		infos, err := ioutil.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, fi := range infos {
			if fi.IsDir() {
				continue
			}
			files = append(files, filepath.Join(dir, fi.Name()))
		}
	}
	return files, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	flag.Usage = nanocallUsage
	shutdown := grail.Init()
	defer shutdown()

	if *output == "" {
		log.Fatalf("-output is required")
	}
	if *threads < 1 {
		log.Fatalf("-threads must be >= 1, got %d", *threads)
	}
	outputFormat, err := pipeline.ParseFormat(*format)
	if err != nil {
		log.Fatalf("%v", err)
	}
	callerOpts := basecall.Opts{
		NetworkType:      *networkType,
		WeightsPath:      *weights,
		BeamSize:         *beamSize,
		BeamCutThreshold: *beamCut,
	}
	// Surface decoder configuration errors before touching the output
	// directory.
	if _, err := basecall.New(callerOpts); err != nil {
		log.Fatalf("%v", err)
	}

	files, err := inputFiles()
	if err != nil {
		log.Fatalf("listing inputs: %v", err)
	}
	if len(files) == 0 {
		log.Printf("zero input reads, nothing to do")
		return
	}
	if err := os.MkdirAll(*output, 0777); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}

	ctx := vcontext.Background()
	opts := pipeline.Opts{
		OutputDir:   *output,
		Format:      outputFormat,
		GzipOutput:  *gzipOutput,
		Threads:     *threads,
		FileTimeout: *fileTimeout,
		NewCaller: func() (basecall.Caller, error) {
			return basecall.New(callerOpts)
		},
	}
	if err := pipeline.Run(ctx, files, opts); err != nil {
		log.Fatalf("%v", err)
	}
}
