package pipeline_test

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/nanocall/basecall"
	"github.com/grailbio/nanocall/encoding/squiggle"
	"github.com/grailbio/nanocall/pipeline"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

func TestRecordWriterFASTQ(t *testing.T) {
	buf := bytes.Buffer{}
	w := pipeline.NewRecordWriter(&buf, pipeline.FASTQ)
	assert.NoError(t, w.Write(&pipeline.Result{
		ReadID:    "read1",
		RunID:     "runA",
		ReadNum:   3,
		Channel:   "7",
		StartTime: "2021-01-01T00:00:01Z",
		Seq:       "ACGT",
		Qual:      "!!!!",
	}))
	expect.EQ(t, buf.String(),
		"@read1 runid=runA read=3 ch=7 start_time=2021-01-01T00:00:01Z\nACGT\n+\n!!!!\n")
}

func TestRecordWriterFASTA(t *testing.T) {
	buf := bytes.Buffer{}
	w := pipeline.NewRecordWriter(&buf, pipeline.FASTA)
	assert.NoError(t, w.Write(&pipeline.Result{ReadID: "read1", Seq: "ACGTACGT"}))
	expect.EQ(t, buf.String(), ">read1\nACGTACGT\n")
}

// An empty basecall writes zero lines, in both formats.
func TestRecordWriterDropsEmpty(t *testing.T) {
	for _, format := range []pipeline.Format{pipeline.FASTA, pipeline.FASTQ} {
		buf := bytes.Buffer{}
		w := pipeline.NewRecordWriter(&buf, format)
		assert.NoError(t, w.Write(&pipeline.Result{ReadID: "read1"}))
		expect.EQ(t, buf.Len(), 0)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := pipeline.ParseFormat("fasta")
	assert.NoError(t, err)
	expect.EQ(t, f, pipeline.FASTA)
	f, err = pipeline.ParseFormat("fastq")
	assert.NoError(t, err)
	expect.EQ(t, f, pipeline.FASTQ)
	if _, err = pipeline.ParseFormat("sam"); err == nil {
		t.Error("ParseFormat accepted sam")
	}
}

func testRead(id string, num int, sig []int16) squiggle.Read {
	return squiggle.Read{
		ID:           id,
		RunID:        "run-1",
		Number:       num,
		Channel:      "12",
		SamplingRate: 4000,
		StartOffset:  uint64(num) * 4000,
		ExpStartTime: "2021-01-01T00:00:00Z",
		Signal:       sig,
	}
}

func writeContainer(t *testing.T, path string, typ squiggle.FileType, reads ...squiggle.Read) {
	out, err := os.Create(path)
	assert.NoError(t, err)
	w := squiggle.NewWriter(out, typ)
	for i := range reads {
		assert.NoError(t, w.Write(&reads[i]))
	}
	assert.NoError(t, w.Finish())
	assert.NoError(t, out.Close())
}

func longSignal(seed int) []int16 {
	sig := make([]int16, 128)
	for i := range sig {
		sig[i] = int16(500 + 40*((i/10)%4) + seed)
	}
	return sig
}

func stubFactory() (basecall.Caller, error) {
	return &basecall.Stub{Seq: "ACGT", Qual: "IIII", MinLen: 32}, nil
}

// setupInputs writes two containers: a multi-read one with three reads (one
// of them too short to call) and a legacy single-read one.
func setupInputs(t *testing.T, dir string) []string {
	multi := filepath.Join(dir, "batch0.sqg")
	writeContainer(t, multi, squiggle.MultiRead,
		testRead("r-a", 0, longSignal(0)),
		testRead("r-b", 1, []int16{1, 2, 3}),
		testRead("r-c", 2, longSignal(5)),
	)
	single := filepath.Join(dir, "legacy.one.sqg")
	writeContainer(t, single, squiggle.SingleRead,
		testRead("r-z", 7, longSignal(9)))
	return []string{multi, single}
}

func runPipeline(t *testing.T, files []string, opts pipeline.Opts) {
	assert.NoError(t, pipeline.Run(context.Background(), files, opts))
}

func readOutputs(t *testing.T, dir string) map[string]string {
	infos, err := ioutil.ReadDir(dir)
	assert.NoError(t, err)
	out := map[string]string{}
	for _, fi := range infos {
		data, err := ioutil.ReadFile(filepath.Join(dir, fi.Name()))
		assert.NoError(t, err)
		out[fi.Name()] = string(data)
	}
	return out
}

func TestRunSequentialFASTA(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	outdir := filepath.Join(tmpdir, "out")
	assert.NoError(t, os.Mkdir(outdir, 0755))
	files := setupInputs(t, tmpdir)

	runPipeline(t, files, pipeline.Opts{
		OutputDir: outdir,
		Format:    pipeline.FASTA,
		Threads:   1,
		NewCaller: stubFactory,
	})
	got := readOutputs(t, outdir)
	assert.EQ(t, len(got), 2)
	// r-b's signal is too short for the stub: dropped, no lines.
	expect.EQ(t, got["batch0.fasta"], ">r-a\nACGT\n>r-c\nACGT\n")
	expect.EQ(t, got["legacy.fasta"], ">r-z\nACGT\n")
}

func TestRunSequentialFASTQ(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	outdir := filepath.Join(tmpdir, "out")
	assert.NoError(t, os.Mkdir(outdir, 0755))
	files := setupInputs(t, tmpdir)

	runPipeline(t, files, pipeline.Opts{
		OutputDir: outdir,
		Format:    pipeline.FASTQ,
		Threads:   1,
		NewCaller: stubFactory,
	})
	got := readOutputs(t, outdir)
	expect.EQ(t, got["legacy.fastq"],
		"@r-z runid=run-1 read=7 ch=12 start_time=2021-01-01T00:00:07Z\nACGT\n+\nIIII\n")
}

// Running twice with the same inputs yields byte-identical outputs.
func TestRunIdempotent(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	files := setupInputs(t, tmpdir)

	outputs := make([]map[string]string, 2)
	for i := range outputs {
		outdir := filepath.Join(tmpdir, "out"+string(rune('0'+i)))
		assert.NoError(t, os.Mkdir(outdir, 0755))
		runPipeline(t, files, pipeline.Opts{
			OutputDir: outdir,
			Format:    pipeline.FASTQ,
			Threads:   1,
			NewCaller: stubFactory,
		})
		outputs[i] = readOutputs(t, outdir)
	}
	assert.EQ(t, outputs[0], outputs[1])
}

// The written content is independent of the worker count; only cross-file
// completion order may vary, and that never reaches the output bytes.
func TestRunParallelTransparency(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	var files []string
	for i := 0; i < 6; i++ {
		path := filepath.Join(tmpdir, "in"+string(rune('0'+i))+".sqg")
		writeContainer(t, path, squiggle.MultiRead,
			testRead("fr-"+string(rune('0'+i))+"-1", 2*i, longSignal(i)),
			testRead("fr-"+string(rune('0'+i))+"-2", 2*i+1, longSignal(i+40)),
		)
		files = append(files, path)
	}

	byThreads := map[int]map[string]string{}
	for _, threads := range []int{1, 4} {
		outdir := filepath.Join(tmpdir, "out-"+string(rune('0'+threads)))
		assert.NoError(t, os.Mkdir(outdir, 0755))
		runPipeline(t, files, pipeline.Opts{
			OutputDir: outdir,
			Format:    pipeline.FASTQ,
			Threads:   threads,
			NewCaller: stubFactory,
		})
		byThreads[threads] = readOutputs(t, outdir)
	}
	assert.EQ(t, byThreads[4], byThreads[1])
}

// A corrupt file in the input set yields no output rows for that file and
// does not abort the run.
func TestRunSkipsCorruptFile(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	outdir := filepath.Join(tmpdir, "out")
	assert.NoError(t, os.Mkdir(outdir, 0755))

	corrupt := filepath.Join(tmpdir, "bad.sqg")
	assert.NoError(t, ioutil.WriteFile(corrupt, []byte("not a container"), 0600))
	valid := filepath.Join(tmpdir, "good.sqg")
	writeContainer(t, valid, squiggle.MultiRead, testRead("ok-1", 0, longSignal(3)))

	for _, threads := range []int{1, 2} {
		runPipeline(t, []string{corrupt, valid}, pipeline.Opts{
			OutputDir: outdir,
			Format:    pipeline.FASTA,
			Threads:   threads,
			NewCaller: stubFactory,
		})
		got := readOutputs(t, outdir)
		expect.EQ(t, got["good.fasta"], ">ok-1\nACGT\n")
		// The skipped file still gets its (empty) output file, like any file
		// whose reads all fail to decode.
		expect.EQ(t, got["bad.fasta"], "")
	}
}

func TestRunGzipOutput(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	outdir := filepath.Join(tmpdir, "out")
	assert.NoError(t, os.Mkdir(outdir, 0755))
	path := filepath.Join(tmpdir, "batch.sqg")
	writeContainer(t, path, squiggle.MultiRead, testRead("gz-1", 0, longSignal(0)))

	runPipeline(t, []string{path}, pipeline.Opts{
		OutputDir:  outdir,
		Format:     pipeline.FASTA,
		GzipOutput: true,
		Threads:    1,
		NewCaller:  stubFactory,
	})

	f, err := os.Open(filepath.Join(outdir, "batch.fasta.gz"))
	assert.NoError(t, err)
	defer f.Close() // nolint: errcheck
	gz, err := gzip.NewReader(f)
	assert.NoError(t, err)
	data, err := ioutil.ReadAll(gz)
	assert.NoError(t, err)
	expect.EQ(t, string(data), ">gz-1\nACGT\n")
}

// Zero input files is a no-op, not an error.
func TestRunZeroFiles(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	runPipeline(t, nil, pipeline.Opts{OutputDir: tmpdir, NewCaller: stubFactory})
	got := readOutputs(t, tmpdir)
	expect.EQ(t, len(got), 0)
}
