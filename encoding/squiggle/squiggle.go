// Package squiggle reads and writes squiggle container files, the raw-signal
// interchange format consumed by the basecalling pipeline.  A container holds
// one or many sequencer reads, each a chronological trace of integer current
// samples plus the run/channel metadata needed to reconstruct the read's
// identity and wall-clock timing.
//
// Two on-disk layout variants exist for the same logical content:
//
//   - SingleRead: the legacy layout, one read per file.  A 4-byte magic
//     followed by one gob-encoded read record.
//   - MultiRead: a recordio file with a version header and one gob-encoded
//     read record per recordio record, zstd-compressed.
//
// Open detects the variant once per file; iteration is uniform regardless of
// origin.  The rest of the pipeline never branches on the variant.
package squiggle

// FileType identifies the container layout variant, resolved at Open.
type FileType int

const (
	// SingleRead is the legacy one-read-per-file flat layout.
	SingleRead FileType = iota
	// MultiRead is the recordio many-reads-per-file layout.
	MultiRead
)

func (t FileType) String() string {
	switch t {
	case SingleRead:
		return "single-read"
	case MultiRead:
		return "multi-read"
	}
	return "unknown"
}

const (
	singleMagic = "SQG1"

	// multiVersionKey/multiVersion are stored in the recordio header of the
	// multi-read variant.
	multiVersionKey = "squiggleversion"
	multiVersion    = "SQG2"
)

// Read is one sequencer read as stored in a container file.  Fields mirror
// the container attributes; none are validated here beyond what decoding
// requires.  Absent string attributes decode as empty strings, which the
// extraction layer treats as missing metadata.
type Read struct {
	// ID is the globally unique read identifier.
	ID string
	// RunID identifies the sequencing run the read belongs to.
	RunID string
	// Number is the read number, monotonically assigned within a run but not
	// necessarily contiguous.
	Number int
	// Channel identifies the physical sensor that produced the read.
	Channel string
	// SamplingRate is the signal sampling rate in samples/second.
	SamplingRate float64
	// StartOffset is the number of samples elapsed between the run's
	// experiment start and the first sample of this read.
	StartOffset uint64
	// ExpStartTime is the run's experiment start time, formatted
	// "2006-01-02T15:04:05Z".
	ExpStartTime string
	// Signal is the raw current trace, one sample per element, chronological.
	Signal []int16
}
