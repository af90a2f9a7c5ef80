// Package basecall defines the signal-to-sequence decoder contract used by
// the basecalling pipeline, and provides a simple reference implementation.
//
// The pipeline treats a Caller strictly as a black box: normalized signal
// in, basecall and quality string out.  Production decoders (neural-network
// inference plus beam search) plug in behind the same interface; the
// pipeline never inspects decoder internals.
package basecall

import (
	"github.com/pkg/errors"
)

// Caller converts a normalized signal trace into a basecall and a per-base
// quality string.
//
// Implementations must return len(qual) == len(seq), and ("", "") when the
// signal cannot be decoded (too short, non-finite samples).  An empty result
// is a normal outcome, not an error.  Implementations must not panic on
// degenerate input.
//
// A Caller is not assumed to be safe for concurrent use; the pipeline
// instantiates one Caller per worker.
type Caller interface {
	Call(signal []float32) (seq, qual string)
}

// Opts configures decoder construction.  Zero-valued tuning fields are
// filled from the defaults tier keyed off NetworkType.
type Opts struct {
	// NetworkType selects the decoder model variant.
	NetworkType string
	// WeightsPath optionally overrides the model weights location.  It is
	// passed through opaquely; the reference caller ignores it.
	WeightsPath string
	// BeamSize is the decoder beam width; 1 means greedy decoding.
	BeamSize int
	// BeamCutThreshold is the threshold for creating beams.  Higher is
	// faster but less accurate.
	BeamCutThreshold float64
}

// DefaultOpts is the default decoder configuration.
var DefaultOpts = Opts{
	NetworkType: "48",
}

// NetworkTypes lists the supported decoder model variants. "256" is the
// large tier; the rest are the standard tier.
var NetworkTypes = []string{"48", "56", "64", "80", "96", "256"}

const largeNetworkType = "256"

// Two tiers of tuning defaults.  The large network emits sharper posteriors,
// so it gets a wider beam and a much lower cut threshold.
const (
	defaultBeamSize          = 5
	defaultBeamSizeLarge     = 20
	defaultCutThreshold      = 0.1
	defaultCutThresholdLarge = 0.0001
)

// ApplyDefaults validates NetworkType and fills zero-valued tuning fields
// from the matching defaults tier.
func (o *Opts) ApplyDefaults() error {
	ok := false
	for _, t := range NetworkTypes {
		if o.NetworkType == t {
			ok = true
			break
		}
	}
	if !ok {
		return errors.Errorf("basecall: unknown network type %q", o.NetworkType)
	}
	if o.BeamSize == 0 {
		if o.NetworkType == largeNetworkType {
			o.BeamSize = defaultBeamSizeLarge
		} else {
			o.BeamSize = defaultBeamSize
		}
	}
	if o.BeamCutThreshold == 0 {
		if o.NetworkType == largeNetworkType {
			o.BeamCutThreshold = defaultCutThresholdLarge
		} else {
			o.BeamCutThreshold = defaultCutThreshold
		}
	}
	if o.BeamSize < 1 {
		return errors.Errorf("basecall: beam size must be >= 1, got %d", o.BeamSize)
	}
	return nil
}

// New constructs the reference caller for the given options.
func New(opts Opts) (Caller, error) {
	if err := opts.ApplyDefaults(); err != nil {
		return nil, err
	}
	return newEventCaller(opts), nil
}
