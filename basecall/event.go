package basecall

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// eventCaller is the reference Caller: it segments the normalized trace
// into events at abrupt level changes and maps each event's mean level onto
// one of four bins.  This is the classic event-space decoding scheme that
// predates neural-network basecallers; accuracy is nowhere near a trained
// network, but the implementation is deterministic, stateless and reentrant,
// which makes it a usable default and a realistic stand-in in tests.
//
// Decoding is greedy, so BeamSize has no effect here.  BeamCutThreshold is
// repurposed as segmentation sensitivity: a higher threshold opens fewer,
// longer events.
type eventCaller struct {
	jump     float64
	minEvent int
}

// minCallSamples is the shortest trace worth segmenting; anything shorter
// returns the empty result.
const minCallSamples = 16

func newEventCaller(opts Opts) *eventCaller {
	return &eventCaller{
		jump:     0.5 + opts.BeamCutThreshold,
		minEvent: 3,
	}
}

// Normalized quartile boundaries and the expected level within each
// quartile, under the unit-scale assumption the normalizer establishes.
var (
	levelBounds  = [3]float64{-0.6745, 0, 0.6745}
	levelCenters = [4]float64{-1.271, -0.324, 0.324, 1.271}
)

const bases = "ACGT"

func (c *eventCaller) Call(signal []float32) (string, string) {
	if len(signal) < minCallSamples {
		return "", ""
	}
	x := make([]float64, len(signal))
	for i, v := range signal {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", ""
		}
		x[i] = f
	}

	var (
		seq, qual []byte
		start     int
		mean      float64
	)
	emit := func(event []float64) {
		m := stat.Mean(event, nil)
		sd := stat.StdDev(event, nil)
		if len(event) < 2 {
			sd = 0
		}
		bin := 3
		for i, b := range levelBounds {
			if m < b {
				bin = i
				break
			}
		}
		q := 40 - int(25*math.Abs(m-levelCenters[bin])) - int(5*sd)
		if q < 2 {
			q = 2
		}
		seq = append(seq, bases[bin])
		qual = append(qual, byte(33+q))
	}
	mean = x[0]
	for i := 1; i < len(x); i++ {
		n := i - start
		if n >= c.minEvent && math.Abs(x[i]-mean) > c.jump {
			emit(x[start:i])
			start = i
			mean = x[i]
			continue
		}
		// Running mean of the open event.
		mean += (x[i] - mean) / float64(n+1)
	}
	emit(x[start:])
	return string(seq), string(qual)
}
