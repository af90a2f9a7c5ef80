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

// Package signal implements robust normalization of raw nanopore current
// traces.  A raw trace is a sequence of integer DAC samples whose offset and
// scale vary per channel and per run; basecallers expect traces centered at
// zero with unit spread.  Median/MAD statistics are used instead of
// mean/stddev because raw traces routinely contain large spikes.
package signal

import (
	"math"
	"sort"
)

// madScale makes the MAD a consistent estimator of the standard deviation
// under a Gaussian assumption.
const madScale = 1.4826

// MedMad returns the median and the scaled median absolute deviation of raw.
// It returns (0, 0) for an empty trace.
func MedMad(raw []int16) (med, mad float64) {
	if len(raw) == 0 {
		return 0, 0
	}
	x := make([]float64, len(raw))
	for i, v := range raw {
		x[i] = float64(v)
	}
	sort.Float64s(x)
	med = median(x)
	for i, v := range x {
		x[i] = math.Abs(v - med)
	}
	sort.Float64s(x)
	mad = median(x) * madScale
	return med, mad
}

// Normalize rescales a raw trace to median 0 and robust scale 1, returning
// 32-bit floats.  It is a pure function of its input.
//
// A constant trace has MAD 0; the result is then non-finite and it is the
// caller's responsibility to treat downstream decode failure on such input
// as expected rather than fatal.
func Normalize(raw []int16) []float32 {
	med, mad := MedMad(raw)
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32((float64(v) - med) / mad)
	}
	return out
}

// median returns the median of a sorted, non-empty slice, averaging the two
// middle elements for even lengths.  gonum's stat.Quantile is not used here:
// neither of its interpolation kinds implements this mid-mean convention.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
