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
	"time"

	"github.com/grailbio/nanocall/encoding/squiggle"
	"github.com/pkg/errors"
)

// timeLayout is second-resolution UTC, the container's native timestamp
// format and the one emitted in FASTQ headers.
const timeLayout = "2006-01-02T15:04:05Z"

// meta is a read's reconstructed identity and timing.
type meta struct {
	readID    string
	runID     string
	readNum   int
	channel   string
	startTime string
}

// extractMeta validates the read's required attributes and reconstructs its
// wall-clock start time: the run's experiment start plus the read's sample
// offset divided by the sampling rate, truncated to whole seconds, UTC.
//
// A failure here is a per-read condition: the caller skips the read, never
// the file.
func extractMeta(r *squiggle.Read) (meta, error) {
	if r.ID == "" {
		return meta{}, errors.New("missing read ID")
	}
	if r.RunID == "" {
		return meta{}, errors.Errorf("read %s: missing run ID", r.ID)
	}
	if r.Channel == "" {
		return meta{}, errors.Errorf("read %s: missing channel number", r.ID)
	}
	if r.SamplingRate <= 0 {
		return meta{}, errors.Errorf("read %s: bad sampling rate %v", r.ID, r.SamplingRate)
	}
	expStart, err := time.Parse(timeLayout, r.ExpStartTime)
	if err != nil {
		return meta{}, errors.Errorf("read %s: bad experiment start time %q", r.ID, r.ExpStartTime)
	}
	delta := float64(r.StartOffset) / r.SamplingRate
	startTime := expStart.Add(time.Duration(delta * float64(time.Second)))
	return meta{
		readID:    r.ID,
		runID:     r.RunID,
		readNum:   r.Number,
		channel:   r.Channel,
		startTime: startTime.UTC().Format(timeLayout),
	}, nil
}
