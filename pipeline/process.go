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

	"github.com/grailbio/base/log"
	"github.com/grailbio/nanocall/basecall"
	"github.com/grailbio/nanocall/encoding/squiggle"
	"github.com/grailbio/nanocall/signal"
)

// processFile basecalls every read of one container file, in container
// order.  Per-file I/O failures are isolated here: an unreadable file logs
// and yields no results, and the run continues.  A read with unusable
// metadata logs and is skipped; the rest of the file is unaffected.  Context
// cancellation abandons the file with the same empty-result semantics as an
// unreadable one.
//
// The returned slice holds one Result per successfully examined read,
// including reads the decoder could not call (empty Seq); those are filtered
// at output time, not here.
func processFile(ctx context.Context, path string, caller basecall.Caller) []Result {
	f, err := squiggle.Open(ctx, path)
	if err != nil {
		log.Error.Printf("%s: skipping unreadable file: %v", path, err)
		return nil
	}
	defer func() {
		if err := f.Close(ctx); err != nil {
			log.Error.Printf("%s: close: %v", path, err)
		}
	}()

	var (
		results []Result
		read    squiggle.Read
	)
	for f.Scan(&read) {
		select {
		case <-ctx.Done():
			log.Error.Printf("%s: abandoning file: %v", path, ctx.Err())
			return nil
		default:
		}
		m, err := extractMeta(&read)
		if err != nil {
			log.Error.Printf("%s: skipping read: %v", path, err)
			continue
		}
		seq, qual := caller.Call(signal.Normalize(read.Signal))
		results = append(results, Result{
			ReadID:    m.readID,
			RunID:     m.runID,
			ReadNum:   m.readNum,
			Channel:   m.channel,
			StartTime: m.startTime,
			Seq:       seq,
			Qual:      qual,
		})
	}
	if err := f.Err(); err != nil {
		// Mid-iteration corruption is the whole-file I/O error class; drop
		// any partial results so the file reads as skipped.
		log.Error.Printf("%s: skipping unreadable file: %v", path, err)
		return nil
	}
	return results
}
