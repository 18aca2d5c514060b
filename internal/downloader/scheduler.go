package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/fwpull/fwpull/internal/fusinfo"
	"github.com/fwpull/fwpull/internal/log"
	"github.com/fwpull/fwpull/internal/rangeio"
)

// workerResult is delivered on completion (success or failure) of a single
// worker's Run call.
type workerResult struct {
	taskID int
	final  rangeio.ByteRange
	err    error
}

// Scheduler is the single coordinator goroutine: it spawns workers, serves
// their progress replies, and reacts to completion by splitting the
// currently-largest live range or retrying a failed one, up to a global
// retry budget.
type Scheduler struct {
	Info     fusinfo.FirmwareInfo
	Client   fusinfo.Client
	FilePath string
	Runtime  *RuntimeConfig

	// OnProgress, if set, is called with the number of newly-written bytes
	// each time a worker reports progress, for UI/progress-bar consumption.
	OnProgress func(delta int64)
}

// Run launches one worker per range in initial and drives them to
// completion. It returns the residual set of not-yet-downloaded ranges
// (empty on full success) and the triggering error, if any: ctx.Err() on
// interrupt, or an error wrapping ErrRetriesExhausted when the retry budget
// ran out with work still outstanding.
func (s *Scheduler) Run(ctx context.Context, initial []rangeio.ByteRange) ([]rangeio.ByteRange, error) {
	taskRanges := make(map[int]rangeio.ByteRange, len(initial))
	progressCh := make(chan progressMsg, ProgressChannelBuffer)
	resultCh := make(chan workerResult, len(initial)+1)

	nextID := 0
	live := 0

	spawn := func(id int, r rangeio.ByteRange) {
		taskRanges[id] = r
		live++
		go func() {
			f, err := os.OpenFile(s.FilePath, os.O_RDWR, 0644)
			if err != nil {
				resultCh <- workerResult{taskID: id, final: r, err: fmt.Errorf("open output file: %w", err)}
				return
			}
			defer f.Close()

			w := &Worker{
				TaskID:   id,
				File:     f,
				Info:     s.Info,
				Client:   s.Client,
				Progress: progressCh,
				BufSize:  WorkerBuffer,
			}
			final, err := w.Run(ctx, r)
			resultCh <- workerResult{taskID: id, final: final, err: err}
		}()
	}

	for _, r := range initial {
		id := nextID
		nextID++
		spawn(id, r)
	}

	maxRetries := s.Runtime.GetMaxRetries()
	errorCount := 0
	minChunk := s.Runtime.GetMinChunk()

	splitLargestAndSpawn := func() bool {
		bestID := -1
		var bestLen int64
		for id, r := range taskRanges {
			if l := r.Len(); l > bestLen {
				bestLen = l
				bestID = id
			}
		}
		if bestID == -1 {
			return false
		}

		victim := taskRanges[bestID]
		parts := rangeio.Split(victim, 2, minChunk)
		if len(parts) < 2 {
			return false // too small to split
		}

		taskRanges[bestID] = parts[0] // the live worker observes this on its next reply
		newID := nextID
		nextID++
		spawn(newID, parts[1])
		log.Debug("split task %d to %s; task %d takes %s", bestID, parts[0], newID, parts[1])
		return true
	}

	for live > 0 {
		select {
		case msg := <-progressCh:
			if s.OnProgress != nil {
				s.OnProgress(msg.bytes)
			}
			r := taskRanges[msg.taskID]
			r.Start += msg.bytes
			taskRanges[msg.taskID] = r
			msg.reply <- r.End

		case res := <-resultCh:
			live--

			if res.err != nil {
				if ctx.Err() != nil || errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
					taskRanges[res.taskID] = res.final
					continue
				}

				errorCount++
				log.Debug("task %d failed (%d/%d): %v", res.taskID, errorCount, maxRetries, res.err)
				taskRanges[res.taskID] = res.final
				if errorCount <= maxRetries && !res.final.Empty() {
					id := res.taskID
					r := res.final
					delete(taskRanges, id)
					spawn(id, r)
				}
				continue
			}

			delete(taskRanges, res.taskID)
			if ctx.Err() == nil && errorCount <= maxRetries {
				splitLargestAndSpawn()
			}
		}
	}

	residual := make([]rangeio.ByteRange, 0, len(taskRanges))
	for _, r := range taskRanges {
		if !r.Empty() {
			residual = append(residual, r)
		}
	}
	sort.Slice(residual, func(i, j int) bool { return residual[i].Start < residual[j].Start })

	if ctx.Err() != nil {
		return residual, ctx.Err()
	}
	if len(residual) > 0 {
		return residual, fmt.Errorf("%w: %d byte range(s) remaining after %d failures", ErrRetriesExhausted, len(residual), errorCount)
	}
	return residual, nil
}

// ErrRetriesExhausted is wrapped into the error Scheduler.Run returns when
// the global retry budget ran out while ranges were still outstanding.
var ErrRetriesExhausted = errors.New("retries exhausted")
