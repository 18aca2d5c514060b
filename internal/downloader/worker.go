package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fwpull/fwpull/internal/fusinfo"
	"github.com/fwpull/fwpull/internal/rangeio"
)

// ErrPrematureEOF is returned when the remote stream ends before the
// worker's range has been fully consumed.
var ErrPrematureEOF = errors.New("stream ended before range was fully consumed")

// progressMsg is a single worker's progress report, paired with a reply
// channel the scheduler uses to hand back the (possibly narrowed) new end of
// the worker's range. This is the Go-channel equivalent of the original
// tool's oneshot-reply progress protocol: the worker blocks after every
// fragment until the scheduler replies, so a split can never race ahead of
// what the worker has actually been told to stop at.
type progressMsg struct {
	taskID int
	bytes  int64
	reply  chan int64
}

// Worker owns one task's range and drives it to completion, narrowing its
// range whenever the scheduler's reply shrinks it (a mid-run split stealing
// the tail of this worker's work).
type Worker struct {
	TaskID   int
	File     *os.File // independently opened handle; see DESIGN.md Open Question resolution 2
	Info     fusinfo.FirmwareInfo
	Client   fusinfo.Client
	Progress chan<- progressMsg
	BufSize  int
}

// Run streams the worker's range to completion, writing each fragment at
// its absolute offset and reporting progress after every write. It returns
// the final (possibly narrowed) range — empty on success — and any error.
func (w *Worker) Run(ctx context.Context, r rangeio.ByteRange) (rangeio.ByteRange, error) {
	if r.Empty() {
		return r, nil
	}

	stream, err := w.Client.OpenRange(ctx, w.Info, r.Start, r.End)
	if err != nil {
		return r, fmt.Errorf("worker %d: open range %s: %w", w.TaskID, r, err)
	}
	defer stream.Close()

	bufSize := w.BufSize
	if bufSize <= 0 {
		bufSize = WorkerBuffer
	}
	buf := make([]byte, bufSize)

	for r.Start < r.End {
		remaining := r.End - r.Start
		readLen := int64(len(buf))
		if readLen > remaining {
			readLen = remaining
		}

		n, readErr := stream.Read(buf[:readLen])
		if n > 0 {
			fragment := buf[:n]
			if err := rangeio.WriteAt(w.File, fragment, r.Start); err != nil {
				return r, fmt.Errorf("worker %d: %w", w.TaskID, err)
			}

			consumed := int64(n)
			if consumed > remaining {
				consumed = remaining
			}
			r.Start += consumed

			newEnd, err := w.reportProgress(ctx, consumed)
			if err != nil {
				return r, err
			}
			if newEnd > r.End {
				return r, fmt.Errorf("worker %d: scheduler widened range (had %d, got %d)", w.TaskID, r.End, newEnd)
			}
			r.End = newEnd
		}

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			if r.Start < r.End {
				return r, fmt.Errorf("worker %d: %w (at %d of %d)", w.TaskID, ErrPrematureEOF, r.Start, r.End)
			}
			break
		}
		if readErr != nil {
			return r, fmt.Errorf("worker %d: read: %w", w.TaskID, readErr)
		}
	}

	return r, nil
}

func (w *Worker) reportProgress(ctx context.Context, bytes int64) (int64, error) {
	reply := make(chan int64, 1)
	msg := progressMsg{taskID: w.TaskID, bytes: bytes, reply: reply}

	select {
	case w.Progress <- msg:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case newEnd := <-reply:
		return newEnd, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
