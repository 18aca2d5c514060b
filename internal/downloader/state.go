package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/fwpull/fwpull/internal/rangeio"
)

// ErrStateCorrupt is returned when a state file fails canonicalization. It is
// never auto-repaired: the caller must surface the remediation message and
// let the user decide whether to delete the file and restart.
var ErrStateCorrupt = errors.New("state file is corrupted; delete it to download from scratch")

type persistedRange [2]int64

// persistentState is the on-disk JSON shape: an ordered list of disjoint
// byte ranges covering all bytes not yet written to the download file.
type persistentState struct {
	Ranges []persistedRange `json:"ranges"`
}

// Load reads and canonicalizes the state file at path. A missing file
// returns an error satisfying os.IsNotExist so callers can distinguish "no
// prior run" from "prior run left a file we can't trust".
func Load(path string, size int64) ([]rangeio.ByteRange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ps persistentState
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateCorrupt, err)
	}

	ranges := make([]rangeio.ByteRange, 0, len(ps.Ranges))
	for _, pr := range ps.Ranges {
		if pr[0] == pr[1] {
			continue // empty ranges carry no work and are dropped
		}
		ranges = append(ranges, rangeio.ByteRange{Start: pr[0], End: pr[1]})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })

	for i, r := range ranges {
		if r.Start < 0 || r.End < r.Start || r.End > size {
			return nil, fmt.Errorf("%w: range %s out of bounds for size %d", ErrStateCorrupt, r, size)
		}
		if i > 0 && ranges[i-1].End > r.Start {
			return nil, fmt.Errorf("%w: ranges %s and %s overlap or are out of order", ErrStateCorrupt, ranges[i-1], r)
		}
	}

	return ranges, nil
}

// Save atomically writes ranges to path: a temp file in the same directory
// is written and fsynced, then renamed over the destination, so a crash
// mid-write never leaves a truncated-but-parseable file. An empty ranges
// slice deletes path instead of persisting an empty (and misleading-looking
// "nothing left to do") state file.
func Save(path string, ranges []rangeio.ByteRange) error {
	if len(ranges) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale state file: %w", err)
		}
		return nil
	}

	ps := persistentState{Ranges: make([]persistedRange, len(ranges))}
	for i, r := range ranges {
		ps.Ranges[i] = persistedRange{r.Start, r.End}
	}

	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp state file: %w", err)
	}
	return nil
}

// WithStateLock runs fn while holding an exclusive advisory lock on
// <path>.lock, so two concurrent invocations of this tool against the same
// download never race on loading or saving the state file.
func WithStateLock(path string, fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire state lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another instance is already downloading this file")
	}
	defer lock.Unlock()
	return fn()
}
