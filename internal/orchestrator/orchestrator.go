// Package orchestrator wires the range scheduler, state store, and
// verify/decrypt pipeline into the end-to-end fetch flow described in
// SPEC_FULL.md §4.7.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/fwpull/fwpull/internal/cipher"
	"github.com/fwpull/fwpull/internal/downloader"
	"github.com/fwpull/fwpull/internal/fusinfo"
	"github.com/fwpull/fwpull/internal/historydb"
	"github.com/fwpull/fwpull/internal/log"
	"github.com/fwpull/fwpull/internal/progress"
	"github.com/fwpull/fwpull/internal/rangeio"
	"github.com/fwpull/fwpull/internal/verify"
)

const (
	encSuffix   = ".enc"
	stateSuffix = ".state"
	tempSuffix  = ".tmp"
)

// ErrInterrupted is returned when the download phase ends with a non-empty
// residual, whether from a real signal or from retry exhaustion.
type ErrInterrupted struct {
	Signal    bool
	Remaining int
}

func (e *ErrInterrupted) Error() string {
	if e.Signal {
		return fmt.Sprintf("download interrupted: %d byte range(s) remaining", e.Remaining)
	}
	return fmt.Sprintf("download stopped after retries exhausted: %d byte range(s) remaining", e.Remaining)
}

// Options configures a single Run.
type Options struct {
	Client        fusinfo.Client
	HistoryDB     *historydb.DB
	OutputPath    string // empty to derive from FirmwareInfo.Filename
	Force         bool
	Parallelism   int
	MinChunk      int64
	MaxRetries    int
	KeepEncrypted bool
	OnProgress    func(progress.Event)
}

// Run executes the full fetch: query, partition-or-resume, download,
// verify/decrypt, and finalize.
func Run(ctx context.Context, opts Options) error {
	runID := uuid.New()

	info, err := opts.Client.Query(ctx)
	if err != nil {
		return fmt.Errorf("query firmware info: %w", err)
	}
	printBanner(info)

	outPath := opts.OutputPath
	if outPath == "" {
		outPath = deriveOutputPath(info)
	}
	downloadPath := outPath + encSuffix
	statePath := downloadPath + stateSuffix
	tempPath := outPath + tempSuffix

	if !opts.Force {
		if _, err := os.Stat(outPath); err == nil {
			return fmt.Errorf("output %q already exists (use --force to overwrite)", outPath)
		}
	}

	var residual error
	err = downloader.WithStateLock(statePath, func() error {
		ranges, loadErr := loadOrPartition(statePath, info.Size, opts)
		if loadErr != nil {
			return loadErr
		}

		f, openErr := os.OpenFile(downloadPath, os.O_CREATE|os.O_RDWR, 0644)
		if openErr != nil {
			return fmt.Errorf("open download file: %w", openErr)
		}
		if presizeErr := rangeio.Presize(f, info.Size); presizeErr != nil {
			f.Close()
			return presizeErr
		}
		f.Close()

		runtime := &downloader.RuntimeConfig{
			Parallelism: opts.Parallelism,
			MinChunk:    opts.MinChunk,
			MaxRetries:  opts.MaxRetries,
		}

		speed := progress.NewSpeedEstimator(0.3)
		var downloaded int64
		sched := &downloader.Scheduler{
			Info:     info,
			Client:   opts.Client,
			FilePath: downloadPath,
			Runtime:  runtime,
			OnProgress: func(delta int64) {
				downloaded += delta
				if opts.OnProgress != nil {
					opts.OnProgress(progress.Event{
						Downloaded: downloaded,
						Total:      info.Size,
						Speed:      speed.Observe(delta),
					})
				}
			},
		}

		leftover, runErr := sched.Run(ctx, ranges)
		if runErr != nil {
			if saveErr := downloader.Save(statePath, leftover); saveErr != nil {
				log.Warn("failed to persist residual state: %v", saveErr)
			}
			residual = &ErrInterrupted{
				Signal:    errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded),
				Remaining: len(leftover),
			}
			return nil
		}

		if delErr := downloader.Save(statePath, nil); delErr != nil {
			log.Warn("failed to clear state file: %v", delErr)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if residual != nil {
		return residual
	}

	key := fusinfo.DeriveKey(info, 32)
	aesCipher, err := cipher.NewAESCTR(key[:16], key[16:32])
	if err != nil {
		return fmt.Errorf("build cipher: %w", err)
	}

	if err := verify.Run(downloadPath, tempPath, aesCipher, info.ExpectedCRC32); err != nil {
		return fmt.Errorf("verify/decrypt: %w", err)
	}

	sniffType(tempPath)

	if !opts.KeepEncrypted {
		if err := os.Remove(downloadPath); err != nil {
			log.Warn("failed to remove ciphertext: %v", err)
		}
	}

	if err := renameAtomic(tempPath, outPath); err != nil {
		return fmt.Errorf("finalize output: %w", err)
	}

	if opts.HistoryDB != nil {
		entry := historydb.Entry{
			RunID:       runID,
			Model:       info.Model,
			Region:      info.Region,
			Version:     info.Version,
			OutputPath:  outPath,
			Size:        info.Size,
			CompletedAt: time.Now(),
		}
		if err := opts.HistoryDB.Record(entry); err != nil {
			log.Warn("failed to record history entry: %v", err)
		}
	}

	log.Info("fetch complete: %s", outPath)
	return nil
}

func loadOrPartition(statePath string, size int64, opts Options) ([]rangeio.ByteRange, error) {
	ranges, err := downloader.Load(statePath, size)
	if err == nil {
		return ranges, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("load state: %w", err)
	}

	runtime := &downloader.RuntimeConfig{Parallelism: opts.Parallelism, MinChunk: opts.MinChunk}
	parallelism := runtime.GetParallelism(size)
	minChunk := runtime.GetMinChunk()

	return rangeio.Split(rangeio.ByteRange{Start: 0, End: size}, parallelism, minChunk), nil
}

func deriveOutputPath(info fusinfo.FirmwareInfo) string {
	if info.Filename != "" {
		return info.Filename
	}
	return fmt.Sprintf("%s-%s-%s.bin", info.Model, info.Region, info.Version)
}

func printBanner(info fusinfo.FirmwareInfo) {
	log.Info("model=%s region=%s version=%s file=%s size=%d crc32=%08x modified=%s",
		info.Model, info.Region, info.Version, info.Filename, info.Size, info.ExpectedCRC32, info.LastModified)
}

func sniffType(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	head := make([]byte, 261)
	n, _ := io.ReadFull(f, head)
	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		log.Info("decrypted output type: unknown")
		return
	}
	log.Info("decrypted output type: %s (%s)", kind.Extension, kind.MIME.Value)
}

// renameAtomic renames src to dst, falling back to a copy-then-remove when
// the rename fails (e.g. src and dst live on different filesystems),
// matching the teacher's downloader.go finalize pattern.
func renameAtomic(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open temp file for fallback copy: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create destination for fallback copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("fallback copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination after fallback copy: %w", err)
	}
	_ = os.Remove(src)
	return nil
}
