package downloader

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fwpull/fwpull/internal/fusinfo"
	"github.com/fwpull/fwpull/internal/rangeio"
	"github.com/fwpull/fwpull/internal/testutil"
)

// runWorkerAgainstRange drives a Worker to completion against a fixed range,
// acting as a trivial single-worker scheduler: it replies to every progress
// report with the range's original end, never narrowing it.
func runWorkerAgainstRange(t *testing.T, w *Worker, r rangeio.ByteRange) (rangeio.ByteRange, error, int64) {
	t.Helper()
	progress := make(chan progressMsg, 8)
	w.Progress = progress

	var downloaded int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range progress {
			atomic.AddInt64(&downloaded, msg.bytes)
			msg.reply <- r.End
		}
	}()

	final, err := w.Run(context.Background(), r)
	close(progress)
	<-done
	return final, err, atomic.LoadInt64(&downloaded)
}

func openWorkerFile(t *testing.T, size int64) (string, *os.File) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.bin")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	require.NoError(t, rangeio.Presize(f, size))
	return path, f
}

func TestWorker_Run_HTTPRangeRoundTrip(t *testing.T) {
	const fileSize = 64 * 1024
	server := testutil.NewMockServerT(t,
		testutil.WithFileSize(fileSize),
		testutil.WithRangeSupport(true),
		testutil.WithContentType("application/octet-stream"),
		testutil.WithFilename("firmware.bin"),
		testutil.WithRandomData(true),
	)
	defer server.Close()

	path, f := openWorkerFile(t, fileSize)

	client := fusinfo.NewHTTPClient("", "SM-G998B", "EUX", "G998BXXU5CZI1", "fwpull-test/1.0", 4)
	info := fusinfo.FirmwareInfo{DownloadPath: server.URL(), Size: fileSize}

	w := &Worker{TaskID: 0, File: f, Info: info, Client: client, BufSize: 4096}
	final, runErr, downloaded := runWorkerAgainstRange(t, w, rangeio.ByteRange{Start: 0, End: fileSize})
	require.NoError(t, f.Close())

	assertErr := testutil.AssertDownloadSuccess(testutil.DownloadResult{Error: runErr, BytesRead: downloaded}, fileSize)
	require.NoError(t, assertErr)
	require.True(t, final.Empty())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, fileSize)
	require.GreaterOrEqual(t, server.Stats().RangeRequests, int64(1))
}

func TestWorker_Run_PrematureEOFOnTruncatedStream(t *testing.T) {
	const fileSize = 32 * 1024
	server := testutil.NewMockServerT(t,
		testutil.WithFileSize(fileSize),
		testutil.WithRangeSupport(true),
		testutil.WithFailAfterBytes(4096),
	)
	defer server.Close()

	_, f := openWorkerFile(t, fileSize)
	defer f.Close()

	client := fusinfo.NewHTTPClient("", "SM-G998B", "EUX", "G998BXXU5CZI1", "fwpull-test/1.0", 4)
	info := fusinfo.FirmwareInfo{DownloadPath: server.URL(), Size: fileSize}

	w := &Worker{TaskID: 0, File: f, Info: info, Client: client, BufSize: 1024}
	final, runErr, _ := runWorkerAgainstRange(t, w, rangeio.ByteRange{Start: 0, End: fileSize})

	require.Error(t, runErr)
	require.False(t, final.Empty(), "a truncated stream must leave unconsumed bytes in the residual range")
}

func TestWorker_Run_ByteLatency(t *testing.T) {
	const fileSize = 8 * 1024
	server := testutil.NewMockServerT(t,
		testutil.WithFileSize(fileSize),
		testutil.WithRangeSupport(true),
		testutil.WithByteLatency(10*time.Microsecond),
	)
	defer server.Close()

	path, f := openWorkerFile(t, fileSize)

	client := fusinfo.NewHTTPClient("", "SM-G998B", "EUX", "G998BXXU5CZI1", "fwpull-test/1.0", 4)
	info := fusinfo.FirmwareInfo{DownloadPath: server.URL(), Size: fileSize}

	w := &Worker{TaskID: 0, File: f, Info: info, Client: client, BufSize: 512}
	final, runErr, downloaded := runWorkerAgainstRange(t, w, rangeio.ByteRange{Start: 0, End: fileSize})
	require.NoError(t, f.Close())

	require.NoError(t, runErr)
	require.True(t, final.Empty())
	require.EqualValues(t, fileSize, downloaded)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, fileSize)
}

func TestWorker_Run_PerRequestLatencyAndStatsReset(t *testing.T) {
	const fileSize = 2 * 1024
	server := testutil.NewMockServerT(t,
		testutil.WithFileSize(fileSize),
		testutil.WithRangeSupport(true),
		testutil.WithLatency(5*time.Millisecond),
	)
	defer server.Close()

	path, f := openWorkerFile(t, fileSize)

	client := fusinfo.NewHTTPClient("", "SM-G998B", "EUX", "G998BXXU5CZI1", "fwpull-test/1.0", 4)
	info := fusinfo.FirmwareInfo{DownloadPath: server.URL(), Size: fileSize}

	w := &Worker{TaskID: 0, File: f, Info: info, Client: client, BufSize: 256}
	start := time.Now()
	final, runErr, _ := runWorkerAgainstRange(t, w, rangeio.ByteRange{Start: 0, End: fileSize})
	elapsed := time.Since(start)
	require.NoError(t, f.Close())

	require.NoError(t, runErr)
	require.True(t, final.Empty())
	require.GreaterOrEqual(t, elapsed, 5*time.Millisecond)

	require.EqualValues(t, 1, server.Stats().TotalRequests)
	server.Reset()
	require.EqualValues(t, 0, server.Stats().TotalRequests)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, fileSize)
}

func TestWorker_Run_StreamingLargeFile(t *testing.T) {
	const fileSize = 50 * 1024 * 1024
	const reqSize = 2 * 1024 * 1024

	server := testutil.NewStreamingMockServerT(t, fileSize, testutil.WithRangeSupport(true))
	defer server.Close()

	path, f := openWorkerFile(t, reqSize)

	client := fusinfo.NewHTTPClient("", "SM-G998B", "EUX", "G998BXXU5CZI1", "fwpull-test/1.0", 4)
	info := fusinfo.FirmwareInfo{DownloadPath: server.URL(), Size: fileSize}

	w := &Worker{TaskID: 0, File: f, Info: info, Client: client, BufSize: 64 * 1024}
	final, runErr, downloaded := runWorkerAgainstRange(t, w, rangeio.ByteRange{Start: 0, End: reqSize})
	require.NoError(t, f.Close())

	require.NoError(t, runErr)
	require.True(t, final.Empty())
	require.EqualValues(t, reqSize, downloaded)

	stat, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, reqSize, stat.Size())
}
