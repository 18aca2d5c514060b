package fusinfo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fwpull/fwpull/internal/testutil"
)

func queryServer(t *testing.T, crc uint32, size int64) *testutil.MockServer {
	t.Helper()
	return testutil.NewMockServerT(t,
		testutil.WithHandler(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"filename":"firmware.bin","size":%d,"crc32":%d,"download_path":"%s"}`,
				size, crc, "placeholder")
		}),
	)
}

func TestHTTPClient_Query(t *testing.T) {
	srv := queryServer(t, 12345, 2048)
	defer srv.Close()

	c := NewHTTPClient(srv.URL(), "SM-G998B", "EUX", "G998BXXU5CZI1", "fwpull-test/1.0", 4)
	info, err := c.Query(context.Background())
	require.NoError(t, err)
	require.Equal(t, "firmware.bin", info.Filename)
	require.Equal(t, int64(2048), info.Size)
	require.Equal(t, uint32(12345), info.ExpectedCRC32)
	require.Equal(t, "SM-G998B", info.Model)
}

func TestHTTPClient_OpenRange(t *testing.T) {
	srv := testutil.NewMockServerT(t,
		testutil.WithFileSize(64*1024),
		testutil.WithRangeSupport(true),
	)
	defer srv.Close()

	c := NewHTTPClient("", "SM-G998B", "EUX", "G998BXXU5CZI1", "fwpull-test/1.0", 4)
	info := FirmwareInfo{DownloadPath: srv.URL()}

	rc, err := c.OpenRange(context.Background(), info, 1024, 2048)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Len(t, data, 1024)

	stats := srv.Stats()
	require.Equal(t, int64(1), stats.RangeRequests)
}

func TestHTTPClient_OpenRange_ServerWithoutRangeSupport(t *testing.T) {
	srv := testutil.NewMockServerT(t,
		testutil.WithFileSize(1024),
		testutil.WithRangeSupport(false),
	)
	defer srv.Close()

	c := NewHTTPClient("", "SM-G998B", "EUX", "G998BXXU5CZI1", "fwpull-test/1.0", 4)
	info := FirmwareInfo{DownloadPath: srv.URL()}

	rc, err := c.OpenRange(context.Background(), info, 0, 512)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Len(t, data, 1024)
}

func TestSupportsRanges(t *testing.T) {
	h := http.Header{}
	h.Set("Accept-Ranges", "bytes")
	require.True(t, SupportsRanges(h))

	h2 := http.Header{}
	require.False(t, SupportsRanges(h2))
}
