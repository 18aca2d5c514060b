package rangeio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPresizeThenWriteAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, Presize(f, 1024))

	info, err := f.Stat()
	require.NoError(t, err)
	require.EqualValues(t, 1024, info.Size())

	require.NoError(t, WriteAt(f, []byte("hello"), 512))

	buf := make([]byte, 5)
	_, err = f.ReadAt(buf, 512)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf))
}

func TestWriteAt_MultipleNonOverlapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, Presize(f, 100))
	require.NoError(t, WriteAt(f, []byte("aaaa"), 0))
	require.NoError(t, WriteAt(f, []byte("bbbb"), 50))

	buf := make([]byte, 4)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, "aaaa", string(buf))

	_, err = f.ReadAt(buf, 50)
	require.NoError(t, err)
	require.Equal(t, "bbbb", string(buf))
}
