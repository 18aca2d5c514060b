package rangeio

import (
	"fmt"
	"os"
)

// WriteAt writes b to f at offset, looping until the whole buffer is
// committed. os.File.WriteAt can return a short write on some platforms when
// interrupted by a signal; a single call is not sufficient to guarantee the
// full buffer landed.
func WriteAt(f *os.File, b []byte, offset int64) error {
	for len(b) > 0 {
		n, err := f.WriteAt(b, offset)
		if err != nil {
			return fmt.Errorf("write at offset %d: %w", offset, err)
		}
		if n == 0 {
			return fmt.Errorf("write at offset %d: no progress", offset)
		}
		b = b[n:]
		offset += int64(n)
	}
	return nil
}

// Presize sets f's length to size before any worker starts writing, so every
// worker's positional write lands within an already-allocated extent.
func Presize(f *os.File, size int64) error {
	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("presize to %d bytes: %w", size, err)
	}
	return nil
}
