package testutil

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// TempDir creates a fresh temporary directory named after prefix and returns
// it along with a cleanup function that removes it.
func TempDir(prefix string) (string, func(), error) {
	dir, err := os.MkdirTemp("", prefix+"-*")
	if err != nil {
		return "", func() {}, err
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// FileExists reports whether path exists on disk.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CreateTestFile writes a size-byte file named name under dir, filled with
// random bytes when random is true or zeros otherwise, and returns its path.
func CreateTestFile(dir, name string, size int64, random bool) (string, error) {
	path := filepath.Join(dir, name)
	data := make([]byte, size)
	if random {
		if _, err := rand.Read(data); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// VerifyFileSize reports an error if the file at path is not exactly want bytes.
func VerifyFileSize(path string, want int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() != want {
		return fmt.Errorf("%s: expected size %d, got %d", path, want, info.Size())
	}
	return nil
}
