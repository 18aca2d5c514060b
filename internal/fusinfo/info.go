// Package fusinfo is the firmware-query external collaborator: it resolves
// a (model, region, version) tuple to download metadata and exposes a lazy
// byte-range stream over the artifact. The core downloader and verify
// pipeline depend only on the Client interface defined here, never on the
// concrete HTTP implementation in httpclient.go.
package fusinfo

import (
	"context"
	"io"
)

// FirmwareInfo is the immutable metadata describing one firmware artifact.
// It is not modified during a run; each worker holds its own copy of it.
type FirmwareInfo struct {
	Model    string
	Region   string
	Version  string
	Filename string
	Size     int64
	// ExpectedCRC32 is the checksum the verify pipeline computes over the
	// ciphertext and compares against at EOF.
	ExpectedCRC32 uint32
	// DownloadPath is an opaque token or path used to address the ranged
	// stream; callers never interpret it directly.
	DownloadPath string
	LastModified string
}

// Client is the external collaborator contract. The concrete implementation
// in httpclient.go issues HTTP range requests; tests substitute a fake.
type Client interface {
	// Query resolves firmware metadata for the configured model/region/version.
	Query(ctx context.Context) (FirmwareInfo, error)
	// OpenRange opens a lazy byte stream covering [start, end) of the
	// artifact named by info.DownloadPath. Reaching EOF before end-start
	// bytes have been read is the caller's responsibility to detect.
	OpenRange(ctx context.Context, info FirmwareInfo, start, end int64) (io.ReadCloser, error)
}
