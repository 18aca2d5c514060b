package fusinfo

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vfaronov/httpheader"
)

// HTTPClient is the concrete, working Client implementation: it queries a
// vendor firmware-update service over plain JSON and fetches byte ranges of
// the resulting artifact over HTTP Range requests. Its connection tuning
// mirrors the teacher's newConcurrentClient (disabled compression, forced
// HTTP/1.1 so distinct ranges land on distinct TCP connections, generous
// per-host connection pool).
type HTTPClient struct {
	QueryURL string // endpoint that resolves model/region/version to FirmwareInfo
	Model    string
	Region   string
	Version  string

	UserAgent string

	httpClient *http.Client
}

// NewHTTPClient builds an HTTPClient tuned for many concurrent ranged GETs
// against the same host.
func NewHTTPClient(queryURL, model, region, version, userAgent string, maxConnsPerHost int) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: maxConnsPerHost + 2,
		MaxConnsPerHost:     maxConnsPerHost,

		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableCompression: true,
		ForceAttemptHTTP2:  false,
		TLSNextProto:       make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &HTTPClient{
		QueryURL:   queryURL,
		Model:      model,
		Region:     region,
		Version:    version,
		UserAgent:  userAgent,
		httpClient: &http.Client{Transport: transport},
	}
}

type queryResponse struct {
	Filename     string `json:"filename"`
	Size         int64  `json:"size"`
	CRC32        uint32 `json:"crc32"`
	DownloadPath string `json:"download_path"`
	LastModified string `json:"last_modified"`
}

// Query resolves firmware metadata by asking the vendor endpoint for the
// fixed (model, region, version) tuple this client was built with.
func (c *HTTPClient) Query(ctx context.Context) (FirmwareInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.QueryURL, nil)
	if err != nil {
		return FirmwareInfo{}, err
	}
	q := req.URL.Query()
	q.Set("model", c.Model)
	q.Set("region", c.Region)
	q.Set("version", c.Version)
	req.URL.RawQuery = q.Encode()

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FirmwareInfo{}, fmt.Errorf("query firmware info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FirmwareInfo{}, fmt.Errorf("query firmware info: unexpected status %d", resp.StatusCode)
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return FirmwareInfo{}, fmt.Errorf("decode firmware info: %w", err)
	}

	filename := qr.Filename
	if _, name, err := httpheader.ContentDisposition(resp.Header); err == nil && name != "" {
		filename = name
	}

	return FirmwareInfo{
		Model:         c.Model,
		Region:        c.Region,
		Version:       c.Version,
		Filename:      filename,
		Size:          qr.Size,
		ExpectedCRC32: qr.CRC32,
		DownloadPath:  qr.DownloadPath,
		LastModified:  qr.LastModified,
	}, nil
}

// OpenRange issues a ranged GET for [start, end) against info.DownloadPath.
// The returned ReadCloser yields exactly the requested bytes on a compliant
// server; the worker is responsible for detecting a stream that ends early.
func (c *HTTPClient) OpenRange(ctx context.Context, info FirmwareInfo, start, end int64) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.DownloadPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end-1))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open range %d-%d: %w", start, end, err)
	}

	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("open range %d-%d: unexpected status %d", start, end, resp.StatusCode)
	}

	return resp.Body, nil
}

// SupportsRanges reports whether a probe response advertised byte-range
// support, via the Accept-Ranges header.
func SupportsRanges(header http.Header) bool {
	for _, unit := range httpheader.AcceptRanges(header) {
		if unit == "bytes" {
			return true
		}
	}
	return false
}
