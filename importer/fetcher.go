package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	DefaultFetchTimeout = 5 * time.Second
	maxImageBytes       = 20 << 20
)

// FailureKind classifies a failed image download.
type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailureStatus    FailureKind = "status"
	FailureNetwork   FailureKind = "network"
	FailureEmpty     FailureKind = "empty"
	FailureCancelled FailureKind = "cancelled"
	FailureTooLarge  FailureKind = "too_large"
)

// FetchError is a soft image failure. It never aborts a row.
type FetchError struct {
	URL    string
	Kind   FailureKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FailureStatus:
		return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.Status)
	case FailureCancelled:
		return fmt.Sprintf("download %s: skipped, import cancelled", e.URL)
	case FailureEmpty:
		return fmt.Sprintf("download %s: empty response body", e.URL)
	case FailureTooLarge:
		return fmt.Sprintf("download %s: image exceeds %d bytes", e.URL, maxImageBytes)
	default:
		return fmt.Sprintf("download %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Image is a downloaded image ready to be stored.
type Image struct {
	URL         string
	Filename    string
	ContentType string
	Data        []byte
}

// Fetcher downloads images over one pooled HTTP client shared by the whole job.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	metrics *Metrics
}

// NewTransport returns the bounded connection pool used for image downloads.
func NewTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
}

func NewFetcher(timeout time.Duration, metrics *Metrics) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return NewFetcherWithClient(&http.Client{Transport: NewTransport(timeout)}, timeout, metrics)
}

// NewFetcherWithClient lets callers supply the HTTP client, e.g. one mocked in tests.
func NewFetcherWithClient(client *http.Client, timeout time.Duration, metrics *Metrics) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{client: client, timeout: timeout, metrics: metrics}
}

// Fetch downloads one image. A cancelled ctx skips the request; once issued, the
// request runs to completion or to the fetch timeout.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	if ctx.Err() != nil {
		f.metrics.IncImageFetch(string(FailureCancelled))
		return nil, &FetchError{URL: rawURL, Kind: FailureCancelled, Err: ctx.Err()}
	}

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	start := time.Now()
	img, err := f.download(reqCtx, rawURL)
	f.metrics.ObserveImageFetch(time.Since(start))
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			f.metrics.IncImageFetch(string(fe.Kind))
		}
		return nil, err
	}
	f.metrics.IncImageFetch("ok")
	return img, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Kind: FailureNetwork, Err: err}
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyFetchError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: rawURL, Kind: FailureStatus, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, classifyFetchError(rawURL, err)
	}
	if len(data) > maxImageBytes {
		return nil, &FetchError{URL: rawURL, Kind: FailureTooLarge}
	}
	if len(data) == 0 {
		return nil, &FetchError{URL: rawURL, Kind: FailureEmpty}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &Image{
		URL:         rawURL,
		Filename:    ImageFilename(rawURL, contentType),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func classifyFetchError(rawURL string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{URL: rawURL, Kind: FailureTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{URL: rawURL, Kind: FailureTimeout, Err: err}
	}
	return &FetchError{URL: rawURL, Kind: FailureNetwork, Err: err}
}

// ImageFilename keeps the last URL path segment when it has an extension and
// otherwise names the file after the content type, defaulting to jpg.
func ImageFilename(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		base := path.Base(u.Path)
		if base != "." && base != "/" && path.Ext(base) != "" {
			return base
		}
	}
	return "image." + extensionFor(contentType)
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mediaType {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}
