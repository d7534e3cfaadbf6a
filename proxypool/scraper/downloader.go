package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"freeproxy_pool/proxypool/retry"
)

const maxDocumentSize = 8 << 20

// UserAgentSource supplies the User-Agent header for listing requests.
type UserAgentSource interface {
	Random() string
}

// Downloader 负责获取来源页面，每次请求都经过 retry 包装。
type Downloader struct {
	client     *http.Client
	userAgents UserAgentSource
	maxRetries int
	recorder   retry.Recorder
}

// NewDownloader creates a Downloader. ua may be nil.
func NewDownloader(timeout time.Duration, maxRetries int, ua UserAgentSource) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgents: ua,
		maxRetries: maxRetries,
	}
}

// SetRecorder attaches a retry metrics recorder.
func (d *Downloader) SetRecorder(r retry.Recorder) {
	d.recorder = r
}

// Get downloads url. Failures after retries are wrapped in ErrSourceUnavailable.
func (d *Downloader) Get(ctx context.Context, url string) ([]byte, error) {
	op := retry.WithRetryRecorded(func(ctx context.Context) ([]byte, error) {
		return d.get(ctx, url)
	}, d.maxRetries, url, "fetch", d.recorder)

	body, err := op(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, url, err)
	}
	return body, nil
}

func (d *Downloader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if d.userAgents != nil {
		req.Header.Set("User-Agent", d.userAgents.Random())
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, retry.Transient(statusErr)
		}
		return nil, statusErr
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
}
