package workload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"freeproxy_pool/internal/shared/logger"
	"freeproxy_pool/internal/shared/types"
	"freeproxy_pool/proxypool/model"
	"freeproxy_pool/proxypool/retry"
	"freeproxy_pool/proxypool/validator"

	"golang.org/x/sync/semaphore"
)

const (
	defaultParallel = 5
	defaultRetries  = 5
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 16 << 20
)

// ErrBadStatus wraps non-2xx responses.
var ErrBadStatus = errors.New("unexpected response status")

// ProxySource hands out relays. *proxypool.Pool satisfies it.
type ProxySource interface {
	GetRandomProxy() (model.Endpoint, error)
}

// UserAgentSource supplies the User-Agent header.
type UserAgentSource interface {
	Random() string
}

// Response 是一次成功请求的结果，Proxy 为最后一次尝试所用的中继。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Proxy      model.Endpoint
	Attempts   int
}

// Client 通过代理池发出请求：每次尝试随机挑选一个代理，并发数受信号量限制。
type Client struct {
	proxies    ProxySource
	userAgents UserAgentSource
	gate       *semaphore.Weighted
	timeout    time.Duration
	retries    int
	recorder   retry.Recorder
}

// NewClient builds a Client from the [fetch] workload settings. ua may be nil.
func NewClient(proxies ProxySource, cfg types.FetchConf, ua UserAgentSource) *Client {
	parallel := cfg.WorkloadParallel
	if parallel <= 0 {
		parallel = defaultParallel
	}
	retries := cfg.WorkloadRetries
	if retries < 0 {
		retries = defaultRetries
	}
	timeout := time.Duration(cfg.WorkloadTimeoutSc) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		proxies:    proxies,
		userAgents: ua,
		gate:       semaphore.NewWeighted(int64(parallel)),
		timeout:    timeout,
		retries:    retries,
	}
}

// SetRecorder attaches a retry metrics recorder.
func (c *Client) SetRecorder(r retry.Recorder) {
	c.recorder = r
}

// Get fetches url through a random pool member. Transient failures (relay
// errors, timeouts, 5xx, 429) are retried on a freshly drawn relay.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	attempts := 0
	op := retry.WithRetryRecorded(func(ctx context.Context) (*Response, error) {
		attempts++
		resp, err := c.do(ctx, url)
		if resp != nil {
			resp.Attempts = attempts
		}
		return resp, err
	}, c.retries, url, "workload", c.recorder)

	return op(ctx)
}

func (c *Client) do(ctx context.Context, url string) (*Response, error) {
	l := logger.WithComponent("ProxyPool/Workload")

	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.gate.Release(1)

	relay, err := c.proxies.GetRandomProxy()
	if err != nil {
		return nil, err
	}

	transport, err := validator.NewTransport(relay, c.timeout)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Transport: transport, Timeout: c.timeout}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgents != nil {
		req.Header.Set("User-Agent", c.userAgents.Random())
	}

	resp, err := client.Do(req)
	if err != nil {
		l.Debug().Str("proxy", relay.String()).Str("url", url).Err(err).Msg("Request through relay failed.")
		return nil, fmt.Errorf("via %s: %w", relay, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("via %s: reading body: %w", relay, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("%w: %d from %s via %s", ErrBadStatus, resp.StatusCode, url, relay)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, retry.Transient(statusErr)
		}
		return nil, statusErr
	}

	l.Info().Str("proxy", relay.String()).Str("url", url).Int("status", resp.StatusCode).Msg("Request succeeded.")
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Proxy:      relay,
	}, nil
}
