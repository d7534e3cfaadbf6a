package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"freeproxy_pool/internal/shared/logger"
	"freeproxy_pool/internal/shared/types"
	"freeproxy_pool/proxypool/model"

	"golang.org/x/net/proxy"
)

const (
	DefaultOracleURL = "http://httpbin.org/ip"
	defaultTimeout   = 5 * time.Second
	defaultAttempts  = 3
	maxOracleBody    = 1 << 20
)

// Validator 通过候选代理请求存活探针 (oracle)，把结果分为 working / timed_out / broken。
type Validator struct {
	oracleURL string
	timeout   time.Duration
	attempts  int
}

// NewValidator creates a Validator. Zero values fall back to the defaults
// (httpbin, 5s per attempt, 3 attempts).
func NewValidator(oracleURL string, timeout time.Duration, attempts int) *Validator {
	if oracleURL == "" {
		oracleURL = DefaultOracleURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	return &Validator{
		oracleURL: oracleURL,
		timeout:   timeout,
		attempts:  attempts,
	}
}

// NewFromConfig builds a Validator from the [validator] section.
func NewFromConfig(cfg types.ValidatorConf) *Validator {
	return NewValidator(cfg.OracleURL, time.Duration(cfg.TimeoutSeconds)*time.Second, cfg.Attempts)
}

// Validate probes the oracle through e up to the configured number of
// attempts and stops at the first success. The classification is the one of
// the last attempt made.
func (v *Validator) Validate(ctx context.Context, e model.Endpoint) model.ValidationOutcome {
	l := logger.WithComponent("ProxyPool/Validator")
	outcome := model.ValidationOutcome{Endpoint: e, Status: model.StatusBroken}

	client, err := v.clientFor(e)
	if err != nil {
		outcome.Message = err.Error()
		return outcome
	}
	defer client.CloseIdleConnections()

	for attempt := 1; attempt <= v.attempts; attempt++ {
		if ctx.Err() != nil {
			outcome.Message = ctx.Err().Error()
			break
		}
		outcome.Attempts = attempt

		latency, err := v.probe(ctx, client)
		if err == nil {
			outcome.Status = model.StatusWorking
			outcome.Latency = latency
			outcome.Message = ""
			break
		}

		outcome.Message = err.Error()
		if isTimeout(err) && ctx.Err() == nil {
			outcome.Status = model.StatusTimedOut
		} else {
			outcome.Status = model.StatusBroken
		}
		l.Debug().Str("proxy", e.String()).Int("attempt", attempt).Err(err).Msg("Probe attempt failed.")
	}

	return outcome
}

func (v *Validator) probe(ctx context.Context, client *http.Client) (time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, v.oracleURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create oracle request: %w", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("oracle returned status code %d", resp.StatusCode)
	}

	var body any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxOracleBody)).Decode(&body); err != nil {
		return 0, fmt.Errorf("oracle returned a non-JSON body: %w", err)
	}
	return time.Since(start), nil
}

// clientFor builds a one-off client that routes every request through e.
func (v *Validator) clientFor(e model.Endpoint) (*http.Client, error) {
	transport, err := NewTransport(e, v.timeout)
	if err != nil {
		return nil, err
	}
	transport.DisableKeepAlives = true
	return &http.Client{Transport: transport}, nil
}

// NewTransport returns a transport that relays through e: http and https
// endpoints as HTTP proxies, socks5 endpoints through a SOCKS5 dialer.
func NewTransport(e model.Endpoint, dialTimeout time.Duration) (*http.Transport, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}
	transport := &http.Transport{
		TLSHandshakeTimeout: dialTimeout,
	}

	switch e.Scheme {
	case "socks5":
		socksDialer, err := proxy.SOCKS5("tcp", e.Address(), nil, dialer)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := socksDialer.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("SOCKS5 dialer does not support contexts")
		}
		transport.DialContext = contextDialer.DialContext
	default:
		transport.Proxy = http.ProxyURL(e.URL())
		transport.DialContext = dialer.DialContext
	}
	return transport, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
