package model

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidEndpoint 表示无法解析为 scheme://host:port 的候选字符串。
var ErrInvalidEndpoint = errors.New("invalid endpoint")

var supportedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"socks5": true,
}

// Endpoint 标识一个中继代理，构造后不可变。
// 相等性与去重都基于 String() 的规范化形式 "scheme://host:port"。
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
}

// ParseEndpoint 解析 "scheme://host:port" 或不带协议的 "host:port"（默认 http）。
func ParseEndpoint(raw string) (Endpoint, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Endpoint{}, fmt.Errorf("%w: empty string", ErrInvalidEndpoint)
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %q: %v", ErrInvalidEndpoint, raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if !supportedSchemes[scheme] {
		return Endpoint{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: %q has no host", ErrInvalidEndpoint, raw)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil || port < 1 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: %q has invalid port", ErrInvalidEndpoint, raw)
	}

	return Endpoint{Scheme: scheme, Host: host, Port: port}, nil
}

// String returns the normalized "scheme://host:port" form.
func (e Endpoint) String() string {
	return e.Scheme + "://" + e.Address()
}

// Address returns "host:port", bracketing IPv6 hosts.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL returns the endpoint as a proxy URL for http.ProxyURL.
func (e Endpoint) URL() *url.URL {
	return &url.URL{Scheme: e.Scheme, Host: e.Address()}
}

// Status 是一次存活检测的分类结果。
type Status int

const (
	StatusBroken Status = iota
	StatusTimedOut
	StatusWorking
)

func (s Status) String() string {
	switch s {
	case StatusWorking:
		return "working"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "broken"
	}
}

// ValidationOutcome 记录一个候选代理的检测结果。坏掉的代理是数据，不是错误。
type ValidationOutcome struct {
	Endpoint Endpoint
	Status   Status
	Message  string        // 诊断信息, 可为空
	Latency  time.Duration // 仅在 StatusWorking 时有意义
	Attempts int
}

// Working reports whether the endpoint passed validation.
func (o ValidationOutcome) Working() bool {
	return o.Status == StatusWorking
}
