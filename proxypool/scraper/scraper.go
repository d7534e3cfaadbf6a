package scraper

import (
	"context"
	"errors"
	"io"

	"freeproxy_pool/proxypool/model"
)

var (
	// ErrUnexpectedMarkup 表示来源页面结构与预期不符（上游改版），是可恢复错误。
	ErrUnexpectedMarkup = errors.New("unexpected markup")
	// ErrSourceUnavailable 表示来源页面在重试耗尽后仍无法获取。
	ErrSourceUnavailable = errors.New("source unavailable")
)

// Scraper 接口定义了从一个代理源抓取候选代理的行为。
type Scraper interface {
	// Scrape 执行抓取操作，并返回该来源的有序候选列表。
	// 实现者应只负责抓取和初步解析，不进行验证。
	Scrape(ctx context.Context) (model.CandidateBatch, error)

	// Name 返回抓取器的名称，用于日志记录。
	Name() string
}

// Parser extracts raw endpoint strings from one listing document.
type Parser interface {
	Parse(doc io.Reader) ([]string, error)
}
