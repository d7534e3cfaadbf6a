package scraper

import (
	"bytes"
	"context"
	"fmt"

	"freeproxy_pool/internal/shared/logger"
	"freeproxy_pool/internal/shared/types"
	"freeproxy_pool/proxypool/decoder"
	"freeproxy_pool/proxypool/model"
)

// ListingScraper 实现了 Scraper 接口：下载一个来源页面并交给对应格式的 Parser。
type ListingScraper struct {
	profile    *types.SourceProfile
	parser     Parser
	downloader *Downloader
}

// NewListingScraper picks the parser for profile.Format ("plain" or "obfuscated").
func NewListingScraper(profile *types.SourceProfile, dl *Downloader, dec *decoder.Decoder) (*ListingScraper, error) {
	var parser Parser
	switch profile.Format {
	case "plain", "":
		parser = &PlainTableParser{Scheme: profile.Scheme}
	case "obfuscated":
		parser = &ObfuscatedTableParser{Scheme: profile.Scheme, Decoder: dec}
	default:
		return nil, fmt.Errorf("source %s: unknown format %q", profile.Name, profile.Format)
	}
	return &ListingScraper{profile: profile, parser: parser, downloader: dl}, nil
}

// Name 返回抓取器的名称。
func (s *ListingScraper) Name() string {
	return s.profile.Name
}

// Scrape 执行抓取操作。
func (s *ListingScraper) Scrape(ctx context.Context) (model.CandidateBatch, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Info().Str("source", s.Name()).Str("url", s.profile.URL).Msg("Starting scrape...")

	batch := model.CandidateBatch{Source: s.Name(), Priority: s.profile.Priority}

	body, err := s.downloader.Get(ctx, s.profile.URL)
	if err != nil {
		return batch, err
	}

	proxies, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return batch, fmt.Errorf("source %s: %w", s.Name(), err)
	}
	batch.Candidates = proxies

	l.Info().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return batch, nil
}
