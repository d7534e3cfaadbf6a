package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"freeproxy_pool/internal/shared/logger"
	"freeproxy_pool/internal/shared/types"
	"freeproxy_pool/proxypool/decoder"
	"freeproxy_pool/proxypool/model"
)

// priorityHead 是每个来源中优先尝试的条目数。
const priorityHead = 5

// SourceRecorder receives per-source metrics. *metrics.Collector satisfies it.
type SourceRecorder interface {
	RecordCandidates(source string, n int)
	RecordSourceFailure(source string)
}

// Fetcher 从多个来源并发抓取候选代理并合并为一个有序列表。
type Fetcher struct {
	httpsScrapers []Scraper
	httpScrapers  []Scraper
	recorder      SourceRecorder
}

// NewFetcher builds one ListingScraper per source profile.
func NewFetcher(sources []*types.SourceProfile, dl *Downloader, dec *decoder.Decoder) (*Fetcher, error) {
	f := &Fetcher{}
	for _, profile := range sources {
		s, err := NewListingScraper(profile, dl, dec)
		if err != nil {
			return nil, err
		}
		if profile.HTTPS {
			f.httpsScrapers = append(f.httpsScrapers, s)
		} else {
			f.httpScrapers = append(f.httpScrapers, s)
		}
	}
	return f, nil
}

// NewFetcherWithScrapers builds a Fetcher from ready-made scrapers.
func NewFetcherWithScrapers(httpsScrapers, httpScrapers []Scraper) *Fetcher {
	return &Fetcher{httpsScrapers: httpsScrapers, httpScrapers: httpScrapers}
}

// SetRecorder attaches a metrics recorder.
func (f *Fetcher) SetRecorder(r SourceRecorder) {
	f.recorder = r
}

// FetchCandidates scrapes the HTTPS-capable sources (or the plain HTTP ones)
// concurrently and interleaves them so every source's first five entries come
// first. A failing source is logged and skipped; an error is returned only
// when every source failed.
func (f *Fetcher) FetchCandidates(ctx context.Context, wantHTTPS bool) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Fetcher")

	scrapers := f.httpScrapers
	if wantHTTPS {
		scrapers = f.httpsScrapers
	}
	if len(scrapers) == 0 {
		return nil, fmt.Errorf("%w: no sources configured (https=%v)", ErrSourceUnavailable, wantHTTPS)
	}

	type result struct {
		batch model.CandidateBatch
		err   error
	}
	results := make([]result, len(scrapers))

	var wg sync.WaitGroup
	for i, s := range scrapers {
		wg.Add(1)
		go func(i int, sc Scraper) {
			defer wg.Done()
			batch, err := sc.Scrape(ctx)
			results[i] = result{batch: batch, err: err}
		}(i, s)
	}
	wg.Wait()

	var batches []model.CandidateBatch
	var errs []error
	for i, r := range results {
		name := scrapers[i].Name()
		if r.err != nil {
			l.Warn().Err(r.err).Str("source", name).Msg("Source failed, continuing with the others.")
			errs = append(errs, r.err)
			if f.recorder != nil {
				f.recorder.RecordSourceFailure(name)
			}
			continue
		}
		if f.recorder != nil {
			f.recorder.RecordCandidates(name, len(r.batch.Candidates))
		}
		batches = append(batches, r.batch)
	}

	if len(batches) == 0 {
		return nil, errors.Join(errs...)
	}

	candidates := model.Interleave(batches, priorityHead)
	l.Info().Int("count", len(candidates)).Int("sources", len(batches)).Int("failed_sources", len(errs)).Msg("Candidates fetched.")
	return candidates, nil
}
