package proxypool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"freeproxy_pool/internal/shared/logger"
	"freeproxy_pool/proxypool/model"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// MaxProxies 是单个会话允许的工作集上限。
const MaxProxies = 30

var (
	ErrCapacityExceeded = errors.New("proxies_needed exceeds the maximum of 30")
	ErrInvalidCapacity  = errors.New("proxies_needed must be at least 1")
	ErrPoolEmpty        = errors.New("no working proxies in the pool")
)

// CandidateFetcher returns raw candidate endpoint strings in probe order.
// *scraper.Fetcher satisfies it.
type CandidateFetcher interface {
	FetchCandidates(ctx context.Context, wantHTTPS bool) ([]string, error)
}

// Checker classifies one endpoint. *validator.Validator satisfies it.
type Checker interface {
	Validate(ctx context.Context, e model.Endpoint) model.ValidationOutcome
}

// Recorder receives pool metrics. *metrics.Collector satisfies it.
type Recorder interface {
	RecordProbe(outcome string)
	SetWorkingSetSize(n int)
}

// ConcurrencyBudget 返回同时进行的探测数上限：n<3 时为 n*2，否则为 6。
func ConcurrencyBudget(n int) int {
	if n < 3 {
		return n * 2
	}
	return 6
}

// Pool 是代理池的总控制器：抓取候选、并发验证、维护工作集并随机分发。
type Pool struct {
	proxiesNeeded int
	budget        int
	sessionID     string

	fetcher  CandidateFetcher
	checker  Checker
	recorder Recorder
	working  *WorkingSet

	mu       sync.Mutex
	outcomes map[model.Status]int
	admitted map[string]model.ValidationOutcome
}

// New validates proxiesNeeded and wires the pool. It performs no network I/O.
// recorder may be nil.
func New(proxiesNeeded int, fetcher CandidateFetcher, checker Checker, recorder Recorder) (*Pool, error) {
	if proxiesNeeded > MaxProxies {
		return nil, fmt.Errorf("%w: got %d", ErrCapacityExceeded, proxiesNeeded)
	}
	if proxiesNeeded < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, proxiesNeeded)
	}
	return &Pool{
		proxiesNeeded: proxiesNeeded,
		budget:        ConcurrencyBudget(proxiesNeeded),
		sessionID:     uuid.NewString(),
		fetcher:       fetcher,
		checker:       checker,
		recorder:      recorder,
		working:       newWorkingSet(proxiesNeeded),
		outcomes:      make(map[model.Status]int),
		admitted:      make(map[string]model.ValidationOutcome),
	}, nil
}

// InitWorkingProxies fetches candidates and probes them, at most budget at a
// time, until the working set is full or the candidates run out. It waits for
// every launched probe. Canceling ctx stops launching new probes.
func (p *Pool) InitWorkingProxies(ctx context.Context, wantHTTPS bool) error {
	l := logger.WithComponent("ProxyPool/Manager").With().Str("session", p.sessionID).Logger()
	start := time.Now()

	raw, err := p.fetcher.FetchCandidates(ctx, wantHTTPS)
	if err != nil {
		return fmt.Errorf("failed to fetch candidates: %w", err)
	}
	candidates := p.parseCandidates(raw)
	l.Info().Int("raw", len(raw)).Int("unique", len(candidates)).Int("budget", p.budget).Int("needed", p.proxiesNeeded).Msg("Starting validation of candidates...")

	sem := semaphore.NewWeighted(int64(p.budget))
	var wg sync.WaitGroup

	for _, e := range candidates {
		if p.working.Full() {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			l.Warn().Err(err).Msg("Stopped launching probes.")
			break
		}
		wg.Add(1)
		go func(e model.Endpoint) {
			defer wg.Done()
			defer sem.Release(1)
			if p.working.Full() {
				return
			}
			p.probe(ctx, e)
		}(e)
	}
	wg.Wait()

	l.Info().Int("count", p.working.Len()).Dur("elapsed", time.Since(start)).Msgf("Managed to gather %d proxies.", p.working.Len())
	return nil
}

func (p *Pool) probe(ctx context.Context, e model.Endpoint) {
	l := logger.WithComponent("ProxyPool/Manager")

	outcome := p.checker.Validate(ctx, e)
	p.mu.Lock()
	p.outcomes[outcome.Status]++
	p.mu.Unlock()
	if p.recorder != nil {
		p.recorder.RecordProbe(outcome.Status.String())
	}

	switch outcome.Status {
	case model.StatusWorking:
		if !p.working.Add(e) {
			l.Debug().Str("proxy", e.String()).Msg("Proxy works but the pool is already full, discarding.")
			return
		}
		p.mu.Lock()
		p.admitted[e.String()] = outcome
		p.mu.Unlock()
		if p.recorder != nil {
			p.recorder.SetWorkingSetSize(p.working.Len())
		}
		l.Info().Str("proxy", e.String()).Dur("latency", outcome.Latency).Msg("Proxy working.")
	case model.StatusTimedOut:
		l.Info().Str("proxy", e.String()).Int("attempts", outcome.Attempts).Msg("Proxy timed out.")
	default:
		l.Info().Str("proxy", e.String()).Int("attempts", outcome.Attempts).Str("reason", outcome.Message).Msg("Proxy broken.")
	}
}

// parseCandidates normalizes and dedupes raw strings, keeping first-seen order.
func (p *Pool) parseCandidates(raw []string) []model.Endpoint {
	l := logger.WithComponent("ProxyPool/Manager")
	seen := make(map[string]struct{}, len(raw))
	out := make([]model.Endpoint, 0, len(raw))
	for _, s := range raw {
		e, err := model.ParseEndpoint(s)
		if err != nil {
			l.Warn().Err(err).Msg("Skipping invalid candidate.")
			continue
		}
		key := e.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// GetRandomProxy 从工作集中均匀随机地取出一个代理。
func (p *Pool) GetRandomProxy() (model.Endpoint, error) {
	e, ok := p.working.Random()
	if !ok {
		return model.Endpoint{}, ErrPoolEmpty
	}
	return e, nil
}

func (p *Pool) Len() int {
	return p.working.Len()
}

// Proxies returns a snapshot of the working set in admission order.
func (p *Pool) Proxies() []model.Endpoint {
	return p.working.Snapshot()
}

// Outcomes returns how many probes ended in each classification.
func (p *Pool) Outcomes() map[model.Status]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[model.Status]int, len(p.outcomes))
	for k, v := range p.outcomes {
		out[k] = v
	}
	return out
}

// Members returns the validation outcome of every working set member, in
// admission order.
func (p *Pool) Members() []model.ValidationOutcome {
	endpoints := p.working.Snapshot()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.ValidationOutcome, 0, len(endpoints))
	for _, e := range endpoints {
		o, ok := p.admitted[e.String()]
		if !ok {
			o = model.ValidationOutcome{Endpoint: e, Status: model.StatusWorking}
		}
		out = append(out, o)
	}
	return out
}

func (p *Pool) SessionID() string {
	return p.sessionID
}

func (p *Pool) Capacity() int {
	return p.proxiesNeeded
}
