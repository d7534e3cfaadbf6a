package useragent

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"time"

	"freeproxy_pool/internal/shared/logger"

	"github.com/corpix/uarand"
	"github.com/gocolly/colly/v2"
)

// DefaultBrowsers 是抓取最新 User-Agent 的浏览器列表。
var DefaultBrowsers = []string{
	"chrome",
	"firefox",
	"safari",
	"edge",
	"opera",
	"vivaldi",
	"yandex-browser",
}

// 包含这些关键字的 UA 会被忽略
var ignoredKeywords = []string{"Mobile", "Xbox"}

// Provider 提供随机的桌面浏览器 User-Agent。
// 列表从 UA 指南页面抓取并以 JSON 缓存到本地文件；列表为空时回退到 uarand。
type Provider struct {
	baseURL   string
	cachePath string
	maxAge    time.Duration
	browsers  []string

	mu     sync.RWMutex
	agents []string
}

// NewProvider creates a Provider. An empty cachePath disables the file cache.
func NewProvider(baseURL, cachePath string, maxAge time.Duration) *Provider {
	return &Provider{
		baseURL:   baseURL,
		cachePath: cachePath,
		maxAge:    maxAge,
		browsers:  DefaultBrowsers,
	}
}

// Load fills the agent list from the cache file when it is fresh, otherwise
// scrapes the guide pages and rewrites the cache.
func (p *Provider) Load(ctx context.Context) error {
	l := logger.WithComponent("ProxyPool/UserAgent")

	if agents, ok := p.readCache(); ok {
		p.setAgents(agents)
		l.Debug().Int("count", len(agents)).Str("path", p.cachePath).Msg("Loaded user agents from cache.")
		return nil
	}

	agents, err := p.scrape(ctx)
	if err != nil {
		return err
	}
	p.setAgents(agents)
	l.Info().Int("count", len(agents)).Msg("Fetched latest user agents.")

	if p.cachePath != "" {
		if err := p.writeCache(agents); err != nil {
			l.Warn().Err(err).Str("path", p.cachePath).Msg("Failed to write user agent cache.")
		}
	}
	return nil
}

// Random returns a random known user agent, or a uarand one when none are loaded.
func (p *Provider) Random() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.agents) == 0 {
		return uarand.GetRandom()
	}
	return p.agents[rand.IntN(len(p.agents))]
}

// Agents returns a copy of the loaded list.
func (p *Provider) Agents() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.agents...)
}

func (p *Provider) setAgents(agents []string) {
	p.mu.Lock()
	p.agents = agents
	p.mu.Unlock()
}

func (p *Provider) scrape(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/UserAgent")

	c := colly.NewCollector(
		colly.UserAgent(uarand.GetRandom()),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(20 * time.Second)

	var agents []string
	var scrapeErr error

	c.OnHTML("span.code", func(e *colly.HTMLElement) {
		ua := strings.TrimSpace(e.Text)
		if ua == "" || isIgnored(ua) {
			return
		}
		agents = append(agents, ua)
	})

	c.OnError(func(r *colly.Response, err error) {
		l.Warn().Err(err).Int("status_code", r.StatusCode).Str("url", r.Request.URL.String()).Msg("User agent page request failed.")
		scrapeErr = err
	})

	// Visit 是同步的，结果按浏览器顺序追加
	for _, b := range p.browsers {
		if err := c.Visit(p.baseURL + b); err != nil {
			l.Warn().Err(err).Str("browser", b).Msg("Failed to visit user agent page.")
			scrapeErr = err
		}
	}
	c.Wait()

	if len(agents) == 0 {
		if scrapeErr != nil {
			return nil, fmt.Errorf("failed to scrape user agents: %w", scrapeErr)
		}
		return nil, fmt.Errorf("no user agents found at %s", p.baseURL)
	}
	return agents, nil
}

func isIgnored(ua string) bool {
	for _, kw := range ignoredKeywords {
		if strings.Contains(ua, kw) {
			return true
		}
	}
	return false
}

func (p *Provider) readCache() ([]string, bool) {
	if p.cachePath == "" {
		return nil, false
	}
	info, err := os.Stat(p.cachePath)
	if err != nil || time.Since(info.ModTime()) > p.maxAge {
		return nil, false
	}
	data, err := os.ReadFile(p.cachePath)
	if err != nil {
		return nil, false
	}
	var agents []string
	if err := json.Unmarshal(data, &agents); err != nil || len(agents) == 0 {
		return nil, false
	}
	return agents, true
}

func (p *Provider) writeCache(agents []string) error {
	data, err := json.MarshalIndent(agents, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.cachePath, data, 0644)
}
