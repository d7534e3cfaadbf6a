package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"freeproxy_pool/internal/shared/config"
	"freeproxy_pool/internal/shared/logger"
	"freeproxy_pool/internal/shared/metrics"
	"freeproxy_pool/internal/shared/types"
	"freeproxy_pool/proxypool"
	"freeproxy_pool/proxypool/decoder"
	"freeproxy_pool/proxypool/scraper"
	"freeproxy_pool/proxypool/storage"
	"freeproxy_pool/proxypool/useragent"
	"freeproxy_pool/proxypool/validator"
	"freeproxy_pool/proxypool/workload"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	wantHTTPS := flag.Bool("https", true, "Gather proxies that support HTTPS (overrides want_https)")
	needed := flag.Int("n", 0, "Number of working proxies to gather, at most 30 (overrides proxies_needed)")
	outPath := flag.String("out", "", "Write the working set snapshot to this file")
	flag.Parse()

	iniPath := filepath.Join(*configDir, "proxypool.ini")
	sourcesPath := filepath.Join(*configDir, "sources.yaml")

	// 1. 加载 .ini 行为配置
	cfg := types.DefaultConfig()
	if err := config.LoadIni(cfg, iniPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			// Use standard fmt before logger is initialized.
			fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Config file '%s' not found, using defaults.\n", iniPath)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "https":
			cfg.PoolConf.WantHTTPS = *wantHTTPS
		case "n":
			cfg.PoolConf.ProxiesNeeded = *needed
		}
	})

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// 2. 加载 sources.yaml 数据配置
	sources, err := config.LoadSources(sourcesPath)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to load sources file '%s'", sourcesPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector(&cfg.MetricsConf, nil)
	if cfg.MetricsConf.Enabled && cfg.MetricsConf.ListenAddr != "" {
		go serveMetrics(cfg.MetricsConf.ListenAddr, collector)
	}

	// 3. 组装抓取、验证与代理池
	ua := useragent.NewProvider(cfg.FetchConf.UserAgentURL, cfg.FetchConf.UserAgentCache, time.Duration(cfg.FetchConf.UserAgentMaxAge)*24*time.Hour)
	if err := ua.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to load user agents, falling back to built-in ones.")
	}

	dec := decoder.New(decoder.DefaultCacheSize)
	dec.SetRecorder(collector)

	dl := scraper.NewDownloader(time.Duration(cfg.FetchConf.TimeoutSeconds)*time.Second, cfg.FetchConf.MaxRetries, ua)
	dl.SetRecorder(collector)

	fetcher, err := scraper.NewFetcher(sources, dl, dec)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid source configuration")
	}
	fetcher.SetRecorder(collector)

	pool, err := proxypool.New(cfg.PoolConf.ProxiesNeeded, fetcher, validator.NewFromConfig(cfg.ValidatorConf), collector)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create proxy pool")
	}

	logger.Info().Str("session", pool.SessionID()).Int("needed", pool.Capacity()).Bool("https", cfg.PoolConf.WantHTTPS).Msg("Gathering working proxies...")
	if err := pool.InitWorkingProxies(ctx, cfg.PoolConf.WantHTTPS); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize working proxies")
	}

	for _, e := range pool.Proxies() {
		fmt.Println(e.String())
	}

	if *outPath != "" {
		if err := storage.NewFileExporter(*outPath).Export(pool.SessionID(), pool.Members()); err != nil {
			logger.Error().Err(err).Str("path", *outPath).Msg("Failed to export working set.")
		}
	}

	// 4. 通过代理池请求命令行给出的 URL
	urls := flag.Args()
	if len(urls) == 0 {
		return
	}
	if pool.Len() == 0 {
		logger.Fatal().Err(proxypool.ErrPoolEmpty).Msg("Cannot fetch URLs")
	}

	client := workload.NewClient(pool, cfg.FetchConf, ua)
	client.SetRecorder(collector)

	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			resp, err := client.Get(ctx, u)
			if err != nil {
				logger.Error().Err(err).Str("url", u).Msg("Request failed after retries.")
				return
			}
			logger.Info().Str("url", u).Int("status", resp.StatusCode).Int("bytes", len(resp.Body)).Int("attempts", resp.Attempts).Str("proxy", resp.Proxy.String()).Msg("Fetched.")
		}(u)
	}
	wg.Wait()
}

func serveMetrics(addr string, collector *metrics.Collector) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
	logger.Info().Str("addr", addr).Msg("Serving metrics.")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Metrics server stopped.")
	}
}
