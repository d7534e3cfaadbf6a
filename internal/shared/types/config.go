package types

// SourceProfile 描述一个代理列表来源。
// 这是 configs/sources.yaml 文件的核心数据结构。
type SourceProfile struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Format   string `yaml:"format"`   // "plain" 或 "obfuscated"
	Scheme   string `yaml:"scheme"`   // 拼接 endpoint 时使用的协议, 默认 "http"
	HTTPS    bool   `yaml:"https"`    // 该来源是否列出支持 HTTPS (CONNECT) 的代理
	Priority int    `yaml:"priority"` // 越小越优先
}

// SourceList 是 sources.yaml 的顶层结构
type SourceList struct {
	Sources []*SourceProfile `yaml:"sources"`
}

// PoolConf 包含代理池本身的配置
type PoolConf struct {
	ProxiesNeeded int  `ini:"proxies_needed"`
	WantHTTPS     bool `ini:"want_https"`
}

// ValidatorConf 包含存活检测相关的配置
type ValidatorConf struct {
	OracleURL      string `ini:"oracle_url"`
	TimeoutSeconds int    `ini:"timeout_seconds"`
	Attempts       int    `ini:"attempts"`
}

// FetchConf 包含抓取代理列表和 User-Agent 的配置
type FetchConf struct {
	TimeoutSeconds    int    `ini:"timeout_seconds"`
	MaxRetries        int    `ini:"max_retries"`
	UserAgentCache    string `ini:"user_agent_cache"`
	UserAgentMaxAge   int    `ini:"user_agent_max_age_days"`
	UserAgentURL      string `ini:"user_agent_url"`
	WorkloadRetries   int    `ini:"workload_retries"`
	WorkloadParallel  int    `ini:"workload_parallel"`
	WorkloadTimeoutSc int    `ini:"workload_timeout_seconds"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// MetricsConf contains Prometheus exporter configuration.
type MetricsConf struct {
	Enabled    bool   `ini:"enabled"`
	Namespace  string `ini:"namespace"`
	Subsystem  string `ini:"subsystem"`
	ListenAddr string `ini:"listen_addr"`
}

// Config 是项目的统一配置结构体
type Config struct {
	PoolConf      `ini:"pool"`
	ValidatorConf `ini:"validator"`
	FetchConf     `ini:"fetch"`
	LogConf       `ini:"log"`
	MetricsConf   `ini:"metrics"`
}

// DefaultConfig 返回默认配置。
// LoadIni 会在此基础上覆盖 ini 文件中出现的字段。
func DefaultConfig() *Config {
	return &Config{
		PoolConf: PoolConf{
			ProxiesNeeded: 10,
			WantHTTPS:     true,
		},
		ValidatorConf: ValidatorConf{
			OracleURL:      "http://httpbin.org/ip",
			TimeoutSeconds: 5,
			Attempts:       3,
		},
		FetchConf: FetchConf{
			TimeoutSeconds:    20,
			MaxRetries:        5,
			UserAgentCache:    "user_agents.json",
			UserAgentMaxAge:   10,
			UserAgentURL:      "https://www.whatismybrowser.com/guides/the-latest-user-agent/",
			WorkloadRetries:   5,
			WorkloadParallel:  5,
			WorkloadTimeoutSc: 15,
		},
		LogConf: LogConf{Level: "info"},
		MetricsConf: MetricsConf{
			Namespace: "freeproxy",
			Subsystem: "pool",
		},
	}
}

// DefaultSources 是 sources.yaml 缺失时使用的内置来源列表。
func DefaultSources() []*SourceProfile {
	return []*SourceProfile{
		{Name: "spys.one", URL: "https://spys.one/en/https-ssl-proxy/", Format: "obfuscated", Scheme: "http", HTTPS: true, Priority: 0},
		{Name: "sslproxies.org", URL: "https://sslproxies.org/", Format: "plain", Scheme: "http", HTTPS: true, Priority: 1},
		{Name: "free-proxy-list.net", URL: "https://free-proxy-list.net/", Format: "plain", Scheme: "http", HTTPS: false, Priority: 0},
	}
}
