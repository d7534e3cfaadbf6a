package config

import (
	"fmt"
	"os"
	"strconv"

	"freeproxy_pool/internal/shared/types"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// LoadIni 加载 proxypool.ini 行为配置文件，文件中未出现的字段保留 cfg 原值。
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return err
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return err
	}
	overrideFromEnvInt(&cfg.PoolConf.ProxiesNeeded, "PROXIES_NEEDED")
	overrideFromEnvString(&cfg.ValidatorConf.OracleURL, "PROXY_ORACLE_URL")
	return nil
}

// LoadSources 加载 sources.yaml 数据文件。
func LoadSources(fileName string) ([]*types.SourceProfile, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		// 如果文件不存在，返回内置的来源列表而不是错误
		if os.IsNotExist(err) {
			return types.DefaultSources(), nil
		}
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var list types.SourceList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sources.yaml: %w", err)
	}
	if len(list.Sources) == 0 {
		return types.DefaultSources(), nil
	}
	for i, s := range list.Sources {
		if s.URL == "" {
			return nil, fmt.Errorf("source #%d (%s) has no url", i, s.Name)
		}
		if s.Scheme == "" {
			s.Scheme = "http"
		}
		if s.Format == "" {
			s.Format = "plain"
		}
	}
	return list.Sources, nil
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
