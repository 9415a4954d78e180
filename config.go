package polyquery

import (
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Config is the resolved server configuration. Values come from defaults,
// then an optional YAML file, then environment variables, in that order.
type Config struct {
	DbPath          string   `yaml:"db_path"`
	APIBaseURL      string   `yaml:"api_base_url"`
	APIKey          string   `yaml:"api_key"`
	AuditLogPath    string   `yaml:"audit_log_path"`
	Oracle          string   `yaml:"oracle"`
	FilePaths       []string `yaml:"file_paths"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
}

func defaultConfig() Config {
	return Config{
		DbPath:          "sample.db",
		APIBaseURL:      "http://127.0.0.1:9001",
		AuditLogPath:    "audit.log",
		Oracle:          "static",
		CacheTTLSeconds: 60,
	}
}

// LoadConfig resolves the configuration. A missing config file is an error
// only when a path was given explicitly.
func LoadConfig(path string) (Config, error) {
	config := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(raw, &config); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv("SQLITE_DB_PATH"); v != "" {
		config.DbPath = v
	}
	if v := os.Getenv("MOCK_API_URL"); v != "" {
		config.APIBaseURL = v
	}
	if v := os.Getenv("MOCK_API_KEY"); v != "" {
		config.APIKey = v
	}
	if v := os.Getenv("AUDIT_LOG_PATH"); v != "" {
		config.AuditLogPath = v
	}
	if v := os.Getenv("NL_ORACLE"); v != "" {
		config.Oracle = v
	}
	if v := os.Getenv("DATA_FILE_PATHS"); v != "" {
		paths := []string{}
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		config.FilePaths = paths
	}

	return config, nil
}
