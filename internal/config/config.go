package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type ProviderConfig struct {
	BaseURL    string `json:"base_url"`
	Model      string `json:"model"`
	APIKey     string `json:"api_key"`
	TimeoutMS  int    `json:"timeout_ms"`
	MaxRetries int    `json:"max_retries"`
}

type RetrievalConfig struct {
	// SimilarityThreshold 距离阈值，越小越相近；超过阈值的结果被丢弃。
	// SimilarityThreshold is a distance cutoff; lower scores are closer, hits above it are dropped.
	SimilarityThreshold float64 `json:"similarity_threshold"`
	TopK                int     `json:"top_k"`
}

type AgentConfig struct {
	MaxIterations int `json:"max_iterations"`
	HistoryWindow int `json:"history_window"`
}

type StorageConfig struct {
	// DocumentsDir 是所有文档类别子目录的根目录。
	// DocumentsDir is the root under which per-kind document directories live.
	DocumentsDir string `json:"documents_dir"`
	ArchivePath  string `json:"archive_path"`
}

type ServerConfig struct {
	Addr           string `json:"addr"`
	FrontendOrigin string `json:"frontend_origin"`
}

type Config struct {
	Provider  ProviderConfig  `json:"provider"`
	Retrieval RetrievalConfig `json:"retrieval"`
	Agent     AgentConfig     `json:"agent"`
	Storage   StorageConfig   `json:"storage"`
	Server    ServerConfig    `json:"server"`
}

type fileRetrievalConfig struct {
	SimilarityThreshold *float64 `json:"similarity_threshold"`
	TopK                *int     `json:"top_k"`
}

type fileAgentConfig struct {
	MaxIterations *int `json:"max_iterations"`
	HistoryWindow *int `json:"history_window"`
}

type fileConfig struct {
	Provider  *ProviderConfig      `json:"provider"`
	Retrieval *fileRetrievalConfig `json:"retrieval"`
	Agent     *fileAgentConfig     `json:"agent"`
	Storage   *StorageConfig       `json:"storage"`
	Server    *ServerConfig        `json:"server"`
}

func Default() Config {
	return Config{
		Provider: ProviderConfig{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o",
			TimeoutMS:  60000,
			MaxRetries: 3,
		},
		Retrieval: RetrievalConfig{
			SimilarityThreshold: 0.7,
			TopK:                5,
		},
		Agent: AgentConfig{
			MaxIterations: 3,
			HistoryWindow: 5,
		},
		Storage: StorageConfig{
			DocumentsDir: "./documents",
			ArchivePath:  "~/.tripmate/history.db",
		},
		Server: ServerConfig{
			Addr:           ":5000",
			FrontendOrigin: "http://localhost:3000",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("TRIPMATE_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".tripmate", "config.json")}
}

func findProjectConfigPath() string {
	candidates := []string{
		"tripmate.config.json",
		".tripmate/config.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	cleaned := stripJSONComments(data)
	var fileCfg fileConfig
	if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Provider != nil {
		cfg.Provider = mergeProvider(cfg.Provider, *fc.Provider)
	}
	if fc.Retrieval != nil {
		if fc.Retrieval.SimilarityThreshold != nil {
			cfg.Retrieval.SimilarityThreshold = *fc.Retrieval.SimilarityThreshold
		}
		if fc.Retrieval.TopK != nil {
			cfg.Retrieval.TopK = *fc.Retrieval.TopK
		}
	}
	if fc.Agent != nil {
		if fc.Agent.MaxIterations != nil {
			cfg.Agent.MaxIterations = *fc.Agent.MaxIterations
		}
		if fc.Agent.HistoryWindow != nil {
			cfg.Agent.HistoryWindow = *fc.Agent.HistoryWindow
		}
	}
	if fc.Storage != nil {
		cfg.Storage = mergeStorage(cfg.Storage, *fc.Storage)
	}
	if fc.Server != nil {
		cfg.Server = mergeServer(cfg.Server, *fc.Server)
	}
}

func mergeProvider(base ProviderConfig, override ProviderConfig) ProviderConfig {
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if strings.TrimSpace(override.Model) != "" {
		base.Model = override.Model
	}
	if strings.TrimSpace(override.APIKey) != "" {
		base.APIKey = override.APIKey
	}
	if override.TimeoutMS > 0 {
		base.TimeoutMS = override.TimeoutMS
	}
	if override.MaxRetries > 0 {
		base.MaxRetries = override.MaxRetries
	}
	return base
}

func mergeStorage(base StorageConfig, override StorageConfig) StorageConfig {
	if strings.TrimSpace(override.DocumentsDir) != "" {
		base.DocumentsDir = override.DocumentsDir
	}
	if strings.TrimSpace(override.ArchivePath) != "" {
		base.ArchivePath = override.ArchivePath
	}
	return base
}

func mergeServer(base ServerConfig, override ServerConfig) ServerConfig {
	if strings.TrimSpace(override.Addr) != "" {
		base.Addr = override.Addr
	}
	if strings.TrimSpace(override.FrontendOrigin) != "" {
		base.FrontendOrigin = override.FrontendOrigin
	}
	return base
}

func normalize(cfg *Config) error {
	def := Default()
	if strings.TrimSpace(cfg.Provider.BaseURL) == "" {
		cfg.Provider.BaseURL = def.Provider.BaseURL
	}
	if strings.TrimSpace(cfg.Provider.Model) == "" {
		cfg.Provider.Model = def.Provider.Model
	}
	if cfg.Provider.TimeoutMS <= 0 {
		cfg.Provider.TimeoutMS = def.Provider.TimeoutMS
	}
	if cfg.Provider.MaxRetries <= 0 {
		cfg.Provider.MaxRetries = def.Provider.MaxRetries
	}

	if cfg.Retrieval.SimilarityThreshold <= 0 {
		cfg.Retrieval.SimilarityThreshold = def.Retrieval.SimilarityThreshold
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}

	if cfg.Agent.MaxIterations <= 0 {
		cfg.Agent.MaxIterations = def.Agent.MaxIterations
	}
	if cfg.Agent.HistoryWindow <= 0 {
		cfg.Agent.HistoryWindow = def.Agent.HistoryWindow
	}

	documentsDir, err := expandPath(cfg.Storage.DocumentsDir)
	if err != nil {
		return err
	}
	if documentsDir != "" {
		cfg.Storage.DocumentsDir = documentsDir
	}
	archivePath, err := expandPath(cfg.Storage.ArchivePath)
	if err != nil {
		return err
	}
	if archivePath != "" {
		cfg.Storage.ArchivePath = archivePath
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if strings.TrimSpace(cfg.Server.FrontendOrigin) == "" {
		cfg.Server.FrontendOrigin = def.Server.FrontendOrigin
	}
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("TRIPMATE_BASE_URL")); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TRIPMATE_MODEL")); v != "" {
		cfg.Provider.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("TRIPMATE_API_KEY")); v != "" {
		cfg.Provider.APIKey = v
	} else if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("TRIPMATE_DOCUMENTS_DIR")); v != "" {
		cfg.Storage.DocumentsDir = v
	}
	if v := strings.TrimSpace(os.Getenv("TRIPMATE_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("TRIPMATE_MAX_ITERATIONS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid TRIPMATE_MAX_ITERATIONS: %q", v)
		}
		cfg.Agent.MaxIterations = n
	}

	return cfg, normalize(&cfg)
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
