// Package config 分层配置：默认值 → JSONC 配置文件 → 环境变量。
// Package config layers configuration: defaults, then a JSONC file, then
// environment overrides.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type ServerConfig struct {
	Addr            string `json:"addr"`
	CookieName      string `json:"cookie_name"`
	SessionTTLHours int    `json:"session_ttl_hours"`
	BcryptCost      int    `json:"bcrypt_cost"`
}

type StorageConfig struct {
	DBPath string `json:"db_path"`
}

type Config struct {
	Server  ServerConfig  `json:"server"`
	Storage StorageConfig `json:"storage"`
}

type fileServerConfig struct {
	Addr            *string `json:"addr"`
	CookieName      *string `json:"cookie_name"`
	SessionTTLHours *int    `json:"session_ttl_hours"`
	BcryptCost      *int    `json:"bcrypt_cost"`
}

type fileStorageConfig struct {
	DBPath *string `json:"db_path"`
}

type fileConfig struct {
	Server  *fileServerConfig  `json:"server"`
	Storage *fileStorageConfig `json:"storage"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			CookieName:      "todod_session",
			SessionTTLHours: 168,
			BcryptCost:      10,
		},
		Storage: StorageConfig{
			DBPath: "todo.db",
		},
	}
}

// Load 读取配置：path 为空时依次尝试 TODOD_CONFIG_PATH 和项目级候选文件；
// 文件缺席不算错误，最后应用环境变量覆盖。
// Load reads configuration. With an empty path it tries TODOD_CONFIG_PATH and
// then the project-level candidates; a missing file is not an error. Env
// overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("TODOD_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	return applyEnv(cfg)
}

func findProjectConfigPath() string {
	candidates := []string{
		"todod.config.json",
		".todod/config.json",
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

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", path, err)
	}

	cleaned := stripJSONComments(data)
	var fileCfg fileConfig
	if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Server != nil {
		if fc.Server.Addr != nil && strings.TrimSpace(*fc.Server.Addr) != "" {
			cfg.Server.Addr = strings.TrimSpace(*fc.Server.Addr)
		}
		if fc.Server.CookieName != nil && strings.TrimSpace(*fc.Server.CookieName) != "" {
			cfg.Server.CookieName = strings.TrimSpace(*fc.Server.CookieName)
		}
		if fc.Server.SessionTTLHours != nil && *fc.Server.SessionTTLHours > 0 {
			cfg.Server.SessionTTLHours = *fc.Server.SessionTTLHours
		}
		if fc.Server.BcryptCost != nil && *fc.Server.BcryptCost > 0 {
			cfg.Server.BcryptCost = *fc.Server.BcryptCost
		}
	}
	if fc.Storage != nil {
		if fc.Storage.DBPath != nil && strings.TrimSpace(*fc.Storage.DBPath) != "" {
			cfg.Storage.DBPath = strings.TrimSpace(*fc.Storage.DBPath)
		}
	}
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("TODOD_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("TODOD_COOKIE_NAME")); v != "" {
		cfg.Server.CookieName = v
	}
	if v := strings.TrimSpace(os.Getenv("TODOD_SESSION_TTL_HOURS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid TODOD_SESSION_TTL_HOURS: %q", v)
		}
		cfg.Server.SessionTTLHours = n
	}
	if v := strings.TrimSpace(os.Getenv("TODOD_BCRYPT_COST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid TODOD_BCRYPT_COST: %q", v)
		}
		cfg.Server.BcryptCost = n
	}
	if v := strings.TrimSpace(os.Getenv("TODOD_DB_PATH")); v != "" {
		cfg.Storage.DBPath = v
	}
	return cfg, nil
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
