// Package config loads the CLI driver's settings from a HuJSON file —
// plain JSON with comments and trailing commas allowed, matching the kind
// of config file authors actually want to hand-edit.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/blockdb-go/blockdb/blockpool"
)

// Config holds the CLI driver's block-pool settings. The driver loads and
// logs them; the engines do not read them and always open their files
// with blockpool.DefaultBlockSize and the default cache size.
type Config struct {
	BlockSize int    `json:"blockSize"`
	CacheSize int    `json:"cacheSize"`
	Eviction  string `json:"eviction"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		BlockSize: blockpool.DefaultBlockSize,
		CacheSize: blockpool.DefaultCacheSize,
		Eviction:  "lru",
	}
}

// Load reads and parses a HuJSON config file, falling back to Default's
// values for any field the file doesn't set.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	std, err := hujson.Standardize(raw)
	if err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := json.Unmarshal(std, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding config %s: %w", path, err)
	}

	if cfg.Eviction != "lru" {
		return cfg, fmt.Errorf("config %s: unsupported eviction policy %q", path, cfg.Eviction)
	}
	return cfg, nil
}
