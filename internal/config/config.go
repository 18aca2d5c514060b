// Package config holds tunable defaults for a fetch run, overridable via
// environment variables, in the spirit of the teacher's RuntimeConfig but
// scoped to what this tool needs.
package config

import (
	"os"
	"strconv"
)

// Config is the resolved set of tunables for one orchestrator run.
type Config struct {
	Parallelism int
	MinChunk    int64
	MaxRetries  int
	UserAgent   string
	StateDir    string
}

const (
	defaultMaxRetries = 3
	defaultMinChunk   = 1 << 20 // 1 MiB
	defaultUserAgent  = "fwpull/1.0"
)

// Load resolves defaults overridden by FWPULL_* environment variables.
func Load() Config {
	return Config{
		Parallelism: envInt("FWPULL_PARALLELISM", 0), // 0 means "size-based default"
		MinChunk:    envInt64("FWPULL_MIN_CHUNK", defaultMinChunk),
		MaxRetries:  envInt("FWPULL_MAX_RETRIES", defaultMaxRetries),
		UserAgent:   envString("FWPULL_USER_AGENT", defaultUserAgent),
		StateDir:    envString("FWPULL_STATE_DIR", defaultStateDir()),
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fwpull"
	}
	return home + "/.fwpull"
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
