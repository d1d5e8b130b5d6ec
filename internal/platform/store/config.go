package store

import (
	"time"

	"feedweave/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string
	PG      PGConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// PGFromConfig reads DBURL, MAX_CONNS, SLOW_MS, LOG_SQL and CONNECT_RETRIES under cfg's prefix
func PGFromConfig(cfg config.Conf) PGConfig {
	url := cfg.MayString("DBURL", "")
	return PGConfig{
		Enabled:        url != "",
		URL:            url,
		MaxConns:       int32(cfg.MayInt("MAX_CONNS", 10)),
		LogSQL:         cfg.MayBool("LOG_SQL", false),
		SlowQueryMs:    cfg.MayInt("SLOW_MS", 200),
		ConnectRetries: cfg.MayInt("CONNECT_RETRIES", 20),
		PingTimeout:    cfg.MayDuration("PING_TIMEOUT", 3*time.Second),
	}
}
