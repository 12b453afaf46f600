package api

import (
	"log/slog"
	"time"

	"github.com/ruteri/reputation-registry/cryptoutils"
)

// Defaults applied by HTTPServerConfig.WithDefaults.
const (
	DefaultDrainDuration            = 5 * time.Second
	DefaultGracefulShutdownDuration = 30 * time.Second
	DefaultReadTimeout              = 60 * time.Second
	DefaultWriteTimeout             = 30 * time.Second
)

// HTTPServerConfig configures the registry API server and the request
// limits its handler enforces.
type HTTPServerConfig struct {
	// ListenAddr is the address the registry API listens on.
	ListenAddr string

	// MetricsAddr is the address of the Prometheus endpoint. Empty disables it.
	MetricsAddr string

	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long Shutdown reports not-ready before it stops
	// accepting requests.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds the wait for in-flight requests.
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxBodySize caps request bodies. Larger bodies get 413 body_too_large.
	MaxBodySize int64

	// SignatureWindow is how far a signed request's timestamp may be from
	// the server clock.
	SignatureWindow time.Duration
}

// WithDefaults returns a copy of cfg with every unset limit filled in.
func (cfg HTTPServerConfig) WithDefaults() *HTTPServerConfig {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.DrainDuration <= 0 {
		cfg.DrainDuration = DefaultDrainDuration
	}
	if cfg.GracefulShutdownDuration <= 0 {
		cfg.GracefulShutdownDuration = DefaultGracefulShutdownDuration
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = MaxBodySize
	}
	if cfg.SignatureWindow <= 0 {
		cfg.SignatureWindow = cryptoutils.DefaultFreshnessWindow
	}
	return &cfg
}
