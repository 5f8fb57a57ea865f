// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Defaults come from New; Load layers a YAML file and the environment
//     on top of them.
//   - Validation errors wrap ErrInvalidConfig, loading errors ErrLoadConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/matchlog/internal/domain/enrich"
	"github.com/okian/matchlog/internal/domain/source"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CORSOrigins is a comma-separated list of allowed origins.
	CORSOrigins string `koanf:"cors_origins"`

	// DatabasePath is the sqlite file holding matches, events and profiles.
	DatabasePath string `koanf:"database_path"`

	// DebugDir receives parse snapshots. Empty disables them.
	DebugDir string `koanf:"debug_dir"`

	// ProfilesDir holds YAML import profiles loaded at start.
	ProfilesDir string `koanf:"profiles_dir"`

	// QueueSize bounds the number of waiting import jobs.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of concurrent imports.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many submissions are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// AMQPURL enables import notifications when set.
	AMQPURL string `koanf:"amqp_url"`

	// AMQPExchange is the topic exchange notifications go to.
	AMQPExchange string `koanf:"amqp_exchange"`

	// Look-around windows used by enrichment, in seconds.
	TryWindowSeconds   float64 `koanf:"try_window_seconds"`
	BreakWindowSeconds float64 `koanf:"break_window_seconds"`
	TeamWindowSeconds  float64 `koanf:"team_window_seconds"`

	// OurTeamLabel names our team when nothing else does.
	OurTeamLabel string `koanf:"our_team_label"`

	// PointsValues overrides points per scoring type, e.g. TRY: 5.
	PointsValues map[string]int `koanf:"points_values"`

	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		CORSOrigins:            "*",
		DatabasePath:           "matchlog.sqlite3",
		DebugDir:               source.DefaultDebugDir(),
		QueueSize:              64,
		WorkerCount:            workers,
		DedupeSize:             1024,
		AMQPExchange:           "matchlog",
		TryWindowSeconds:       enrich.DefaultTryWindow,
		BreakWindowSeconds:     enrich.DefaultBreakWindow,
		TeamWindowSeconds:      enrich.DefaultTeamWindow,
		OurTeamLabel:           enrich.DefaultOurTeam,
		ShutdownTimeoutSeconds: 30,
	}
}

// Origins splits CORSOrigins.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate checks the values Load cannot repair.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DatabasePath) == "":
		return fmt.Errorf("%w: database_path must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.TryWindowSeconds < 0 || c.BreakWindowSeconds < 0 || c.TeamWindowSeconds < 0:
		return fmt.Errorf("%w: windows must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
