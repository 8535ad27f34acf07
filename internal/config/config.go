// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/srcquery/internal/a2s"
	"github.com/woozymasta/srcquery/internal/logger"
	"github.com/woozymasta/srcquery/internal/vars"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server    Server        `group:"Server Options" env-namespace:"SRCQUERY"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"SRCQUERY_DB"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"SRCQUERY_GEOIP"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"SRCQUERY_RATE_LIMIT"`
	A2S       A2S           `group:"A2S Options" namespace:"a2s" env-namespace:"SRCQUERY_A2S"`
	Poll      Poll          `group:"Poll Options" namespace:"poll" env-namespace:"SRCQUERY_POLL"`
	Query     Query         `group:"Query Options" namespace:"query" env-namespace:"SRCQUERY_QUERY"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"SRCQUERY_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Address    string `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	AuthToken  string `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Admin authentication token"`
	TrustProxy bool   `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// Storage holds database configuration.
type Storage struct {
	// betteralign:ignore

	Path      string        `short:"d" long:"path" env:"PATH" description:"Path to SQLite database" default:"srcquery.db"`
	Retention time.Duration `long:"retention" env:"RETENTION" description:"Keep snapshots for this long when pruning" default:"720h"`
	Prune     bool          `long:"prune" description:"Delete snapshots older than the retention period and exit"`
	Check     bool          `long:"check" description:"Re-query every stored server once and exit"`

	GenerateCount int `long:"generate-fake-data" description:"Generate N fake servers with history for development and exit"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file" default:"srcquery.mmdb"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// A2S holds Source Query protocol configuration.
type A2S struct {
	// betteralign:ignore

	Timeout    time.Duration `long:"timeout" env:"TIMEOUT" description:"Query timeout" default:"3s"`
	BufferSize uint16        `long:"buffer-size" env:"BUFFER_SIZE" description:"Response body buffer size" default:"1400"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"hard-count" env:"HARD_COUNT" description:"Hard IP limit: requests count" default:"30"`
	HardLimitWin   time.Duration `long:"hard-window" env:"HARD_WINDOW" description:"Hard IP limit: window duration" default:"1m"`
}

// Poll holds background polling configuration.
type Poll struct {
	// betteralign:ignore

	Targets  string        `short:"f" long:"targets" env:"TARGETS" description:"TOML file with servers to poll"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Delay between poll cycles" default:"1m"`
	Workers  int           `long:"workers" env:"WORKERS" description:"Concurrent queries per cycle" default:"10"`
	Rate     float64       `long:"rate" env:"RATE" description:"Outbound queries per second" default:"20"`
	Burst    int           `long:"burst" env:"BURST" description:"Outbound query burst" default:"5"`
}

// Query holds one-shot query configuration.
type Query struct {
	// betteralign:ignore

	Address string `short:"q" long:"address" env:"ADDRESS" description:"Query host:port once, print the reply and exit"`
	Kind    string `short:"k" long:"kind" env:"KIND" description:"Request kind" choice:"info" choice:"player" choice:"rules" choice:"ping" default:"info"`
	JSON    bool   `long:"json" env:"JSON" description:"Print the reply as JSON"`
}

// QueryKind returns the parsed request kind of the one-shot query.
func (q Query) QueryKind() a2s.Kind {
	kind, err := a2s.ParseKind(q.Kind)
	if err != nil {
		return a2s.KindInfo
	}

	return kind
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	return cfg
}

// Validate checks option combinations the flag parser cannot express.
func (c *Config) Validate() error {
	if c.Query.Address != "" {
		return nil
	}

	if c.Poll.Workers < 1 {
		return fmt.Errorf("--poll-workers must be positive, got %d", c.Poll.Workers)
	}
	if c.Poll.Rate <= 0 {
		return fmt.Errorf("--poll-rate must be positive, got %g", c.Poll.Rate)
	}

	if c.Maintenance() {
		return nil
	}

	if c.Server.AuthToken == "" {
		return fmt.Errorf("required flag `-t, --auth-token' or environment variable `SRCQUERY_AUTH_TOKEN` was not specified")
	}

	return nil
}

// Maintenance reports whether a database maintenance task was requested.
func (c *Config) Maintenance() bool {
	return c.Storage.Prune || c.Storage.Check || c.Storage.GenerateCount > 0
}

func parseArgs(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	return &cfg, nil
}
