package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath       string `long:"db-path" env:"DB_PATH" default:"./data/race-comb.db" description:"SQLite database file"`
	ProvidersDir string `long:"providers-dir" env:"PROVIDERS_DIR" default:"./providers" description:"Directory containing provider configuration files"`

	// Server
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the trigger endpoints (optional)"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"0" description:"Seconds between scheduled ingestion runs, 0 disables them"`

	// Ingestion
	UserAgent       string `long:"user-agent" env:"USER_AGENT" default:"Race Comb/1.0" description:"User agent string for HTTP requests"`
	BrowserPoolSize int    `long:"browser-pool-size" env:"BROWSER_POOL_SIZE" default:"2" description:"Concurrent headless browser sessions"`
	HTTPConcurrency int    `long:"http-concurrency" env:"HTTP_CONCURRENCY" default:"6" description:"Concurrent plain HTTP adapters"`
	AdapterTimeout  int    `long:"adapter-timeout" env:"ADAPTER_TIMEOUT" default:"300" description:"Wall-clock limit per adapter invocation in seconds"`
	FetchAttempts   int    `long:"fetch-attempts" env:"FETCH_ATTEMPTS" default:"3" description:"Attempts per page load before it counts as failed"`
	ChromePath      string `long:"chrome-path" env:"CHROME_PATH" description:"Chrome/Chromium executable (default: autodetect)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/Sao_Paulo)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var ErrHelp = errors.New("help requested")

var globalCfg *Cfg

// Load parses the process flags and environment.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses args and the environment. Entry points with their own flag
// handling pass nil and configure through the environment only.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, ErrHelp
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.BrowserPoolSize < 1 || raw.HTTPConcurrency < 1 || raw.FetchAttempts < 1 {
		return nil, fmt.Errorf("browser pool size, HTTP concurrency and fetch attempts must be positive")
	}
	if raw.AdapterTimeout < 1 || raw.SchedulerInterval < 0 {
		return nil, fmt.Errorf("invalid adapter timeout %d or scheduler interval %d", raw.AdapterTimeout, raw.SchedulerInterval)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		ProvidersDir:      raw.ProvidersDir,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		SchedulerInterval: raw.SchedulerInterval,
		UserAgent:         raw.UserAgent,
		BrowserPoolSize:   raw.BrowserPoolSize,
		HTTPConcurrency:   raw.HTTPConcurrency,
		AdapterTimeout:    raw.AdapterTimeout,
		FetchAttempts:     raw.FetchAttempts,
		ChromePath:        raw.ChromePath,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Event dates never depend on this; it only affects log and report
// timestamps rendered in local time.
func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
