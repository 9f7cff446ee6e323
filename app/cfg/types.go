package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath       string
	ProvidersDir string

	// Server
	Port              string
	APIAccessKey      string
	SchedulerInterval int

	// Ingestion
	UserAgent       string
	BrowserPoolSize int
	HTTPConcurrency int
	AdapterTimeout  int
	FetchAttempts   int
	ChromePath      string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

func (c *Cfg) AdapterTimeoutDuration() time.Duration {
	return time.Duration(c.AdapterTimeout) * time.Second
}

func (c *Cfg) SchedulerIntervalDuration() time.Duration {
	return time.Duration(c.SchedulerInterval) * time.Second
}
