package providers

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/lysyi3m/race-comb/app/heuristics"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRequestTimeoutMs  = 30000
	DefaultRequestsPerSecond = 2
	DefaultMaxPages          = 1
	DefaultMaxItems          = 200
)

// KindResolver maps a provider name and its optional configured kind to the
// extraction strategy, failing for names it does not know.
type KindResolver func(name, kind string) (string, error)

type ConfigCache struct {
	providersDir string
	resolveKind  KindResolver
	validate     *validator.Validate
	cache        map[string]*Config
	mu           sync.RWMutex
}

func NewConfigCache(providersDir string, resolveKind KindResolver) *ConfigCache {
	return &ConfigCache{
		providersDir: providersDir,
		resolveKind:  resolveKind,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		cache:        make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.providersDir); os.IsNotExist(err) {
		slog.Warn("Providers directory not found", "dir", cc.providersDir)
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.providersDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Provider configuration loaded", "provider", name, "enabled", config.Enabled, "kind", config.Kind, "urls", len(config.URLs()))
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(name string) (*Config, error) {
	configFile := cc.getConfigFilePath(name)
	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Name = name

	if err := cc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	if cc.resolveKind != nil {
		kind, err := cc.resolveKind(name, config.Kind)
		if err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
		}
		config.Kind = kind
	}

	if config.Kind == "json" && config.JSONFields.Title == "" {
		return nil, fmt.Errorf("invalid config %s: json_fields.title is required for json providers", configFile)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Name] = config

	return config, nil
}

func (cc *ConfigCache) GetConfig(name string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[name]
	if !ok {
		return nil, fmt.Errorf("provider config with name '%s' not found", name)
	}
	return config, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

// Names returns every loaded provider name in lexical order.
func (cc *ConfigCache) Names() []string {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	names := make([]string, 0, len(cc.cache))
	for k := range cc.cache {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.RequestTimeoutMs == 0 {
		config.RequestTimeoutMs = DefaultRequestTimeoutMs
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if config.MaxPages == 0 {
		config.MaxPages = DefaultMaxPages
	}
	if config.MaxItems == 0 {
		config.MaxItems = DefaultMaxItems
	}

	return &config, nil
}

func (cc *ConfigCache) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if config.Name == "" {
		return fmt.Errorf("provider name is required")
	}

	if err := cc.validate.Struct(config); err != nil {
		return err
	}

	if len(config.URLs()) == 0 {
		return fmt.Errorf("base_url or base_urls is required")
	}

	if config.RegionFilter != "" {
		code, ok := heuristics.StateCode(config.RegionFilter)
		if !ok {
			return fmt.Errorf("unknown region_filter state %q", config.RegionFilter)
		}
		config.RegionFilter = code
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(name string) string {
	return filepath.Join(cc.providersDir, name+".yml")
}
