package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DefaultConfigPath is used when CONFIG_PATH is unset. A missing file at the
// default path is not an error; defaults and environment apply.
const DefaultConfigPath = "./config/webscout.yaml"

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AdminPort       int           `mapstructure:"admin_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LLMConfig struct {
	BaseURL              string  `mapstructure:"base_url"`
	APIKey               string  `mapstructure:"api_key"`
	Model                string  `mapstructure:"model"`
	PlannerTemperature   float64 `mapstructure:"planner_temperature"`
	FilterTemperature    float64 `mapstructure:"filter_temperature"`
	NarrativeTemperature float64 `mapstructure:"narrative_temperature"`
	MaxTokens            int     `mapstructure:"max_tokens"`
	// json_object or json_schema
	StructuredMode string `mapstructure:"structured_mode"`
}

type SearchConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	MaxResults     int    `mapstructure:"max_results"`
	SearchDepth    string `mapstructure:"search_depth"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
	Dedupe         bool   `mapstructure:"dedupe"`
}

type PipelineConfig struct {
	MaxSubQueries int `mapstructure:"max_sub_queries"`
	SummaryChars  int `mapstructure:"summary_chars"`
	ContextChars  int `mapstructure:"context_chars"`
	FallbackCount int `mapstructure:"fallback_count"`
	// 0 means no cap on the filter's selection
	MaxSelected int `mapstructure:"max_selected"`
}

type TimeoutConfig struct {
	Plan      time.Duration `mapstructure:"plan"`
	Search    time.Duration `mapstructure:"search"`
	Filter    time.Duration `mapstructure:"filter"`
	Narrative time.Duration `mapstructure:"narrative"`
}

type RateLimitConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
	RedisAddr         string `mapstructure:"redis_addr"`
}

type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	CORS      CORSConfig      `mapstructure:"cors"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Timeouts  TimeoutConfig   `mapstructure:"timeouts"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.admin_port", 8081)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 180*time.Second)
	v.SetDefault("server.shutdown_timeout", 20*time.Second)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173", "*"})

	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.planner_temperature", 0.7)
	v.SetDefault("llm.filter_temperature", 0.3)
	v.SetDefault("llm.narrative_temperature", 0.7)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.structured_mode", "json_object")

	v.SetDefault("search.base_url", "https://api.tavily.com")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.search_depth", "basic")
	v.SetDefault("search.max_concurrency", 3)
	v.SetDefault("search.dedupe", true)

	v.SetDefault("pipeline.max_sub_queries", 3)
	v.SetDefault("pipeline.summary_chars", 500)
	v.SetDefault("pipeline.context_chars", 15000)
	v.SetDefault("pipeline.fallback_count", 3)
	v.SetDefault("pipeline.max_selected", 0)

	v.SetDefault("timeouts.plan", 30*time.Second)
	v.SetDefault("timeouts.search", 20*time.Second)
	v.SetDefault("timeouts.filter", 30*time.Second)
	v.SetDefault("timeouts.narrative", 120*time.Second)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", 20)
	v.SetDefault("ratelimit.burst", 5)
	v.SetDefault("ratelimit.redis_addr", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "webscout-orchestrator")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Loader reads configuration from an optional YAML file plus environment.
type Loader struct {
	v        *viper.Viper
	path     string
	explicit bool
}

// NewLoader creates a loader for path. An empty path resolves CONFIG_PATH, then DefaultConfigPath.
func NewLoader(path string) *Loader {
	explicit := path != ""
	if !explicit {
		if p := os.Getenv("CONFIG_PATH"); p != "" {
			path, explicit = p, true
		} else {
			path = DefaultConfigPath
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("WEBSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// historical variable names from the original deployment
	_ = v.BindEnv("llm.api_key", "WEBSCOUT_LLM_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("search.api_key", "WEBSCOUT_SEARCH_API_KEY", "TAVILY_API_KEY")
	_ = v.BindEnv("server.port", "WEBSCOUT_SERVER_PORT", "PORT")

	return &Loader{v: v, path: path, explicit: explicit}
}

// Load reads the file (when present) and decodes the merged configuration.
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.path); err == nil {
		l.v.SetConfigFile(l.path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if l.explicit {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return l.decode()
}

// ConfigFileUsed returns the file backing this loader, or "" when running on defaults.
func (l *Loader) ConfigFileUsed() string { return l.v.ConfigFileUsed() }

// Watch calls onChange with the re-decoded configuration whenever the file changes.
// It is a no-op without a config file. Decode failures are passed to onError.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	var c Config
	if err := l.v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.normalize()
	return &c, nil
}

// Load is shorthand for NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

func (c *Config) normalize() {
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	c.Search.BaseURL = strings.TrimRight(strings.TrimSpace(c.Search.BaseURL), "/")
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.Search.APIKey = strings.TrimSpace(c.Search.APIKey)
	c.LLM.StructuredMode = strings.ToLower(strings.TrimSpace(c.LLM.StructuredMode))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	var origins []string
	for _, o := range c.CORS.AllowedOrigins {
		if t := strings.TrimSpace(o); t != "" {
			origins = append(origins, t)
		}
	}
	c.CORS.AllowedOrigins = origins
}

// Validate reports every problem that would stop the pipeline from running.
func (c *Config) Validate() error {
	var errs []error
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required (GROQ_API_KEY)"))
	}
	if c.Search.APIKey == "" {
		errs = append(errs, errors.New("search.api_key is required (TAVILY_API_KEY)"))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	switch c.LLM.StructuredMode {
	case "json_object", "json_schema":
	default:
		errs = append(errs, fmt.Errorf("llm.structured_mode %q must be json_object or json_schema", c.LLM.StructuredMode))
	}
	positive := map[string]int{
		"server.port":              c.Server.Port,
		"search.max_results":       c.Search.MaxResults,
		"search.max_concurrency":   c.Search.MaxConcurrency,
		"pipeline.max_sub_queries": c.Pipeline.MaxSubQueries,
		"pipeline.summary_chars":   c.Pipeline.SummaryChars,
		"pipeline.context_chars":   c.Pipeline.ContextChars,
		"pipeline.fallback_count":  c.Pipeline.FallbackCount,
	}
	for _, key := range []string{"server.port", "search.max_results", "search.max_concurrency",
		"pipeline.max_sub_queries", "pipeline.summary_chars", "pipeline.context_chars", "pipeline.fallback_count"} {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}
	if c.Pipeline.MaxSelected < 0 {
		errs = append(errs, errors.New("pipeline.max_selected must not be negative"))
	}
	for name, d := range map[string]time.Duration{
		"timeouts.plan": c.Timeouts.Plan, "timeouts.search": c.Timeouts.Search,
		"timeouts.filter": c.Timeouts.Filter, "timeouts.narrative": c.Timeouts.Narrative,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	return errors.Join(errs...)
}
