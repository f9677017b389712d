package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	Logging   Logging   `mapstructure:"logging"`
	AI        AI        `mapstructure:"ai"`
	Sources   Sources   `mapstructure:"sources"`
	HTTP      HTTP      `mapstructure:"http"`
	Dedupe    Dedupe    `mapstructure:"dedupe"`
	Scoring   Scoring   `mapstructure:"scoring"`
	Summarize Summarize `mapstructure:"summarize"`
	Cache     Cache     `mapstructure:"cache"`
	Output    Output    `mapstructure:"output"`
	Run       Run       `mapstructure:"run"`
	Publish   Publish   `mapstructure:"publish"`
	Server    Server    `mapstructure:"server"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// Logging holds logging configuration
type Logging struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// AI holds summarization provider configuration. An empty Provider disables summaries.
type AI struct {
	Provider  string          `mapstructure:"provider"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// OpenAIConfig holds OpenAI configuration
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic configuration
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Sources holds connector configuration
type Sources struct {
	File        string `mapstructure:"file"`
	Concurrency int    `mapstructure:"concurrency"`
	Timeout     string `mapstructure:"timeout"`
	MaxItems    int    `mapstructure:"max_items"`
}

// HTTP holds the outbound politeness settings shared by all connectors
type HTTP struct {
	UserAgent      string   `mapstructure:"user_agent"`
	AcceptLanguage string   `mapstructure:"accept_language"`
	Timeout        string   `mapstructure:"timeout"`
	MaxRetries     int      `mapstructure:"max_retries"`
	Backoff        string   `mapstructure:"backoff"`
	MaxRequests    int      `mapstructure:"max_requests"`
	RespectRobots  bool     `mapstructure:"respect_robots"`
	Allowlist      []string `mapstructure:"allowlist"` // Hosts fetched even when robots.txt fails
}

// Dedupe holds near-duplicate clustering parameters
type Dedupe struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	TimeWindow          string  `mapstructure:"time_window"`
}

// Scoring holds relevance weights
type Scoring struct {
	TopicWeight    float64 `mapstructure:"topic_weight"`
	SourcesWeight  float64 `mapstructure:"sources_weight"`
	RecencyWeight  float64 `mapstructure:"recency_weight"`
	AffinityWeight float64 `mapstructure:"affinity_weight"`
	HalfLife       string  `mapstructure:"half_life"`
}

// Summarize holds summarizer concurrency and retry settings
type Summarize struct {
	Concurrency   int     `mapstructure:"concurrency"`
	Timeout       string  `mapstructure:"timeout"`
	MaxRetries    int     `mapstructure:"max_retries"`
	RetryDelay    string  `mapstructure:"retry_delay"`
	RateLimit     float64 `mapstructure:"rate_limit"`
	Burst         int     `mapstructure:"burst"`
	Length        string  `mapstructure:"length"`
	FetchArticles bool    `mapstructure:"fetch_articles"` // Summarize from the article page instead of the feed excerpt
	ArticleRunes  int     `mapstructure:"article_runes"`
}

// Cache holds summary cache configuration
type Cache struct {
	Backend   string `mapstructure:"backend"`
	Directory string `mapstructure:"directory"`
	RedisURL  string `mapstructure:"redis_url"`
	TTL       string `mapstructure:"ttl"`
}

// Output holds output configuration
type Output struct {
	Directory string   `mapstructure:"directory"`
	Formats   []string `mapstructure:"formats"`
	Metrics   bool     `mapstructure:"metrics"`
}

// Run holds per-brief settings
type Run struct {
	Deadline       string `mapstructure:"deadline"`
	MinItems       int    `mapstructure:"min_items"`
	DefaultLimit   int    `mapstructure:"default_limit"`
	Lookback       string `mapstructure:"lookback"`
	ExcerptRunes   int    `mapstructure:"excerpt_runes"`
	ProfilesFile   string `mapstructure:"profiles_file"`
	DefaultProfile string `mapstructure:"default_profile"`
}

// Publish holds static site settings
type Publish struct {
	BaseURL     string `mapstructure:"base_url"`
	PublicDir   string `mapstructure:"public_dir"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
}

// Server holds the brief API settings
type Server struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	ReadTimeout  string   `mapstructure:"read_timeout"`
	WriteTimeout string   `mapstructure:"write_timeout"`
	AdminAPIKey  string   `mapstructure:"admin_api_key"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".newsbrief")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// An explicit file that does not exist is still an error.
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".newsbrief")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.output", "stderr")

	viper.SetDefault("ai.provider", "")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.max_tokens", 512)
	viper.SetDefault("ai.gemini.temperature", 0.3)
	viper.SetDefault("ai.openai.model", "gpt-4o-mini")
	viper.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("ai.anthropic.model", "claude-haiku-4-5")

	viper.SetDefault("sources.file", "config/sources.yaml")
	viper.SetDefault("sources.concurrency", 4)
	viper.SetDefault("sources.timeout", "20s")
	viper.SetDefault("sources.max_items", 50)

	viper.SetDefault("http.user_agent", "NewsBriefBot/0.2.2 (+https://github.com/bigthack/newsbrief-repo-v0.2.2/issues)")
	viper.SetDefault("http.accept_language", "en, *;q=0.1")
	viper.SetDefault("http.timeout", "20s")
	viper.SetDefault("http.max_retries", 2)
	viper.SetDefault("http.backoff", "500ms")
	viper.SetDefault("http.max_requests", 40)
	viper.SetDefault("http.respect_robots", true)

	viper.SetDefault("dedupe.similarity_threshold", 0.6)
	viper.SetDefault("dedupe.time_window", "24h")

	viper.SetDefault("scoring.topic_weight", 0.5)
	viper.SetDefault("scoring.sources_weight", 0.2)
	viper.SetDefault("scoring.recency_weight", 0.2)
	viper.SetDefault("scoring.affinity_weight", 0.1)
	viper.SetDefault("scoring.half_life", "12h")

	viper.SetDefault("summarize.concurrency", 3)
	viper.SetDefault("summarize.timeout", "30s")
	viper.SetDefault("summarize.max_retries", 2)
	viper.SetDefault("summarize.retry_delay", "1s")
	viper.SetDefault("summarize.rate_limit", 2.0)
	viper.SetDefault("summarize.burst", 2)
	viper.SetDefault("summarize.length", "standard")
	viper.SetDefault("summarize.fetch_articles", true)
	viper.SetDefault("summarize.article_runes", 4000)

	viper.SetDefault("cache.backend", "none")
	viper.SetDefault("cache.directory", ".newsbrief/cache")
	viper.SetDefault("cache.ttl", "168h")

	viper.SetDefault("output.directory", "briefs")
	viper.SetDefault("output.formats", []string{"json", "txt", "md", "html"})
	viper.SetDefault("output.metrics", true)

	viper.SetDefault("run.deadline", "2m")
	viper.SetDefault("run.min_items", 1)
	viper.SetDefault("run.default_limit", 10)
	viper.SetDefault("run.lookback", "24h")
	viper.SetDefault("run.excerpt_runes", 500)
	viper.SetDefault("run.profiles_file", "")
	viper.SetDefault("run.default_profile", "")

	viper.SetDefault("publish.public_dir", "public")
	viper.SetDefault("publish.title", "NewsBrief")
	viper.SetDefault("publish.description", "Daily news briefs")

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "3m")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("ai.openai.api_key", []string{
		"OPENAI_API_KEY",
	})

	bindEnvKeys("ai.anthropic.api_key", []string{
		"ANTHROPIC_API_KEY",
		"CLAUDE_API_KEY",
	})

	bindEnvKeys("ai.provider", []string{
		"NB_LLM_PROVIDER",
		"LLM_PROVIDER",
	})

	bindEnvKeys("cache.redis_url", []string{
		"REDIS_URL",
		"NB_REDIS_URL",
	})

	// Politeness knobs keep the names the fetch scripts have always used.
	bindEnvKeys("http.max_requests", []string{"NB_MAX_REQUESTS"})
	bindEnvKeys("http.timeout", []string{"NB_TIMEOUT"})
	bindEnvKeys("http.user_agent", []string{"NB_UA"})
	bindEnvKeys("http.max_retries", []string{"NB_MAX_RETRIES"})
	bindEnvKeys("http.backoff", []string{"NB_BACKOFF"})

	bindEnvKeys("publish.base_url", []string{"NB_BASE_URL", "BASE_URL"})
	bindEnvKeys("server.admin_api_key", []string{"ADMIN_API_KEY"})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"NEWSBRIEF_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.Cache.Directory != "" {
		config.Cache.Directory = expandPath(config.Cache.Directory)
	}
	if config.Output.Directory != "" {
		config.Output.Directory = expandPath(config.Output.Directory)
	}
	if config.Sources.File != "" {
		config.Sources.File = expandPath(config.Sources.File)
	}
	if config.Run.ProfilesFile != "" {
		config.Run.ProfilesFile = expandPath(config.Run.ProfilesFile)
	}
	if config.Publish.PublicDir != "" {
		config.Publish.PublicDir = expandPath(config.Publish.PublicDir)
	}

	// NB_TIMEOUT and NB_BACKOFF are plain seconds.
	config.HTTP.Timeout = secondsToDuration(config.HTTP.Timeout)
	config.HTTP.Backoff = secondsToDuration(config.HTTP.Backoff)

	durations := map[string]string{
		"sources.timeout":       config.Sources.Timeout,
		"http.timeout":          config.HTTP.Timeout,
		"http.backoff":          config.HTTP.Backoff,
		"dedupe.time_window":    config.Dedupe.TimeWindow,
		"scoring.half_life":     config.Scoring.HalfLife,
		"summarize.timeout":     config.Summarize.Timeout,
		"summarize.retry_delay": config.Summarize.RetryDelay,
		"cache.ttl":             config.Cache.TTL,
		"run.deadline":          config.Run.Deadline,
		"run.lookback":          config.Run.Lookback,
		"server.read_timeout":   config.Server.ReadTimeout,
		"server.write_timeout":  config.Server.WriteTimeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// secondsToDuration turns a bare number of seconds into a duration string.
func secondsToDuration(value string) string {
	if value == "" {
		return value
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second)).String()
	}
	return value
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures configuration values are usable
func validateConfig(config *Config) error {
	var errors []string

	switch config.AI.Provider {
	case "", "none":
	case "gemini":
		if !isValidAPIKey(config.AI.Gemini.APIKey) {
			errors = append(errors, "Gemini provider requires an API key. Set GEMINI_API_KEY or ai.gemini.api_key")
		}
	case "openai":
		if !isValidAPIKey(config.AI.OpenAI.APIKey) {
			errors = append(errors, "OpenAI provider requires an API key. Set OPENAI_API_KEY or ai.openai.api_key")
		}
	case "anthropic":
		if !isValidAPIKey(config.AI.Anthropic.APIKey) {
			errors = append(errors, "Anthropic provider requires an API key. Set ANTHROPIC_API_KEY or ai.anthropic.api_key")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown AI provider: %s. Supported: gemini, openai, anthropic", config.AI.Provider))
	}

	switch config.Cache.Backend {
	case "", "none", "sqlite":
	case "redis":
		if config.Cache.RedisURL == "" {
			errors = append(errors, "Redis cache requires a URL. Set REDIS_URL or cache.redis_url")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown cache backend: %s. Supported: none, sqlite, redis", config.Cache.Backend))
	}

	if t := config.Dedupe.SimilarityThreshold; t <= 0 || t > 1 {
		errors = append(errors, fmt.Sprintf("dedupe.similarity_threshold must be in (0, 1], got %v", t))
	}

	weights := map[string]float64{
		"scoring.topic_weight":    config.Scoring.TopicWeight,
		"scoring.sources_weight":  config.Scoring.SourcesWeight,
		"scoring.recency_weight":  config.Scoring.RecencyWeight,
		"scoring.affinity_weight": config.Scoring.AffinityWeight,
	}
	for key, w := range weights {
		if w < 0 {
			errors = append(errors, fmt.Sprintf("%s must not be negative, got %v", key, w))
		}
	}

	switch config.Summarize.Length {
	case "short", "standard", "deep":
	default:
		errors = append(errors, fmt.Sprintf("summarize.length must be short, standard or deep, got %q", config.Summarize.Length))
	}

	if config.Run.MinItems < 0 {
		errors = append(errors, "run.min_items must not be negative")
	}
	if p := config.Server.Port; p < 0 || p > 65535 {
		errors = append(errors, fmt.Sprintf("server.port must be between 0 and 65535, got %d", p))
	}
	if config.HTTP.MaxRequests <= 0 {
		errors = append(errors, "http.max_requests must be positive")
	}

	if len(errors) > 0 {
		// Map iteration above is unordered; keep the message stable.
		sort.Strings(errors)
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-gemini-key", "your-openai-key", "your-anthropic-key",
		"YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}

	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// Duration parses a validated duration value, returning fallback when it is empty.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// Convenience getters for commonly used configuration values
func GetAI() AI                  { return Get().AI }
func GetSources() Sources        { return Get().Sources }
func GetHTTP() HTTP              { return Get().HTTP }
func GetOutput() Output          { return Get().Output }
func GetCache() Cache            { return Get().Cache }
func GetLogging() Logging        { return Get().Logging }
func GetRun() Run                { return Get().Run }
func GetPublish() Publish        { return Get().Publish }
func GetServer() Server          { return Get().Server }
func GetOutputDirectory() string { return Get().Output.Directory }
func IsDebugMode() bool          { return Get().App.Debug }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
