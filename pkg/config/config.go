package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the fully-resolved application configuration. Every field has
// a default enumerated in Default; sparse overrides go through Resolve.
type Config struct {
	Server      ServerConfig      `json:"server"`
	Detection   DetectionConfig   `json:"detection"`
	Degradation DegradationConfig `json:"degradation"`
	Fallback    FallbackConfig    `json:"fallback"`
	Redis       RedisConfig       `json:"redis"`
	Logging     LoggingConfig     `json:"logging"`
	Metrics     MetricsConfig     `json:"metrics"`
	Tracing     TracingConfig     `json:"tracing"`
}

// ServerConfig contains HTTP server configuration for the status API
type ServerConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	AllowedOrigins []string      `json:"allowed_origins"`
}

// DetectionConfig contains connectivity detection configuration
type DetectionConfig struct {
	CheckInterval              time.Duration `json:"check_interval"`
	ServerCheckTimeout         time.Duration `json:"server_check_timeout"`
	OfflineThreshold           int           `json:"offline_threshold"`
	RecoveryThreshold          int           `json:"recovery_threshold"`
	StatusChangeDebounce       time.Duration `json:"status_change_debounce"`
	EnableBrowserAPIMonitoring bool          `json:"enable_browser_api_monitoring"`
	EnableServiceMonitoring    bool          `json:"enable_service_monitoring"`
	EnableQualityAssessment    bool          `json:"enable_quality_assessment"`
	NetworkProbeURL            string        `json:"network_probe_url"`
	ServiceHealthEndpoint      string        `json:"service_health_endpoint"`
	MaxHistorySize             int           `json:"max_history_size"`
}

// DegradationConfig contains degradation controller configuration
type DegradationConfig struct {
	LowConfidenceThreshold int `json:"low_confidence_threshold"`
	WriteFailureThreshold  int `json:"write_failure_threshold"`
	TransitionHistorySize  int `json:"transition_history_size"`
}

// FallbackConfig contains mock/cache store and queue configuration
type FallbackConfig struct {
	MockDataCacheSize int           `json:"mock_data_cache_size"`
	MockDataTTL       time.Duration `json:"mock_data_ttl"`
	EnableJournal     bool          `json:"enable_journal"`
}

// RedisConfig contains Redis connection configuration for the
// deferred-operation journal
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Namespace string `json:"namespace"`
	Enabled   bool   `json:"enabled"`
}

// TracingConfig contains tracing configuration
type TracingConfig struct {
	JaegerEndpoint string  `json:"jaeger_endpoint"`
	SamplingRate   float64 `json:"sampling_rate"`
	Enabled        bool    `json:"enabled"`
}

// Default returns the configuration with every default value enumerated once.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8085,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Detection: DetectionConfig{
			CheckInterval:              30 * time.Second,
			ServerCheckTimeout:         5 * time.Second,
			OfflineThreshold:           3,
			RecoveryThreshold:          2,
			StatusChangeDebounce:       2 * time.Second,
			EnableBrowserAPIMonitoring: true,
			EnableServiceMonitoring:    true,
			EnableQualityAssessment:    true,
			NetworkProbeURL:            "/favicon.ico",
			ServiceHealthEndpoint:      "/api/health",
			MaxHistorySize:             10,
		},
		Degradation: DegradationConfig{
			LowConfidenceThreshold: 30,
			WriteFailureThreshold:  3,
			TransitionHistorySize:  20,
		},
		Fallback: FallbackConfig{
			MockDataCacheSize: 50,
			MockDataTTL:       5 * time.Minute,
			EnableJournal:     false,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
			PoolSize: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Namespace: "dashlens",
			Enabled:   true,
		},
		Tracing: TracingConfig{
			JaegerEndpoint: "http://localhost:14268/api/traces",
			SamplingRate:   1.0,
			Enabled:        false,
		},
	}
}

// Load loads configuration from environment variables on top of the defaults.
func Load() (*Config, error) {
	cfg := Default()

	cfg.Server.Host = getEnvString("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)

	cfg.Detection.CheckInterval = getEnvDuration("DETECTION_CHECK_INTERVAL", cfg.Detection.CheckInterval)
	cfg.Detection.ServerCheckTimeout = getEnvDuration("DETECTION_SERVER_CHECK_TIMEOUT", cfg.Detection.ServerCheckTimeout)
	cfg.Detection.OfflineThreshold = getEnvInt("DETECTION_OFFLINE_THRESHOLD", cfg.Detection.OfflineThreshold)
	cfg.Detection.RecoveryThreshold = getEnvInt("DETECTION_RECOVERY_THRESHOLD", cfg.Detection.RecoveryThreshold)
	cfg.Detection.StatusChangeDebounce = getEnvDuration("DETECTION_STATUS_CHANGE_DEBOUNCE", cfg.Detection.StatusChangeDebounce)
	cfg.Detection.EnableBrowserAPIMonitoring = getEnvBool("DETECTION_ENABLE_BROWSER_API_MONITORING", cfg.Detection.EnableBrowserAPIMonitoring)
	cfg.Detection.EnableServiceMonitoring = getEnvBool("DETECTION_ENABLE_SERVICE_MONITORING", cfg.Detection.EnableServiceMonitoring)
	cfg.Detection.EnableQualityAssessment = getEnvBool("DETECTION_ENABLE_QUALITY_ASSESSMENT", cfg.Detection.EnableQualityAssessment)
	cfg.Detection.NetworkProbeURL = getEnvString("DETECTION_NETWORK_PROBE_URL", cfg.Detection.NetworkProbeURL)
	cfg.Detection.ServiceHealthEndpoint = getEnvString("DETECTION_SERVICE_HEALTH_ENDPOINT", cfg.Detection.ServiceHealthEndpoint)
	cfg.Detection.MaxHistorySize = getEnvInt("DETECTION_MAX_HISTORY_SIZE", cfg.Detection.MaxHistorySize)

	cfg.Degradation.LowConfidenceThreshold = getEnvInt("DEGRADATION_LOW_CONFIDENCE_THRESHOLD", cfg.Degradation.LowConfidenceThreshold)
	cfg.Degradation.WriteFailureThreshold = getEnvInt("DEGRADATION_WRITE_FAILURE_THRESHOLD", cfg.Degradation.WriteFailureThreshold)
	cfg.Degradation.TransitionHistorySize = getEnvInt("DEGRADATION_TRANSITION_HISTORY_SIZE", cfg.Degradation.TransitionHistorySize)

	cfg.Fallback.MockDataCacheSize = getEnvInt("FALLBACK_MOCK_DATA_CACHE_SIZE", cfg.Fallback.MockDataCacheSize)
	cfg.Fallback.MockDataTTL = getEnvDuration("FALLBACK_MOCK_DATA_TTL", cfg.Fallback.MockDataTTL)
	cfg.Fallback.EnableJournal = getEnvBool("FALLBACK_ENABLE_JOURNAL", cfg.Fallback.EnableJournal)

	cfg.Redis.Host = getEnvString("REDIS_HOST", cfg.Redis.Host)
	cfg.Redis.Port = getEnvInt("REDIS_PORT", cfg.Redis.Port)
	cfg.Redis.Password = getEnvString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", cfg.Redis.PoolSize)

	cfg.Logging.Level = getEnvString("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvString("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Output = getEnvString("LOG_OUTPUT", cfg.Logging.Output)

	cfg.Metrics.Enabled = getEnvBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.JaegerEndpoint = getEnvString("TRACING_JAEGER_ENDPOINT", cfg.Tracing.JaegerEndpoint)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Partial carries sparse detection overrides; nil fields keep the current
// value. This is the shape accepted by Detector.UpdateConfig.
type Partial struct {
	CheckInterval              *time.Duration `json:"check_interval,omitempty"`
	ServerCheckTimeout         *time.Duration `json:"server_check_timeout,omitempty"`
	OfflineThreshold           *int           `json:"offline_threshold,omitempty"`
	RecoveryThreshold          *int           `json:"recovery_threshold,omitempty"`
	StatusChangeDebounce       *time.Duration `json:"status_change_debounce,omitempty"`
	EnableBrowserAPIMonitoring *bool          `json:"enable_browser_api_monitoring,omitempty"`
	EnableServiceMonitoring    *bool          `json:"enable_service_monitoring,omitempty"`
	EnableQualityAssessment    *bool          `json:"enable_quality_assessment,omitempty"`
	NetworkProbeURL            *string        `json:"network_probe_url,omitempty"`
	ServiceHealthEndpoint      *string        `json:"service_health_endpoint,omitempty"`
	MaxHistorySize             *int           `json:"max_history_size,omitempty"`
	MockDataCacheSize          *int           `json:"mock_data_cache_size,omitempty"`
	MockDataTTL                *time.Duration `json:"mock_data_ttl,omitempty"`
}

// Resolve applies a sparse override on top of the receiver and returns the
// validated result. The receiver is not mutated.
func (c *Config) Resolve(partial *Partial) (*Config, error) {
	resolved := *c
	if partial == nil {
		return &resolved, nil
	}

	if partial.CheckInterval != nil {
		resolved.Detection.CheckInterval = *partial.CheckInterval
	}
	if partial.ServerCheckTimeout != nil {
		resolved.Detection.ServerCheckTimeout = *partial.ServerCheckTimeout
	}
	if partial.OfflineThreshold != nil {
		resolved.Detection.OfflineThreshold = *partial.OfflineThreshold
	}
	if partial.RecoveryThreshold != nil {
		resolved.Detection.RecoveryThreshold = *partial.RecoveryThreshold
	}
	if partial.StatusChangeDebounce != nil {
		resolved.Detection.StatusChangeDebounce = *partial.StatusChangeDebounce
	}
	if partial.EnableBrowserAPIMonitoring != nil {
		resolved.Detection.EnableBrowserAPIMonitoring = *partial.EnableBrowserAPIMonitoring
	}
	if partial.EnableServiceMonitoring != nil {
		resolved.Detection.EnableServiceMonitoring = *partial.EnableServiceMonitoring
	}
	if partial.EnableQualityAssessment != nil {
		resolved.Detection.EnableQualityAssessment = *partial.EnableQualityAssessment
	}
	if partial.NetworkProbeURL != nil {
		resolved.Detection.NetworkProbeURL = *partial.NetworkProbeURL
	}
	if partial.ServiceHealthEndpoint != nil {
		resolved.Detection.ServiceHealthEndpoint = *partial.ServiceHealthEndpoint
	}
	if partial.MaxHistorySize != nil {
		resolved.Detection.MaxHistorySize = *partial.MaxHistorySize
	}
	if partial.MockDataCacheSize != nil {
		resolved.Fallback.MockDataCacheSize = *partial.MockDataCacheSize
	}
	if partial.MockDataTTL != nil {
		resolved.Fallback.MockDataTTL = *partial.MockDataTTL
	}

	if err := resolved.Validate(); err != nil {
		return nil, err
	}

	return &resolved, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Detection.CheckInterval <= 0 {
		return fmt.Errorf("check interval must be positive")
	}
	if c.Detection.ServerCheckTimeout <= 0 {
		return fmt.Errorf("server check timeout must be positive")
	}
	if c.Detection.OfflineThreshold < 1 {
		return fmt.Errorf("offline threshold must be at least 1")
	}
	if c.Detection.RecoveryThreshold < 1 {
		return fmt.Errorf("recovery threshold must be at least 1")
	}
	if c.Detection.StatusChangeDebounce < 0 {
		return fmt.Errorf("status change debounce cannot be negative")
	}
	if c.Detection.MaxHistorySize < c.Detection.OfflineThreshold ||
		c.Detection.MaxHistorySize < c.Detection.RecoveryThreshold {
		return fmt.Errorf("max history size must cover both thresholds")
	}
	if c.Fallback.MockDataCacheSize < 1 {
		return fmt.Errorf("mock data cache size must be at least 1")
	}
	if c.Fallback.MockDataTTL < 0 {
		return fmt.Errorf("mock data TTL cannot be negative")
	}
	return nil
}

// RedisURL returns the Redis connection URL for the journal
func (c *Config) RedisURL() string {
	if c.Redis.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d",
			c.Redis.Password,
			c.Redis.Host,
			c.Redis.Port,
			c.Redis.DB,
		)
	}
	return fmt.Sprintf("redis://%s:%d/%d",
		c.Redis.Host,
		c.Redis.Port,
		c.Redis.DB,
	)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
