// Package config provides configuration management and environment variable handling for the application
package config

import (
	"fmt"
	"log"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	JWT        JWTConfig        `json:"jwt"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Deployment DeploymentConfig `json:"deployment"`
	Engine     EngineConfig     `json:"engine"`
	Houseparty HousepartyConfig `json:"houseparty"`
	Reports    ReportsConfig    `json:"reports"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Admin      AdminConfig      `json:"admin"`
	Cron       CronConfig       `json:"cron"`
	Venues     VenuesConfig     `json:"venues"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
	AutoMigrate     bool          `json:"auto_migrate"`
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	BodyLimit         int           `json:"body_limit"`
	EnableMetrics     bool          `json:"enable_metrics"`
	TrustedProxies    []string      `json:"trusted_proxies"`
	ProxyHeader       string        `json:"proxy_header"`
	EnableCompression bool          `json:"enable_compression"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	SubmitRateLimit int           `json:"submit_rate_limit"` // requests per window on write endpoints
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per window
	RateLimitWindow time.Duration `json:"rate_limit_window"`

	// Content Security
	CSPPolicy           string `json:"csp_policy"`
	XFrameOptions       string `json:"x_frame_options"`
	XContentTypeOptions string `json:"x_content_type_options"`
	ReferrerPolicy      string `json:"referrer_policy"`
	HSTSMaxAge          int    `json:"hsts_max_age"`
}

type JWTConfig struct {
	SecretKey      string        `json:"secret_key"`
	PrivateKey     string        `json:"private_key"`  // RSA private key in PEM format
	PublicKey      string        `json:"public_key"`   // RSA public key in PEM format
	UseRSAKeys     bool          `json:"use_rsa_keys"` // Whether to use RSA keys instead of secret key
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	Issuer         string        `json:"issuer"`
	Audience       string        `json:"audience"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // json, text
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled           bool          `json:"enabled"`
	RedisURL          string        `json:"redis_url"`
	RedisDB           int           `json:"redis_db"`
	RedisPrefix       string        `json:"redis_prefix"`
	DefaultTTL        time.Duration `json:"default_ttl"`
	SummaryTTL        time.Duration `json:"summary_ttl"`
	LiveTallyTTL      time.Duration `json:"live_tally_ttl"`
	ChangeFeedChannel string        `json:"change_feed_channel"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// EngineConfig tunes night keys, vote weighting and prediction blending
type EngineConfig struct {
	Timezone     string `json:"timezone"`
	RolloverHour int    `json:"rollover_hour"`

	IntentYesFactor   float64 `json:"intent_yes_factor"`
	IntentMaybeFactor float64 `json:"intent_maybe_factor"`

	NearMeters            float64 `json:"near_meters"`
	MidMeters             float64 `json:"mid_meters"`
	NearFactor            float64 `json:"near_factor"`
	MidFactor             float64 `json:"mid_factor"`
	FarFactor             float64 `json:"far_factor"`
	DefaultDistanceMeters float64 `json:"default_distance_meters"`

	FreshMinutes float64 `json:"fresh_minutes"`
	StaleMinutes float64 `json:"stale_minutes"`
	FreshFactor  float64 `json:"fresh_factor"`
	StaleFactor  float64 `json:"stale_factor"`
	OldFactor    float64 `json:"old_factor"`

	SameWeekdayWeeks  int     `json:"same_weekday_weeks"`
	RecentDays        int     `json:"recent_days"`
	SameWeekdayWeight float64 `json:"same_weekday_weight"`
	RecentWeight      float64 `json:"recent_weight"`
	TopLimit          int     `json:"top_limit"`

	LiveScoreMultiplier float64 `json:"live_score_multiplier"`
	FanOutLimit         int     `json:"fan_out_limit"`
}

// HousepartyConfig tunes the submission guard
type HousepartyConfig struct {
	CenterLat        float64 `json:"center_lat"`
	CenterLng        float64 `json:"center_lng"`
	RadiusMeters     float64 `json:"radius_meters"`
	QuotaPerNight    int     `json:"quota_per_night"`
	DedupMeters      float64 `json:"dedup_meters"`
	TrustThreshold   int     `json:"trust_threshold"`
	TitleMaxLength   int     `json:"title_max_length"`
	AddressMaxLength int     `json:"address_max_length"`
	NotesMaxLength   int     `json:"notes_max_length"`
	RecentNights     int     `json:"recent_nights"`
}

// ReportsConfig tunes report aggregation
type ReportsConfig struct {
	ReviewWindow       time.Duration `json:"review_window"`
	Threshold          int           `json:"threshold"`
	AdminWindowHours   int           `json:"admin_window_hours"`
	ReasonMaxLength    int           `json:"reason_max_length"`
	SweepOnEveryReport bool          `json:"sweep_on_every_report"`
}

// SchedulerConfig drives background jobs and the live recompute pipeline
type SchedulerConfig struct {
	Enabled           bool          `json:"enabled"`
	Timezone          string        `json:"timezone"`
	GenerateSpec      string        `json:"generate_spec"`
	SweepSpec         string        `json:"sweep_spec"`
	BackfillMaxNights int           `json:"backfill_max_nights"`
	JobTimeout        time.Duration `json:"job_timeout"`
	QueueSize         int           `json:"queue_size"`
	RecomputeDebounce time.Duration `json:"recompute_debounce"`
}

type AdminConfig struct {
	Emails []string `json:"emails"`
	UIDs   []string `json:"uids"`
}

type CronConfig struct {
	Secret string `json:"-"`
}

type VenuesConfig struct {
	DirectoryPath string `json:"directory_path"`
}

// IsProduction reports whether the service runs in the production environment
func (c *ProductionConfig) IsProduction() bool {
	return strings.EqualFold(c.Deployment.Environment, "production")
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Variables already present in the environment win over .env
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	de := DefaultEngineConfig()
	dh := DefaultHousepartyConfig()
	dr := DefaultReportsConfig()
	ds := DefaultSchedulerConfig()

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "nightpulse"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:    getEnvDuration("SERVER_REQUEST_TIMEOUT", 15*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 1*1024*1024), // 1MB
			EnableMetrics:     getEnvBool("SERVER_ENABLE_METRICS", true),
			TrustedProxies:    getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:       getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
		},
		Security: SecurityConfig{
			AllowedOrigins:      getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:      getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:      getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Cron-Key"}),
			AllowCredentials:    getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			CORSMaxAge:          getEnvInt("CORS_MAX_AGE", 86400),
			SubmitRateLimit:     getEnvInt("SUBMIT_RATE_LIMIT", 30),
			GlobalRateLimit:     getEnvInt("GLOBAL_RATE_LIMIT", 600),
			RateLimitWindow:     getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			CSPPolicy:           getEnvString("CSP_POLICY", "default-src 'self'"),
			XFrameOptions:       getEnvString("X_FRAME_OPTIONS", "DENY"),
			XContentTypeOptions: getEnvString("X_CONTENT_TYPE_OPTIONS", "nosniff"),
			ReferrerPolicy:      getEnvString("REFERRER_POLICY", "strict-origin-when-cross-origin"),
			HSTSMaxAge:          getEnvInt("HSTS_MAX_AGE", 31536000),
		},
		JWT: JWTConfig{
			SecretKey:      getEnvString("JWT_SECRET_KEY", ""),
			PrivateKey:     getEnvString("JWT_PRIVATE_KEY", ""),
			PublicKey:      getEnvString("JWT_PUBLIC_KEY", ""),
			UseRSAKeys:     getEnvBool("JWT_USE_RSA_KEYS", false),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
			Issuer:         getEnvString("JWT_ISSUER", ""),
			Audience:       getEnvString("JWT_AUDIENCE", ""),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Format:     getEnvString("LOG_FORMAT", "json"),
			Output:     getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:   getEnvString("LOG_FILE_PATH", "/var/log/nightpulse/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:           getEnvBool("CACHE_ENABLED", true),
			RedisURL:          getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:           getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:       getEnvString("CACHE_REDIS_PREFIX", "nightpulse:"),
			DefaultTTL:        getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
			SummaryTTL:        getEnvDuration("CACHE_SUMMARY_TTL", 6*time.Hour),
			LiveTallyTTL:      getEnvDuration("CACHE_LIVE_TALLY_TTL", 10*time.Minute),
			ChangeFeedChannel: getEnvString("CACHE_CHANGE_FEED_CHANNEL", "votes:changed"),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
		Engine: EngineConfig{
			Timezone:              getEnvString("ENGINE_TIMEZONE", de.Timezone),
			RolloverHour:          getEnvInt("ENGINE_ROLLOVER_HOUR", de.RolloverHour),
			IntentYesFactor:       getEnvFloat("ENGINE_INTENT_YES_FACTOR", de.IntentYesFactor),
			IntentMaybeFactor:     getEnvFloat("ENGINE_INTENT_MAYBE_FACTOR", de.IntentMaybeFactor),
			NearMeters:            getEnvFloat("ENGINE_NEAR_METERS", de.NearMeters),
			MidMeters:             getEnvFloat("ENGINE_MID_METERS", de.MidMeters),
			NearFactor:            getEnvFloat("ENGINE_NEAR_FACTOR", de.NearFactor),
			MidFactor:             getEnvFloat("ENGINE_MID_FACTOR", de.MidFactor),
			FarFactor:             getEnvFloat("ENGINE_FAR_FACTOR", de.FarFactor),
			DefaultDistanceMeters: getEnvFloat("ENGINE_DEFAULT_DISTANCE_METERS", de.DefaultDistanceMeters),
			FreshMinutes:          getEnvFloat("ENGINE_FRESH_MINUTES", de.FreshMinutes),
			StaleMinutes:          getEnvFloat("ENGINE_STALE_MINUTES", de.StaleMinutes),
			FreshFactor:           getEnvFloat("ENGINE_FRESH_FACTOR", de.FreshFactor),
			StaleFactor:           getEnvFloat("ENGINE_STALE_FACTOR", de.StaleFactor),
			OldFactor:             getEnvFloat("ENGINE_OLD_FACTOR", de.OldFactor),
			SameWeekdayWeeks:      getEnvInt("ENGINE_SAME_WEEKDAY_WEEKS", de.SameWeekdayWeeks),
			RecentDays:            getEnvInt("ENGINE_RECENT_DAYS", de.RecentDays),
			SameWeekdayWeight:     getEnvFloat("ENGINE_SAME_WEEKDAY_WEIGHT", de.SameWeekdayWeight),
			RecentWeight:          getEnvFloat("ENGINE_RECENT_WEIGHT", de.RecentWeight),
			TopLimit:              getEnvInt("ENGINE_TOP_LIMIT", de.TopLimit),
			LiveScoreMultiplier:   getEnvFloat("ENGINE_LIVE_SCORE_MULTIPLIER", de.LiveScoreMultiplier),
			FanOutLimit:           getEnvInt("ENGINE_FAN_OUT_LIMIT", de.FanOutLimit),
		},
		Houseparty: HousepartyConfig{
			CenterLat:        getEnvFloat("HOUSEPARTY_CENTER_LAT", dh.CenterLat),
			CenterLng:        getEnvFloat("HOUSEPARTY_CENTER_LNG", dh.CenterLng),
			RadiusMeters:     getEnvFloat("HOUSEPARTY_RADIUS_METERS", dh.RadiusMeters),
			QuotaPerNight:    getEnvInt("HOUSEPARTY_QUOTA_PER_NIGHT", dh.QuotaPerNight),
			DedupMeters:      getEnvFloat("HOUSEPARTY_DEDUP_METERS", dh.DedupMeters),
			TrustThreshold:   getEnvInt("HOUSEPARTY_TRUST_THRESHOLD", dh.TrustThreshold),
			TitleMaxLength:   getEnvInt("HOUSEPARTY_TITLE_MAX_LENGTH", dh.TitleMaxLength),
			AddressMaxLength: getEnvInt("HOUSEPARTY_ADDRESS_MAX_LENGTH", dh.AddressMaxLength),
			NotesMaxLength:   getEnvInt("HOUSEPARTY_NOTES_MAX_LENGTH", dh.NotesMaxLength),
			RecentNights:     getEnvInt("HOUSEPARTY_RECENT_NIGHTS", dh.RecentNights),
		},
		Reports: ReportsConfig{
			ReviewWindow:       getEnvDuration("REPORTS_REVIEW_WINDOW", dr.ReviewWindow),
			Threshold:          getEnvInt("REPORTS_THRESHOLD", dr.Threshold),
			AdminWindowHours:   getEnvInt("REPORTS_ADMIN_WINDOW_HOURS", dr.AdminWindowHours),
			ReasonMaxLength:    getEnvInt("REPORTS_REASON_MAX_LENGTH", dr.ReasonMaxLength),
			SweepOnEveryReport: getEnvBool("REPORTS_SWEEP_ON_EVERY_REPORT", dr.SweepOnEveryReport),
		},
		Scheduler: SchedulerConfig{
			Enabled:           getEnvBool("SCHEDULER_ENABLED", ds.Enabled),
			Timezone:          getEnvString("SCHEDULER_TIMEZONE", ds.Timezone),
			GenerateSpec:      getEnvString("SCHEDULER_GENERATE_SPEC", ds.GenerateSpec),
			SweepSpec:         getEnvString("SCHEDULER_SWEEP_SPEC", ds.SweepSpec),
			BackfillMaxNights: getEnvInt("SCHEDULER_BACKFILL_MAX_NIGHTS", ds.BackfillMaxNights),
			JobTimeout:        getEnvDuration("SCHEDULER_JOB_TIMEOUT", ds.JobTimeout),
			QueueSize:         getEnvInt("SCHEDULER_QUEUE_SIZE", ds.QueueSize),
			RecomputeDebounce: getEnvDuration("SCHEDULER_RECOMPUTE_DEBOUNCE", ds.RecomputeDebounce),
		},
		Admin: AdminConfig{
			Emails: lowerAll(getEnvStringSlice("ADMIN_EMAILS", []string{})),
			UIDs:   getEnvStringSlice("ADMIN_UIDS", []string{}),
		},
		Cron: CronConfig{
			Secret: getEnvString("CRON_SECRET", ""),
		},
		Venues: VenuesConfig{
			DirectoryPath: getEnvString("VENUES_DIRECTORY_PATH", ""),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("configuration loaded: env=%s version=%s", cfg.Deployment.Environment, cfg.Deployment.Version)
	return cfg, nil
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
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(v))
	}
	return out
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}

	// Validate JWT configuration
	if cfg.JWT.UseRSAKeys {
		if cfg.JWT.PublicKey == "" {
			errors = append(errors, "JWT_PUBLIC_KEY is required when JWT_USE_RSA_KEYS is set")
		}
	} else if len(cfg.JWT.SecretKey) < 32 {
		errors = append(errors, "JWT_SECRET_KEY must be at least 32 characters long")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.RequestTimeout <= 0 {
		errors = append(errors, "SERVER_REQUEST_TIMEOUT must be positive")
	}

	// Validate logging configuration
	switch cfg.Logging.Output {
	case "stdout", "file", "both":
	default:
		errors = append(errors, "LOG_OUTPUT must be one of stdout, file, both")
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errors = append(errors, "LOG_FILE_PATH is required when logging to a file")
	}

	if len(cfg.Cron.Secret) < 16 {
		errors = append(errors, "CRON_SECRET must be at least 16 characters long")
	}

	errors = append(errors, cfg.Engine.Validate()...)
	errors = append(errors, cfg.Houseparty.Validate()...)
	errors = append(errors, cfg.Reports.Validate()...)
	errors = append(errors, cfg.Scheduler.Validate()...)

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Validate checks engine tuning. Factors must lie in (0, 1] and band
// thresholds must ascend.
func (c EngineConfig) Validate() []string {
	var errors []string

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("ENGINE_TIMEZONE %q is not a known location", c.Timezone))
	}
	if c.RolloverHour < 0 || c.RolloverHour > 23 {
		errors = append(errors, "ENGINE_ROLLOVER_HOUR must be between 0 and 23")
	}

	factors := map[string]float64{
		"ENGINE_INTENT_YES_FACTOR":   c.IntentYesFactor,
		"ENGINE_INTENT_MAYBE_FACTOR": c.IntentMaybeFactor,
		"ENGINE_NEAR_FACTOR":         c.NearFactor,
		"ENGINE_MID_FACTOR":          c.MidFactor,
		"ENGINE_FAR_FACTOR":          c.FarFactor,
		"ENGINE_FRESH_FACTOR":        c.FreshFactor,
		"ENGINE_STALE_FACTOR":        c.StaleFactor,
		"ENGINE_OLD_FACTOR":          c.OldFactor,
	}
	for _, name := range slices.Sorted(maps.Keys(factors)) {
		if v := factors[name]; v <= 0 || v > 1 {
			errors = append(errors, fmt.Sprintf("%s must be in (0, 1]", name))
		}
	}
	if c.IntentMaybeFactor > c.IntentYesFactor {
		errors = append(errors, "ENGINE_INTENT_MAYBE_FACTOR must not exceed ENGINE_INTENT_YES_FACTOR")
	}
	if c.NearMeters <= 0 || c.MidMeters <= c.NearMeters {
		errors = append(errors, "ENGINE_NEAR_METERS and ENGINE_MID_METERS must be positive and ascending")
	}
	if c.FreshMinutes <= 0 || c.StaleMinutes <= c.FreshMinutes {
		errors = append(errors, "ENGINE_FRESH_MINUTES and ENGINE_STALE_MINUTES must be positive and ascending")
	}
	if c.DefaultDistanceMeters < 0 {
		errors = append(errors, "ENGINE_DEFAULT_DISTANCE_METERS must not be negative")
	}
	if c.SameWeekdayWeeks < 1 || c.RecentDays < 1 {
		errors = append(errors, "ENGINE_SAME_WEEKDAY_WEEKS and ENGINE_RECENT_DAYS must be positive")
	}
	if c.SameWeekdayWeight < 0 || c.RecentWeight < 0 || c.SameWeekdayWeight+c.RecentWeight <= 0 {
		errors = append(errors, "blend weights must be non-negative with a positive sum")
	}
	if c.TopLimit < 1 {
		errors = append(errors, "ENGINE_TOP_LIMIT must be positive")
	}
	if c.LiveScoreMultiplier <= 0 {
		errors = append(errors, "ENGINE_LIVE_SCORE_MULTIPLIER must be positive")
	}
	if c.FanOutLimit < 1 {
		errors = append(errors, "ENGINE_FAN_OUT_LIMIT must be positive")
	}
	return errors
}

// Validate checks the submission guard settings
func (c HousepartyConfig) Validate() []string {
	var errors []string
	if c.CenterLat < -90 || c.CenterLat > 90 || c.CenterLng < -180 || c.CenterLng > 180 {
		errors = append(errors, "HOUSEPARTY_CENTER_LAT/LNG must be valid coordinates")
	}
	if c.RadiusMeters <= 0 {
		errors = append(errors, "HOUSEPARTY_RADIUS_METERS must be positive")
	}
	if c.QuotaPerNight < 1 {
		errors = append(errors, "HOUSEPARTY_QUOTA_PER_NIGHT must be positive")
	}
	if c.DedupMeters < 0 {
		errors = append(errors, "HOUSEPARTY_DEDUP_METERS must not be negative")
	}
	if c.TitleMaxLength < 1 || c.AddressMaxLength < 1 || c.NotesMaxLength < 1 {
		errors = append(errors, "houseparty max lengths must be positive")
	}
	if c.RecentNights < 1 {
		errors = append(errors, "HOUSEPARTY_RECENT_NIGHTS must be positive")
	}
	return errors
}

// Validate checks the report aggregation settings
func (c ReportsConfig) Validate() []string {
	var errors []string
	if c.ReviewWindow <= 0 {
		errors = append(errors, "REPORTS_REVIEW_WINDOW must be positive")
	}
	if c.Threshold < 1 {
		errors = append(errors, "REPORTS_THRESHOLD must be positive")
	}
	if c.AdminWindowHours < 1 {
		errors = append(errors, "REPORTS_ADMIN_WINDOW_HOURS must be positive")
	}
	if c.ReasonMaxLength < 1 {
		errors = append(errors, "REPORTS_REASON_MAX_LENGTH must be positive")
	}
	return errors
}

// Validate checks the scheduler settings
func (c SchedulerConfig) Validate() []string {
	var errors []string
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("SCHEDULER_TIMEZONE %q is not a known location", c.Timezone))
	}
	if c.BackfillMaxNights < 1 || c.BackfillMaxNights > 60 {
		errors = append(errors, "SCHEDULER_BACKFILL_MAX_NIGHTS must be between 1 and 60")
	}
	if c.JobTimeout <= 0 {
		errors = append(errors, "SCHEDULER_JOB_TIMEOUT must be positive")
	}
	if c.QueueSize < 1 {
		errors = append(errors, "SCHEDULER_QUEUE_SIZE must be positive")
	}
	if c.RecomputeDebounce < 0 {
		errors = append(errors, "SCHEDULER_RECOMPUTE_DEBOUNCE must not be negative")
	}
	return errors
}
