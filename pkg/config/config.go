package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers for the attendance record store.
const (
	StoreDriverPostgres  = "postgres"
	StoreDriverFirestore = "firestore"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Store      StoreConfig
	Attendance AttendanceConfig
	Chat       ChatConfig
	RateLimit  RateLimitConfig
	Admin      AdminConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StoreConfig selects where attendance records and the window live.
type StoreConfig struct {
	Driver              string
	FirestoreProjectID  string
	FirestoreCredsFile  string
	FirestoreCollection string
}

// AttendanceConfig tunes date handling and caching of attendance views.
type AttendanceConfig struct {
	Timezone           string
	CacheEnabled       bool
	CacheTTL           time.Duration
	DraftTTL           time.Duration
	AttentionThreshold int
}

// Location resolves the configured timezone, falling back to time.Local.
func (c AttendanceConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ChatConfig controls message fan-out and the websocket stream.
type ChatConfig struct {
	MaxMessageLength int
	PublishWorkers   int
	PublishRetries   int
	AllowedOrigins   []string
}

type RateLimitConfig struct {
	AuthPerMinute int
	Burst         int
}

// AdminConfig seeds the first administrator when both values are present.
type AdminConfig struct {
	Email       string
	Password    string
	DisplayName string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER")))
	if driver != StoreDriverFirestore {
		driver = StoreDriverPostgres
	}
	cfg.Store = StoreConfig{
		Driver:              driver,
		FirestoreProjectID:  v.GetString("FIRESTORE_PROJECT_ID"),
		FirestoreCredsFile:  v.GetString("FIRESTORE_CREDENTIALS_FILE"),
		FirestoreCollection: v.GetString("FIRESTORE_ATTENDANCE_COLLECTION"),
	}

	threshold := v.GetInt("ATTENDANCE_ATTENTION_THRESHOLD")
	if threshold <= 0 || threshold > 100 {
		threshold = 80
	}
	cfg.Attendance = AttendanceConfig{
		Timezone:           v.GetString("ATTENDANCE_TIMEZONE"),
		CacheEnabled:       v.GetBool("ATTENDANCE_CACHE_ENABLED"),
		CacheTTL:           parseDuration(v.GetString("ATTENDANCE_CACHE_TTL"), 2*time.Minute),
		DraftTTL:           parseDuration(v.GetString("ATTENDANCE_DRAFT_TTL"), 36*time.Hour),
		AttentionThreshold: threshold,
	}

	maxLen := v.GetInt("CHAT_MAX_MESSAGE_LENGTH")
	if maxLen <= 0 {
		maxLen = 2000
	}
	chatOrigins := splitAndTrim(v.GetString("CHAT_ALLOWED_ORIGINS"))
	if len(chatOrigins) == 0 {
		chatOrigins = cfg.CORS.AllowedOrigins
	}
	cfg.Chat = ChatConfig{
		MaxMessageLength: maxLen,
		PublishWorkers:   v.GetInt("CHAT_PUBLISH_WORKERS"),
		PublishRetries:   v.GetInt("CHAT_PUBLISH_RETRIES"),
		AllowedOrigins:   chatOrigins,
	}

	cfg.RateLimit = RateLimitConfig{
		AuthPerMinute: v.GetInt("RATE_LIMIT_AUTH_PER_MINUTE"),
		Burst:         v.GetInt("RATE_LIMIT_AUTH_BURST"),
	}

	cfg.Admin = AdminConfig{
		Email:       strings.TrimSpace(v.GetString("ADMIN_EMAIL")),
		Password:    v.GetString("ADMIN_PASSWORD"),
		DisplayName: v.GetString("ADMIN_DISPLAY_NAME"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "mentor_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("FIRESTORE_PROJECT_ID", "")
	v.SetDefault("FIRESTORE_CREDENTIALS_FILE", "")
	v.SetDefault("FIRESTORE_ATTENDANCE_COLLECTION", "attendance")

	v.SetDefault("ATTENDANCE_TIMEZONE", "")
	v.SetDefault("ATTENDANCE_CACHE_ENABLED", true)
	v.SetDefault("ATTENDANCE_CACHE_TTL", "2m")
	v.SetDefault("ATTENDANCE_DRAFT_TTL", "36h")
	v.SetDefault("ATTENDANCE_ATTENTION_THRESHOLD", 80)

	v.SetDefault("CHAT_MAX_MESSAGE_LENGTH", 2000)
	v.SetDefault("CHAT_PUBLISH_WORKERS", 2)
	v.SetDefault("CHAT_PUBLISH_RETRIES", 3)
	v.SetDefault("CHAT_ALLOWED_ORIGINS", "")

	v.SetDefault("RATE_LIMIT_AUTH_PER_MINUTE", 30)
	v.SetDefault("RATE_LIMIT_AUTH_BURST", 10)

	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("ADMIN_DISPLAY_NAME", "Administrator")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
