package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DocStoreSQLite   = "sqlite"
	DocStorePostgres = "postgres"
)

type Config struct {
	Port          string
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string

	DocStore    string
	PostgresDSN string

	NATSURL           string
	NATSSubjectPrefix string

	CASRetries int

	LogLevel  string
	LogPretty bool
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE.
type fileConfig struct {
	Port          string   `yaml:"port"`
	DBPath        string   `yaml:"db_path"`
	JWTSecret     string   `yaml:"jwt_secret"`
	TokenTTLHours int      `yaml:"token_ttl_hours"`
	CORSOrigins   []string `yaml:"cors_origins"`
	MigrationsDir string   `yaml:"migrations_dir"`
	DocStore      string   `yaml:"doc_store"`
	PostgresDSN   string   `yaml:"postgres_dsn"`
	NATS          struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
	CASRetries int    `yaml:"cas_retries"`
	LogLevel   string `yaml:"log_level"`
	LogPretty  *bool  `yaml:"log_pretty"`
}

// Load reads .env (if present), then the CONFIG_FILE overlay, then the
// environment. Environment variables win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	file := fileConfig{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		file = *loaded
	}

	tokenTTLHours := file.TokenTTLHours
	if tokenTTLHours <= 0 {
		tokenTTLHours = 72
	}
	casRetries := file.CASRetries
	if casRetries <= 0 {
		casRetries = 3
	}
	logPretty := true
	if file.LogPretty != nil {
		logPretty = *file.LogPretty
	}
	corsOrigins := file.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}

	cfg := Config{
		Port:              getEnv("PORT", orDefault(file.Port, "8080")),
		DBPath:            getEnv("DB_PATH", orDefault(file.DBPath, "./data/timer.db")),
		JWTSecret:         getEnv("JWT_SECRET", orDefault(file.JWTSecret, "change-this-secret")),
		TokenTTL:          time.Duration(getEnvInt("TOKEN_TTL_HOURS", tokenTTLHours)) * time.Hour,
		CORSOrigins:       getEnvList("CORS_ORIGINS", corsOrigins),
		MigrationsDir:     getEnv("MIGRATIONS_DIR", file.MigrationsDir),
		DocStore:          strings.ToLower(getEnv("DOC_STORE", orDefault(file.DocStore, DocStoreSQLite))),
		PostgresDSN:       getEnv("POSTGRES_DSN", file.PostgresDSN),
		NATSURL:           getEnv("NATS_URL", file.NATS.URL),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", orDefault(file.NATS.SubjectPrefix, "timer.documents")),
		CASRetries:        getEnvInt("TIMER_CAS_RETRIES", casRetries),
		LogLevel:          getEnv("LOG_LEVEL", orDefault(file.LogLevel, "info")),
		LogPretty:         getEnvBool("LOG_PRETTY", logPretty),
	}

	if cfg.DocStore != DocStoreSQLite && cfg.DocStore != DocStorePostgres {
		return Config{}, fmt.Errorf("unsupported DOC_STORE %q", cfg.DocStore)
	}
	if cfg.DocStore == DocStorePostgres && cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("DOC_STORE=postgres requires POSTGRES_DSN")
	}
	return cfg, nil
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &file, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
