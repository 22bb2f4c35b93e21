package config

import (
	"encoding/json"
	"time"
)

// Config represents the complete configuration of the cleaning step.
type Config struct {
	Runtime  RuntimeConfig  `koanf:"runtime"  validate:"required"`
	Store    StoreConfig    `koanf:"store"    validate:"required"`
	S3       S3Config       `koanf:"s3"`
	Postgres PostgresConfig `koanf:"postgres"`
	Step     StepConfig     `koanf:"step"     validate:"required"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// RuntimeConfig contains process level behavior.
type RuntimeConfig struct {
	LogLevel  string `koanf:"log_level"  validate:"oneof=debug info warn error disabled" env:"RUNTIME_LOG_LEVEL"`
	LogJSON   bool   `koanf:"log_json"                                                   env:"RUNTIME_LOG_JSON"`
	LogSource bool   `koanf:"log_source"                                                 env:"RUNTIME_LOG_SOURCE"`
}

// StoreConfig selects and configures the artifact store.
type StoreConfig struct {
	Backend       string        `koanf:"backend"        validate:"oneof=local s3"        env:"STORE_BACKEND"`
	Registry      string        `koanf:"registry"       validate:"oneof=sqlite postgres" env:"STORE_REGISTRY"`
	Root          string        `koanf:"root"           validate:"required"              env:"STORE_ROOT"`
	RegistryPath  string        `koanf:"registry_path"  validate:"required"              env:"STORE_REGISTRY_PATH"`
	CacheDir      string        `koanf:"cache_dir"      validate:"required"              env:"STORE_CACHE_DIR"`
	Entity        string        `koanf:"entity"                                          env:"STORE_ENTITY"`
	Project       string        `koanf:"project"                                         env:"STORE_PROJECT"`
	UploadTimeout time.Duration `koanf:"upload_timeout" validate:"gt=0"                  env:"STORE_UPLOAD_TIMEOUT"`
	PollInterval  time.Duration `koanf:"poll_interval"  validate:"gt=0"                  env:"STORE_POLL_INTERVAL"`
}

// S3Config contains S3-compatible object storage settings.
type S3Config struct {
	Endpoint     string          `koanf:"endpoint"       env:"S3_ENDPOINT"`
	Region       string          `koanf:"region"         env:"S3_REGION"`
	Bucket       string          `koanf:"bucket"         env:"S3_BUCKET"`
	Prefix       string          `koanf:"prefix"         env:"S3_PREFIX"`
	AccessKey    SensitiveString `koanf:"access_key"     env:"S3_ACCESS_KEY"     sensitive:"true"`
	SecretKey    SensitiveString `koanf:"secret_key"     env:"S3_SECRET_KEY"     sensitive:"true"`
	UsePathStyle bool            `koanf:"use_path_style" env:"S3_USE_PATH_STYLE"`
}

// PostgresConfig configures the PostgreSQL registry driver.
type PostgresConfig struct {
	ConnString     SensitiveString `koanf:"conn_string"                      env:"POSTGRES_CONN_STRING"     sensitive:"true"`
	MaxConns       int             `koanf:"max_conns"       validate:"gte=0" env:"POSTGRES_MAX_CONNS"`
	ConnectTimeout time.Duration   `koanf:"connect_timeout" validate:"gte=0" env:"POSTGRES_CONNECT_TIMEOUT"`
}

// StepConfig contains the cleaning step's file and column settings.
type StepConfig struct {
	JobType     string `koanf:"job_type"     validate:"required"  env:"STEP_JOB_TYPE"`
	OutputFile  string `koanf:"output_file"  validate:"required"  env:"STEP_OUTPUT_FILE"`
	Delimiter   string `koanf:"delimiter"    validate:"delimiter" env:"STEP_DELIMITER"`
	PriceColumn string `koanf:"price_column" validate:"required"  env:"STEP_PRICE_COLUMN"`
	DateColumn  string `koanf:"date_column"  validate:"required"  env:"STEP_DATE_COLUMN"`
}

// MetricsConfig controls where step metrics are sent.
type MetricsConfig struct {
	Enabled        bool   `koanf:"enabled"                                  env:"METRICS_ENABLED"`
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url" env:"METRICS_PUSHGATEWAY_URL"`
}

// SensitiveString hides its value when printed or serialized.
type SensitiveString string

const redacted = "[REDACTED]"

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// Value returns the raw secret.
func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
		Store: StoreConfig{
			Backend:       "local",
			Registry:      "sqlite",
			Root:          ".artifacts/blobs",
			RegistryPath:  ".artifacts/registry.db",
			CacheDir:      ".artifacts/cache",
			UploadTimeout: 5 * time.Minute,
			PollInterval:  250 * time.Millisecond,
		},
		S3: S3Config{
			Region:       "auto",
			UsePathStyle: true,
		},
		Postgres: PostgresConfig{
			MaxConns:       4,
			ConnectTimeout: 5 * time.Second,
		},
		Step: StepConfig{
			JobType:     "basic_cleaning",
			OutputFile:  "clean_sample.csv",
			Delimiter:   ",",
			PriceColumn: "price",
			DateColumn:  "last_review",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
