// Package config loads process configuration from the environment. A .env
// file, when present, is loaded first and never overrides real variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full process configuration.
type Config struct {
	Server   Server      `envPrefix:"SERVER_"`
	Database Database    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Kafka    Kafka       `envPrefix:"KAFKA_"`
	Provider Provider    `envPrefix:"PROVIDER_"`
	Payout   Payout      `envPrefix:"PAYOUT_"`
	KYC      KYC         `envPrefix:"KYC_"`
	Log      Log         `envPrefix:"LOG_"`
	// SealingKey is a base64 32-byte key for document fields at rest.
	SealingKey string `env:"SEALING_KEY"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	RegulatedMode   bool          `env:"REGULATED_MODE" envDefault:"false"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"onboard"`
	JWTAudience     string        `env:"JWT_AUDIENCE" envDefault:"onboard-api"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Database is empty-URL tolerant: without a URL the process runs on memory stores.
type Database struct {
	URL             string        `env:"URL"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	MigrateOnStart  bool          `env:"MIGRATE_ON_START" envDefault:"true"`
}

type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

type Kafka struct {
	Brokers            []string      `env:"BROKERS" envSeparator:","`
	ClientID           string        `env:"CLIENT_ID" envDefault:"onboard"`
	ComplianceTopic    string        `env:"COMPLIANCE_TOPIC" envDefault:"kyc.audit.compliance"`
	OperationsTopic    string        `env:"OPERATIONS_TOPIC" envDefault:"kyc.audit.operations"`
	NotificationsTopic string        `env:"NOTIFICATIONS_TOPIC" envDefault:"kyc.notifications"`
	RelayInterval      time.Duration `env:"RELAY_INTERVAL" envDefault:"2s"`
	RelayBatchSize     int           `env:"RELAY_BATCH_SIZE" envDefault:"100"`
}

// Provider configures the external verification provider.
type Provider struct {
	ID               string        `env:"ID" envDefault:"kyc-registry"`
	BaseURL          string        `env:"BASE_URL"`
	APIKey           string        `env:"API_KEY"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"10s"`
	MaxRetries       int           `env:"MAX_RETRIES" envDefault:"2"`
	BreakerFailures  int           `env:"BREAKER_FAILURES" envDefault:"5"`
	BreakerSuccesses int           `env:"BREAKER_SUCCESSES" envDefault:"3"`
	BreakerCooldown  time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
	// Mock uses the deterministic in-process provider instead of HTTP.
	Mock bool `env:"MOCK" envDefault:"false"`
}

type Payout struct {
	BaseURL string        `env:"BASE_URL"`
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

// KYC holds lifecycle policy knobs. A zero expiry means the document never expires.
type KYC struct {
	GSTINRequired     bool          `env:"GSTIN_REQUIRED" envDefault:"true"`
	PANExpiry         time.Duration `env:"PAN_EXPIRY" envDefault:"0s"`
	AadhaarExpiry     time.Duration `env:"AADHAAR_EXPIRY" envDefault:"17520h"`
	GSTINExpiry       time.Duration `env:"GSTIN_EXPIRY" envDefault:"8760h"`
	BankAccountExpiry time.Duration `env:"BANK_ACCOUNT_EXPIRY" envDefault:"8760h"`
	AttemptLimit      int           `env:"ATTEMPT_LIMIT" envDefault:"5"`
	AttemptWindow     time.Duration `env:"ATTEMPT_WINDOW" envDefault:"1h"`
	AttemptBufferSize int           `env:"ATTEMPT_BUFFER_SIZE" envDefault:"1024"`
	AuditBufferSize   int           `env:"AUDIT_BUFFER_SIZE" envDefault:"1024"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`
	SweepBatchSize    int           `env:"SWEEP_BATCH_SIZE" envDefault:"200"`
	SweepConcurrency  int           `env:"SWEEP_CONCURRENCY" envDefault:"8"`
	IFSCCacheTTL      time.Duration `env:"IFSC_CACHE_TTL" envDefault:"24h"`
	AgreementVersion  string        `env:"AGREEMENT_VERSION" envDefault:"2024-01"`
}

type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and parses the environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse(env.Options{})
}

// Parse builds a Config using opts; tests pass opts.Environment directly.
func Parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.RegulatedMode && c.SealingKey == "" {
		return errors.New("SEALING_KEY is required in regulated mode")
	}
	if !c.Provider.Mock && c.Provider.BaseURL == "" {
		return errors.New("PROVIDER_BASE_URL is required unless PROVIDER_MOCK=true")
	}
	if c.KYC.AttemptLimit <= 0 {
		return errors.New("KYC_ATTEMPT_LIMIT must be positive")
	}
	if c.KYC.AttemptWindow <= 0 {
		return errors.New("KYC_ATTEMPT_WINDOW must be positive")
	}
	return nil
}
