package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo MongoConfig
	Redis RedisConfig
	Guard GuardConfig
	Audit AuditConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=rvm_backend"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// GuardConfig holds the fraud/capacity policy ceilings. Defaults mirror the
// production policy: 50 kg per deposit, 50 deposits per user per day, 10 per
// 5 minutes, 500 kg per machine per day, 60 s duplicate window. Weights are
// strings so they parse losslessly into decimals.
type GuardConfig struct {
	MaxDepositWeightKg     string        `env:"GUARD_MAX_DEPOSIT_WEIGHT_KG,     default=50"`
	DedupWindow            time.Duration `env:"GUARD_DEDUP_WINDOW,              default=60s"`
	DailyDepositLimit      int64         `env:"GUARD_DAILY_DEPOSIT_LIMIT,       default=50"`
	VelocityLimit          int64         `env:"GUARD_VELOCITY_LIMIT,            default=10"`
	VelocityWindow         time.Duration `env:"GUARD_VELOCITY_WINDOW,           default=5m"`
	MachineDailyCapacityKg string        `env:"GUARD_MACHINE_DAILY_CAPACITY_KG, default=500"`
}

// AuditConfig controls the periodic aggregate reconciliation job.
type AuditConfig struct {
	// Schedule is a cron expression; the default audits every 15 minutes.
	Schedule string `env:"AUDIT_SCHEDULE, default=*/15 * * * *"`
	// Lookback bounds which users get audited: anyone with a deposit in
	// the trailing window.
	Lookback time.Duration `env:"AUDIT_LOOKBACK, default=1h"`
	Workers  int           `env:"AUDIT_WORKERS,  default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
