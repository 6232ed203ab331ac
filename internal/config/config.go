package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/voxbill/voxbill/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig
	Cache      CacheConfig
	Sentry     SentryConfig
	Tax        TaxConfig `validate:"required"`
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	DBName                 string
	SSLMode                string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
}

type CacheConfig struct {
	Enabled bool
	// CalculationTTL bounds how long a full calculation result may be served
	// from cache before the rate catalog is consulted again.
	CalculationTTL time.Duration
	USFRateTTL     time.Duration
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

// TaxConfig carries the engine-known federal tax catalog and the degradation
// policy used when the rate catalog is unreachable.
type TaxConfig struct {
	// FederalExciseRate is the flat federal excise percentage (3 = 3%).
	FederalExciseRate decimal.Decimal
	// FederalExciseMinimumBase is the strict lower bound a base amount must
	// exceed before federal excise applies.
	FederalExciseMinimumBase decimal.Decimal
	// DefaultUSFRate is the fallback USF contribution factor used when no
	// effective-dated override can be resolved.
	DefaultUSFRate decimal.Decimal
	// FallbackRate is the flat estimated percentage applied when rate
	// resolution is unavailable; results computed with it are flagged.
	FallbackRate decimal.Decimal
	// LookupTimeout bounds jurisdiction/rate/exemption lookups before the
	// calculation degrades to the fallback rate.
	LookupTimeout time.Duration
}

func NewConfig() (*Configuration, error) {
	// Load .env if present; real deployments rely on injected env vars
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/voxbill")

	v.SetEnvPrefix("VOXBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config, viper.DecodeHook(decimalDecodeHook())); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeAPI))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.maxopenconns", 10)
	v.SetDefault("postgres.maxidleconns", 5)
	v.SetDefault("postgres.connmaxlifetimeminutes", 30)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.calculationttl", "1h")
	v.SetDefault("cache.usfratettl", "1h")
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.samplerate", 1.0)
	v.SetDefault("tax.federalexciserate", "3")
	v.SetDefault("tax.federalexciseminimumbase", "0.20")
	v.SetDefault("tax.defaultusfrate", "34.4")
	v.SetDefault("tax.fallbackrate", "5")
	v.SetDefault("tax.lookuptimeout", "5s")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests. This is useful for running scripts or other non-web
// applications.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Cache: CacheConfig{
			Enabled:        true,
			CalculationTTL: time.Hour,
			USFRateTTL:     time.Hour,
		},
		Tax: TaxConfig{
			FederalExciseRate:        decimal.NewFromInt(3),
			FederalExciseMinimumBase: decimal.NewFromFloat(0.20),
			DefaultUSFRate:           decimal.NewFromFloat(34.4),
			FallbackRate:             decimal.NewFromInt(5),
			LookupTimeout:            5 * time.Second,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
