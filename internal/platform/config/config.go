package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/srgjo27/escrow_booking/internal/platform/database"
)

const envPrefix = "BOOKING"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Hold      HoldConfig      `mapstructure:"hold"`
	Escrow    EscrowConfig    `mapstructure:"escrow"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type HTTPConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (c HTTPConfig) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

type LedgerConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	OperatorSeed   string        `mapstructure:"operator_seed"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ExplorerURL    string        `mapstructure:"explorer_url"`
}

type HoldConfig struct {
	Duration       time.Duration `mapstructure:"duration"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	SweeperEnabled bool          `mapstructure:"sweeper_enabled"`
	SettleTimeout  time.Duration `mapstructure:"settle_timeout"`
}

type EscrowConfig struct {
	MinCancelBuffer time.Duration `mapstructure:"min_cancel_buffer"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (c DatabaseConfig) Postgres() database.Config {
	return database.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.Name,
		SSLMode:  c.SSLMode,
	}
}

// RedisConfig enables the availability cache when Host or URL is set.
type RedisConfig struct {
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	DB              int           `mapstructure:"db"`
	AvailabilityTTL time.Duration `mapstructure:"availability_ttl"`
}

func (c RedisConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// KafkaConfig enables the broker publisher when Brokers is not empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type DirectoryConfig struct {
	SeedFile string `mapstructure:"seed_file"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:            "8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Ledger: LedgerConfig{
			RequestTimeout: 20 * time.Second,
			PollInterval:   2 * time.Second,
			ExplorerURL:    "https://testnet.xrpl.org/transactions/",
		},
		Hold: HoldConfig{
			Duration:       10 * time.Minute,
			SweepInterval:  time.Minute,
			SweeperEnabled: true,
			SettleTimeout:  20 * time.Second,
		},
		Escrow: EscrowConfig{
			MinCancelBuffer: 30 * time.Second,
		},
		Storage: StorageConfig{
			Driver: StorageMemory,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Name:            "escrow_booking",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Port:            "6379",
			AvailabilityTTL: 30 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{},
			Topic:   "booking.events",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			Origins: []string{"*"},
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("http.port", d.HTTP.Port)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", d.HTTP.IdleTimeout)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)

	v.SetDefault("ledger.rpc_url", d.Ledger.RPCURL)
	v.SetDefault("ledger.operator_seed", d.Ledger.OperatorSeed)
	v.SetDefault("ledger.request_timeout", d.Ledger.RequestTimeout)
	v.SetDefault("ledger.poll_interval", d.Ledger.PollInterval)
	v.SetDefault("ledger.explorer_url", d.Ledger.ExplorerURL)

	v.SetDefault("hold.duration", d.Hold.Duration)
	v.SetDefault("hold.sweep_interval", d.Hold.SweepInterval)
	v.SetDefault("hold.sweeper_enabled", d.Hold.SweeperEnabled)
	v.SetDefault("hold.settle_timeout", d.Hold.SettleTimeout)

	v.SetDefault("escrow.min_cancel_buffer", d.Escrow.MinCancelBuffer)

	v.SetDefault("storage.driver", d.Storage.Driver)

	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)

	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("redis.host", d.Redis.Host)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.availability_ttl", d.Redis.AvailabilityTTL)

	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.topic", d.Kafka.Topic)

	v.SetDefault("directory.seed_file", d.Directory.SeedFile)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("cors.origins", d.CORS.Origins)
}

// legacyEnv maps keys to the unprefixed variable names used by existing
// deployments. BOOKING_<KEY> is checked first.
var legacyEnv = map[string]string{
	"http.port":            "PORT",
	"ledger.rpc_url":       "XRPL_RPC",
	"ledger.operator_seed": "ESCROW_OPERATOR_SEED",
	"database.host":        "DB_HOST",
	"database.port":        "DB_PORT",
	"database.user":        "DB_USER",
	"database.password":    "DB_PASSWORD",
	"database.name":        "DB_NAME",
	"redis.url":            "REDIS_URL",
	"redis.host":           "REDIS_HOST",
	"redis.port":           "REDIS_PORT",
	"kafka.brokers":        "KAFKA_BROKERS",
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Options control where Load looks for configuration.
type Options struct {
	// File is an optional YAML config file.
	File string
	// EnvFiles are dotenv files loaded into the process environment. Missing
	// files are skipped and variables already set win.
	EnvFiles []string
}

// Load resolves defaults, then the config file, then the environment.
func Load(opts Options) (*Config, error) {
	for _, f := range opts.EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.CORS.Origins = splitList(cfg.CORS.Origins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once. The ledger endpoint is
// not checked here; escrow operations report it when used.
func (c *Config) Validate() error {
	var errs []error

	if strings.Trim(c.HTTP.Port, ": ") == "" {
		errs = append(errs, errors.New("http.port must be set"))
	}
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be %q or %q, got %q", StorageMemory, StoragePostgres, c.Storage.Driver))
	}
	if c.Hold.Duration <= 0 {
		errs = append(errs, errors.New("hold.duration must be positive"))
	}
	if c.Hold.SweeperEnabled && c.Hold.SweepInterval <= 0 {
		errs = append(errs, errors.New("hold.sweep_interval must be positive when the sweeper is enabled"))
	}
	if c.Escrow.MinCancelBuffer < 0 {
		errs = append(errs, errors.New("escrow.min_cancel_buffer must not be negative"))
	}
	if c.Ledger.RequestTimeout <= 0 {
		errs = append(errs, errors.New("ledger.request_timeout must be positive"))
	}
	if c.Ledger.PollInterval <= 0 {
		errs = append(errs, errors.New("ledger.poll_interval must be positive"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// splitList flattens comma separated entries so env values like "a,b" and
// YAML lists decode the same way.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
