package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const EnvironmentProduction = "production"

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	PublicURL     string
	AccessKey     string
	SecretKey     string
	BucketAvatars string
	UseSSL        bool
	Region        string
	MaxAvatarSize int64
}

// SecurityConfig carries everything the token service and the session cookie need.
type SecurityConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	CookieName   string
	CookieDomain string
	BcryptCost   int
}

type EventsConfig struct {
	Stream       string
	StreamMaxLen int64
	KafkaBrokers []string
	KafkaTopic   string
}

type WorkerConfig struct {
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	BatchSize     int64
}

type JobsConfig struct {
	PendingReminderSpec    string
	PendingReminderAge     time.Duration
	DeviceTokenCleanupSpec string
	DeviceTokenMaxIdle     time.Duration
}

type TrackingConfig struct {
	CacheTTL time.Duration
}

type AppConfig struct {
	Environment      string
	LogLevel         string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Events           EventsConfig
	Worker           WorkerConfig
	Jobs             JobsConfig
	Tracking         TrackingConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

func Load() (*AppConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CLEANHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects configurations the API server must not start with.
func (c *AppConfig) Validate() error {
	errs := c.storeErrors()
	if strings.TrimSpace(c.Security.JWTSecret) == "" {
		errs = append(errs, errors.New("security.jwtsecret is required"))
	}
	if c.Security.TokenTTL <= 0 {
		errs = append(errs, errors.New("security.tokenttl must be positive"))
	}
	if c.Security.CookieName == "" {
		errs = append(errs, errors.New("security.cookiename is required"))
	}
	if c.IsProduction() && len(c.AllowCORSOrigins) == 0 {
		errs = append(errs, errors.New("allowcorsorigins is required in production"))
	}
	return joinConfigErrors(errs)
}

// ValidateWorker checks the subset of settings the stream worker uses.
func (c *AppConfig) ValidateWorker() error {
	errs := c.storeErrors()
	if c.Worker.Group == "" || c.Worker.Consumer == "" {
		errs = append(errs, errors.New("worker.group and worker.consumer are required"))
	}
	if c.Worker.ClaimInterval <= 0 {
		errs = append(errs, errors.New("worker.claiminterval must be positive"))
	}
	return joinConfigErrors(errs)
}

func (c *AppConfig) storeErrors() []error {
	var errs []error
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		errs = append(errs, errors.New("postgres.dsn is required"))
	}
	if c.Events.Stream == "" {
		errs = append(errs, errors.New("events.stream is required"))
	}
	return errs
}

func joinConfigErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("loglevel", "")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 5000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 4)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.publicurl", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucketavatars", "cleanhub-avatars")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.maxavatarsize", 5<<20)

	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("security.tokenttl", "168h") // 7 days
	v.SetDefault("security.cookiename", "token")
	v.SetDefault("security.cookiedomain", "")
	v.SetDefault("security.bcryptcost", 10)

	v.SetDefault("events.stream", "cleanhub:events")
	v.SetDefault("events.streammaxlen", 10000)
	v.SetDefault("events.kafkabrokers", []string{})
	v.SetDefault("events.kafkatopic", "cleanhub.events")

	v.SetDefault("worker.group", "cleanhub-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")
	v.SetDefault("worker.batchsize", 10)

	v.SetDefault("jobs.pendingreminderspec", "0 0 8 * * *")
	v.SetDefault("jobs.pendingreminderage", "48h")
	v.SetDefault("jobs.devicetokencleanupspec", "0 0 3 * * 0")
	v.SetDefault("jobs.devicetokenmaxidle", "2160h") // 90 days

	v.SetDefault("tracking.cachettl", "24h")

	v.SetDefault("allowcorsorigins", []string{})
}
