// Ininicializing common application configuration
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is only fit for local development.
const DefaultJWTSecret = "change-me-in-production"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	App       AppConfig       `mapstructure:"app"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Email     EmailConfig     `mapstructure:"email"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	AppVersion  string        `mapstructure:"app_version"`
	Host        string        `mapstructure:"host"`
	Port        string        `mapstructure:"port"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Env         string        `mapstructure:"environment"`
	Mode        string        `mapstructure:"mode"`
	LogLevel    string        `mapstructure:"log_level"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres | sqlite
	Path            string        `mapstructure:"path"`   // sqlite file
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type AppConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	RSVPPath      string `mapstructure:"rsvp_path"`
	CompanionPath string `mapstructure:"companion_path"`
	QRSize        int    `mapstructure:"qr_size"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type EmailConfig struct {
	APIKey    string         `mapstructure:"api_key"`
	From      string         `mapstructure:"from"`
	FromName  string         `mapstructure:"from_name"`
	Enabled   bool           `mapstructure:"enabled"`
	Templates EmailTemplates `mapstructure:"templates"`
}

// EmailTemplates holds SendGrid dynamic template ids per message type.
type EmailTemplates struct {
	Invitation        string `mapstructure:"invitation"`
	Confirmation      string `mapstructure:"confirmation"`
	CompanionInvite   string `mapstructure:"companion_invite"`
	OwnerNotification string `mapstructure:"owner_notification"`
	Reminder          string `mapstructure:"reminder"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

type QueueConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Prefix     string        `mapstructure:"prefix"`
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

type BrokerConfig struct {
	Type     string `mapstructure:"type"` // none | rabbitmq | kafka
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Brokers  string `mapstructure:"brokers"`
	Topic    string `mapstructure:"topic"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

func LoadConfig() (*viper.Viper, error) {

	viperInstance := viper.New()
	setDefaults(viperInstance)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		viperInstance.SetConfigFile(path)
	} else {
		viperInstance.AddConfigPath("./config")
		viperInstance.SetConfigName("config")
		viperInstance.SetConfigType("yaml")
	}

	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()

	err := viperInstance.ReadInConfig()

	if err != nil {
		return nil, err
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings that are unsafe in production.
func (c *Config) Validate() error {
	if c.Server.Env == "production" && (c.JWT.Secret == "" || c.JWT.Secret == DefaultJWTSecret) {
		return errors.New("jwt.secret must be set to a private value in production")
	}
	return nil
}

// RSVPLink builds the public RSVP url for an invite token.
func (c *AppConfig) RSVPLink(token string) string {
	return strings.TrimRight(c.BaseURL, "/") + c.RSVPPath + "/" + token
}

// CompanionLink builds the public companion invite url.
func (c *AppConfig) CompanionLink(token string) string {
	return strings.TrimRight(c.BaseURL, "/") + c.CompanionPath + "/" + token
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.app_version", "1.0.0")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.log_level", "info")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.path", "./data/elivra.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "elivra")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "elivra")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// App defaults
	v.SetDefault("app.base_url", "http://localhost:3000")
	v.SetDefault("app.rsvp_path", "/rsvp")
	v.SetDefault("app.companion_path", "/companion-invite")
	v.SetDefault("app.qr_size", 256)

	// JWT defaults
	v.SetDefault("jwt.secret", DefaultJWTSecret)
	v.SetDefault("jwt.expiration", 24*time.Hour)

	// Email defaults
	v.SetDefault("email.from", "noreply@elivra.app")
	v.SetDefault("email.from_name", "Elivra")
	v.SetDefault("email.enabled", false)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	// Queue defaults
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.prefix", "elivra")
	v.SetDefault("queue.max_retries", 5)
	v.SetDefault("queue.base_delay", 10*time.Second)

	// Broker defaults
	v.SetDefault("broker.type", "none")
	v.SetDefault("broker.exchange", "elivra.events")
	v.SetDefault("broker.topic", "rsvp-events")

	v.SetDefault("ratelimit.requests_per_second", 5)
}
