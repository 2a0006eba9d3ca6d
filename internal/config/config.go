package config

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Postgres  PostgresConfig  `env:",prefix=POSTGRES_"`
	Redis     RedisConfig     `env:",prefix=REDIS_"`
	Kafka     KafkaConfig     `env:",prefix=KAFKA_"`
	JWT       JWTConfig       `env:",prefix=JWT_"`
	OTP       OTPConfig       `env:",prefix=OTP_"`
	Signer    SignerConfig    `env:",prefix=SIGNER_"`
	SMTP      SMTPConfig      `env:",prefix=SMTP_"`
	SMS       SMSConfig       `env:",prefix=SMS_"`
	Broadcast BroadcastConfig `env:",prefix=BROADCAST_"`
	Security  SecurityConfig  `env:",prefix="`
	CORS      CORSConfig      `env:",prefix=CORS_"`
	Env       string          `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host           string `env:"HOST,default=localhost"`
	Port           string `env:"PORT,default=5432"`
	User           string `env:"USER,default=account_service"`
	Password       string `env:"PASSWORD,default=account_service_password"`
	DBName         string `env:"DB,default=account_service_db"`
	SSLMode        string `env:"SSLMODE,default=disable"`
	MigrationsPath string `env:"MIGRATIONS_PATH,default="`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type KafkaConfig struct {
	Brokers       []string `env:"BROKERS,default=localhost:9092"`
	JobTopic      string   `env:"JOB_TOPIC,default=delivery-jobs"`
	ConsumerGroup string   `env:"CONSUMER_GROUP,default=delivery-worker"`
}

type JWTConfig struct {
	Secret             string   `env:"SECRET,required"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=15m"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=7d"`
}

type OTPConfig struct {
	Length int      `env:"LENGTH,default=6"`
	Expiry Duration `env:"EXPIRY,default=10m"`
}

type SignerConfig struct {
	// Signed verification links share the JWT secret unless overridden.
	Secret string   `env:"SECRET,default="`
	MaxAge Duration `env:"MAX_AGE,default=1h"`
}

type SMTPConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=587"`
	Username string `env:"USERNAME,default="`
	Password string `env:"PASSWORD,default="`
	From     string `env:"FROM,default=no-reply@example.com"`
	FromName string `env:"FROM_NAME,default=Account Service"`
}

type SMSConfig struct {
	AccountSID string `env:"ACCOUNT_SID,default="`
	AuthToken  string `env:"AUTH_TOKEN,default="`
	FromNumber string `env:"FROM_NUMBER,default="`
	BaseURL    string `env:"BASE_URL,default=https://api.twilio.com"`
}

type BroadcastConfig struct {
	ChunkSize int `env:"CHUNK_SIZE,default=100"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// URL returns the PostgreSQL connection URL used by the migration runner
func (p PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%s", p.Host, p.Port),
		Path:     p.DBName,
		RawQuery: "sslmode=" + p.SSLMode,
	}
	return u.String()
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// SignerSecret falls back to the JWT secret when no dedicated one is set
func (c *Config) SignerSecret() string {
	if c.Signer.Secret != "" {
		return c.Signer.Secret
	}
	return c.JWT.Secret
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate JWT secret length
	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
