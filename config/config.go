package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"

	MailDriverSMTP = "smtp"
	MailDriverLog  = "log"
)

type Config struct {
	HTTP     HTTPConfig     `envPrefix:"HTTP_"`
	GRPC     GRPCConfig     `envPrefix:"GRPC_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	JWT      JWTConfig      `envPrefix:"JWT_"`
	Tokens   TokenConfig    `envPrefix:"TOKEN_"`
	Cookie   CookieConfig   `envPrefix:"COOKIE_"`
	Password PasswordConfig `envPrefix:"PASSWORD_"`
	Mail     MailConfig     `envPrefix:"SMTP_"`
	App      AppConfig      `envPrefix:"APP_"`
	Log      LogConfig      `envPrefix:"LOG_"`
}

type HTTPConfig struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port string `env:"PORT" envDefault:"8080"`
}

type GRPCConfig struct {
	Host    string `env:"HOST" envDefault:"0.0.0.0"`
	Port    string `env:"PORT" envDefault:"9090"`
	Enabled bool   `env:"ENABLED" envDefault:"true"`
}

type DatabaseConfig struct {
	Driver          string        `env:"DRIVER" envDefault:"mysql"`
	DSN             string        `env:"DSN,required,notEmpty"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"false"`
}

type JWTConfig struct {
	Secret          string        `env:"SECRET,required,notEmpty"`
	RefreshSecret   string        `env:"REFRESH_SECRET,required,notEmpty"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
}

type TokenConfig struct {
	VerificationTTL time.Duration `env:"VERIFICATION_TTL" envDefault:"24h"`
	ResetTTL        time.Duration `env:"RESET_TTL" envDefault:"24h"`
}

type CookieConfig struct {
	ExpireDays int  `env:"EXPIRE_DAYS" envDefault:"30"`
	Secure     bool `env:"SECURE" envDefault:"false"`
}

type PasswordConfig struct {
	MinLength  int          `env:"MIN_LENGTH" envDefault:"6"`
	Hasher     string       `env:"HASHER" envDefault:"bcrypt"`
	BcryptCost int          `env:"BCRYPT_COST" envDefault:"10"`
	Argon2     Argon2Config `envPrefix:"ARGON2_"`
}

type Argon2Config struct {
	MemoryKiB   uint32 `env:"MEMORY_KIB" envDefault:"65536"`
	Iterations  uint32 `env:"ITERATIONS" envDefault:"3"`
	Parallelism uint8  `env:"PARALLELISM" envDefault:"2"`
}

type MailConfig struct {
	// Driver picks the delivery: "smtp" sends mail, "log" only logs it.
	Driver   string        `env:"DRIVER" envDefault:"smtp"`
	Host     string        `env:"HOST" envDefault:"localhost"`
	Port     int           `env:"PORT" envDefault:"1025"`
	Username string        `env:"USERNAME"`
	Password string        `env:"PASSWORD"`
	From     string        `env:"FROM" envDefault:"no-reply@localhost"`
	TLS      bool          `env:"TLS" envDefault:"false"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type AppConfig struct {
	// APIBaseURL prefixes the verification link sent by email.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	// ClientURL is the SPA origin used for the login redirect and reset links.
	ClientURL string `env:"CLIENT_URL" envDefault:"http://localhost:3000"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.JWT.Secret == c.JWT.RefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}

	switch c.Mail.Driver {
	case MailDriverSMTP, MailDriverLog:
	default:
		return fmt.Errorf("unsupported SMTP_DRIVER %q", c.Mail.Driver)
	}

	if c.Password.MinLength < 1 {
		return errors.New("PASSWORD_MIN_LENGTH must be positive")
	}

	return nil
}

func (c *Config) DSN() string {
	return c.Database.DSN
}

// CookieMaxAge is the lifetime of the access token cookie.
func (c *Config) CookieMaxAge() time.Duration {
	return time.Duration(c.Cookie.ExpireDays) * 24 * time.Hour
}

func (c *Config) VerificationURL(token string) string {
	return strings.TrimRight(c.App.APIBaseURL, "/") + "/api/v1/auth/verify-email/" + token
}

func (c *Config) ResetPasswordURL(token string) string {
	return strings.TrimRight(c.App.ClientURL, "/") + "/reset-password/" + token
}

func (c *Config) LoginRedirectURL() string {
	return strings.TrimRight(c.App.ClientURL, "/") + "/login?verified=true"
}
