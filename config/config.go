// Package config loads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config holds every setting of the backend.
type Config struct {
	Port                  string        `env:"PORT,default=8080"`
	WSPort                string        `env:"WS_PORT,default=8081"`
	DatabasePath          string        `env:"DATABASE_PATH,default=social.db"`
	TokenSecret           string        `env:"TOKEN_SECRET,default=dev-secret-change-in-production"`
	TokenTTL              time.Duration `env:"TOKEN_TTL,default=24h"`
	WSIdentityMode        string        `env:"WS_IDENTITY_MODE,default=trust"`
	WSSendQueue           int           `env:"WS_SEND_QUEUE,default=64"`
	WSMessagesPerSecond   int           `env:"WS_MESSAGES_PER_SECOND,default=10"`
	WSBurst               int           `env:"WS_BURST,default=20"`
	RedisAddr             string        `env:"REDIS_ADDR"`
	DispatchTimeout       time.Duration `env:"DISPATCH_TIMEOUT,default=5s"`
	HTTPRequestsPerMinute int           `env:"HTTP_REQUESTS_PER_MINUTE,default=120"`
	CORSAllowedOrigins    string        `env:"CORS_ALLOWED_ORIGINS,default=*"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	// A missing .env file is fine, the environment may be set by the runtime.
	_ = godotenv.Load()

	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return Parse(es)
}

// Parse builds a Config from an explicit set of variables.
func Parse(es env.EnvSet) (Config, error) {
	var c Config
	if err := env.Unmarshal(es, &c); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	c.WSIdentityMode = strings.ToLower(strings.TrimSpace(c.WSIdentityMode))
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	var errs []error
	if c.WSIdentityMode != "trust" && c.WSIdentityMode != "token" {
		errs = append(errs, fmt.Errorf("WS_IDENTITY_MODE must be trust or token, got %q", c.WSIdentityMode))
	}
	if c.TokenSecret == "" {
		errs = append(errs, errors.New("TOKEN_SECRET must not be empty"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.WSSendQueue <= 0 {
		errs = append(errs, errors.New("WS_SEND_QUEUE must be positive"))
	}
	if c.WSMessagesPerSecond <= 0 || c.WSBurst <= 0 {
		errs = append(errs, errors.New("WS_MESSAGES_PER_SECOND and WS_BURST must be positive"))
	}
	if c.DispatchTimeout <= 0 {
		errs = append(errs, errors.New("DISPATCH_TIMEOUT must be positive"))
	}
	if c.HTTPRequestsPerMinute < 0 {
		errs = append(errs, errors.New("HTTP_REQUESTS_PER_MINUTE must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// HTTPAddr is the listen address of the HTTP API.
func (c Config) HTTPAddr() string {
	return ":" + c.Port
}

// WSAddr is the listen address of the websocket server.
func (c Config) WSAddr() string {
	return ":" + c.WSPort
}
