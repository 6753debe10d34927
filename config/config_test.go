package config

import (
	"strings"
	"testing"
	"time"

	env "github.com/Netflix/go-env"
)

func TestParse_Defaults(t *testing.T) {
	c, err := Parse(env.EnvSet{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if c.HTTPAddr() != ":8080" || c.WSAddr() != ":8081" {
		t.Errorf("addrs = %q %q, want :8080 :8081", c.HTTPAddr(), c.WSAddr())
	}
	if c.DatabasePath != "social.db" {
		t.Errorf("DatabasePath = %q, want social.db", c.DatabasePath)
	}
	if c.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", c.TokenTTL)
	}
	if c.WSIdentityMode != "trust" {
		t.Errorf("WSIdentityMode = %q, want trust", c.WSIdentityMode)
	}
	if c.WSSendQueue != 64 || c.WSMessagesPerSecond != 10 || c.WSBurst != 20 {
		t.Errorf("ws limits = %d %d %d, want 64 10 20", c.WSSendQueue, c.WSMessagesPerSecond, c.WSBurst)
	}
	if c.DispatchTimeout != 5*time.Second || c.ShutdownTimeout != 30*time.Second {
		t.Errorf("timeouts = %v %v, want 5s 30s", c.DispatchTimeout, c.ShutdownTimeout)
	}
	if c.HTTPRequestsPerMinute != 120 {
		t.Errorf("HTTPRequestsPerMinute = %d, want 120", c.HTTPRequestsPerMinute)
	}
	if c.CORSAllowedOrigins != "*" || c.RedisAddr != "" {
		t.Errorf("cors = %q redis = %q", c.CORSAllowedOrigins, c.RedisAddr)
	}
}

func TestParse_Overrides(t *testing.T) {
	c, err := Parse(env.EnvSet{
		"PORT":             "9000",
		"WS_IDENTITY_MODE": " Token ",
		"TOKEN_TTL":        "15m",
		"WS_SEND_QUEUE":    "8",
		"REDIS_ADDR":       "localhost:6379",
		"DISPATCH_TIMEOUT": "250ms",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if c.HTTPAddr() != ":9000" {
		t.Errorf("HTTPAddr() = %q, want :9000", c.HTTPAddr())
	}
	if c.WSIdentityMode != "token" {
		t.Errorf("WSIdentityMode = %q, want token", c.WSIdentityMode)
	}
	if c.TokenTTL != 15*time.Minute {
		t.Errorf("TokenTTL = %v, want 15m", c.TokenTTL)
	}
	if c.WSSendQueue != 8 {
		t.Errorf("WSSendQueue = %d, want 8", c.WSSendQueue)
	}
	if c.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", c.RedisAddr)
	}
	if c.DispatchTimeout != 250*time.Millisecond {
		t.Errorf("DispatchTimeout = %v, want 250ms", c.DispatchTimeout)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		es      env.EnvSet
		wantErr string
	}{
		{"unknown identity mode", env.EnvSet{"WS_IDENTITY_MODE": "magic"}, "WS_IDENTITY_MODE"},
		{"zero send queue", env.EnvSet{"WS_SEND_QUEUE": "0"}, "WS_SEND_QUEUE"},
		{"zero burst", env.EnvSet{"WS_BURST": "0"}, "WS_BURST"},
		{"negative http limit", env.EnvSet{"HTTP_REQUESTS_PER_MINUTE": "-1"}, "HTTP_REQUESTS_PER_MINUTE"},
		{"not a number", env.EnvSet{"WS_SEND_QUEUE": "many"}, "config error"},
		{"not a duration", env.EnvSet{"TOKEN_TTL": "forever"}, "config error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.es)
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}
