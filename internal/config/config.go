package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName       string
	AppEnv        string
	AppPort       string
	DatabaseURL   string
	RedisURL      string
	NATSURL       string
	EventsChannel string
	JWTSecret     string
	LogFile       string
	LogLevel      string

	// Roles allowed to see student names, identity fields and review links in the report.
	NameRoles     []string
	IdentityRoles []string
	ReviewRoles   []string

	SubmitRateLimit  int
	SubmitRateWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.name", "Grading Students API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.channel", "grading:events")
	v.SetDefault("grading.name_roles", "admin,teacher")
	v.SetDefault("grading.identity_roles", "admin")
	v.SetDefault("grading.review_roles", "admin,teacher")
	v.SetDefault("grading.submit_rate_limit", 30)
	v.SetDefault("grading.submit_rate_window", "1m")
	v.SetDefault("log.level", "info")

	window, err := time.ParseDuration(v.GetString("grading.submit_rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid grading submit rate window: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		EventsChannel:    v.GetString("events.channel"),
		JWTSecret:        v.GetString("jwt.secret"),
		LogFile:          v.GetString("log.file"),
		LogLevel:         strings.ToLower(v.GetString("log.level")),
		NameRoles:        splitRoles(v.GetString("grading.name_roles")),
		IdentityRoles:    splitRoles(v.GetString("grading.identity_roles")),
		ReviewRoles:      splitRoles(v.GetString("grading.review_roles")),
		SubmitRateLimit:  v.GetInt("grading.submit_rate_limit"),
		SubmitRateWindow: window,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.SubmitRateLimit <= 0 {
		cfg.SubmitRateLimit = 30
	}

	return cfg, nil
}

func splitRoles(input string) []string {
	parts := strings.Split(input, ",")
	roles := make([]string, 0, len(parts))
	for _, part := range parts {
		role := strings.ToLower(strings.TrimSpace(part))
		if role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
