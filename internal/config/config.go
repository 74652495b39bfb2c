package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
)

// Config holds every runtime setting. Values come from the environment
// (optionally pre-populated from a .env file); nothing else reads env vars
// directly.
type Config struct {
	AppEnv           string `env:"APP_ENV,default=dev"`
	LogLevel         string `env:"LOG_LEVEL,default=info"`
	MetricsNamespace string `env:"METRICS_NAMESPACE,default=probuy"`
	HTTPListenAddr   string `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HTTPBasePath     string `env:"HTTP_BASE_PATH"`

	// DevMode selects the in-memory store instead of Postgres.
	DevMode     bool   `env:"DEV_MODE,default=false"`
	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR,default=127.0.0.1:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`
	RedisTLS      bool   `env:"REDIS_TLS,default=false"`

	WhatsAppStorePath string `env:"WHATSAPP_STORE_PATH,default=data/wa.db"`
	WhatsAppLogLevel  string `env:"WHATSAPP_LOG_LEVEL,default=WARN"`

	// ClientCodePrefix is the prefix of issued client codes (EM03-00042).
	ClientCodePrefix string `env:"CLIENT_CODE_PREFIX,default=EM03"`

	// ManagerID receives order and contact requests, WarehouseID receives
	// track registration notices. Zero disables the notification.
	ManagerID   int64  `env:"MANAGER_ID"`
	WarehouseID int64  `env:"WAREHOUSE_ID"`
	StaffIDsRaw string `env:"STAFF_IDS"`

	SessionTTL time.Duration `env:"SESSION_TTL,default=30m"`

	ReminderInterval       time.Duration `env:"REMINDER_INTERVAL,default=1h"`
	AddressReminderAfter   time.Duration `env:"ADDRESS_REMINDER_AFTER,default=120h"`
	SendCargoReminderAfter time.Duration `env:"SEND_CARGO_REMINDER_AFTER,default=360h"`
	InactiveReminderAfter  time.Duration `env:"INACTIVE_REMINDER_AFTER,default=720h"`

	staffIDs []int64
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if _, err := env.UnmarshalFromEnviron(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal environment: %w", err)
	}

	if !cfg.DevMode && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required unless DEV_MODE is set")
	}
	if cfg.ClientCodePrefix == "" {
		return nil, fmt.Errorf("CLIENT_CODE_PREFIX must not be empty")
	}

	ids, err := parseIDList(cfg.StaffIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("parse STAFF_IDS: %w", err)
	}
	cfg.staffIDs = ids

	return cfg, nil
}

// StaffIDs returns the identities allowed to use the staff flows.
func (c *Config) StaffIDs() []int64 {
	return c.staffIDs
}

func parseIDList(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
