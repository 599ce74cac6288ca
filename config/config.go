package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// WebhookConfig holds the per-deployment secret the payment processor signs
// event payloads with.
type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

// ScanConfig configures the trigger scanner. Offsets are injected here rather
// than hardcoded so tests and deployments can vary them.
type ScanConfig struct {
	Secret             string `yaml:"secret"`
	ReminderOffsetDays int    `yaml:"reminder_offset_days"`
	FollowupOffsetDays int    `yaml:"followup_offset_days"`
	LookbackGraceDays  int    `yaml:"lookback_grace_days"`
	MaxConcurrentSends int    `yaml:"max_concurrent_sends"`
}

// MailerConfig points at the external transactional-email provider.
type MailerConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	FromEmail string        `yaml:"from_email"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Config struct {
	DB      DBConfig      `yaml:"db"`
	MQ      MQConfig      `yaml:"mq"`
	Redis   RedisConfig   `yaml:"redis"`
	JWT     JWTConfig     `yaml:"jwt"`
	Server  ServerConfig  `yaml:"server"`
	Webhook WebhookConfig `yaml:"webhook"`
	Scan    ScanConfig    `yaml:"scan"`
	Mailer  MailerConfig  `yaml:"mailer"`
}

// Load reads config.yaml and applies env overrides on top.
func Load() *Config {
	f, err := os.Open("config.yaml")
	if err != nil {
		log.Fatalf("failed to open config.yaml: %v", err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config.yaml: %v", err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Scan.ReminderOffsetDays == 0 {
		cfg.Scan.ReminderOffsetDays = 3
	}
	if cfg.Scan.FollowupOffsetDays == 0 {
		cfg.Scan.FollowupOffsetDays = 2
	}
	if cfg.Scan.LookbackGraceDays == 0 {
		cfg.Scan.LookbackGraceDays = 7
	}
	if cfg.Scan.MaxConcurrentSends == 0 {
		cfg.Scan.MaxConcurrentSends = 8
	}
	if cfg.Mailer.Timeout == 0 {
		cfg.Mailer.Timeout = 5 * time.Second
	}
}

func overrideFromEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}

	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.MQ.URL = url
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}

	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		cfg.Webhook.Secret = secret
	}
	if secret := os.Getenv("SCAN_SECRET"); secret != "" {
		cfg.Scan.Secret = secret
	}
	if days := os.Getenv("REMINDER_OFFSET_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil {
			cfg.Scan.ReminderOffsetDays = d
		}
	}
	if days := os.Getenv("FOLLOWUP_OFFSET_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil {
			cfg.Scan.FollowupOffsetDays = d
		}
	}

	if url := os.Getenv("MAILER_BASE_URL"); url != "" {
		cfg.Mailer.BaseURL = url
	}
	if key := os.Getenv("MAILER_API_KEY"); key != "" {
		cfg.Mailer.APIKey = key
	}
	if from := os.Getenv("MAILER_FROM_EMAIL"); from != "" {
		cfg.Mailer.FromEmail = from
	}
}
