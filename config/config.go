package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
	DocsDir string `yaml:"docs_dir"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	ReservationsTopic  string   `yaml:"reservations_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	// AllowOverpayment keeps the historical behavior of accepting payments
	// past the committed total. Turn off to refuse them.
	AllowOverpayment bool `yaml:"allow_overpayment"`
	// RepriceOnReschedule recomputes total_amount from the space's current
	// rate when a reschedule changes the slot. Off: total stays locked at
	// creation.
	RepriceOnReschedule bool `yaml:"reprice_on_reschedule"`
	SlotLockTTLSeconds  int  `yaml:"slot_lock_ttl_seconds"`
	SearchCacheTTL      int  `yaml:"search_cache_ttl_seconds"`
}

type WorkerConfig struct {
	ReminderSweepMinutes int `yaml:"reminder_sweep_minutes"`
}

// ReminderSweepInterval is the sweep period, defaulting to an hour when the
// key is unset so a zero value can never reach time.NewTicker.
func (w WorkerConfig) ReminderSweepInterval() time.Duration {
	if w.ReminderSweepMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(w.ReminderSweepMinutes) * time.Minute
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
