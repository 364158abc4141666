package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "evreserve/libs/config"
)

// Config defines reservation service configuration.
type Config struct {
	HTTP struct {
		Port      string  `yaml:"port" env:"EVRESERVE_HTTP_PORT"`
		RateLimit float64 `yaml:"rateLimit" env:"EVRESERVE_HTTP_RATE_LIMIT"`
		RateBurst int     `yaml:"rateBurst" env:"EVRESERVE_HTTP_RATE_BURST"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"EVRESERVE_POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"EVRESERVE_REDIS_ADDR"`
		Password string `yaml:"password" env:"EVRESERVE_REDIS_PASSWORD"`
		TTL      int    `yaml:"ttlSeconds" env:"EVRESERVE_REDIS_TTL"`
	} `yaml:"redis"`
	Booking struct {
		NoShowGrace   time.Duration `yaml:"noShowGrace" env:"EVRESERVE_NO_SHOW_GRACE"`
		SweepInterval time.Duration `yaml:"sweepInterval" env:"EVRESERVE_SWEEP_INTERVAL"`
		NoShowPenalty float64       `yaml:"noShowPenalty" env:"EVRESERVE_NO_SHOW_PENALTY"`
	} `yaml:"booking"`
	Charging struct {
		RateDCPerHour     float64 `yaml:"rateDcPerHour" env:"EVRESERVE_CHARGE_RATE_DC"`
		RateACPerHour     float64 `yaml:"rateAcPerHour" env:"EVRESERVE_CHARGE_RATE_AC"`
		KWhPerPercent     float64 `yaml:"kwhPerPercent" env:"EVRESERVE_KWH_PER_PERCENT"`
		DefaultInitialSoc float64 `yaml:"defaultInitialSoc" env:"EVRESERVE_DEFAULT_INITIAL_SOC"`
	} `yaml:"charging"`
	Billing struct {
		Currency           string  `yaml:"currency" env:"EVRESERVE_CURRENCY"`
		DefaultPricePerKWh float64 `yaml:"defaultPricePerKwh" env:"EVRESERVE_DEFAULT_PRICE_PER_KWH"`
	} `yaml:"billing"`
	QR struct {
		Secret string        `yaml:"secret" env:"EVRESERVE_QR_SECRET"`
		Grace  time.Duration `yaml:"grace" env:"EVRESERVE_QR_GRACE"`
	} `yaml:"qr"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.HTTP.RateLimit = 50
	cfg.HTTP.RateBurst = 100
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.TTL = 14400
	cfg.Booking.NoShowGrace = 15 * time.Minute
	cfg.Booking.SweepInterval = time.Minute
	cfg.Booking.NoShowPenalty = 500
	cfg.Charging.RateDCPerHour = 25
	cfg.Charging.RateACPerHour = 10
	cfg.Charging.KWhPerPercent = 0.5
	cfg.Charging.DefaultInitialSoc = 20
	cfg.Billing.Currency = "VND"
	cfg.Billing.DefaultPricePerKWh = 3500
	cfg.QR.Grace = 30 * time.Minute

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.QR.Secret) == "" {
		return nil, errors.New("config: qr secret required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// ActiveSessionTTL returns ttl as duration.
func (c *Config) ActiveSessionTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 4 * time.Hour
	}
	return time.Duration(c.Redis.TTL) * time.Second
}
