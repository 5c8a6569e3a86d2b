package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/room-booking/internal/recurrence"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// RateLimitConfig tunes the per-client request limiter.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BlackoutConfig names the weekdays excluded from recurrence expansion.
type BlackoutConfig struct {
	WeeklyOffDay string `yaml:"weekly_off_day"`
	WeekendDay   string `yaml:"weekend_day"`
}

// Config captures runtime configuration for the booking service. Values come
// from an optional YAML file with environment variables taking precedence.
type Config struct {
	HTTPPort  int             `yaml:"http_port"`
	SQLiteDSN string          `yaml:"sqlite_dsn"`
	CacheTTL  Duration        `yaml:"cache_ttl"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Blackout  BlackoutConfig  `yaml:"blackout"`
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. An empty path falls back to ROOMBOOK_CONFIG; a missing file is
// not an error because every field has a default.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPPort:  8080,
		SQLiteDSN: "file:roombook.db?_foreign_keys=on",
		CacheTTL:  Duration(30 * time.Second),
		RateLimit: RateLimitConfig{RPS: 10, Burst: 20},
		Blackout: BlackoutConfig{
			WeeklyOffDay: time.Friday.String(),
			WeekendDay:   time.Saturday.String(),
		},
	}

	if path == "" {
		path = strings.TrimSpace(os.Getenv("ROOMBOOK_CONFIG"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// defaults plus environment only
		default:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ROOMBOOK_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ROOMBOOK_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ROOMBOOK_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ROOMBOOK_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ROOMBOOK_CACHE_TTL")
		} else {
			cfg.CacheTTL = Duration(ttl)
		}
	}

	if rpsValue := strings.TrimSpace(os.Getenv("ROOMBOOK_RATE_LIMIT_RPS")); rpsValue != "" {
		rps, err := strconv.ParseFloat(rpsValue, 64)
		if err != nil || rps <= 0 {
			invalid = append(invalid, "ROOMBOOK_RATE_LIMIT_RPS")
		} else {
			cfg.RateLimit.RPS = rps
		}
	}

	if burstValue := strings.TrimSpace(os.Getenv("ROOMBOOK_RATE_LIMIT_BURST")); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "ROOMBOOK_RATE_LIMIT_BURST")
		} else {
			cfg.RateLimit.Burst = burst
		}
	}

	if day := strings.TrimSpace(os.Getenv("ROOMBOOK_BLACKOUT_OFF_DAY")); day != "" {
		cfg.Blackout.WeeklyOffDay = day
	}
	if day := strings.TrimSpace(os.Getenv("ROOMBOOK_BLACKOUT_WEEKEND_DAY")); day != "" {
		cfg.Blackout.WeekendDay = day
	}

	if _, err := parseWeekday(cfg.Blackout.WeeklyOffDay); err != nil {
		invalid = append(invalid, "blackout.weekly_off_day")
	}
	if _, err := parseWeekday(cfg.Blackout.WeekendDay); err != nil {
		invalid = append(invalid, "blackout.weekend_day")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// BlackoutPolicy converts the configured weekday names into an expansion
// policy. Load has already validated the names.
func (c Config) BlackoutPolicy() recurrence.BlackoutPolicy {
	offDay, _ := parseWeekday(c.Blackout.WeeklyOffDay)
	weekendDay, _ := parseWeekday(c.Blackout.WeekendDay)
	return recurrence.BlackoutPolicy{WeeklyOffDay: offDay, WeekendDay: weekendDay}
}

func parseWeekday(name string) (time.Weekday, error) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.EqualFold(name, day.String()) {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}
