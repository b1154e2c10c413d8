package config

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied when a duration field is omitted.
const (
	DefaultPollTimeout    = 10 * time.Second
	DefaultBusyTimeout    = time.Second
	DefaultAuditRetention = 90 * 24 * time.Hour
)

// ParseDuration parses a non-negative duration field; empty yields def.
func ParseDuration(field, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", field)
	}
	return d, nil
}

func (t TelegramConfig) PollTimeoutDuration() (time.Duration, error) {
	return ParseDuration("telegram.poll_timeout", t.PollTimeout, DefaultPollTimeout)
}

func (s StorageConfig) BusyTimeoutDuration() (time.Duration, error) {
	return ParseDuration("storage.busy_timeout", s.BusyTimeout, DefaultBusyTimeout)
}

func (h HousekeepingConfig) AuditRetentionDuration() (time.Duration, error) {
	return ParseDuration("housekeeping.audit_retention", h.AuditRetention, DefaultAuditRetention)
}

// Location resolves garden.timezone; empty means time.Local.
func (g GardenConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(g.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("garden.timezone: invalid %q: %w", tz, err)
	}
	return loc, nil
}
