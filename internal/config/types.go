package config

// Config is the on-disk configuration (JSON, or YAML coerced to JSON).
//
// Durations are Go duration strings ("10s", "720h").
type Config struct {
	Telegram     TelegramConfig     `json:"telegram"`
	Logging      LoggingConfig      `json:"logging"`
	Garden       GardenConfig       `json:"garden"`
	Storage      StorageConfig      `json:"storage"`
	Housekeeping HousekeepingConfig `json:"housekeeping"`
}

type TelegramConfig struct {
	// Token may be left empty in the file and supplied via TELEGRAM_TOKEN.
	Token       string `json:"token" validate:"required"`
	PollTimeout string `json:"poll_timeout,omitempty" validate:"omitempty,duration"`
	// AdminChat receives forwarded warning logs when logging.telegram is enabled.
	AdminChat int64 `json:"admin_chat,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level" validate:"omitempty,loglevel"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty" validate:"omitempty,loglevel"`
	RatePerSec int    `json:"rate_per_sec,omitempty" validate:"gte=0,lte=30"`
}

// GardenConfig controls the assistant itself.
//
// Example:
//
//	"garden": { "default_crop": "iris", "calendar_window_days": 30, "max_sessions": 10000 }
type GardenConfig struct {
	DefaultCrop string `json:"default_crop,omitempty"`
	// CalendarWindowDays is a pointer so an explicit 0 (today only) differs from "omitted" (30).
	CalendarWindowDays *int `json:"calendar_window_days,omitempty" validate:"omitempty,gte=0,lte=366"`
	// CropsFile optionally replaces the built-in crop table with a YAML file.
	CropsFile     string  `json:"crops_file,omitempty"`
	DefaultAreaM2 float64 `json:"default_area_m2,omitempty" validate:"gte=0,lte=1000000"`
	// MaxSessions bounds the session store (LRU). 0 means unbounded.
	MaxSessions    int     `json:"max_sessions,omitempty" validate:"gte=0"`
	UserRatePerSec float64 `json:"user_rate_per_sec,omitempty" validate:"gte=0"`
	UserBurst      int     `json:"user_burst,omitempty" validate:"gte=0"`
	// Timezone is the IANA zone "today" is evaluated in. Empty means local time.
	Timezone string `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

// StorageConfig controls the audit trail store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/agroguru.db" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty" validate:"omitempty,oneof=none file sqlite sqlite3"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty" validate:"omitempty,duration"`
}

type HousekeepingConfig struct {
	Enabled        bool   `json:"enabled"`
	Schedule       string `json:"schedule,omitempty" validate:"omitempty,cronspec"`
	AuditRetention string `json:"audit_retention,omitempty" validate:"omitempty,duration"`
}

const DefaultWindowDays = 30

// WindowDays resolves garden.calendar_window_days.
func (g GardenConfig) WindowDays() int {
	if g.CalendarWindowDays == nil {
		return DefaultWindowDays
	}
	return *g.CalendarWindowDays
}
