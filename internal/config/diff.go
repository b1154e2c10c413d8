package config

import (
	"strings"

	logx "agroguru/pkg/logx"
)

// SummarizeChange returns the changed top-level sections and safe structured
// fields for logging. Tokens are never included.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var (
		changed []string
		fields  []logx.Field
	)

	o, n := oldCfg.Telegram, newCfg.Telegram
	if o.Token != n.Token || o.PollTimeout != n.PollTimeout || o.AdminChat != n.AdminChat {
		changed = append(changed, "telegram")
		fields = append(fields,
			logx.Bool("telegram.token_changed", o.Token != n.Token),
			logx.String("telegram.poll_timeout", n.PollTimeout),
			logx.Bool("telegram.admin_chat_set", n.AdminChat != 0),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram", newCfg.Logging.Telegram.Enabled),
		)
	}

	og, ng := oldCfg.Garden, newCfg.Garden
	if og.WindowDays() != ng.WindowDays() || og.DefaultCrop != ng.DefaultCrop || og.CropsFile != ng.CropsFile ||
		og.DefaultAreaM2 != ng.DefaultAreaM2 || og.MaxSessions != ng.MaxSessions ||
		og.UserRatePerSec != ng.UserRatePerSec || og.UserBurst != ng.UserBurst ||
		strings.TrimSpace(og.Timezone) != strings.TrimSpace(ng.Timezone) {
		changed = append(changed, "garden")
		fields = append(fields,
			logx.Int("garden.window_days", ng.WindowDays()),
			logx.String("garden.default_crop", ng.DefaultCrop),
			logx.Int("garden.max_sessions", ng.MaxSessions),
			logx.Float64("garden.user_rate_per_sec", ng.UserRatePerSec),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		fields = append(fields, logx.String("storage.driver", newCfg.Storage.Driver))
	}

	if oldCfg.Housekeeping != newCfg.Housekeeping {
		changed = append(changed, "housekeeping")
		fields = append(fields,
			logx.Bool("housekeeping.enabled", newCfg.Housekeeping.Enabled),
			logx.String("housekeeping.schedule", newCfg.Housekeeping.Schedule),
		)
	}
	return changed, fields
}
