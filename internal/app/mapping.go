package app

import (
	"fmt"
	"strings"

	"agroguru/internal/config"
	"agroguru/internal/crop"
	"agroguru/internal/housekeeping"
	"agroguru/internal/session"
	"agroguru/internal/storage"
	logx "agroguru/pkg/logx"
)

func mapLogging(cfg *config.Config) logx.Config {
	lc := cfg.Logging
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
		Telegram: logx.TelegramConfig{
			// Forwarding needs a target; without admin_chat it stays off.
			Enabled:    lc.Telegram.Enabled && cfg.Telegram.AdminChat != 0,
			ChatID:     cfg.Telegram.AdminChat,
			MinLevel:   lc.Telegram.MinLevel,
			RatePerSec: lc.Telegram.RatePerSec,
		},
	}
}

// mapStorage reports enabled=false for driver "none" or an empty driver.
func mapStorage(cfg *config.Config) (storage.Config, bool, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
	}
	busy, err := sc.BusyTimeoutDuration()
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
}

func mapHousekeeping(cfg *config.Config) (housekeeping.Config, error) {
	hc := cfg.Housekeeping
	retention, err := hc.AuditRetentionDuration()
	if err != nil {
		return housekeeping.Config{}, err
	}
	schedule := strings.TrimSpace(hc.Schedule)
	if schedule == "" {
		schedule = housekeeping.DefaultSchedule
	}
	return housekeeping.Config{Enabled: hc.Enabled, Schedule: schedule, AuditRetention: retention}, nil
}

// loadCrops returns the built-in table or the one from garden.crops_file,
// with garden.default_crop applied.
func loadCrops(cfg *config.Config) (*crop.Table, error) {
	tbl := crop.Builtin()
	if path := strings.TrimSpace(cfg.Garden.CropsFile); path != "" {
		t, err := crop.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("garden.crops_file: %w", err)
		}
		tbl = t
	}
	tbl, err := tbl.WithDefault(cfg.Garden.DefaultCrop)
	if err != nil {
		return nil, fmt.Errorf("garden.default_crop: %w", err)
	}
	return tbl, nil
}

func newSessionStore(cfg *config.Config, defaultCrop string) (session.Store, error) {
	if n := cfg.Garden.MaxSessions; n > 0 {
		return session.NewBoundedStore(defaultCrop, n)
	}
	return session.NewMemoryStore(defaultCrop), nil
}

// restartOnly lists settings that are read once at startup.
func restartOnly(oldCfg, newCfg *config.Config) []string {
	var out []string
	if oldCfg.Telegram.Token != newCfg.Telegram.Token || oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout {
		out = append(out, "telegram")
	}
	og, ng := oldCfg.Garden, newCfg.Garden
	if og.CropsFile != ng.CropsFile || og.DefaultCrop != ng.DefaultCrop {
		out = append(out, "garden.crops")
	}
	if og.MaxSessions != ng.MaxSessions {
		out = append(out, "garden.max_sessions")
	}
	if og.DefaultAreaM2 != ng.DefaultAreaM2 {
		out = append(out, "garden.default_area_m2")
	}
	if strings.TrimSpace(og.Timezone) != strings.TrimSpace(ng.Timezone) {
		out = append(out, "garden.timezone")
	}
	if oldCfg.Storage != newCfg.Storage {
		out = append(out, "storage")
	}
	return out
}
