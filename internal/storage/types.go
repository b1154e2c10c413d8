package storage

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values: "file", "sqlite". Empty or "none" disables storage.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records one settings mutation made by a user.
type AuditEntry struct {
	At        time.Time `json:"at"`
	UserID    int64     `json:"user_id"`
	ChatID    int64     `json:"chat_id"`
	Field     string    `json:"field"`
	Value     string    `json:"value,omitempty"`
	RequestID string    `json:"rid,omitempty"`
}

// Store is the persistence API used by the audit recorder and housekeeping.
type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	// ListAudit returns the newest entries for userID, newest first. limit <= 0 means all.
	ListAudit(ctx context.Context, userID int64, limit int) ([]AuditEntry, error)
	// PruneAudit deletes entries older than before and reports how many were removed.
	PruneAudit(ctx context.Context, before time.Time) (int, error)
	Close() error
}
