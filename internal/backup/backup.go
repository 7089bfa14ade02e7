package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"diarykeeper/internal/storage"
)

// envelopeVersion tags every written envelope for forward compatibility.
const envelopeVersion = 1

// Envelope wraps a backed-up value with a timestamp and format version.
type Envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
	Version   int             `json:"version"`
}

// Metadata is the global record describing the most recent backup
// operation system-wide. It is overwritten on every backup, not kept
// per key.
type Metadata struct {
	LastBackup string `json:"lastBackup"`
	BackupKey  string `json:"backupKey"`
	Status     string `json:"status"`
}

// Manager writes shadow backups alongside primary writes. Backups are a
// best-effort side channel: Create never returns an error, and its
// failure must never abort the primary write it accompanies.
type Manager struct {
	store     storage.Store
	namespace string
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager creates a Manager writing through the given store. The
// namespace must match the one used to derive the primary keys so that
// backup keys land in the same namespace.
func NewManager(store storage.Store, namespace string) *Manager {
	return &Manager{
		store:     store,
		namespace: namespace,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// KeyFor derives the backup key for a primary key:
// "<ns>@diary_sections" becomes "<ns>@backup_diary_sections".
func (m *Manager) KeyFor(key string) string {
	trimmed := strings.TrimPrefix(key, m.namespace)
	trimmed = strings.TrimPrefix(trimmed, "@")
	return m.namespace + "@backup_" + trimmed
}

// MetadataKey returns the key of the global backup metadata record.
func (m *Manager) MetadataKey() string {
	return m.namespace + "@backup_metadata"
}

// Create wraps value in an envelope, writes it under the backup key
// derived from key, then updates the global backup metadata. It reports
// success as true; any failure is logged and reported as false, never
// returned as an error.
func (m *Manager) Create(ctx context.Context, key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to marshal backup payload", "key", key, "error", err)
		return false
	}

	now := m.now().UTC().Format(time.RFC3339)
	envelope, err := json.Marshal(Envelope{
		Data:      data,
		Timestamp: now,
		Version:   envelopeVersion,
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to marshal backup envelope", "key", key, "error", err)
		return false
	}

	backupKey := m.KeyFor(key)
	if err := m.store.Set(ctx, backupKey, string(envelope)); err != nil {
		m.logger.ErrorContext(ctx, "failed to write backup", "key", backupKey, "error", err)
		return false
	}

	metadata, err := json.Marshal(Metadata{
		LastBackup: now,
		BackupKey:  backupKey,
		Status:     "success",
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to marshal backup metadata", "error", err)
		return false
	}
	if err := m.store.Set(ctx, m.MetadataKey(), string(metadata)); err != nil {
		m.logger.ErrorContext(ctx, "failed to write backup metadata", "error", err)
		return false
	}

	return true
}

// Restore reads the envelope stored under the backup key derived from
// key and returns the contained value. An absent or unparseable backup
// yields nil with a warning logged, never a hard failure.
func (m *Manager) Restore(ctx context.Context, key string) json.RawMessage {
	backupKey := m.KeyFor(key)

	raw, err := m.store.Get(ctx, backupKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.WarnContext(ctx, "failed to read backup", "key", backupKey, "error", err)
		}
		return nil
	}

	var envelope Envelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		m.logger.WarnContext(ctx, "backup envelope is unparseable", "key", backupKey, "error", err)
		return nil
	}

	return envelope.Data
}

// Info returns the last-known global backup metadata, or nil if no
// backup has been recorded yet.
func (m *Manager) Info(ctx context.Context) (*Metadata, error) {
	raw, err := m.store.Get(ctx, m.MetadataKey())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse backup metadata: %w", err)
	}

	return &metadata, nil
}
