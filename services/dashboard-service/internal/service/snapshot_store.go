package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grigta/covid-tracker/pkg/cache"
	"github.com/grigta/covid-tracker/pkg/logger"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
)

const snapshotSaveTimeout = 2 * time.Second

// KeyValueStore is the subset of *cache.RedisCache the snapshot store uses.
type KeyValueStore interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// SnapshotStore persists per-session view preferences.
type SnapshotStore interface {
	Load(ctx context.Context, sessionID string) (models.Preferences, bool, error)
	Save(ctx context.Context, sessionID string, prefs models.Preferences) error
}

// RedisSnapshotStore keeps preferences under "session:<id>" with a sliding TTL.
type RedisSnapshotStore struct {
	kv     KeyValueStore
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisSnapshotStore(kv KeyValueStore, ttl time.Duration, log logger.Logger) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		kv:     kv,
		ttl:    ttl,
		logger: log.WithField("component", "snapshot_store"),
	}
}

func snapshotKey(sessionID string) string {
	return "session:" + sessionID
}

// Load returns false without error when nothing is stored for sessionID.
func (s *RedisSnapshotStore) Load(ctx context.Context, sessionID string) (models.Preferences, bool, error) {
	var prefs models.Preferences
	err := s.kv.GetJSON(ctx, snapshotKey(sessionID), &prefs)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.Preferences{}, false, nil
	}
	if err != nil {
		return models.Preferences{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	return prefs, true, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, sessionID string, prefs models.Preferences) error {
	if err := s.kv.Set(ctx, snapshotKey(sessionID), prefs, s.ttl); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Listener returns a controller listener that writes preferences whenever they change.
func (s *RedisSnapshotStore) Listener(sessionID string) Listener {
	var last *models.Preferences

	return func(state models.ViewState) {
		prefs := state.Preferences()
		if last != nil && *last == prefs {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), snapshotSaveTimeout)
		defer cancel()

		if err := s.Save(ctx, sessionID, prefs); err != nil {
			RecordObserverError("snapshot")
			s.logger.WithError(err).Warn("Failed to persist session snapshot",
				logger.Field{Key: "session_id", Value: sessionID},
			)
			return
		}
		last = &prefs
	}
}
