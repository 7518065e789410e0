package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vcard-service/internal/client"
	"vcard-service/internal/model"
	"vcard-service/internal/util"
)

const (
	historyKeyPrefix = "vcard_history_"
	activeKeyPrefix  = "vcard_active_"

	opTimeout = 5 * time.Second
)

func HistoryKey(email string) string { return historyKeyPrefix + email }

func ActiveKey(email string) string { return activeKeyPrefix + email }

// SessionStore persists the active card and history of one user partition.
type SessionStore struct {
	kv client.KV
}

func NewSessionStore(kv client.KV) *SessionStore {
	return &SessionStore{kv: kv}
}

// Load returns the stored session for email. Absent or malformed values load
// as empty; only backend failures are returned.
func (s *SessionStore) Load(ctx context.Context, email string) (model.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var session model.Session

	var history []model.CardTransaction
	found, err := readJSON(ctx, s.kv, HistoryKey(email), &history)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to load history: %w", err)
	}
	if found {
		session.History = history
	}

	var active model.CardTransaction
	found, err = readJSON(ctx, s.kv, ActiveKey(email), &active)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to load active card: %w", err)
	}
	if found && active.ID != "" {
		session.ActiveCard = &active
	}

	return session, nil
}

// Save writes both partitions. An empty history or nil active card removes
// its key instead of writing an empty value.
func (s *SessionStore) Save(ctx context.Context, email string, session model.Session) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if len(session.History) == 0 {
		if err := s.kv.Del(ctx, HistoryKey(email)); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
	} else if err := writeJSON(ctx, s.kv, HistoryKey(email), session.History); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	if session.ActiveCard == nil {
		if err := s.kv.Del(ctx, ActiveKey(email)); err != nil {
			return fmt.Errorf("failed to clear active card: %w", err)
		}
	} else if err := writeJSON(ctx, s.kv, ActiveKey(email), session.ActiveCard); err != nil {
		return fmt.Errorf("failed to save active card: %w", err)
	}

	util.Debug("Session saved",
		util.Email("user", email),
		util.Int("history_len", len(session.History)),
		util.Bool("has_active", session.ActiveCard != nil))
	return nil
}

// readJSON decodes key into dst. It reports false for a missing key and for a
// value that is not valid JSON of the expected shape.
func readJSON(ctx context.Context, kv client.KV, key string, dst any) (bool, error) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		util.Warn("Discarding malformed stored value",
			util.String("key", key),
			zap.Error(err))
		return false, nil
	}
	return true, nil
}

func writeJSON(ctx context.Context, kv client.KV, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, string(raw))
}
