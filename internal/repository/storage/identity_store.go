package storage

import (
	"context"
	"errors"
	"fmt"

	"vcard-service/internal/client"
	"vcard-service/internal/model"
)

const (
	UserKey      = "tempo_user"
	LastUserKey  = "tempo_last_user"
	IntroSeenKey = "tempo_intro_seen"
)

// IdentityStore persists the logged-in profile and the intro flag of one
// browser profile.
type IdentityStore struct {
	kv client.KV
}

func NewIdentityStore(kv client.KV) *IdentityStore {
	return &IdentityStore{kv: kv}
}

// CurrentUser returns the persisted profile, or nil when nobody is logged in.
func (s *IdentityStore) CurrentUser(ctx context.Context) (*model.UserProfile, error) {
	return s.readProfile(ctx, UserKey)
}

// LastUser returns the profile of the most recent logout, if any.
func (s *IdentityStore) LastUser(ctx context.Context) (*model.UserProfile, error) {
	return s.readProfile(ctx, LastUserKey)
}

func (s *IdentityStore) SaveUser(ctx context.Context, profile model.UserProfile) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := writeJSON(ctx, s.kv, UserKey, profile); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// ClearUser removes the current identity and keeps it as the login hint.
// User partitions are left untouched.
func (s *IdentityStore) ClearUser(ctx context.Context, profile model.UserProfile) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := writeJSON(ctx, s.kv, LastUserKey, profile); err != nil {
		return fmt.Errorf("failed to save login hint: %w", err)
	}
	if err := s.kv.Del(ctx, UserKey); err != nil {
		return fmt.Errorf("failed to clear user: %w", err)
	}
	return nil
}

func (s *IdentityStore) IntroSeen(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	v, err := s.kv.Get(ctx, IntroSeenKey)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read intro flag: %w", err)
	}
	return v == "true", nil
}

func (s *IdentityStore) MarkIntroSeen(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.kv.Set(ctx, IntroSeenKey, "true"); err != nil {
		return fmt.Errorf("failed to save intro flag: %w", err)
	}
	return nil
}

func (s *IdentityStore) readProfile(ctx context.Context, key string) (*model.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var profile model.UserProfile
	found, err := readJSON(ctx, s.kv, key, &profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !found || profile.Email == "" {
		return nil, nil
	}
	return &profile, nil
}
