package authcore

import (
	"context"
	"sync"
)

// memoryMFAProfileStore is the default profile store. Production embeddings
// are expected to supply one backed by their secret store instead.
type memoryMFAProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]MFAProfile
}

// NewMemoryMFAProfileStore returns an in-memory [MFAProfileStore].
func NewMemoryMFAProfileStore() MFAProfileStore {
	return &memoryMFAProfileStore{profiles: map[string]MFAProfile{}}
}

// Get returns the identity's profile, or a fresh unenrolled one when no
// record exists yet. Profiles are never hard-deleted.
func (s *memoryMFAProfileStore) Get(_ context.Context, identityID string) (*MFAProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.profiles[identityID]; ok {
		out := p
		out.Secret = append([]byte(nil), p.Secret...)
		out.BackupCodes = append([][32]byte(nil), p.BackupCodes...)
		return &out, nil
	}
	return &MFAProfile{IdentityID: identityID, State: MFAUnenrolled}, nil
}

func (s *memoryMFAProfileStore) Put(_ context.Context, profile *MFAProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *profile
	stored.Secret = append([]byte(nil), profile.Secret...)
	stored.BackupCodes = append([][32]byte(nil), profile.BackupCodes...)
	s.profiles[profile.IdentityID] = stored
	return nil
}
