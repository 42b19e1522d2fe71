package store

import (
	"context"
	"sync"

	"frostwatch/internal/types"
)

// FarmerStore is an in-memory farmer directory keyed by phone number.
type FarmerStore struct {
	mu      sync.RWMutex
	order   []string // phone numbers in registration order
	farmers map[string]types.Farmer
}

// NewFarmerStore creates an empty FarmerStore.
func NewFarmerStore() *FarmerStore {
	return &FarmerStore{farmers: make(map[string]types.Farmer)}
}

// Register adds a farmer. Registering an already-known phone number fails
// with a conflict error.
func (s *FarmerStore) Register(_ context.Context, f types.Farmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.farmers[f.PhoneNumber]; exists {
		return types.NewAppError(
			types.ErrCodeConflictPhoneExists,
			"a farmer with this phone number is already registered",
			nil,
		)
	}
	s.farmers[f.PhoneNumber] = f
	s.order = append(s.order, f.PhoneNumber)
	return nil
}

// ListAll returns all registered farmers in registration order.
func (s *FarmerStore) ListAll(_ context.Context) ([]types.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Farmer, 0, len(s.order))
	for _, phone := range s.order {
		out = append(out, s.farmers[phone])
	}
	return out, nil
}

// ListAllPhoneNumbers returns the phone numbers of all registered farmers in
// registration order.
func (s *FarmerStore) ListAllPhoneNumbers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}

// FindByPhone returns the farmer registered with the given phone number, or
// nil when none matches.
func (s *FarmerStore) FindByPhone(_ context.Context, phoneNumber string) (*types.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.farmers[phoneNumber]
	if !ok {
		return nil, nil
	}
	return &f, nil
}
