// Package store provides the persistent key/value configuration store used
// by the license and authentication engines. The store is a plain
// last-write-wins mapping with no transactional guarantees; callers treat
// read and write failures as "value absent" and degrade accordingly.
package store

import "sync"

// Canonical keys written by the engines.
const (
	KeyTrialStartDate       = "trial_start_date"
	KeyLicenseKey           = "license_key"
	KeyLicenseEmail         = "license_email"
	KeyLicenseActivatedDate = "license_activated_date"
	KeyLicenseLastVerified  = "license_last_verified"
	KeyLicensePurchaseData  = "license_purchase_data"
	KeyAllowedDomains       = "allowed_domains"
	KeyLastAuthUser         = "last_auth_user"
	KeyLastAuthTime         = "last_auth_time"
	KeyLastAuthMethod       = "last_auth_method"
	KeyCachedAuthUsers      = "cached_auth_users"
)

// Store is the configuration store contract consumed by the engines
type Store interface {
	// Get returns the stored value for key and whether it was present
	Get(key string) (string, bool)
	// Set stores value under key, overwriting any previous value
	Set(key, value string) error
	// Delete removes key; deleting an absent key is not an error
	Delete(key string) error
}

// MemoryStore is an in-memory Store, used in tests and as a degraded
// fallback when no database path is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the stored value for key
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes key
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
