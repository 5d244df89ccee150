package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Get("missing")
	assert.False(t, ok)

	require.NoError(t, s.Set(KeyLicenseKey, "KEY-123"))
	v, ok := s.Get(KeyLicenseKey)
	assert.True(t, ok)
	assert.Equal(t, "KEY-123", v)

	// Last write wins.
	require.NoError(t, s.Set(KeyLicenseKey, "KEY-456"))
	v, _ = s.Get(KeyLicenseKey)
	assert.Equal(t, "KEY-456", v)

	require.NoError(t, s.Delete(KeyLicenseKey))
	_, ok = s.Get(KeyLicenseKey)
	assert.False(t, ok)

	// Deleting an absent key is not an error.
	require.NoError(t, s.Delete("missing"))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)

	_, ok := s.Get("missing")
	assert.False(t, ok)

	require.NoError(t, s.Set(KeyTrialStartDate, "2026-08-01T09:00:00Z"))
	require.NoError(t, s.Set(KeyAllowedDomains, "CORP,OTHERCORP"))
	require.NoError(t, s.Set(KeyAllowedDomains, "CORP"))

	v, ok := s.Get(KeyAllowedDomains)
	assert.True(t, ok)
	assert.Equal(t, "CORP", v)

	require.NoError(t, s.Delete(KeyAllowedDomains))
	_, ok = s.Get(KeyAllowedDomains)
	assert.False(t, ok)
	require.NoError(t, s.Close())

	// Values survive reopening the database.
	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok = s.Get(KeyTrialStartDate)
	assert.True(t, ok)
	assert.Equal(t, "2026-08-01T09:00:00Z", v)
}
