package cert

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavedash-gg/wvdsh/internal/infrastructure/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), logging.NewNop())
}

func TestAcquireGeneratesAndPersists(t *testing.T) {
	store := newTestStore(t)

	material, err := store.Acquire()
	require.NoError(t, err)

	assert.FileExists(t, material.CertPath)
	assert.FileExists(t, material.KeyPath)
	assert.Equal(t, "wvdsh dev server", material.Leaf.Subject.CommonName)
	assert.Equal(t, []string{"localhost"}, material.Leaf.DNSNames)
	assert.Len(t, material.Leaf.IPAddresses, 2)
	assert.NotEmpty(t, material.SHA1)
	assert.Len(t, material.SHA256, 64)

	// Validity window: ~1 year with an hour of backdating.
	lifetime := material.NotAfter.Sub(material.NotBefore)
	assert.InDelta(t, float64(validity+time.Hour), float64(lifetime), float64(time.Minute))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(material.KeyPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestAcquireReusesValidMaterial(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Acquire()
	require.NoError(t, err)
	firstInfo, err := os.Stat(first.CertPath)
	require.NoError(t, err)

	second, err := store.Acquire()
	require.NoError(t, err)

	assert.Equal(t, first.CertPEM, second.CertPEM)
	assert.Equal(t, first.KeyPEM, second.KeyPEM)
	assert.Equal(t, first.SHA256, second.SHA256)

	// Reuse must not rewrite the files.
	secondInfo, err := os.Stat(second.CertPath)
	require.NoError(t, err)
	assert.Equal(t, firstInfo.ModTime(), secondInfo.ModTime())
}

func TestAcquireRegeneratesExpired(t *testing.T) {
	dir := t.TempDir()

	old := NewStore(dir, logging.NewNop())
	// Generate as if two years ago; the stored pair is expired today.
	old.now = func() time.Time { return time.Now().Add(-2 * 365 * 24 * time.Hour) }
	expired, err := old.Acquire()
	require.NoError(t, err)

	store := NewStore(dir, logging.NewNop())
	fresh, err := store.Acquire()
	require.NoError(t, err)

	assert.NotEqual(t, expired.CertPEM, fresh.CertPEM)
	assert.True(t, fresh.NotAfter.After(expired.NotAfter))
}

func TestAcquireRegeneratesWithinReuseMargin(t *testing.T) {
	dir := t.TempDir()

	near := NewStore(dir, logging.NewNop())
	near.now = func() time.Time { return time.Now().Add(-(validity - reuseMargin/2)) }
	stale, err := near.Acquire()
	require.NoError(t, err)

	store := NewStore(dir, logging.NewNop())
	fresh, err := store.Acquire()
	require.NoError(t, err)
	assert.NotEqual(t, stale.CertPEM, fresh.CertPEM)
}

func TestAcquireRegeneratesCorruptPair(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, logging.NewNop())

	first, err := store.Acquire()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(first.KeyPath, []byte("not a key"), 0o600))

	second, err := store.Acquire()
	require.NoError(t, err)
	assert.NotEqual(t, first.CertPEM, second.CertPEM)
}

func TestValidateSANs(t *testing.T) {
	store := newTestStore(t)
	material, err := store.Acquire()
	require.NoError(t, err)

	assert.NoError(t, validateSANs(material.Leaf))

	// A cert scoped to other names must not be reused.
	other := *material.Leaf
	other.DNSNames = []string{"example.com"}
	assert.Error(t, validateSANs(&other))
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cert.pem")
	require.NoError(t, writeAtomic(path, []byte("data"), 0o644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cert.pem", entries[0].Name())
}
