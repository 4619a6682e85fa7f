package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidTimestamp(t *testing.T) {
	assert.True(t, validTimestamp("20260826_030000"))
	assert.False(t, validTimestamp("20260826"))
	assert.False(t, validTimestamp("not_a_backup_xx"))
	assert.False(t, validTimestamp("20261340_990000"))
}

func TestListAndPrune(t *testing.T) {
	dir := t.TempDir()
	s := NewService(nil, nil, nil, Config{Dir: dir, RetentionDays: 30})

	old := time.Now().UTC().AddDate(0, 0, -45).Format(timestampLayout)
	recent := time.Now().UTC().AddDate(0, 0, -1).Format(timestampLayout)
	for _, name := range []string{old, recent, "stray_directory"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, recent, "manifest.json"),
		[]byte(`{"nodes":10,"edges":5,"vectors":7}`), 0o644))

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 2, "stray dir must be skipped")
	assert.Equal(t, recent, infos[0].Timestamp, "newest first")
	assert.Equal(t, 10, infos[0].Nodes)
	assert.Equal(t, 7, infos[0].Vectors)

	removed, err := s.Prune(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(dir, old))
	assert.True(t, os.IsNotExist(err), "old backup still on disk")
	_, err = os.Stat(filepath.Join(dir, recent))
	assert.NoError(t, err, "recent backup was pruned")
}

func TestListEmptyDir(t *testing.T) {
	s := NewService(nil, nil, nil, Config{Dir: filepath.Join(t.TempDir(), "missing")})
	infos, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}
