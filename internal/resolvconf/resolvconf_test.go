package resolvconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConf(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestParsesNameservers(t *testing.T) {
	path := writeConf(t, "nameserver 8.8.8.8\nnameserver 1.1.1.1\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Nameservers, 2)
	assert.Equal(t, "8.8.8.8", cfg.Nameservers[0].String())
	assert.Equal(t, "1.1.1.1", cfg.Nameservers[1].String())
}

func TestSearchLastDirectiveWins(t *testing.T) {
	path := writeConf(t, "search first.example second.example\nsearch only.example\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"only.example"}, cfg.SearchPaths)
}

func TestOptionsRotateTimeoutAttemptsNdots(t *testing.T) {
	path := writeConf(t, "options rotate timeout:45 attempts:9 ndots:3\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Rotate)
	assert.Equal(t, MaxTimeoutSeconds, cfg.Timeout) // capped
	assert.Equal(t, MaxAttempts, cfg.Attempts)       // capped
	assert.Equal(t, 3, cfg.Ndots)
}

func TestCommentsAndBlankLinesIgnored(t *testing.T) {
	path := writeConf(t, "; comment\n# also a comment\n\nnameserver 9.9.9.9\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Nameservers, 1)
}

func TestDefaultsAppliedWhenAbsent(t *testing.T) {
	path := writeConf(t, "nameserver 9.9.9.9\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeoutSeconds, cfg.Timeout)
	assert.Equal(t, DefaultAttempts, cfg.Attempts)
	assert.Equal(t, DefaultNdots, cfg.Ndots)
	assert.False(t, cfg.Rotate)
}
