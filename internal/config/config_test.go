package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsShell/internal/domain"
)

const sampleYAML = `
logging:
  level: warn
master:
  rootDomain: hankyung.com
  acceptedDomains: [shop.hankyung.com]
  environmentSuffix: -dev
  appHeaders:
    X-HK-App: test
surface:
  watchdog: 8s
pool:
  tabs:
    - https://www.hankyung.com/
    - https://www.hankyung.com/it
  maxLive: 4
scheduler:
  timezone: UTC
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsshell.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	cfg := Load()

	assert.Equal(t, "hankyung.com", cfg.Master.RootDomain)
	assert.Equal(t, 10*time.Second, cfg.Surface.Watchdog)
	assert.Equal(t, 300*time.Millisecond, cfg.Surface.SettleDelay)
	assert.Equal(t, 2, cfg.Pool.PreloadRadius)
	assert.Equal(t, 30*time.Second, cfg.Pool.PreloadCooldown)
	assert.Zero(t, cfg.Pool.MaxLive)
	assert.NotEmpty(t, cfg.Pool.Tabs)
	assert.NotNil(t, cfg.Scheduler.Location())
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv(configPathEnv, path)
	t.Setenv(httpAddrEnv, "0.0.0.0:9000")
	t.Setenv(journalDSNEnv, "file::memory:")

	cfg := Load()
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, []string{"shop.hankyung.com"}, cfg.Master.AcceptedDomains)
	assert.Equal(t, "-dev", cfg.Master.EnvironmentSuffix)
	assert.Equal(t, map[string]string{"X-HK-App": "test"}, cfg.Master.AppHeaders)
	assert.NotEmpty(t, cfg.Master.ExternalDomains, "unset lists keep defaults")
	assert.Equal(t, 8*time.Second, cfg.Surface.Watchdog)
	assert.Equal(t, 300*time.Millisecond, cfg.Surface.SettleDelay)
	assert.Len(t, cfg.Pool.Tabs, 2)
	assert.Equal(t, 4, cfg.Pool.MaxLive)
	assert.Equal(t, "0.0.0.0:9000", cfg.HTTP.Addr)
	assert.Equal(t, "file::memory:", cfg.Journal.DSN)
	assert.Equal(t, time.UTC, cfg.Scheduler.Location())
}

func TestEnvSuffixCanBeCleared(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv(configPathEnv, path)
	t.Setenv(envSuffixEnv, "")

	assert.Equal(t, "", Load().Master.EnvironmentSuffix)
}

func TestLoadFallsBackOnBadFile(t *testing.T) {
	t.Setenv(configPathEnv, writeConfig(t, "master: [unterminated"))
	cfg := Load()
	assert.Equal(t, DefaultMaster().AcceptedDomains, cfg.Master.AcceptedDomains)

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStoreUpdateAndListeners(t *testing.T) {
	store := NewStore(DefaultMaster())
	var seen []domain.MasterConfig
	store.OnChange(func(cfg domain.MasterConfig) { seen = append(seen, cfg) })

	assert.False(t, store.Update(DefaultMaster()), "identical snapshot is not a change")

	next := DefaultMaster()
	next.AcceptedDomains = []string{"shop.hankyung.com"}
	assert.True(t, store.Update(next))
	require.Len(t, seen, 1)
	assert.Equal(t, []string{"shop.hankyung.com"}, store.Current().AcceptedDomains)

	snap := store.Current()
	snap.AcceptedDomains[0] = "mutated"
	assert.Equal(t, "shop.hankyung.com", store.Current().AcceptedDomains[0])
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	store := NewStore(DefaultMaster())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, Watch(ctx, path, store, nil))

	updated := `
master:
  rootDomain: hankyung.com
  acceptedDomains: [live.hankyung.com]
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	require.Eventually(t, func() bool {
		return len(store.Current().AcceptedDomains) == 1 && store.Current().AcceptedDomains[0] == "live.hankyung.com"
	}, 3*time.Second, 20*time.Millisecond)
}
