package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.Nil(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppConfigDefaults(t *testing.T) {
	c, err := LoadAppConfig("")
	require.Nil(t, err)
	assert.Equal(t, DefaultAppConfig(), c)
	assert.Equal(t, "127.0.0.1:5000", c.Addr())
}

func TestLoadAppConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
port: 5001
mining_reward: 2.5
peer_timeout: 250ms
pending_on_replace: prune
peers:
  - http://127.0.0.1:5002
  - http://127.0.0.1:5003
log_level: debug
`)
	c, err := LoadAppConfig(path)
	require.Nil(t, err)
	assert.Equal(t, 5001, c.PORT)
	assert.Equal(t, 2.5, c.MINING_REWARD)
	assert.Equal(t, 250*time.Millisecond, c.PEER_TIMEOUT)
	assert.Equal(t, PENDING_PRUNE, c.PENDING_ON_REPLACE)
	assert.Equal(t, []string{"http://127.0.0.1:5002", "http://127.0.0.1:5003"}, c.PEERS)
	assert.Equal(t, "debug", c.LOG_LEVEL)
	// Untouched keys keep their defaults.
	assert.Equal(t, "127.0.0.1", c.HOST)
	assert.True(t, c.REMINE_ON_CHAIN_REPLACE)
}

func TestLoadAppConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, "port: 5001\n")
	t.Setenv("TOYCHAIN_PORT", "6000")
	t.Setenv("TOYCHAIN_PEERS", "http://a:1,http://b:2")
	t.Setenv("TOYCHAIN_DEVELOPMENT", "true")
	t.Setenv("TOYCHAIN_PEER_RETRIES", "3")

	c, err := LoadAppConfig(path)
	require.Nil(t, err)
	assert.Equal(t, 6000, c.PORT)
	assert.Equal(t, []string{"http://a:1", "http://b:2"}, c.PEERS)
	assert.True(t, c.DEVELOPMENT)
	assert.Equal(t, uint64(3), c.PEER_RETRIES)
}

func TestLoadAppConfigErrors(t *testing.T) {
	_, err := LoadAppConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)

	_, err = LoadAppConfig(writeConfig(t, "port: [1, 2\n"))
	assert.NotNil(t, err)

	_, err = LoadAppConfig(writeConfig(t, "difficulty: 5\n"))
	assert.NotNil(t, err)

	_, err = LoadAppConfig(writeConfig(t, "pending_on_replace: merge\n"))
	assert.NotNil(t, err)

	_, err = LoadAppConfig(writeConfig(t, "peer_timeout: 0s\n"))
	assert.NotNil(t, err)

	for _, reward := range []string{".inf", "-.inf", ".nan", "-1"} {
		_, err = LoadAppConfig(writeConfig(t, "mining_reward: "+reward+"\n"))
		assert.NotNil(t, err, reward)
	}
}

func TestResolveTimeout(t *testing.T) {
	c := DefaultAppConfig()
	c.PEER_TIMEOUT = time.Second
	assert.Equal(t, time.Second, c.ResolveTimeout())

	c.PEER_RETRIES = 2
	assert.Equal(t, 3*time.Second+2*PEER_RETRY_MAX_INTERVAL, c.ResolveTimeout())
}
