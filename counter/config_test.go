package counter

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	c, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig, *c)
}

func TestLoadConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "counter.yaml")
	data := `
database: /tmp/c.db
initial-value: -5
overflow: wrap
rpc-port: 9000
rpc-shutdown-timeout: 2s
max-mutations-per-second: 50
`
	require.NoError(t, ioutil.WriteFile(filename, []byte(data), 0600))

	c, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/c.db", c.Database)
	assert.Equal(t, int64(-5), c.InitialValue)
	assert.Equal(t, "wrap", c.Overflow)
	assert.Equal(t, 9000, c.RPCPort)
	assert.Equal(t, 2*time.Second, c.RPCShutdownTimeout)
	assert.Equal(t, float64(50), c.MaxMutationsPerSecond)
	// Unset keys keep defaults.
	assert.Equal(t, DefaultConfig.RPCHost, c.RPCHost)
}

func TestLoadConfigUnknownKey(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "counter.yaml")
	require.NoError(t, ioutil.WriteFile(filename, []byte("rpc-prot: 9000\n"), 0600))
	_, err := LoadConfig(filename)
	assert.Error(t, err)
}
