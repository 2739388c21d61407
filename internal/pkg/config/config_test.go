package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	conf, err := Parse(viper.New(), "", &CLI{})
	require.NoError(t, err)

	assert.Equal(t, 1883, conf.BrokerPort)
	assert.NotEmpty(t, conf.LayoutFile)
	assert.Equal(t, 1000, conf.LogCapacity)
	assert.Equal(t, 50, conf.SparklinePoints)
	assert.True(t, conf.Logging.Enabled)
	assert.Equal(t, logrus.InfoLevel, conf.Logging.Level)
}

func TestParseConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logging:
  level: debug
  file:
    maxsize: 10MiB
logcapacity: 50
sparklinepoints: 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	conf, err := Parse(viper.New(), path, &CLI{})
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, conf.Logging.Level)
	assert.Equal(t, FileSize(10*1024*1024), conf.Logging.File.MaxSize)
	assert.Equal(t, 50, conf.LogCapacity)
	assert.Equal(t, 25, conf.SparklinePoints)
}

func TestParseCliOverridesDefaults(t *testing.T) {
	cli := &CLI{Broker: "broker.local", BrokerPort: 8883}
	conf, err := Parse(viper.New(), "", cli)
	require.NoError(t, err)

	assert.Equal(t, "broker.local", conf.Broker)
	assert.Equal(t, 8883, conf.BrokerPort)
}

func TestParseMissingConfigFile(t *testing.T) {
	_, err := Parse(viper.New(), "/nonexistent/config.yaml", &CLI{})
	assert.Error(t, err)
}

func TestParseConfigPathUnderRegularFile(t *testing.T) {
	// stat fails with ENOTDIR here, not ENOENT
	plain := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o644))

	_, err := Parse(viper.New(), filepath.Join(plain, "config.yaml"), &CLI{})
	assert.Error(t, err)
}

func TestParseConfigPathIsDirectory(t *testing.T) {
	_, err := Parse(viper.New(), t.TempDir(), &CLI{})
	assert.Error(t, err)
}
