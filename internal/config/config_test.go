package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ev3.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Name)
	assert.Equal(t, "sim", cfg.Link.Type)
	assert.Equal(t, 2*time.Second, cfg.Link.ReadTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Polling.Interval)
	assert.Equal(t, 3, cfg.Brick.GuardThreshold)
	assert.Equal(t, "ev3:events", cfg.Redis.Channel)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_Sensors(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
link:
  type: serial
  device: /dev/rfcomm0
sensors:
  - port: "1"
    kind: touch
    threshold: 50
    watch: true
  - port: "4"
    kind: ultrasonic
    bottom: 30
    top: 90
`))
	require.NoError(t, err)
	require.Len(t, cfg.Sensors, 2)
	assert.Equal(t, "serial", cfg.Link.Type)
	assert.Equal(t, SensorConfig{Port: "1", Kind: "touch", Threshold: 50, Watch: true}, cfg.Sensors[0])
	assert.Equal(t, 90.0, cfg.Sensors[1].Top)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("EV3_POLLING_INTERVAL", "100ms")
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.Polling.Interval)
}

func TestValidate(t *testing.T) {
	_, err := Load(writeConfig(t, "link:\n  type: serial\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "link:\n  type: usb\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `
sensors:
  - port: "1"
    kind: touch
  - port: "1"
    kind: gyro-rate
`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "api:\n  authEnabled: true\n"))
	assert.Error(t, err)

	cfg, err := Load(writeConfig(t, "api:\n  authEnabled: true\n  apiKeys: [k1]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, cfg.API.APIKeys)
}
