package dashboard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")

	saved := Layout{
		Connection: Connection{Host: "broker.local", Port: 8883, Username: "monitor"},
		Widgets: []WidgetSpec{
			{Type: WidgetTypeText, Topic: "home/door"},
			{Type: WidgetTypeGauge, Topic: "sensors/+/hum", Config: DisplayConfig{Min: 0, Max: 100, Unit: "%"}},
			{Type: WidgetTypeSparkline, Topic: "sensors/1/temp", Config: DisplayConfig{Points: 30}},
		},
	}

	require.NoError(t, SaveLayout(path, saved))

	loaded, err := LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestLoadLayoutMissingFile(t *testing.T) {
	loaded, err := LoadLayout(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultLayout(), loaded)
}

func TestLoadLayoutCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	loaded, err := LoadLayout(path)
	assert.Error(t, err)
	assert.Equal(t, DefaultLayout(), loaded, "corrupt file falls back to the default layout")
}

func TestLoadLayoutRejectsBadWidget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	content := `{"connection":{"host":"h","port":1883},"widgets":[{"type":"dial","topic":"a"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadLayout(path)
	assert.Error(t, err)

	content = `{"connection":{"host":"h","port":1883},"widgets":[{"type":"text","topic":"a/#/b"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err = LoadLayout(path)
	assert.Error(t, err)
}

func TestSaveLayoutCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "layout.json")
	require.NoError(t, SaveLayout(path, DefaultLayout()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
