package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/yeager/mqtt-dashboard/pkg/topics"
)

// WidgetSpec is the persisted form of a widget, without runtime state.
type WidgetSpec struct {
	Type   WidgetType    `json:"type"`
	Topic  string        `json:"topic"`
	Config DisplayConfig `json:"config,omitempty"`
}

// Connection holds the broker parameters stored with a layout. The password
// is deliberately not persisted; only a reference to where it can be found.
type Connection struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username,omitempty"`
	PasswordRef string `json:"passwordRef,omitempty"`
}

// Layout is the saved dashboard: connection parameters plus the ordered
// widget list.
type Layout struct {
	Connection Connection   `json:"connection"`
	Widgets    []WidgetSpec `json:"widgets"`
}

// DefaultLayout is what the dashboard starts from when no layout file
// exists yet.
func DefaultLayout() Layout {
	return Layout{Connection: Connection{Host: "localhost", Port: 1883}}
}

// DefaultLayoutPath resolves the per-user layout file location.
func DefaultLayoutPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "mqtt-dashboard.json"
	}
	return filepath.Join(dir, "mqtt-dashboard", "layout.json")
}

// Validate checks the fields a loaded layout must carry before widgets can
// be built from it.
func (l *Layout) Validate() error {
	if l.Connection.Port < 0 || l.Connection.Port > 65535 {
		return eris.Errorf("connection port %d out of range", l.Connection.Port)
	}
	for i, w := range l.Widgets {
		if _, err := ParseWidgetType(string(w.Type)); err != nil {
			return eris.Wrapf(err, "widget %d", i)
		}
		if err := topics.ValidateFilter(w.Topic); err != nil {
			return eris.Wrapf(err, "widget %d", i)
		}
	}
	return nil
}

// LoadLayout reads a layout file. A missing file is not an error: the
// default layout is returned so startup can continue. Corrupt or invalid
// content returns the default layout together with a descriptive error.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultLayout(), nil
		}
		return DefaultLayout(), eris.Wrapf(err, "failed to read layout file %s", path)
	}

	var layout Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return DefaultLayout(), eris.Wrapf(err, "failed to parse layout file %s", path)
	}
	if err := layout.Validate(); err != nil {
		return DefaultLayout(), eris.Wrapf(err, "invalid layout file %s", path)
	}
	if layout.Connection.Host == "" {
		layout.Connection = DefaultLayout().Connection
	}
	return layout, nil
}

// SaveLayout writes the layout atomically: tmp file in the same directory,
// then rename over the target.
func SaveLayout(path string, layout Layout) error {
	if err := layout.Validate(); err != nil {
		return eris.Wrap(err, "refusing to save invalid layout")
	}

	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return eris.Wrap(err, "failed to encode layout")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "failed to create layout directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".layout-*.json")
	if err != nil {
		return eris.Wrap(err, "failed to create temp layout file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrap(err, "failed to write layout")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "failed to close layout file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "failed to replace layout file %s", path)
	}
	return nil
}
