package dashboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"github.com/rotisserie/eris"
)

type WidgetType string

const (
	WidgetTypeText      WidgetType = "text"
	WidgetTypeGauge     WidgetType = "gauge"
	WidgetTypeSparkline WidgetType = "sparkline"
)

const DefaultSparklinePoints = 50

const (
	defaultGaugeMin = 0
	defaultGaugeMax = 100
)

func ParseWidgetType(s string) (WidgetType, error) {
	switch WidgetType(strings.ToLower(s)) {
	case WidgetTypeText:
		return WidgetTypeText, nil
	case WidgetTypeGauge:
		return WidgetTypeGauge, nil
	case WidgetTypeSparkline:
		return WidgetTypeSparkline, nil
	}
	return "", eris.Errorf("unknown widget type %q", s)
}

// DisplayConfig holds the rendering options of a widget. Zero values get
// replaced with per-type defaults when the widget is created.
type DisplayConfig struct {
	Label  string  `json:"label,omitempty"`
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Unit   string  `json:"unit,omitempty"`
	Format string  `json:"format,omitempty"`
	Points int     `json:"points,omitempty"`
}

// Widget is the in-memory state of one dashboard tile. All mutation goes
// through Apply on the engine dispatcher goroutine; the GUI only reads.
type Widget struct {
	id     string
	typ    WidgetType
	filter string
	cfg    DisplayConfig

	lastPayload string
	lastUpdate  time.Time
	value       float64
	hasValue    bool
	invalid     bool
	history     []float64
}

func NewWidget(typ WidgetType, filter string, cfg DisplayConfig) *Widget {
	// normalize case so a "Gauge" from a hand-edited layout file behaves
	// like "gauge"
	if parsed, err := ParseWidgetType(string(typ)); err == nil {
		typ = parsed
	}
	if cfg.Max == 0 && cfg.Min == 0 {
		cfg.Min = defaultGaugeMin
		cfg.Max = defaultGaugeMax
	}
	if cfg.Points <= 0 {
		cfg.Points = DefaultSparklinePoints
	}
	if cfg.Label == "" {
		cfg.Label = filter
	}
	return &Widget{id: shortuuid.New(), typ: typ, filter: filter, cfg: cfg}
}

func (w *Widget) ID() string            { return w.id }
func (w *Widget) Type() WidgetType      { return w.typ }
func (w *Widget) Filter() string        { return w.filter }
func (w *Widget) Config() DisplayConfig { return w.cfg }
func (w *Widget) LastPayload() string   { return w.lastPayload }
func (w *Widget) LastUpdate() time.Time { return w.lastUpdate }

// Invalid reports whether the most recent payload could not be interpreted
// for this widget type.
func (w *Widget) Invalid() bool { return w.invalid }

// Value returns the last successfully parsed numeric sample. The bool is
// false until a gauge or sparkline widget has seen one valid payload.
func (w *Widget) Value() (float64, bool) { return w.value, w.hasValue }

// History returns a copy of the sparkline samples, oldest first.
func (w *Widget) History() []float64 {
	out := make([]float64, len(w.history))
	copy(out, w.history)
	return out
}

// Apply folds an incoming payload into the widget state.
func (w *Widget) Apply(payload string, at time.Time) {
	w.lastPayload = payload
	w.lastUpdate = at

	switch w.typ {
	case WidgetTypeText:
		w.invalid = false
	case WidgetTypeGauge, WidgetTypeSparkline:
		v, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
		if err != nil {
			w.invalid = true
			return
		}
		w.invalid = false
		w.value = v
		w.hasValue = true
		if w.typ == WidgetTypeSparkline {
			w.history = append(w.history, v)
			if len(w.history) > w.cfg.Points {
				w.history = w.history[len(w.history)-w.cfg.Points:]
			}
		}
	}
}

// DisplayValue renders the widget state as the GUI shows it.
func (w *Widget) DisplayValue() string {
	switch w.typ {
	case WidgetTypeText:
		if w.lastUpdate.IsZero() {
			return "--"
		}
		return w.lastPayload
	default:
		if w.invalid {
			return "invalid"
		}
		if !w.hasValue {
			return "--"
		}
		format := w.cfg.Format
		if format == "" {
			format = "%g"
		}
		s := fmt.Sprintf(format, w.value)
		if w.cfg.Unit != "" {
			s += " " + w.cfg.Unit
		}
		return s
	}
}

// State is an immutable rendering snapshot of a widget, safe to hand to
// another goroutine.
type State struct {
	ID         string
	Type       WidgetType
	Filter     string
	Config     DisplayConfig
	Display    string
	Fraction   float64
	History    []float64
	LastUpdate time.Time
	Invalid    bool
}

func (w *Widget) Snapshot() State {
	return State{
		ID:         w.id,
		Type:       w.typ,
		Filter:     w.filter,
		Config:     w.cfg,
		Display:    w.DisplayValue(),
		Fraction:   w.Fraction(),
		History:    w.History(),
		LastUpdate: w.lastUpdate,
		Invalid:    w.invalid,
	}
}

// Fraction maps the current gauge value into [0,1] over the configured
// range, clamping out-of-range samples.
func (w *Widget) Fraction() float64 {
	if !w.hasValue || w.cfg.Max == w.cfg.Min {
		return 0
	}
	f := (w.value - w.cfg.Min) / (w.cfg.Max - w.cfg.Min)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
