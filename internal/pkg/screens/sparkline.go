package screens

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const sparklineW = 200
const sparklineH = 60
const sparklineStroke = 2

// Sparkline draws a small line chart of the most recent samples. Values are
// rescaled to the widget size on every refresh.
type Sparkline struct {
	widget.BaseWidget
	values []float64
}

func NewSparkline() *Sparkline {
	s := &Sparkline{}
	s.ExtendBaseWidget(s)
	return s
}

func (s *Sparkline) SetValues(values []float64) {
	s.values = values
	s.Refresh()
}

func (s *Sparkline) CreateRenderer() fyne.WidgetRenderer {
	return &sparklineRenderer{spark: s}
}

type sparklineRenderer struct {
	spark *Sparkline
	lines []fyne.CanvasObject
	size  fyne.Size
}

func (r *sparklineRenderer) MinSize() fyne.Size {
	return fyne.NewSize(sparklineW, sparklineH)
}

func (r *sparklineRenderer) Layout(size fyne.Size) {
	r.size = size
	r.rebuild()
}

func (r *sparklineRenderer) Refresh() {
	r.rebuild()
	canvas.Refresh(r.spark)
}

func (r *sparklineRenderer) Objects() []fyne.CanvasObject {
	return r.lines
}

func (r *sparklineRenderer) Destroy() {}

func (r *sparklineRenderer) rebuild() {
	r.lines = nil

	vals := r.spark.values
	if len(vals) < 2 || r.size.Width <= 0 || r.size.Height <= 0 {
		return
	}

	minV, maxV := vals[0], vals[0]
	for _, v := range vals {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	rng := maxV - minV
	if rng == 0 {
		rng = 1
	}

	w := float64(r.size.Width)
	h := float64(r.size.Height)
	n := len(vals)

	pos := func(i int) fyne.Position {
		x := float64(i) * w / float64(n-1)
		y := h - ((vals[i]-minV)/rng)*(h-2*sparklineStroke) - sparklineStroke
		return fyne.NewPos(float32(x), float32(y))
	}

	for i := 1; i < n; i++ {
		line := canvas.NewLine(theme.Color(theme.ColorNamePrimary))
		line.StrokeWidth = sparklineStroke
		line.Position1 = pos(i - 1)
		line.Position2 = pos(i)
		r.lines = append(r.lines, line)
	}
}
