package screens

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/yeager/mqtt-dashboard/pkg/dashboard"
)

const maxCardPayloadLen = 500

// WidgetCard renders one dashboard widget as a fyne card with a remove
// button. Update is only called on the fyne main goroutine.
type WidgetCard struct {
	container fyne.CanvasObject
	id        string
	typ       dashboard.WidgetType

	value *widget.Label
	ts    *widget.Label
	gauge *widget.ProgressBar
	spark *Sparkline
}

type OnCardRemove func(id string)

func NewWidgetCard(state dashboard.State, onRemove OnCardRemove) *WidgetCard {
	c := &WidgetCard{id: state.ID, typ: state.Type}

	c.value = widget.NewLabel("--")
	c.value.Wrapping = fyne.TextWrapWord
	c.ts = widget.NewLabel("")
	c.ts.Alignment = fyne.TextAlignTrailing

	items := []fyne.CanvasObject{}
	switch state.Type {
	case dashboard.WidgetTypeGauge:
		c.gauge = widget.NewProgressBar()
		// the bar shows the position inside the configured range, the
		// label below shows the raw value
		c.gauge.TextFormatter = func() string { return "" }
		items = append(items, c.gauge)
	case dashboard.WidgetTypeSparkline:
		c.spark = NewSparkline()
		items = append(items, c.spark)
	}
	items = append(items, c.value, c.ts)

	removeButton := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
		if onRemove != nil {
			onRemove(c.id)
		}
	})

	header := container.NewBorder(nil, nil, nil, removeButton)
	body := container.NewVBox(items...)
	card := widget.NewCard(state.Config.Label, string(state.Type),
		container.NewBorder(header, nil, nil, nil, body))

	c.container = card
	c.Update(state)
	return c
}

func (c *WidgetCard) ID() string {
	return c.id
}

func (c *WidgetCard) GetContainer() fyne.CanvasObject {
	return c.container
}

// Update re-renders the card from a widget snapshot.
func (c *WidgetCard) Update(state dashboard.State) {
	text := state.Display
	if len(text) > maxCardPayloadLen {
		text = text[:maxCardPayloadLen]
	}
	c.value.SetText(text)

	if !state.LastUpdate.IsZero() {
		c.ts.SetText(state.LastUpdate.Format("15:04:05"))
	}

	if c.gauge != nil {
		c.gauge.SetValue(state.Fraction)
	}
	if c.spark != nil {
		c.spark.SetValues(state.History)
	}
}
