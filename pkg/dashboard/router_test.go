package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterSharedFilterRefcount(t *testing.T) {
	r := NewRouter()

	a := NewWidget(WidgetTypeText, "sensors/+/temp", DisplayConfig{})
	b := NewWidget(WidgetTypeGauge, "sensors/+/temp", DisplayConfig{})

	assert.True(t, r.Add(a), "first widget on a filter needs a subscription")
	assert.False(t, r.Add(b), "second widget shares the subscription")

	_, last := r.Remove(a.ID())
	assert.False(t, last)

	_, last = r.Remove(b.ID())
	assert.True(t, last, "removing the last widget releases the filter")

	assert.Empty(t, r.Filters())
}

func TestRouterDispatchMatchesWildcards(t *testing.T) {
	r := NewRouter()
	temp := NewWidget(WidgetTypeGauge, "sensors/+/temp", DisplayConfig{})
	all := NewWidget(WidgetTypeText, "sensors/#", DisplayConfig{})
	other := NewWidget(WidgetTypeText, "home/light", DisplayConfig{})
	r.Add(temp)
	r.Add(all)
	r.Add(other)

	matched := r.Dispatch("sensors/3/temp", "21.5", time.Now())
	require.Len(t, matched, 2)
	assert.Contains(t, matched, temp)
	assert.Contains(t, matched, all)

	v, ok := temp.Value()
	require.True(t, ok)
	assert.Equal(t, 21.5, v)
	assert.Equal(t, "21.5", all.LastPayload())
	assert.Empty(t, other.LastPayload())
}

func TestRouterDropsMalformedTopics(t *testing.T) {
	r := NewRouter()
	r.Add(NewWidget(WidgetTypeText, "#", DisplayConfig{}))

	assert.Nil(t, r.Dispatch("", "x", time.Now()))
	assert.Nil(t, r.Dispatch("bad/+/topic", "x", time.Now()))
}

func TestRouterWidgetsKeepsOrder(t *testing.T) {
	r := NewRouter()
	a := NewWidget(WidgetTypeText, "a", DisplayConfig{})
	b := NewWidget(WidgetTypeText, "b", DisplayConfig{})
	c := NewWidget(WidgetTypeText, "c", DisplayConfig{})
	r.Add(a)
	r.Add(b)
	r.Add(c)
	r.Remove(b.ID())

	ws := r.Widgets()
	require.Len(t, ws, 2)
	assert.Equal(t, a.ID(), ws[0].ID())
	assert.Equal(t, c.ID(), ws[1].ID())
	assert.Equal(t, []string{"a", "c"}, r.Filters())
}
