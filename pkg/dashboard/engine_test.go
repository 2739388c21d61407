package dashboard

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	mu           sync.Mutex
	subscribed   []string
	unsubscribed []string
	published    []string
	connected    bool
	subscribeErr error
}

func (f *fakeBroker) Subscribe(filter string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, filter)
	return f.subscribeErr
}

func (f *fakeBroker) Unsubscribe(filter string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, filter)
	return nil
}

func (f *fakeBroker) Publish(topic string, payload []byte, qos byte, retain bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, topic+"="+string(payload))
}

func (f *fakeBroker) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeBroker) subs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscribed...)
}

func (f *fakeBroker) unsubs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unsubscribed...)
}

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *fakeBroker) {
	t.Helper()
	broker := &fakeBroker{}
	e := NewEngine(broker, opts...)
	e.Start()
	t.Cleanup(e.Close)
	return e, broker
}

func TestEngineAddWidgetSubscribesOnce(t *testing.T) {
	e, broker := newTestEngine(t)

	_, err := e.AddWidget(WidgetTypeText, "sensors/+/temp", DisplayConfig{})
	require.NoError(t, err)
	_, err = e.AddWidget(WidgetTypeGauge, "sensors/+/temp", DisplayConfig{})
	require.NoError(t, err)

	assert.Equal(t, []string{"sensors/+/temp"}, broker.subs())
}

func TestEngineRejectsInvalidFilter(t *testing.T) {
	e, broker := newTestEngine(t)

	_, err := e.AddWidget(WidgetTypeText, "a/#/b", DisplayConfig{})
	assert.Error(t, err)
	assert.Empty(t, broker.subs())
	assert.Empty(t, e.Widgets())
}

func TestEngineUnsubscribesWithLastWidget(t *testing.T) {
	e, broker := newTestEngine(t)

	idA, _ := e.AddWidget(WidgetTypeText, "home/#", DisplayConfig{})
	idB, _ := e.AddWidget(WidgetTypeText, "home/#", DisplayConfig{})

	require.True(t, e.RemoveWidget(idA))
	assert.Empty(t, broker.unsubs(), "subscription stays while a widget still uses the filter")

	require.True(t, e.RemoveWidget(idB))
	assert.Equal(t, []string{"home/#"}, broker.unsubs())

	assert.False(t, e.RemoveWidget(idB), "second removal is a no-op")
}

func TestEngineMessageUpdatesWidgetsAndLog(t *testing.T) {
	e, _ := newTestEngine(t)

	id, err := e.AddWidget(WidgetTypeGauge, "sensors/+/temp", DisplayConfig{})
	require.NoError(t, err)

	e.HandleMessage("sensors/3/temp", []byte("42.5"), false)
	e.HandleMessage("sensors/3/4/temp", []byte("99"), true)

	// Widgets() runs behind the queued messages, so state is settled here.
	w := e.Widget(id)
	require.NotNil(t, w)
	v, ok := w.Value()
	require.True(t, ok)
	assert.Equal(t, 42.5, v)

	entries := e.Log(10)
	require.Len(t, entries, 2, "non-matching messages are still logged")
	assert.Equal(t, "sensors/3/4/temp", entries[0].Topic)
	assert.True(t, entries[0].Retained)
	assert.Equal(t, "sensors/3/temp", entries[1].Topic)
}

func TestEngineReconnectResubscribes(t *testing.T) {
	e, broker := newTestEngine(t)

	e.AddWidget(WidgetTypeText, "a/#", DisplayConfig{})
	e.AddWidget(WidgetTypeText, "b", DisplayConfig{})

	e.OnConnectionChange(true)
	e.Widgets() // barrier

	assert.Equal(t, []string{"a/#", "b", "a/#", "b"}, broker.subs())
}

func TestEnginePublish(t *testing.T) {
	e, broker := newTestEngine(t)

	require.NoError(t, e.Publish("cmd/light", []byte("on"), 1, false))
	assert.Equal(t, []string{"cmd/light=on"}, broker.published)

	assert.Error(t, e.Publish("cmd/#", []byte("on"), 1, false))
}

func TestEngineApplyLayoutReplacesDashboard(t *testing.T) {
	e, broker := newTestEngine(t)

	e.AddWidget(WidgetTypeText, "old/topic", DisplayConfig{})

	layout := Layout{
		Connection: Connection{Host: "broker.local", Port: 1883},
		Widgets: []WidgetSpec{
			{Type: WidgetTypeGauge, Topic: "new/gauge"},
			{Type: WidgetTypeText, Topic: "new/text"},
		},
	}
	require.NoError(t, e.ApplyLayout(layout))

	assert.Contains(t, broker.unsubs(), "old/topic")

	ws := e.Widgets()
	require.Len(t, ws, 2)
	assert.Equal(t, WidgetTypeGauge, ws[0].Type())
	assert.Equal(t, "new/gauge", ws[0].Filter())
	assert.Equal(t, layout.Connection, e.Connection())
}

func TestEngineApplyLayoutNormalizesWidgetType(t *testing.T) {
	e, _ := newTestEngine(t)

	layout := Layout{
		Connection: Connection{Host: "h", Port: 1883},
		Widgets:    []WidgetSpec{{Type: WidgetType("Gauge"), Topic: "sensors/1/hum"}},
	}
	require.NoError(t, e.ApplyLayout(layout))

	e.HandleMessage("sensors/1/hum", []byte("42.5"), false)

	ws := e.Widgets()
	require.Len(t, ws, 1)
	assert.Equal(t, WidgetTypeGauge, ws[0].Type())
	v, ok := ws[0].Value()
	require.True(t, ok)
	assert.Equal(t, 42.5, v)

	saved := e.CurrentLayout()
	assert.Equal(t, WidgetTypeGauge, saved.Widgets[0].Type)
}

func TestEngineCurrentLayoutRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)

	e.SetConnection(Connection{Host: "h", Port: 1883})
	e.AddWidget(WidgetTypeSparkline, "sensors/1/temp", DisplayConfig{Points: 20})

	layout := e.CurrentLayout()
	require.NoError(t, layout.Validate())
	require.Len(t, layout.Widgets, 1)
	assert.Equal(t, WidgetTypeSparkline, layout.Widgets[0].Type)
	assert.Equal(t, 20, layout.Widgets[0].Config.Points)
}

func TestEngineCloseUnsubscribesAll(t *testing.T) {
	broker := &fakeBroker{}
	e := NewEngine(broker)
	e.Start()

	e.AddWidget(WidgetTypeText, "x/#", DisplayConfig{})
	e.Close()

	assert.Equal(t, []string{"x/#"}, broker.unsubs())

	// calls after Close are no-ops, not panics
	e.HandleMessage("x/1", []byte("v"), false)
	assert.Empty(t, e.Widgets())
}

type recordingNotifier struct {
	mu      sync.Mutex
	changed []string
	removed []string
	logged  int
	conn    []bool
	drops   []uint64
}

func (n *recordingNotifier) WidgetChanged(w *Widget) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, w.ID())
}

func (n *recordingNotifier) WidgetRemoved(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removed = append(n.removed, id)
}

func (n *recordingNotifier) LogAppended(LogEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logged++
}

func (n *recordingNotifier) ConnectionChanged(connected bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conn = append(n.conn, connected)
}

func (n *recordingNotifier) Dropped(count uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drops = append(n.drops, count)
}

func TestEngineReportsDroppedMessages(t *testing.T) {
	notifier := &recordingNotifier{}
	broker := &fakeBroker{}
	e := NewEngine(broker, WithNotifier(notifier), WithQueueSize(1))

	// the dispatcher is not running yet, so the second message finds a
	// full queue and is dropped
	e.HandleMessage("a", []byte("1"), false)
	e.HandleMessage("a", []byte("2"), false)
	assert.Equal(t, uint64(1), e.Dropped())

	e.Start()
	t.Cleanup(e.Close)
	e.Widgets() // barrier

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, []uint64{1}, notifier.drops)
}

func TestEngineConcurrentHandleMessage(t *testing.T) {
	const workers = 8
	const perWorker = 200

	e, _ := newTestEngine(t, WithLogCapacity(workers*perWorker))
	_, err := e.AddWidget(WidgetTypeSparkline, "load/#", DisplayConfig{Points: workers * perWorker})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < workers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			topic := fmt.Sprintf("load/%d", g)
			for i := 0; i < perWorker; i++ {
				e.HandleMessage(topic, []byte("1"), false)
			}
		}(g)
	}
	wg.Wait()
	e.Widgets() // barrier: queued messages run before this returns

	// every message is either applied or counted as dropped, never lost
	processed := len(e.Log(workers * perWorker))
	assert.Equal(t, workers*perWorker, processed+int(e.Dropped()))

	snaps := e.Snapshots()
	require.Len(t, snaps, 1)
	assert.Len(t, snaps[0].History, processed)
}

func TestEngineNotifications(t *testing.T) {
	notifier := &recordingNotifier{}
	e, _ := newTestEngine(t, WithNotifier(notifier))

	id, _ := e.AddWidget(WidgetTypeText, "a", DisplayConfig{})
	e.HandleMessage("a", []byte("v"), false)
	e.RemoveWidget(id)
	e.OnConnectionChange(false)
	e.Widgets() // barrier

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, []string{id, id}, notifier.changed)
	assert.Equal(t, []string{id}, notifier.removed)
	assert.Equal(t, 1, notifier.logged)
	assert.Equal(t, []bool{false}, notifier.conn)
}
