package dashboard

import (
	"strconv"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	log "github.com/sirupsen/logrus"

	"github.com/yeager/mqtt-dashboard/pkg/topics"
)

const defaultQueueSize = 256

// Broker is the boundary toward the MQTT client. pkg/mqtt.Worker
// implements it.
type Broker interface {
	Subscribe(filter string) error
	Unsubscribe(filter string) error
	Publish(topic string, payload []byte, qos byte, retain bool)
	IsConnected() bool
}

// Notifier receives model-change notifications for the GUI shell. All
// methods are invoked from the engine dispatcher goroutine.
type Notifier interface {
	WidgetChanged(w *Widget)
	WidgetRemoved(id string)
	LogAppended(e LogEntry)
	ConnectionChanged(connected bool)
	// Dropped reports the running total of messages lost to a full
	// hand-off queue. Fired once per batch of drops, not per message.
	Dropped(count uint64)
}

// Engine ties the router, widget collection and message log together behind
// a single dispatcher goroutine. Broker callbacks arrive on paho's network
// goroutine and are handed off through a bounded queue; everything touching
// model state runs on the dispatcher.
type Engine struct {
	broker   Broker
	notifier Notifier

	router *Router
	msglog *MessageLog
	conn   Connection

	events  chan func()
	quit    chan struct{}
	done    chan struct{}
	closed  atomic.Bool
	dropped atomic.Uint64

	// last drop total surfaced through the notifier, dispatcher-only
	droppedSeen uint64
}

type EngineOption func(*Engine)

func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) {
		e.notifier = n
	}
}

func WithLogCapacity(capacity int) EngineOption {
	return func(e *Engine) {
		e.msglog = NewMessageLog(capacity)
	}
}

func WithQueueSize(size int) EngineOption {
	return func(e *Engine) {
		e.events = make(chan func(), size)
	}
}

func NewEngine(broker Broker, opts ...EngineOption) *Engine {
	e := &Engine{
		broker: broker,
		router: NewRouter(),
		msglog: NewMessageLog(DefaultLogCapacity),
		events: make(chan func(), defaultQueueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		conn:   DefaultLayout().Connection,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Start() {
	go e.loop()
}

func (e *Engine) loop() {
	defer close(e.done)
	for {
		select {
		case f := <-e.events:
			f()
		case <-e.quit:
			// drain what was queued before shutdown
			for {
				select {
				case f := <-e.events:
					f()
				default:
					return
				}
			}
		}
	}
}

// do runs f on the dispatcher goroutine and waits for it to finish. Used
// for calls originating on the GUI thread.
func (e *Engine) do(f func()) {
	if e.closed.Load() {
		return
	}
	wait := make(chan struct{})
	select {
	case e.events <- func() { f(); close(wait) }:
		<-wait
	case <-e.quit:
	}
}

// SetNotifier attaches the GUI notifier. Call after Start; the engine must
// be running for the hand-off to go through.
func (e *Engine) SetNotifier(n Notifier) {
	e.do(func() { e.notifier = n })
}

// HandleMessage is the broker message callback. It never blocks the network
// goroutine: if the hand-off queue is full the message is dropped and
// counted.
func (e *Engine) HandleMessage(topic string, payload []byte, retained bool) {
	if e.closed.Load() {
		return
	}
	text := decodePayload(payload)
	at := time.Now()
	ev := func() { e.applyMessage(topic, text, retained, at) }

	select {
	case e.events <- ev:
	default:
		n := e.dropped.Add(1)
		log.Warnf("event queue full, dropped message on %s (%d total)", topic, n)
	}
}

func (e *Engine) applyMessage(topic, payload string, retained bool, at time.Time) {
	if d := e.dropped.Load(); d != e.droppedSeen {
		e.droppedSeen = d
		if e.notifier != nil {
			e.notifier.Dropped(d)
		}
	}

	entry := LogEntry{Time: at, Topic: topic, Payload: payload, Retained: retained}
	e.msglog.Append(entry)
	if e.notifier != nil {
		e.notifier.LogAppended(entry)
	}

	for _, w := range e.router.Dispatch(topic, payload, at) {
		if e.notifier != nil {
			e.notifier.WidgetChanged(w)
		}
	}
}

// AddWidget validates the filter, creates the widget and subscribes to the
// filter if no other widget uses it yet.
func (e *Engine) AddWidget(typ WidgetType, filter string, cfg DisplayConfig) (string, error) {
	if _, err := ParseWidgetType(string(typ)); err != nil {
		return "", err
	}
	if err := topics.ValidateFilter(filter); err != nil {
		return "", eris.Wrap(err, "cannot subscribe")
	}

	var id string
	e.do(func() {
		w := NewWidget(typ, filter, cfg)
		id = w.ID()
		if first := e.router.Add(w); first {
			e.subscribe(filter)
		}
		if e.notifier != nil {
			e.notifier.WidgetChanged(w)
		}
	})
	return id, nil
}

// RemoveWidget drops a widget; the broker subscription goes with it only
// when no other widget shares the filter.
func (e *Engine) RemoveWidget(id string) bool {
	var removed bool
	e.do(func() {
		w, last := e.router.Remove(id)
		if w == nil {
			return
		}
		removed = true
		if last {
			e.unsubscribe(w.Filter())
		}
		if e.notifier != nil {
			e.notifier.WidgetRemoved(id)
		}
	})
	return removed
}

func (e *Engine) subscribe(filter string) {
	if err := e.broker.Subscribe(filter); err != nil {
		log.Warnf("subscribe %s failed: %v", filter, err)
	}
}

func (e *Engine) unsubscribe(filter string) {
	if err := e.broker.Unsubscribe(filter); err != nil {
		log.Warnf("unsubscribe %s failed: %v", filter, err)
	}
}

// OnConnectionChange is wired to the broker worker's status callback. On
// every (re)connect the active filters are subscribed again, matching what
// the dashboard showed before the connection dropped.
func (e *Engine) OnConnectionChange(connected bool) {
	if e.closed.Load() {
		return
	}
	select {
	case e.events <- func() {
		if connected {
			for _, filter := range e.router.Filters() {
				e.subscribe(filter)
			}
		}
		if e.notifier != nil {
			e.notifier.ConnectionChanged(connected)
		}
	}:
	case <-e.quit:
	}
}

// Publish forwards a user-entered message to the broker. Fire and forget,
// like the rest of the broker boundary.
func (e *Engine) Publish(topic string, payload []byte, qos byte, retain bool) error {
	if err := topics.ValidateTopic(topic); err != nil {
		return eris.Wrap(err, "cannot publish")
	}
	e.broker.Publish(topic, payload, qos, retain)
	return nil
}

// Widgets returns a snapshot of the widget collection in dashboard order.
func (e *Engine) Widgets() []*Widget {
	var out []*Widget
	e.do(func() { out = e.router.Widgets() })
	return out
}

// Snapshots returns rendering snapshots of all widgets in dashboard order,
// safe to use off the dispatcher goroutine.
func (e *Engine) Snapshots() []State {
	var out []State
	e.do(func() {
		for _, w := range e.router.Widgets() {
			out = append(out, w.Snapshot())
		}
	})
	return out
}

// Widget returns a single widget by id, or nil.
func (e *Engine) Widget(id string) *Widget {
	var w *Widget
	e.do(func() { w = e.router.Get(id) })
	return w
}

// Log returns up to n recent log entries, newest first.
func (e *Engine) Log(n int) []LogEntry {
	var out []LogEntry
	e.do(func() { out = e.msglog.Tail(n) })
	return out
}

func (e *Engine) ClearLog() {
	e.do(func() { e.msglog.Clear() })
}

func (e *Engine) Connection() Connection {
	var c Connection
	e.do(func() { c = e.conn })
	return c
}

func (e *Engine) SetConnection(c Connection) {
	e.do(func() { e.conn = c })
}

// CurrentLayout captures the connection parameters and widget list for
// saving.
func (e *Engine) CurrentLayout() Layout {
	var layout Layout
	e.do(func() {
		layout.Connection = e.conn
		for _, w := range e.router.Widgets() {
			layout.Widgets = append(layout.Widgets, WidgetSpec{
				Type:   w.Type(),
				Topic:  w.Filter(),
				Config: w.Config(),
			})
		}
	})
	return layout
}

// ApplyLayout replaces the whole dashboard with the given layout:
// existing widgets and their subscriptions are torn down first.
func (e *Engine) ApplyLayout(layout Layout) error {
	if err := layout.Validate(); err != nil {
		return err
	}
	e.do(func() {
		for _, filter := range e.router.Filters() {
			e.unsubscribe(filter)
		}
		for _, w := range e.router.Widgets() {
			e.router.Remove(w.ID())
			if e.notifier != nil {
				e.notifier.WidgetRemoved(w.ID())
			}
		}

		e.conn = layout.Connection
		for _, spec := range layout.Widgets {
			w := NewWidget(spec.Type, spec.Topic, spec.Config)
			if first := e.router.Add(w); first {
				e.subscribe(spec.Topic)
			}
			if e.notifier != nil {
				e.notifier.WidgetChanged(w)
			}
		}
	})
	return nil
}

// Dropped reports how many messages were lost to a full hand-off queue.
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

// Close unsubscribes every active filter and stops the dispatcher. After
// Close returns no callback touches model state anymore.
func (e *Engine) Close() {
	if e.closed.Swap(true) {
		return
	}
	wait := make(chan struct{})
	e.events <- func() {
		for _, filter := range e.router.Filters() {
			e.unsubscribe(filter)
		}
		close(wait)
	}
	<-wait
	close(e.quit)
	<-e.done
}

// decodePayload keeps valid UTF-8 as is and falls back to a quoted form for
// binary payloads so the log and text widgets stay renderable.
func decodePayload(payload []byte) string {
	if utf8.Valid(payload) {
		return string(payload)
	}
	return strconv.Quote(string(payload))
}
