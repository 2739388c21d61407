package dashboard

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yeager/mqtt-dashboard/pkg/topics"
)

// Router owns the widget collection and fans incoming messages out to every
// widget whose filter matches the topic. Not safe for concurrent use; the
// engine serializes access on the dispatcher goroutine.
type Router struct {
	widgets  []*Widget
	byID     map[string]*Widget
	byFilter map[string][]*Widget
}

func NewRouter() *Router {
	return &Router{
		byID:     make(map[string]*Widget),
		byFilter: make(map[string][]*Widget),
	}
}

// Add registers a widget. It reports whether this is the first widget on
// the widget's filter, meaning a broker subscription is needed.
func (r *Router) Add(w *Widget) (first bool) {
	r.widgets = append(r.widgets, w)
	r.byID[w.ID()] = w
	peers := r.byFilter[w.Filter()]
	r.byFilter[w.Filter()] = append(peers, w)
	return len(peers) == 0
}

// Remove drops a widget by id. It reports whether the widget was the last
// one on its filter, meaning the broker subscription can go.
func (r *Router) Remove(id string) (w *Widget, last bool) {
	w, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	delete(r.byID, id)

	for i, o := range r.widgets {
		if o == w {
			r.widgets = append(r.widgets[:i], r.widgets[i+1:]...)
			break
		}
	}

	peers := r.byFilter[w.Filter()]
	for i, o := range peers {
		if o == w {
			peers = append(peers[:i], peers[i+1:]...)
			break
		}
	}
	if len(peers) == 0 {
		delete(r.byFilter, w.Filter())
		return w, true
	}
	r.byFilter[w.Filter()] = peers
	return w, false
}

func (r *Router) Get(id string) *Widget {
	return r.byID[id]
}

// Widgets returns the widgets in insertion order.
func (r *Router) Widgets() []*Widget {
	out := make([]*Widget, len(r.widgets))
	copy(out, r.widgets)
	return out
}

// Filters returns the distinct active subscription filters.
func (r *Router) Filters() []string {
	out := make([]string, 0, len(r.byFilter))
	for _, w := range r.widgets {
		if r.byFilter[w.Filter()][0] == w {
			out = append(out, w.Filter())
		}
	}
	return out
}

// Dispatch applies an incoming message to every matching widget and returns
// the widgets that changed. Malformed topics are logged and dropped.
func (r *Router) Dispatch(topic, payload string, at time.Time) []*Widget {
	if err := topics.ValidateTopic(topic); err != nil {
		log.Warnf("dropping message with malformed topic %q", topic)
		return nil
	}

	var matched []*Widget
	for _, w := range r.widgets {
		if topics.Match(w.Filter(), topic) {
			w.Apply(payload, at)
			matched = append(matched, w)
		}
	}
	return matched
}
