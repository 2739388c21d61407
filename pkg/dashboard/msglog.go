package dashboard

import "time"

const DefaultLogCapacity = 1000

// LogEntry is one received broker message as shown in the message log.
type LogEntry struct {
	Time     time.Time
	Topic    string
	Payload  string
	Retained bool
}

// MessageLog is a fixed-capacity ring of received messages. Oldest entries
// are evicted once the capacity is reached. Not safe for concurrent use;
// the engine owns it on the dispatcher goroutine.
type MessageLog struct {
	entries  []LogEntry
	capacity int
	start    int
	count    int
}

func NewMessageLog(capacity int) *MessageLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &MessageLog{entries: make([]LogEntry, capacity), capacity: capacity}
}

func (l *MessageLog) Append(e LogEntry) {
	idx := (l.start + l.count) % l.capacity
	l.entries[idx] = e
	if l.count < l.capacity {
		l.count++
	} else {
		l.start = (l.start + 1) % l.capacity
	}
}

func (l *MessageLog) Len() int      { return l.count }
func (l *MessageLog) Capacity() int { return l.capacity }

// Entries returns a snapshot in reverse chronological order, newest first.
func (l *MessageLog) Entries() []LogEntry {
	out := make([]LogEntry, 0, l.count)
	for i := l.count - 1; i >= 0; i-- {
		out = append(out, l.entries[(l.start+i)%l.capacity])
	}
	return out
}

// Tail returns up to n of the most recent entries, newest first.
func (l *MessageLog) Tail(n int) []LogEntry {
	if n > l.count {
		n = l.count
	}
	out := make([]LogEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, l.entries[(l.start+l.count-1-i)%l.capacity])
	}
	return out
}

func (l *MessageLog) Clear() {
	l.start = 0
	l.count = 0
}
