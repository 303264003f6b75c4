package logging

import "sync"

// Sink receives human-readable events from the scanner, extractor and batch
// driver. Implementations must be safe to call from the batch worker
// goroutine.
type Sink interface {
	LogEvent(level Level, message string)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(level Level, message string)

func (f SinkFunc) LogEvent(level Level, message string) {
	f(level, message)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Level, string) {})

// Sink returns a Sink that writes events to l under component.
func (l *Logger) Sink(component string) Sink {
	return SinkFunc(func(level Level, message string) {
		l.log(level, component, message, nil)
	})
}

// Tee fans an event out to every non-nil sink.
func Tee(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return SinkFunc(func(level Level, message string) {
		for _, s := range live {
			s.LogEvent(level, message)
		}
	})
}

// Event is one recorded Sink call.
type Event struct {
	Level   Level
	Message string
}

// Recorder is a Sink that keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) LogEvent(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Level: level, Message: message})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}
