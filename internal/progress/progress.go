// Package progress reports pipeline stages to a pluggable sink so the release
// pipeline never writes to the console directly.
package progress

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Kind string

const (
	KindStart  Kind = "start"
	KindFinish Kind = "finish"
	KindItem   Kind = "item"
	KindInfo   Kind = "info"
)

// Stage names used by the deploy pipeline.
const (
	StageBuild      = "build"
	StageCheck      = "check_existing"
	StageUpload     = "upload"
	StageIndex      = "update_index"
	StageRouting    = "update_routing"
	StageInvalidate = "invalidate_cache"
)

type Event struct {
	Kind    Kind
	Stage   string
	Message string
	Fields  map[string]string
	Err     error
	At      time.Time
}

// Reporter receives pipeline events. Implementations must be safe for
// concurrent use.
type Reporter interface {
	Report(Event)
}

// Start emits a start event for stage and returns a func that emits the
// matching finish event.
func Start(r Reporter, stage string) func(err error) {
	if r == nil {
		r = Discard{}
	}
	began := time.Now()
	r.Report(Event{Kind: KindStart, Stage: stage, At: began})
	return func(err error) {
		r.Report(Event{
			Kind:   KindFinish,
			Stage:  stage,
			Err:    err,
			At:     time.Now(),
			Fields: map[string]string{"elapsed": time.Since(began).String()},
		})
	}
}

func Item(r Reporter, stage, message string, fields map[string]string) {
	if r == nil {
		return
	}
	r.Report(Event{Kind: KindItem, Stage: stage, Message: message, Fields: fields, At: time.Now()})
}

func Info(r Reporter, stage, message string, fields map[string]string) {
	if r == nil {
		return
	}
	r.Report(Event{Kind: KindInfo, Stage: stage, Message: message, Fields: fields, At: time.Now()})
}

type Discard struct{}

func (Discard) Report(Event) {}

// Log writes events to a zerolog logger.
type Log struct {
	Logger zerolog.Logger
}

func NewLog(logger zerolog.Logger) Log {
	return Log{Logger: logger}
}

func (l Log) Report(ev Event) {
	var e *zerolog.Event
	switch {
	case ev.Err != nil:
		e = l.Logger.Error().Err(ev.Err)
	case ev.Kind == KindItem:
		e = l.Logger.Debug()
	default:
		e = l.Logger.Info()
	}
	e = e.Str("stage", ev.Stage)
	for k, v := range ev.Fields {
		e = e.Str(k, v)
	}
	switch ev.Kind {
	case KindStart:
		e.Msg("[START] " + ev.Stage)
	case KindFinish:
		e.Msg("[STOP] " + ev.Stage)
	default:
		e.Msg(ev.Message)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Report(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Stages returns the stages that were started, in order.
func (r *Recorder) Stages() []string {
	var out []string
	for _, ev := range r.Events() {
		if ev.Kind == KindStart {
			out = append(out, ev.Stage)
		}
	}
	return out
}

// Items returns the messages of item events emitted for stage.
func (r *Recorder) Items(stage string) []string {
	var out []string
	for _, ev := range r.Events() {
		if ev.Kind == KindItem && ev.Stage == stage {
			out = append(out, ev.Message)
		}
	}
	return out
}
