// Package logsink carries program output records from the evaluator to the host.
package logsink

import "sync"

// Level is the severity of a program output record.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Record is one line of program output.
type Record struct {
	Message string `json:"message"`
	Level   Level  `json:"level"`
}

// Sink receives program output records.
type Sink interface {
	Write(r Record)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(r Record)

// Write calls f(r).
func (f SinkFunc) Write(r Record) {
	f(r)
}

// Discard drops every record.
var Discard Sink = SinkFunc(func(Record) {})

// Recorder keeps every record in memory.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// Write appends r.
func (rec *Recorder) Write(r Record) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.records = append(rec.records, r)
}

// Records returns a copy of the recorded records.
func (rec *Recorder) Records() []Record {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]Record(nil), rec.records...)
}

// Messages returns the recorded messages, in order.
func (rec *Recorder) Messages() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]string, len(rec.records))
	for i, r := range rec.records {
		out[i] = r.Message
	}
	return out
}

// Reset discards the recorded records.
func (rec *Recorder) Reset() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.records = nil
}
