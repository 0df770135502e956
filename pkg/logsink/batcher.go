package logsink

import (
	"encoding/json"
	"sync"
)

// DefaultThreshold is the number of pending records that triggers a flush.
const DefaultThreshold = 1000

// Batcher buffers records and hands them to a flush function in batches,
// either when the threshold is reached or when Flush is called.
type Batcher struct {
	mu        sync.Mutex
	pending   []Record
	threshold int
	flush     func([]Record)
}

// NewBatcher creates a Batcher. A threshold below 1 uses DefaultThreshold.
func NewBatcher(threshold int, flush func([]Record)) *Batcher {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Batcher{threshold: threshold, flush: flush}
}

// Write buffers r, flushing if the threshold is reached.
func (b *Batcher) Write(r Record) {
	b.mu.Lock()
	b.pending = append(b.pending, r)
	if len(b.pending) < b.threshold {
		b.mu.Unlock()
		return
	}
	batch := b.take()
	b.mu.Unlock()
	b.deliver(batch)
}

// Flush hands every pending record to the flush function.
func (b *Batcher) Flush() {
	b.mu.Lock()
	batch := b.take()
	b.mu.Unlock()
	b.deliver(batch)
}

// Pending returns the number of buffered records.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// take must be called with b.mu held.
func (b *Batcher) take() []Record {
	batch := b.pending
	b.pending = nil
	return batch
}

func (b *Batcher) deliver(batch []Record) {
	if len(batch) == 0 || b.flush == nil {
		return
	}
	b.flush(batch)
}

// EncodeBatch renders records as the process_logs payload:
// [{"message":"…","level":"info"}, …].
func EncodeBatch(records []Record) (string, error) {
	if records == nil {
		records = []Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeBatch parses a process_logs payload.
func DecodeBatch(payload string) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, err
	}
	return records, nil
}
