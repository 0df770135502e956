package logsink

import (
	"bytes"
	"reflect"
	"testing"
)

// --- Recorder ---

func TestRecorder(t *testing.T) {
	var rec Recorder
	rec.Write(Record{Message: "a", Level: LevelInfo})
	rec.Write(Record{Message: "b", Level: LevelError})

	if got, want := rec.Messages(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Messages() = %v, want %v", got, want)
	}
	if got := rec.Records()[1].Level; got != LevelError {
		t.Errorf("level = %q, want error", got)
	}
	rec.Reset()
	if n := len(rec.Records()); n != 0 {
		t.Errorf("after Reset, %d records", n)
	}
}

// --- Batcher ---

func TestBatcherThreshold(t *testing.T) {
	var batches [][]Record
	b := NewBatcher(2, func(rs []Record) { batches = append(batches, rs) })

	b.Write(Record{Message: "1", Level: LevelInfo})
	if len(batches) != 0 {
		t.Fatalf("flushed before threshold")
	}
	b.Write(Record{Message: "2", Level: LevelInfo})
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("batches = %v, want one batch of 2", batches)
	}
	b.Write(Record{Message: "3", Level: LevelError})
	if b.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", b.Pending())
	}
	b.Flush()
	if len(batches) != 2 || batches[1][0].Message != "3" {
		t.Errorf("batches = %v", batches)
	}
	b.Flush()
	if len(batches) != 2 {
		t.Errorf("empty Flush delivered a batch")
	}
}

func TestBatcherDefaultThreshold(t *testing.T) {
	b := NewBatcher(0, nil)
	if b.threshold != DefaultThreshold {
		t.Errorf("threshold = %d, want %d", b.threshold, DefaultThreshold)
	}
	for i := 0; i < DefaultThreshold+1; i++ {
		b.Write(Record{Message: "x", Level: LevelInfo})
	}
	if b.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", b.Pending())
	}
}

func TestEncodeBatch(t *testing.T) {
	got, err := EncodeBatch([]Record{{Message: "olá", Level: LevelInfo}, {Message: "falhou", Level: LevelError}})
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"message":"olá","level":"info"},{"message":"falhou","level":"error"}]`
	if got != want {
		t.Errorf("EncodeBatch = %s, want %s", got, want)
	}

	empty, _ := EncodeBatch(nil)
	if empty != "[]" {
		t.Errorf("EncodeBatch(nil) = %s, want []", empty)
	}

	back, err := DecodeBatch(got)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[1].Level != LevelError {
		t.Errorf("DecodeBatch = %v", back)
	}
}

// --- ConsoleSink ---

func TestConsoleSink(t *testing.T) {
	var out, errOut bytes.Buffer
	sink := NewConsoleSink(&out, &errOut, false)
	sink.Write(Record{Message: "olá mundo", Level: LevelInfo})
	sink.Write(Record{Message: "deu ruim", Level: LevelError})
	sink.Write(Record{Message: "", Level: LevelInfo})

	if got, want := out.String(), "olá mundo\n\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if got, want := errOut.String(), "deu ruim\n"; got != want {
		t.Errorf("stderr = %q, want %q", got, want)
	}
}
