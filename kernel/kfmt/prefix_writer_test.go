package kfmt

import (
	"bytes"
	"testing"
)

func TestPrefixWriter(t *testing.T) {
	var (
		buf bytes.Buffer
		w   = PrefixWriter{Sink: &buf, Prefix: []byte("[boot] ")}
	)

	exp := "[boot] line1\n[boot] line2\n[boot] partial"

	w.Write([]byte("line1\nline2\n"))
	w.Write([]byte("par"))
	w.Write([]byte("tial"))

	if got := buf.String(); got != exp {
		t.Errorf("expected output:\n%q\ngot:\n%q", exp, got)
	}
}

func TestPrefixWriterWrittenCount(t *testing.T) {
	var (
		buf bytes.Buffer
		w   = PrefixWriter{Sink: &buf, Prefix: []byte("> ")}
	)

	payload := []byte("a\nb\n")
	n, err := w.Write(payload)
	if err != nil {
		t.Fatal(err)
	}

	// The injected prefixes must not be counted as caller bytes.
	if n != len(payload) {
		t.Errorf("expected Write to report %d bytes; got %d", len(payload), n)
	}
}
