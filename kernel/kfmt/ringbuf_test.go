package kfmt

import (
	"io"
	"testing"
)

func TestRingBufferWriteReadRoundtrip(t *testing.T) {
	var rb ringBuffer

	payload := []byte("the quick brown fox")
	n, err := rb.Write(payload)
	if n != len(payload) || err != nil {
		t.Fatalf("expected (%d, nil); got (%d, %v)", len(payload), n, err)
	}

	got := make([]byte, len(payload))
	n, err = rb.Read(got)
	if n != len(payload) || err != nil {
		t.Fatalf("expected (%d, nil); got (%d, %v)", len(payload), n, err)
	}
	if string(got) != string(payload) {
		t.Errorf("expected to read back %q; got %q", payload, got)
	}

	if _, err = rb.Read(got); err != io.EOF {
		t.Errorf("expected EOF on a drained buffer; got %v", err)
	}
}

func TestRingBufferOverwritesOldestData(t *testing.T) {
	var rb ringBuffer

	// Fill the buffer exactly, then push it one byte over the edge.
	for i := 0; i < ringBufferSize; i++ {
		rb.Write([]byte{byte('a' + i%16)})
	}
	rb.Write([]byte{'Z'})

	data := make([]byte, 2*ringBufferSize)
	var total int
	for {
		n, err := rb.Read(data[total:])
		total += n
		if err == io.EOF || n == 0 {
			break
		}
	}

	// The buffer holds at most ringBufferSize-1 bytes, so the two oldest of
	// the ringBufferSize+1 written bytes were dropped; the newest byte
	// survives at the end.
	if total != ringBufferSize-1 {
		t.Errorf("expected %d readable bytes; got %d", ringBufferSize-1, total)
	}
	if data[total-1] != 'Z' {
		t.Errorf("expected the newest byte to be readable; got %q", data[total-1])
	}
}
