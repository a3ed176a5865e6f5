package kfmt

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestFprintf(t *testing.T) {
	// mute vet warnings about malformed formatting strings
	fprintfn := Fprintf

	var buf bytes.Buffer

	specs := []struct {
		fn        func(io.Writer)
		expOutput string
	}{
		{
			func(w io.Writer) { fprintfn(w, "no args") },
			"no args",
		},
		// bool values
		{
			func(w io.Writer) { fprintfn(w, "%t", true) },
			"true",
		},
		{
			func(w io.Writer) { fprintfn(w, "%t and %t", false, true) },
			"false and true",
		},
		// strings and byte slices
		{
			func(w io.Writer) { fprintfn(w, "%s arg", "STRING") },
			"STRING arg",
		},
		{
			func(w io.Writer) { fprintfn(w, "%s arg", []byte("BYTE SLICE")) },
			"BYTE SLICE arg",
		},
		{
			func(w io.Writer) { fprintfn(w, "'%4s' padded", "ABC") },
			"' ABC' padded",
		},
		{
			func(w io.Writer) { fprintfn(w, "'%4s' longer than padding", "ABCDE") },
			"'ABCDE' longer than padding",
		},
		// ints and uints in all supported bases
		{
			func(w io.Writer) { fprintfn(w, "%d", uint8(10)) },
			"10",
		},
		{
			func(w io.Writer) { fprintfn(w, "%o", uint16(0777)) },
			"777",
		},
		{
			func(w io.Writer) { fprintfn(w, "%x", uint32(0xbadf00d)) },
			"badf00d",
		},
		{
			func(w io.Writer) { fprintfn(w, "%d", int64(-10)) },
			"-10",
		},
		{
			func(w io.Writer) { fprintfn(w, "%d", int(1234567890)) },
			"1234567890",
		},
		{
			func(w io.Writer) { fprintfn(w, "%x", uintptr(0xffffff8000000000)) },
			"ffffff8000000000",
		},
		// padded numbers
		{
			func(w io.Writer) { fprintfn(w, "%8x", uint8(0xf)) },
			"0000000f",
		},
		{
			func(w io.Writer) { fprintfn(w, "%5d", int8(-1)) },
			"   -1",
		},
		// escaped percent
		{
			func(w io.Writer) { fprintfn(w, "100%%") },
			"100%",
		},
		// error tokens
		{
			func(w io.Writer) { fprintfn(w, "%d") },
			"(MISSING)",
		},
		{
			func(w io.Writer) { fprintfn(w, "%d", "not a number") },
			"%!(WRONGTYPE)",
		},
		{
			func(w io.Writer) { fprintfn(w, "extra", 1) },
			"extra%!(EXTRA)",
		},
		{
			func(w io.Writer) { fprintfn(w, "%t", 42) },
			"%!(WRONGTYPE)",
		},
	}

	for specIndex, spec := range specs {
		buf.Reset()
		spec.fn(&buf)
		if got := buf.String(); got != spec.expOutput {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.expOutput, got)
		}
	}
}

func TestEarlyBufferReplay(t *testing.T) {
	defer func() {
		outputSink = nil
		earlyBuffer = ringBuffer{}
	}()

	outputSink = nil
	earlyBuffer = ringBuffer{}

	Printf("early %d %s", 42, "output")

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if exp, got := "early 42 output", buf.String(); got != exp {
		t.Errorf("expected early output %q to be replayed; got %q", exp, got)
	}

	Printf(" more")
	if exp, got := "early 42 output more", buf.String(); got != exp {
		t.Errorf("expected %q; got %q", exp, got)
	}

	if GetOutputSink() != &buf {
		t.Error("expected GetOutputSink to return the installed sink")
	}
}

func TestEarlyBufferWraparound(t *testing.T) {
	defer func() {
		outputSink = nil
		earlyBuffer = ringBuffer{}
	}()

	outputSink = nil
	earlyBuffer = ringBuffer{}

	for i := 0; i < ringBufferSize; i++ {
		Printf("x")
	}
	Printf("TAIL")

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if got := buf.String(); !strings.HasSuffix(got, "TAIL") {
		t.Errorf("expected replayed output to end with the latest writes; got tail %q", got[len(got)-8:])
	}
}
