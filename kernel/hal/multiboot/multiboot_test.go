package multiboot

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unsafe"
)

// blob assembles a multiboot info section in properly aligned memory and
// returns its address.
type blob struct {
	words []uint64
}

func newBlob(payload []byte) *blob {
	b := &blob{words: make([]uint64, (len(payload)+7)/8)}
	copy(b.bytes(), payload)
	return b
}

func (b *blob) bytes() []byte {
	return (*(*[1 << 20]byte)(unsafe.Pointer(&b.words[0])))[: len(b.words)*8 : len(b.words)*8]
}

func (b *blob) addr() uintptr {
	return uintptr(unsafe.Pointer(&b.words[0]))
}

func buildInfoPayload(cmdLine string, entries []MemoryMapEntry) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian

	write32 := func(v uint32) {
		var tmp [4]byte
		le.PutUint32(tmp[:], v)
		buf.Write(tmp[:])
	}
	write64 := func(v uint64) {
		var tmp [8]byte
		le.PutUint64(tmp[:], v)
		buf.Write(tmp[:])
	}
	pad8 := func() {
		for buf.Len()%8 != 0 {
			buf.WriteByte(0)
		}
	}

	// info header; totalSize is not consulted by the parser
	write32(0)
	write32(0)

	if cmdLine != "" {
		write32(uint32(tagBootCmdLine))
		write32(uint32(8 + len(cmdLine) + 1))
		buf.WriteString(cmdLine)
		buf.WriteByte(0)
		pad8()
	}

	if entries != nil {
		const entrySize = 24
		write32(uint32(tagMemoryMap))
		write32(uint32(8 + 8 + entrySize*len(entries)))
		write32(entrySize)
		write32(0)
		for _, e := range entries {
			write64(e.PhysAddress)
			write64(e.Length)
			write32(uint32(e.Type))
			write32(0)
		}
		pad8()
	}

	// end tag
	write32(uint32(tagMbSectionEnd))
	write32(8)

	return buf.Bytes()
}

func TestVisitMemRegions(t *testing.T) {
	entries := []MemoryMapEntry{
		{PhysAddress: 0, Length: 0x9fc00, Type: MemAvailable},
		{PhysAddress: 0x9fc00, Length: 0x400, Type: MemReserved},
		{PhysAddress: 0x100000, Length: 0x7ee0000, Type: MemAvailable},
		{PhysAddress: 0xfffc0000, Length: 0x40000, Type: 99},
	}
	b := newBlob(buildInfoPayload("", entries))
	SetInfoPtr(b.addr())

	var visited []MemoryMapEntry
	VisitMemRegions(func(e *MemoryMapEntry) bool {
		visited = append(visited, *e)
		return true
	})

	if len(visited) != len(entries) {
		t.Fatalf("expected %d visited regions; got %d", len(entries), len(visited))
	}
	for i, e := range entries[:3] {
		if visited[i] != e {
			t.Errorf("[entry %d] expected %+v; got %+v", i, e, visited[i])
		}
	}

	// Unknown types get normalized to reserved.
	if visited[3].Type != MemReserved {
		t.Errorf("expected unknown type to be reported as reserved; got %v", visited[3].Type)
	}
}

func TestVisitMemRegionsAbort(t *testing.T) {
	entries := []MemoryMapEntry{
		{PhysAddress: 0, Length: 0x1000, Type: MemAvailable},
		{PhysAddress: 0x1000, Length: 0x1000, Type: MemAvailable},
	}
	b := newBlob(buildInfoPayload("", entries))
	SetInfoPtr(b.addr())

	var visits int
	VisitMemRegions(func(*MemoryMapEntry) bool {
		visits++
		return false
	})

	if visits != 1 {
		t.Errorf("expected the scan to stop after the first visit; got %d visits", visits)
	}
}

func TestVisitMemRegionsWithoutMemoryMapTag(t *testing.T) {
	b := newBlob(buildInfoPayload("loglevel=info", nil))
	SetInfoPtr(b.addr())

	VisitMemRegions(func(*MemoryMapEntry) bool {
		t.Fatal("expected no visits when the memory-map tag is missing")
		return false
	})
}

func TestCmdLineOption(t *testing.T) {
	b := newBlob(buildInfoPayload("loglevel=warn serialOff console=ttyS0", nil))
	SetInfoPtr(b.addr())

	specs := []struct {
		key      string
		expValue string
		expN     int
		expOK    bool
	}{
		// value form, at the start, middle and end of the line
		{"loglevel", "warn", 4, true},
		{"console", "ttyS0", 5, true},
		// flag form carries no value but is present
		{"serialOff", "", 0, true},
		// absent keys, including prefixes and extensions of present ones
		{"log", "", 0, false},
		{"loglevelx", "", 0, false},
		{"serial", "", 0, false},
	}

	for specIndex, spec := range specs {
		var buf [16]byte
		n, ok := CmdLineOption(spec.key, buf[:])
		if n != spec.expN || ok != spec.expOK {
			t.Errorf("[spec %d] expected (%d, %t); got (%d, %t)", specIndex, spec.expN, spec.expOK, n, ok)
		}
		if got := string(buf[:n]); got != spec.expValue {
			t.Errorf("[spec %d] expected value %q; got %q", specIndex, spec.expValue, got)
		}
	}
}

func TestCmdLineOptionTruncatesToBuffer(t *testing.T) {
	b := newBlob(buildInfoPayload("loglevel=verbose", nil))
	SetInfoPtr(b.addr())

	var buf [3]byte
	n, ok := CmdLineOption("loglevel", buf[:])
	if !ok || n != 3 {
		t.Fatalf("expected a truncated (3, true); got (%d, %t)", n, ok)
	}
	if got := string(buf[:]); got != "ver" {
		t.Errorf("expected the truncated value %q; got %q", "ver", got)
	}
}

func TestCmdLineOptionWithoutCmdLineTag(t *testing.T) {
	entries := []MemoryMapEntry{
		{PhysAddress: 0, Length: 0x1000, Type: MemAvailable},
	}
	b := newBlob(buildInfoPayload("", entries))
	SetInfoPtr(b.addr())

	var buf [8]byte
	if n, ok := CmdLineOption("loglevel", buf[:]); n != 0 || ok {
		t.Errorf("expected (0, false) without a command-line tag; got (%d, %t)", n, ok)
	}
}

func TestMemoryEntryTypeString(t *testing.T) {
	specs := []struct {
		t   MemoryEntryType
		exp string
	}{
		{MemAvailable, "available"},
		{MemReserved, "reserved"},
		{MemAcpiReclaimable, "ACPI (reclaimable)"},
		{MemNvs, "NVS"},
		{MemoryEntryType(42), "unknown"},
	}

	for specIndex, spec := range specs {
		if got := spec.t.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}
