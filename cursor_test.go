package mappedfile

import (
	"io"
	"testing"

	"mappedfile/platform"
)

func TestCursorWriteReadRoundTrip(t *testing.T) {
	m := openTest(t, 4096, 4096)

	w, err := AcquireCursorForWrite(m, 0)
	if err != nil {
		t.Fatalf("AcquireCursorForWrite: %v", err)
	}
	payload := []byte("round trip payload")
	n, err := w.Write(payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("Write n = %d, want %d", n, len(payload))
	}
	if err := w.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	r, err := AcquireCursorForRead(m, 0)
	if err != nil {
		t.Fatalf("AcquireCursorForRead: %v", err)
	}
	defer r.Release()

	buf := make([]byte, len(payload))
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("read %q, want %q", buf, payload)
	}
}

func TestBoundCursorWriteStopsAtSafeCapacityNotMappedSize(t *testing.T) {
	page := int64(platform.PageSize())
	chunkSize := page
	overlap := page
	m := openTest(t, chunkSize, overlap)

	cs, err := m.AcquireByteStore(0)
	if err != nil {
		t.Fatalf("AcquireByteStore: %v", err)
	}
	defer cs.Release()

	// Capacity (chunkSize + overlap/2) is strictly less than MappedSize
	// (chunkSize + overlap) whenever overlap > 0; a bound cursor must stop
	// at the former, leaving the overlap tail to the next chunk.
	if cs.Capacity() >= cs.MappedSize() {
		t.Fatalf("test setup: Capacity() = %d, MappedSize() = %d, want Capacity() < MappedSize()", cs.Capacity(), cs.MappedSize())
	}

	// Position a cursor 8 bytes before the end of the safe capacity and
	// attempt a 16-byte write; only the last 8 bytes fit, even though the
	// underlying mapping has far more room in its overlap tail.
	pos := cs.Start() + cs.Capacity() - 8
	w, err := BindCursorForWrite(cs, pos)
	if err != nil {
		t.Fatalf("BindCursorForWrite: %v", err)
	}
	defer w.Release()

	n, err := w.Write(make([]byte, 16))
	if err != io.EOF {
		t.Fatalf("Write error = %v, want io.EOF", err)
	}
	if n != 8 {
		t.Fatalf("Write n = %d, want 8", n)
	}
}

func TestAcquiredCursorWriteRunsPastCapacityIntoOverlap(t *testing.T) {
	page := int64(platform.PageSize())
	chunkSize := page
	overlap := page
	m := openTest(t, chunkSize, overlap)

	cs, err := m.AcquireByteStore(0)
	if err != nil {
		t.Fatalf("AcquireByteStore: %v", err)
	}
	capacity := cs.Capacity()
	mappedSize := cs.MappedSize()
	if err := cs.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// Start near the end of the nominal chunk and write far enough to run
	// past Capacity() into the overlap tail. Unlike a bound cursor, a
	// freshly acquired cursor owns the whole mapping and is not stopped
	// there — it is stopped only at MappedSize().
	pos := chunkSize - 8
	writeLen := mappedSize - pos // reaches exactly to MappedSize()

	w, err := AcquireCursorForWrite(m, pos)
	if err != nil {
		t.Fatalf("AcquireCursorForWrite: %v", err)
	}
	defer w.Release()

	n, err := w.Write(make([]byte, writeLen))
	if err != nil {
		t.Fatalf("Write into overlap tail: %v", err)
	}
	if int64(n) != writeLen {
		t.Fatalf("Write n = %d, want %d", n, writeLen)
	}
	if pos+writeLen <= capacity {
		t.Fatalf("test setup: write did not actually cross Capacity() (%d)", capacity)
	}
}

func TestCursorReadPastEndReturnsEOF(t *testing.T) {
	m := openTest(t, 4096, 0)
	cs, err := m.AcquireByteStore(0)
	if err != nil {
		t.Fatalf("AcquireByteStore: %v", err)
	}
	defer cs.Release()

	r, err := BindCursorForRead(cs, cs.MappedSize())
	if err != nil {
		t.Fatalf("BindCursorForRead: %v", err)
	}
	defer r.Release()

	buf := make([]byte, 1)
	if _, err := r.Read(buf); err != io.EOF {
		t.Fatalf("Read at end = %v, want io.EOF", err)
	}
}

func TestWriteAcrossChunkBoundaryVisibleThroughNextChunksMapping(t *testing.T) {
	page := int64(platform.PageSize())
	chunkSize := page
	overlap := page
	m := openTest(t, chunkSize, overlap)

	// Write 16 bytes straddling the chunk boundary, starting 8 bytes
	// before it, so the first 8 bytes land in chunk 0's nominal range and
	// the last 8 land in chunk 0's overlap tail.
	payload := []byte("straddleoverlap!")
	if len(payload) != 16 {
		t.Fatalf("test setup: payload must be 16 bytes, got %d", len(payload))
	}
	pos := chunkSize - 8

	w, err := AcquireCursorForWrite(m, pos)
	if err != nil {
		t.Fatalf("AcquireCursorForWrite: %v", err)
	}
	n, err := w.Write(payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("Write n = %d, want %d", n, len(payload))
	}
	if err := w.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// Read back through chunk 0's own mapping, covering its overlap tail.
	cs0, err := m.AcquireByteStore(0)
	if err != nil {
		t.Fatalf("AcquireByteStore(0): %v", err)
	}
	gotViaOverlap := append([]byte(nil), cs0.Bytes()[chunkSize-8:chunkSize+8]...)
	if err := cs0.Release(); err != nil {
		t.Fatalf("Release chunk 0: %v", err)
	}
	if string(gotViaOverlap) != string(payload) {
		t.Fatalf("read via chunk 0 overlap tail = %q, want %q", gotViaOverlap, payload)
	}

	// Read back the second half through chunk 1's own mapping, from its
	// start: chunk 1 begins at the same absolute file offset chunk 0's
	// overlap tail covers, so the same on-disk bytes must be visible there
	// too.
	cs1, err := m.AcquireByteStore(chunkSize)
	if err != nil {
		t.Fatalf("AcquireByteStore(chunkSize): %v", err)
	}
	defer cs1.Release()
	gotViaNextChunk := cs1.Bytes()[:8]
	if string(gotViaNextChunk) != string(payload[8:]) {
		t.Fatalf("read via chunk 1 start = %q, want %q", gotViaNextChunk, payload[8:])
	}
}

func TestBindCursorRejectsOutOfRangePosition(t *testing.T) {
	m := openTest(t, 4096, 4096)
	cs, err := m.AcquireByteStore(0)
	if err != nil {
		t.Fatalf("AcquireByteStore: %v", err)
	}
	defer cs.Release()

	if _, err := BindCursorForRead(cs, cs.Start()-1); err == nil {
		t.Fatal("expected error for position before chunk start")
	}
	if _, err := BindCursorForRead(cs, cs.Start()+cs.MappedSize()+1); err == nil {
		t.Fatal("expected error for position past mapped region")
	}
}
