package ebpf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/milhud/cachesight/internal/model"
)

func encodeRawMissEvent(ev rawMissEvent) []byte {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, ev); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestDecodeMissEventRoundTrip(t *testing.T) {
	raw := encodeRawMissEvent(rawMissEvent{
		InstrAddr:     0x401000,
		MemAddr:       0x7ffeeff00000,
		TimestampNs:   123456789,
		CPU:           3,
		ThreadID:      42,
		AccessSize:    8,
		IsWrite:       1,
		LatencyCycles: 250,
		MissedLevel:   uint32(model.MissL2),
	})

	sample, ok := decodeMissEvent(raw)
	if !ok {
		t.Fatal("decodeMissEvent rejected a well-formed record")
	}
	if sample.InstructionAddr != 0x401000 {
		t.Errorf("InstructionAddr = %x, want 0x401000", sample.InstructionAddr)
	}
	if sample.MemoryAddr != 0x7ffeeff00000 {
		t.Errorf("MemoryAddr = %x, want 0x7ffeeff00000", sample.MemoryAddr)
	}
	if sample.CPUID != 3 || sample.ThreadID != 42 {
		t.Errorf("CPUID/ThreadID = %d/%d, want 3/42", sample.CPUID, sample.ThreadID)
	}
	if !sample.IsWrite {
		t.Error("IsWrite = false, want true")
	}
	if sample.MissedLevel != model.MissL2 {
		t.Errorf("MissedLevel = %v, want MissL2", sample.MissedLevel)
	}
}

func TestDecodeMissEventRejectsShortRecord(t *testing.T) {
	if _, ok := decodeMissEvent([]byte{1, 2, 3}); ok {
		t.Error("decodeMissEvent accepted a too-short record")
	}
}

func TestDecodeMissEventClampsOutOfRangeLevel(t *testing.T) {
	raw := encodeRawMissEvent(rawMissEvent{MissedLevel: 99})
	sample, ok := decodeMissEvent(raw)
	if !ok {
		t.Fatal("decodeMissEvent rejected a well-formed record")
	}
	if sample.MissedLevel != model.MissLLC {
		t.Errorf("out-of-range MissedLevel should clamp to MissLLC, got %v", sample.MissedLevel)
	}
}
