package ebpf

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cilium/ebpf/perf"

	"github.com/milhud/cachesight/internal/model"
)

// rawMissEvent must match the C struct emitted by the BPF program at
// cache_miss.o: instr_addr(8) + mem_addr(8) + ts_ns(8) + cpu(4) +
// tid(4) + size(4) + is_write(1) + pad(3) + latency_cycles(4) +
// missed_level(4) = 48 bytes.
type rawMissEvent struct {
	InstrAddr     uint64
	MemAddr       uint64
	TimestampNs   uint64
	CPU           uint32
	ThreadID      uint32
	AccessSize    uint32
	IsWrite       uint8
	_             [3]byte
	LatencyCycles uint32
	MissedLevel   uint32
}

const rawMissEventSize = 48

// Sampler reads raw cache-miss records off a LoadedProgram's perf event
// array and turns them into model.MissSample batches, the only shape
// internal/pipeline accepts.
type Sampler struct {
	reader *perf.Reader
}

// NewSampler opens a perf reader over prog's events map. perCPUBufferBytes
// is the per-CPU ring buffer size in bytes (rounded up to a page multiple
// by the kernel).
func NewSampler(prog *LoadedProgram, perCPUBufferBytes int) (*Sampler, error) {
	rd, err := perf.NewReader(prog.EventsMap, perCPUBufferBytes)
	if err != nil {
		return nil, fmt.Errorf("open perf reader for %s: %w", prog.Spec.Name, err)
	}
	return &Sampler{reader: rd}, nil
}

// Close releases the perf reader.
func (s *Sampler) Close() error {
	return s.reader.Close()
}

// ReadBatch blocks until it has read up to maxSamples raw records (or
// ctx is cancelled) and returns them decoded as model.MissSample. It is
// the caller's job to feed the result into pipeline.Core.Analyze or
// aggregator.Aggregator.AddSamples; this package never imports either.
func (s *Sampler) ReadBatch(ctx context.Context, maxSamples int) ([]model.MissSample, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.reader.Close()
		case <-done:
		}
	}()
	defer close(done)

	batch := make([]model.MissSample, 0, maxSamples)
	for len(batch) < maxSamples {
		record, err := s.reader.Read()
		if err != nil {
			if errors.Is(err, perf.ErrClosed) {
				break
			}
			continue
		}
		if record.LostSamples > 0 {
			continue
		}
		sample, ok := decodeMissEvent(record.RawSample)
		if !ok {
			continue
		}
		batch = append(batch, sample)
	}
	return batch, nil
}

func decodeMissEvent(raw []byte) (model.MissSample, bool) {
	if len(raw) < rawMissEventSize {
		return model.MissSample{}, false
	}
	var ev rawMissEvent
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &ev); err != nil {
		return model.MissSample{}, false
	}
	level := model.MissedLevel(ev.MissedLevel)
	if level < model.MissL1 || level > model.MissLLC {
		level = model.MissLLC
	}
	return model.MissSample{
		InstructionAddr: ev.InstrAddr,
		MemoryAddr:      ev.MemAddr,
		TimestampNS:     int64(ev.TimestampNs),
		CPUID:           int(ev.CPU),
		ThreadID:        int(ev.ThreadID),
		AccessSize:      int(ev.AccessSize),
		IsWrite:         ev.IsWrite != 0,
		LatencyCycles:   uint64(ev.LatencyCycles),
		MissedLevel:     level,
	}, true
}
