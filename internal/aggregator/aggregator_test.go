package aggregator

import (
	"testing"

	"github.com/milhud/cachesight/internal/model"
)

func sample(addr uint64) model.MissSample {
	return model.MissSample{
		InstructionAddr: 0x4000,
		MemoryAddr:      addr,
		MissedLevel:     model.MissL2,
		LatencyCycles:   100,
		Location:        model.SourceLocation{File: "mm.c", Line: 12, Function: "mmul"},
	}
}

func TestAddSamplesBasicAggregation(t *testing.T) {
	a, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.AddSamples([]model.MissSample{sample(0x1000), sample(0x1040), sample(0x1080)}); err != nil {
		t.Fatalf("AddSamples: %v", err)
	}
	hs := a.GetHotspots(0, 0)
	if len(hs) != 1 {
		t.Fatalf("GetHotspots len = %d, want 1", len(hs))
	}
	h := hs[0]
	if h.TotalMisses != 3 || h.TotalAccesses != 3 {
		t.Errorf("TotalMisses/Accesses = %d/%d, want 3/3", h.TotalMisses, h.TotalAccesses)
	}
	if h.AddrMin != 0x1000 || h.AddrMax != 0x1080 {
		t.Errorf("address range = [%#x,%#x], want [0x1000,0x1080]", h.AddrMin, h.AddrMax)
	}
	if h.LevelCounts[model.MissL2] != 3 {
		t.Errorf("LevelCounts[L2] = %d, want 3", h.LevelCounts[model.MissL2])
	}
}

func TestAddSamplesMonotonicity(t *testing.T) {
	a, _ := New(DefaultConfig())
	a.AddSamples([]model.MissSample{sample(0x1000)})
	before := a.GetHotspots(0, 0)[0]
	beforeMisses, beforeRange := before.TotalMisses, before.AddrRange()

	a.AddSamples([]model.MissSample{sample(0x2000)})
	after := a.GetHotspots(0, 0)[0]

	if after.TotalMisses < beforeMisses {
		t.Errorf("TotalMisses decreased: %d -> %d", beforeMisses, after.TotalMisses)
	}
	if after.AddrRange() < beforeRange {
		t.Errorf("AddrRange shrank: %d -> %d", beforeRange, after.AddrRange())
	}
}

func TestAddSamplesSampleCapRetainsFirst(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleCap = 2
	a, _ := New(cfg)
	a.AddSamples([]model.MissSample{sample(1), sample(2), sample(3)})
	h := a.GetHotspots(0, 0)[0]
	if len(h.Samples) != 2 {
		t.Fatalf("len(Samples) = %d, want 2", len(h.Samples))
	}
	if h.Samples[0].MemoryAddr != 1 || h.Samples[1].MemoryAddr != 2 {
		t.Errorf("retained samples = %v, want first-fill retention of [1,2]", h.Samples)
	}
	if h.TotalMisses != 3 {
		t.Errorf("TotalMisses = %d, want 3 (counts keep incrementing past the cap)", h.TotalMisses)
	}
}

func TestMaxHotspotsSoftFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHotspots = 1
	a, _ := New(cfg)

	s1 := sample(1)
	s1.InstructionAddr = 0x1000
	s2 := sample(2)
	s2.InstructionAddr = 0x2000

	if err := a.AddSamples([]model.MissSample{s1, s2}); err != nil {
		t.Fatalf("AddSamples should not return a hard error on capacity overflow: %v", err)
	}
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (second key rejected)", a.Len())
	}
	if !a.CapacityReached() {
		t.Error("CapacityReached() = false, want true")
	}
}

func TestGetHotspotsThresholdsAndOrdering(t *testing.T) {
	a, _ := New(DefaultConfig())

	hot := sample(1)
	hot.InstructionAddr = 0x1000
	cold := sample(1)
	cold.InstructionAddr = 0x2000

	for i := 0; i < 5; i++ {
		a.AddSamples([]model.MissSample{hot})
	}
	a.AddSamples([]model.MissSample{cold})

	hs := a.GetHotspots(2, 0)
	if len(hs) != 1 {
		t.Fatalf("GetHotspots(min_samples=2) len = %d, want 1", len(hs))
	}
	if hs[0].Key != 0x1000 {
		t.Errorf("surviving hotspot key = %#x, want 0x1000", hs[0].Key)
	}

	all := a.GetHotspots(0, 0)
	if len(all) != 2 || all[0].Key != 0x1000 {
		t.Fatalf("GetHotspots ordering: got %+v, want [0x1000,0x2000] by total_misses desc", all)
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := New(Config{MaxHotspots: 0, SampleCap: 10}); !model.IsCode(err, model.CodeInvalidArgument) {
		t.Errorf("New with MaxHotspots=0: err = %v, want InvalidArgument", err)
	}
	if _, err := New(Config{MaxHotspots: 10, SampleCap: 0}); !model.IsCode(err, model.CodeInvalidArgument) {
		t.Errorf("New with SampleCap=0: err = %v, want InvalidArgument", err)
	}
}

func TestByFunctionKeyPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeyPolicy = ByFunction
	a, _ := New(cfg)

	s1 := sample(1)
	s1.InstructionAddr = 0x401004
	s2 := sample(2)
	s2.InstructionAddr = 0x401FF0

	a.AddSamples([]model.MissSample{s1, s2})
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (both addrs fall in the same 4KiB page)", a.Len())
	}
}
