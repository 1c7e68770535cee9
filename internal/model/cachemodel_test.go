package model

import "testing"

func sampleModel() *CacheModel {
	return &CacheModel{
		Levels: []CacheLevel{
			{Level: 1, Kind: KindData, SizeBytes: 32 * 1024, LineSizeBytes: 64, Associativity: 8},
			{Level: 2, Kind: KindUnified, SizeBytes: 256 * 1024, LineSizeBytes: 64, Associativity: 8},
			{Level: 3, Kind: KindUnified, SizeBytes: 8 * 1024 * 1024, LineSizeBytes: 64, Associativity: 16, Shared: true},
		},
		NUMANodes: 1,
		PageSize:  4096,
	}
}

func TestCacheModelValidate(t *testing.T) {
	m := sampleModel()
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() on well-formed model: %v", err)
	}
}

func TestCacheModelValidateNoLevels(t *testing.T) {
	m := &CacheModel{}
	err := m.Validate()
	if err == nil {
		t.Fatal("Validate() with zero levels: want error, got nil")
	}
	if !IsCode(err, CodeInconsistentCacheModel) {
		t.Errorf("Validate() error code = %v, want InconsistentCacheModel", err)
	}
}

func TestCacheModelValidateNonPositiveSize(t *testing.T) {
	m := &CacheModel{Levels: []CacheLevel{{Level: 1, SizeBytes: 0, LineSizeBytes: 64}}}
	if err := m.Validate(); !IsCode(err, CodeInconsistentCacheModel) {
		t.Errorf("Validate() with zero size_bytes: want InconsistentCacheModel, got %v", err)
	}
}

func TestCacheModelLevelLookup(t *testing.T) {
	m := sampleModel()
	l2 := m.Level(2)
	if l2 == nil {
		t.Fatal("Level(2) = nil, want L2 entry")
	}
	if l2.SizeBytes != 256*1024 {
		t.Errorf("Level(2).SizeBytes = %d, want %d", l2.SizeBytes, 256*1024)
	}
	if got := m.Level(9); got != nil {
		t.Errorf("Level(9) = %+v, want nil", got)
	}
}
