package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/milhud/cachesight/internal/ingest/ebpf"
)

// TestCaptureLiveSamplesFailsFastWithoutCORE exercises the --live call
// site without requiring a kernel capable of actually loading the BPF
// program: on a kernel lacking BTF/CO-RE (the common case for a test
// runner), captureLiveSamples must fail fast with a clear message
// rather than attempt TryLoad.
func TestCaptureLiveSamplesFailsFastWithoutCORE(t *testing.T) {
	if ebpf.NewLoader(false).CanLoad() {
		t.Skip("this kernel reports BTF/CO-RE support; the fail-fast path isn't exercised here")
	}

	_, err := captureLiveSamples(context.Background(), 10*time.Millisecond, newProgress(false))
	if err == nil {
		t.Fatal("captureLiveSamples should fail on a kernel without BTF/CO-RE support")
	}
	if !strings.Contains(err.Error(), "BTF/CO-RE") {
		t.Errorf("error = %q, want it to mention BTF/CO-RE", err.Error())
	}
}
