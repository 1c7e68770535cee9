package main

import (
	"context"
	"fmt"
	"time"

	"github.com/milhud/cachesight/internal/ingest/ebpf"
	"github.com/milhud/cachesight/internal/model"
)

// liveMaxSamples bounds a single --live capture; ReadBatch returns
// earlier if the capture's duration elapses first.
const liveMaxSamples = 1_000_000

// livePerCPUBufferBytes sizes the perf ring buffer backing the sampler,
// rounded up to a page multiple by the kernel.
const livePerCPUBufferBytes = 4096

// captureLiveSamples loads the native cache-miss sampler via eBPF,
// attaches it to its tracepoint, and reads raw kernel records for the
// given duration, decoding them into the batch Analyze accepts. This is
// the analyze command's --live path, the only caller of internal/ingest/ebpf.
func captureLiveSamples(ctx context.Context, duration time.Duration, prog *progress) ([]model.MissSample, error) {
	loader := ebpf.NewLoader(prog.enabled)
	if !loader.CanLoad() {
		return nil, fmt.Errorf("kernel lacks BTF/CO-RE support required for the cache-miss sampler")
	}

	loadCtx, cancelLoad := context.WithTimeout(ctx, 10*time.Second)
	defer cancelLoad()
	loaded, err := loader.TryLoad(loadCtx, &ebpf.DefaultSampler)
	if err != nil {
		return nil, err
	}
	defer loaded.Close()

	sampler, err := ebpf.NewSampler(loaded, livePerCPUBufferBytes)
	if err != nil {
		return nil, fmt.Errorf("open sampler: %w", err)
	}
	defer sampler.Close()

	prog.Log("sampling live cache misses for %s", duration)
	readCtx, cancelRead := context.WithTimeout(ctx, duration)
	defer cancelRead()

	batch, err := sampler.ReadBatch(readCtx, liveMaxSamples)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	prog.Log("captured %d live samples", len(batch))
	return batch, nil
}
