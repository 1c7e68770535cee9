package ebpf

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
)

// ProgramSpec describes the compiled cache-miss sampler to load: a BPF
// program attached to a kernel tracepoint (DefaultSampler uses
// exceptions/page_fault_user), emitting one raw record per firing into a
// perf event array map.
type ProgramSpec struct {
	Name          string
	ObjectFile    string // path to the compiled .o
	EventsMapName string // PERF_EVENT_ARRAY map holding the raw records
	TracepointCat string // tracepoint category, e.g. "exceptions"
	TracepointName string // tracepoint name, e.g. "page_fault_user"
	Section       string // program section name inside the .o
}

// DefaultSampler is the cache-miss sampler CacheSight loads when asked
// to ingest live kernel samples instead of a pre-recorded file.
var DefaultSampler = ProgramSpec{
	Name:           "cache_miss_sampler",
	ObjectFile:     "internal/ingest/ebpf/bpf/cache_miss.o",
	EventsMapName:  "miss_events",
	TracepointCat:  "exceptions",
	TracepointName: "page_fault_user",
	Section:        "tracepoint/exceptions/page_fault_user",
}

// LoadedProgram is a running BPF program plus the perf event array it
// writes raw miss records into.
type LoadedProgram struct {
	Spec       *ProgramSpec
	Collection *ebpf.Collection
	Link       link.Link
	EventsMap  *ebpf.Map
}

// Close releases the kernel resources held by a LoadedProgram.
func (p *LoadedProgram) Close() error {
	if p.Link != nil {
		p.Link.Close()
	}
	if p.Collection != nil {
		p.Collection.Close()
	}
	return nil
}

// Loader loads and attaches the native cache-miss sampler.
type Loader struct {
	btfInfo *BTFInfo
	verbose bool
}

// NewLoader creates a Loader, detecting BTF/CO-RE support up front.
func NewLoader(verbose bool) *Loader {
	return &Loader{btfInfo: DetectBTF(), verbose: verbose}
}

// CanLoad reports whether this kernel supports loading the sampler at
// all (BTF + CO-RE); TryLoad fails fast with LoadError otherwise.
func (l *Loader) CanLoad() bool {
	return l.btfInfo.Available && l.btfInfo.CORESupport
}

// LoadError represents a sampler load/attach failure.
type LoadError struct {
	Program string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cache-miss sampler %q: %v", e.Program, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// TryLoad loads spec's object file, instantiates it in the kernel, and
// attaches it to its tracepoint. The returned LoadedProgram's EventsMap
// is ready to be wrapped by NewSampler.
func (l *Loader) TryLoad(ctx context.Context, spec *ProgramSpec) (*LoadedProgram, error) {
	if !l.CanLoad() {
		return nil, &LoadError{Program: spec.Name, Err: fmt.Errorf("BTF/CO-RE not available (kernel %s)", l.btfInfo.KernelVersion)}
	}

	path := spec.ObjectFile
	if !filepath.IsAbs(path) {
		// Resolved relative to the process's working directory.
	}

	collSpec, err := ebpf.LoadCollectionSpec(path)
	if err != nil {
		return nil, &LoadError{Program: spec.Name, Err: fmt.Errorf("load spec: %w", err)}
	}

	coll, err := ebpf.NewCollection(collSpec)
	if err != nil {
		return nil, &LoadError{Program: spec.Name, Err: fmt.Errorf("load collection: %w", err)}
	}

	prog := coll.Programs[spec.Section]
	if prog == nil {
		for _, p := range coll.Programs {
			prog = p
			break
		}
	}
	if prog == nil {
		coll.Close()
		return nil, &LoadError{Program: spec.Name, Err: fmt.Errorf("program not found in collection")}
	}

	eventsMap := coll.Maps[spec.EventsMapName]
	if eventsMap == nil {
		coll.Close()
		return nil, &LoadError{Program: spec.Name, Err: fmt.Errorf("events map %q not found in collection", spec.EventsMapName)}
	}

	tp, err := link.Tracepoint(spec.TracepointCat, spec.TracepointName, prog, nil)
	if err != nil {
		coll.Close()
		return nil, &LoadError{Program: spec.Name, Err: fmt.Errorf("attach tracepoint %s/%s: %w", spec.TracepointCat, spec.TracepointName, err)}
	}

	if l.verbose {
		log.Printf("[ingest/ebpf] loaded %s (tracepoint: %s/%s)", spec.Name, spec.TracepointCat, spec.TracepointName)
	}

	return &LoadedProgram{
		Spec:       spec,
		Collection: coll,
		Link:       tp,
		EventsMap:  eventsMap,
	}, nil
}
