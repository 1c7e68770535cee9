// Package ebpf is the optional kernel-sampling bridge: it loads a native
// eBPF program that tags cache-miss events with the instruction and
// memory address that caused them, and turns the resulting perf-buffer
// records into model.MissSample batches. Nothing in internal/pipeline or
// any other core package imports this package, and it imports none of
// them; cmd/cachesight wires it in and passes its batches to
// internal/pipeline when the operator asks for live sampling instead of a
// pre-recorded sample file.
package ebpf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// BTFInfo describes the BTF/CO-RE availability on the running kernel,
// which governs whether the native cache-miss sampler can load at all.
type BTFInfo struct {
	Available     bool   `json:"available"`
	VmlinuxPath   string `json:"vmlinux_path,omitempty"`
	KernelVersion string `json:"kernel_version"`
	MajorVersion  int    `json:"major_version"`
	MinorVersion  int    `json:"minor_version"`
	CORESupport   bool   `json:"core_support"` // true if kernel >= 5.8
}

// DetectBTF checks for BTF availability on this machine.
func DetectBTF() *BTFInfo {
	info := &BTFInfo{}
	info.KernelVersion = readKernelVersion()
	info.MajorVersion, info.MinorVersion = parseKernelVersion(info.KernelVersion)

	if _, err := os.Stat("/sys/kernel/btf/vmlinux"); err == nil {
		info.Available = true
		info.VmlinuxPath = "/sys/kernel/btf/vmlinux"
	}

	if info.MajorVersion > 5 || (info.MajorVersion == 5 && info.MinorVersion >= 8) {
		info.CORESupport = true
	}
	return info
}

// DetectCapabilities reports which kernel features the cache-miss
// sampler depends on: the BPF syscall, BTF, the bpf filesystem, and
// PMU-backed perf events (without perf_event_open there is no hardware
// cache-miss counter to attach to in the first place).
func DetectCapabilities() map[string]bool {
	caps := make(map[string]bool)
	caps["bpf_syscall"] = fileExists("/proc/sys/kernel/unprivileged_bpf_disabled")
	caps["btf_vmlinux"] = fileExists("/sys/kernel/btf/vmlinux")
	caps["bpffs"] = fileExists("/sys/fs/bpf")
	caps["perf_events"] = fileExists("/proc/sys/kernel/perf_event_paranoid")
	caps["tracepoints"] = fileExists("/sys/kernel/tracing/events") || fileExists("/sys/kernel/debug/tracing/events")

	kconfig := readKConfig()
	for _, opt := range []string{
		"CONFIG_BPF",
		"CONFIG_BPF_SYSCALL",
		"CONFIG_BPF_JIT",
		"CONFIG_BPF_EVENTS",
		"CONFIG_DEBUG_INFO_BTF",
		"CONFIG_PERF_EVENTS",
	} {
		caps[strings.ToLower(opt)] = kconfig[opt]
	}
	return caps
}

func readKernelVersion() string {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return ""
	}
	fields := strings.Fields(string(data))
	if len(fields) >= 3 {
		return fields[2]
	}
	return ""
}

func parseKernelVersion(version string) (int, int) {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return 0, 0
	}
	major, _ := strconv.Atoi(parts[0])
	minorStr := parts[1]
	if idx := strings.IndexAny(minorStr, "-+~"); idx >= 0 {
		minorStr = minorStr[:idx]
	}
	minor, _ := strconv.Atoi(minorStr)
	return major, minor
}

func readKConfig() map[string]bool {
	configs := make(map[string]bool)
	paths := []string{
		fmt.Sprintf("/boot/config-%s", readKernelRelease()),
		"/proc/config.gz",
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "#") || line == "" {
				continue
			}
			if idx := strings.Index(line, "="); idx >= 0 {
				key := line[:idx]
				val := line[idx+1:]
				configs[key] = val == "y" || val == "m"
			}
		}
		break
	}
	return configs
}

func readKernelRelease() string {
	data, err := os.ReadFile("/proc/sys/kernel/osrelease")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
