// Package hardware detects host capabilities used to recommend build
// parallelism.
package hardware

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// serverMinThreads is the minimum CPU threads for server classification
	serverMinThreads = 16
	// serverMinRAMGB is the minimum RAM in GB for server classification
	serverMinRAMGB = 32
)

// Class categorizes the host machine
type Class string

const (
	ClassLaptop  Class = "laptop"
	ClassDesktop Class = "desktop"
	ClassServer  Class = "server"
)

// Info describes the detected host hardware
type Info struct {
	CPUModel   string `json:"cpu_model"`
	CPUThreads int    `json:"cpu_threads"`
	RAMBytes   uint64 `json:"ram_bytes"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
}

// Detect collects CPU and memory information for the current host
func Detect() (*Info, error) {
	info := &Info{
		CPUThreads: runtime.NumCPU(),
		CPUModel:   "Unknown",
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory info: %w", err)
	}
	info.RAMBytes = vm.Total

	return info, nil
}

// Classify determines the machine class from threads and RAM
func (i *Info) Classify() Class {
	ramGB := i.RAMBytes / (1024 * 1024 * 1024)
	switch {
	case i.CPUThreads >= serverMinThreads && ramGB >= serverMinRAMGB:
		return ClassServer
	case i.CPUThreads >= 8:
		return ClassDesktop
	default:
		return ClassLaptop
	}
}

// FormatRAM renders bytes as a human-readable GB string
func FormatRAM(bytes uint64) string {
	return fmt.Sprintf("%.1f GB", float64(bytes)/(1024*1024*1024))
}
