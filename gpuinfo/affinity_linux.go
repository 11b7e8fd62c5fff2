package gpuinfo

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/amikos-tech/pure-nvml/nvml"
)

// cpuSetCapacity matches the kernel's CPU_SETSIZE.
const cpuSetCapacity = 1024

// SetCPUAffinity pins the calling OS thread to the CPUs nearest the device,
// as reported by DeviceCPUMask. The thread's previous mask is saved for
// RestoreCPUAffinity. Callers must hold the thread with runtime.LockOSThread
// for the pin to mean anything; the goroutine scheduler migrates unlocked
// goroutines freely.
func (c *Client) SetCPUAffinity(device nvml.Device) error {
	mask, err := c.DeviceCPUMask(device)
	if err != nil {
		return fmt.Errorf("failed to query the CPU mask for device %#x: %w", uintptr(device), err)
	}

	cpus := maskBits(mask)
	if len(cpus) == 0 {
		return fmt.Errorf("driver reported an empty CPU mask for device %#x", uintptr(device))
	}
	var set unix.CPUSet
	for _, cpu := range cpus {
		set.Set(cpu)
	}

	c.affinityMu.Lock()
	defer c.affinityMu.Unlock()

	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return fmt.Errorf("failed to read the current thread affinity: %w", err)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("failed to pin the thread to the device CPUs: %w", err)
	}
	c.savedAffinity = maskFromCPUSet(&prev)
	return nil
}

// RestoreCPUAffinity reapplies the mask the calling thread had before the
// last SetCPUAffinity. Without a prior pin it is a no-op.
func (c *Client) RestoreCPUAffinity() error {
	c.affinityMu.Lock()
	defer c.affinityMu.Unlock()

	if c.savedAffinity == nil {
		return nil
	}
	var set unix.CPUSet
	for _, cpu := range maskBits(c.savedAffinity) {
		set.Set(cpu)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("failed to restore the thread affinity: %w", err)
	}
	c.savedAffinity = nil
	return nil
}

func maskFromCPUSet(set *unix.CPUSet) []uint64 {
	mask := make([]uint64, cpuSetCapacity/64)
	for cpu := 0; cpu < cpuSetCapacity; cpu++ {
		if set.IsSet(cpu) {
			mask[cpu/64] |= 1 << uint(cpu%64)
		}
	}
	n := len(mask)
	for n > 0 && mask[n-1] == 0 {
		n--
	}
	return mask[:n]
}
