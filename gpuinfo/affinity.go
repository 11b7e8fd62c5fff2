package gpuinfo

import (
	"errors"
	"runtime"

	"github.com/amikos-tech/pure-nvml/nvml"
)

// ErrThreadAffinityUnsupported is returned by SetCPUAffinity and
// RestoreCPUAffinity on platforms without sched_setaffinity. The
// process-level SetProcessCPUAffinity works wherever the driver does.
var ErrThreadAffinityUnsupported = errors.New("gpuinfo: thread CPU affinity requires Linux")

// DeviceCPUMask returns the CPUs the driver considers closest to the device,
// one bit per CPU, 64 CPUs per mask word. On CUDA 11 drivers the query is
// answered for the device's processor socket; older drivers answer for the
// whole machine. This is the mask SetCPUAffinity applies.
func (c *Client) DeviceCPUMask(device nvml.Device) ([]uint64, error) {
	words := affinityWords()
	if c.api.HasCUDA11Functions() {
		return c.api.DeviceGetCpuAffinityWithinScope(device, words, nvml.AffinityScopeSocket)
	}
	return c.api.DeviceGetCpuAffinity(device, words)
}

// affinityWords returns the number of mask words needed to cover every CPU
// the process can currently run on.
func affinityWords() uint32 {
	return uint32((runtime.NumCPU() + 63) / 64)
}

// maskBits expands an affinity mask into the CPU numbers of its set bits.
func maskBits(mask []uint64) []int {
	var cpus []int
	for word, bits := range mask {
		for bit := 0; bit < 64; bit++ {
			if bits&(1<<uint(bit)) != 0 {
				cpus = append(cpus, word*64+bit)
			}
		}
	}
	return cpus
}
