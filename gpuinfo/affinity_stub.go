//go:build !linux

package gpuinfo

import "github.com/amikos-tech/pure-nvml/nvml"

// SetCPUAffinity requires sched_setaffinity and always fails off Linux.
func (c *Client) SetCPUAffinity(device nvml.Device) error {
	return ErrThreadAffinityUnsupported
}

// RestoreCPUAffinity requires sched_setaffinity and always fails off Linux.
func (c *Client) RestoreCPUAffinity() error {
	return ErrThreadAffinityUnsupported
}
