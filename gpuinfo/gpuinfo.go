// Package gpuinfo layers device-level queries on top of the nvml binding:
// lifecycle management, enumeration across driver generations, driver
// version reporting and CPU pinning.
package gpuinfo

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/amikos-tech/pure-nvml/nvml"
)

// API is the slice of the nvml binding this package consumes. The default
// implementation forwards to package nvml; tests substitute fakes.
type API interface {
	Bind() error
	Init() error
	Shutdown() error
	HasCUDA11Functions() bool
	DeviceGetCountV2() (uint32, error)
	DeviceGetHandleByIndex(index int) (nvml.Device, error)
	DeviceGetHandleByIndexV2(index uint32) (nvml.Device, error)
	DeviceGetBrand(device nvml.Device) (nvml.BrandType, error)
	DeviceGetCudaComputeCapability(device nvml.Device) (int32, int32, error)
	SystemGetDriverVersion() (string, error)
	DeviceGetCpuAffinity(device nvml.Device, cpuSetSize uint32) ([]uint64, error)
	DeviceGetCpuAffinityWithinScope(device nvml.Device, cpuSetSize uint32, scope nvml.AffinityScope) ([]uint64, error)
	DeviceSetCpuAffinity(device nvml.Device) error
	DeviceClearCpuAffinity(device nvml.Device) error
}

// nvmlAPI is the production implementation.
type nvmlAPI struct{}

var _ API = nvmlAPI{}

func (nvmlAPI) Bind() error              { return nvml.Bind() }
func (nvmlAPI) Init() error              { return nvml.Init() }
func (nvmlAPI) Shutdown() error          { return nvml.Shutdown() }
func (nvmlAPI) HasCUDA11Functions() bool { return nvml.HasCUDA11Functions() }

func (nvmlAPI) DeviceGetCountV2() (uint32, error) { return nvml.DeviceGetCountV2() }

func (nvmlAPI) DeviceGetHandleByIndex(index int) (nvml.Device, error) {
	return nvml.DeviceGetHandleByIndex(index)
}

func (nvmlAPI) DeviceGetHandleByIndexV2(index uint32) (nvml.Device, error) {
	return nvml.DeviceGetHandleByIndexV2(index)
}

func (nvmlAPI) DeviceGetBrand(device nvml.Device) (nvml.BrandType, error) {
	return nvml.DeviceGetBrand(device)
}

func (nvmlAPI) DeviceGetCudaComputeCapability(device nvml.Device) (int32, int32, error) {
	return nvml.DeviceGetCudaComputeCapability(device)
}

func (nvmlAPI) SystemGetDriverVersion() (string, error) { return nvml.SystemGetDriverVersion() }

func (nvmlAPI) DeviceGetCpuAffinity(device nvml.Device, cpuSetSize uint32) ([]uint64, error) {
	return nvml.DeviceGetCpuAffinity(device, cpuSetSize)
}

func (nvmlAPI) DeviceGetCpuAffinityWithinScope(device nvml.Device, cpuSetSize uint32, scope nvml.AffinityScope) ([]uint64, error) {
	return nvml.DeviceGetCpuAffinityWithinScope(device, cpuSetSize, scope)
}

func (nvmlAPI) DeviceSetCpuAffinity(device nvml.Device) error {
	return nvml.DeviceSetCpuAffinity(device)
}

func (nvmlAPI) DeviceClearCpuAffinity(device nvml.Device) error {
	return nvml.DeviceClearCpuAffinity(device)
}

// Client owns one reference-counted NVML session and answers device queries
// against it. Safe for concurrent use.
type Client struct {
	mu       sync.Mutex
	api      API
	refCount int

	readyInitialInterval time.Duration
	readyMaxInterval     time.Duration

	affinityMu    sync.Mutex
	savedAffinity []uint64
}

// Option configures a Client.
type Option func(*Client) error

// WithAPI substitutes the underlying binding. Mainly for tests.
func WithAPI(api API) Option {
	return func(c *Client) error {
		if api == nil {
			return fmt.Errorf("api cannot be nil")
		}
		c.api = api
		return nil
	}
}

// WithReadyBackoff adjusts the retry cadence of WaitUntilReady.
func WithReadyBackoff(initial, max time.Duration) Option {
	return func(c *Client) error {
		if initial <= 0 || max <= 0 {
			return fmt.Errorf("backoff intervals must be > 0, got %v and %v", initial, max)
		}
		if max < initial {
			return fmt.Errorf("max interval %v is below the initial interval %v", max, initial)
		}
		c.readyInitialInterval = initial
		c.readyMaxInterval = max
		return nil
	}
}

// New returns an uninitialized Client. Call Initialize (or WaitUntilReady)
// before querying devices.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		api:                  nvmlAPI{},
		readyInitialInterval: 500 * time.Millisecond,
		readyMaxInterval:     10 * time.Second,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ComputeCapability is a device's CUDA compute capability.
type ComputeCapability struct {
	Major int32
	Minor int32
}

func (cc ComputeCapability) String() string {
	return fmt.Sprintf("%d.%d", cc.Major, cc.Minor)
}

// DeviceInfo describes one enumerated device. Brand and ComputeCapability
// stay zero on drivers that predate the CUDA 11 entry points.
type DeviceInfo struct {
	Index             uint32
	Handle            nvml.Device
	Brand             nvml.BrandType
	ComputeCapability ComputeCapability
}

// Devices enumerates the devices the driver can see. On CUDA 11 drivers the
// v2 entry points are used and each device is annotated with its brand and
// compute capability; a device that fails to resolve is skipped. Older
// drivers are probed index by index until the first failure. Call between
// Initialize and Shutdown.
func (c *Client) Devices() ([]DeviceInfo, error) {
	if c.api.HasCUDA11Functions() {
		return c.modernDevices()
	}
	return c.legacyDevices()
}

func (c *Client) modernDevices() ([]DeviceInfo, error) {
	count, err := c.api.DeviceGetCountV2()
	if err != nil {
		return nil, fmt.Errorf("failed to count devices: %w", err)
	}
	devices := make([]DeviceInfo, 0, count)
	for i := uint32(0); i < count; i++ {
		handle, err := c.api.DeviceGetHandleByIndexV2(i)
		if err != nil {
			continue
		}
		info := DeviceInfo{Index: i, Handle: handle}
		if brand, err := c.api.DeviceGetBrand(handle); err == nil {
			info.Brand = brand
		}
		if major, minor, err := c.api.DeviceGetCudaComputeCapability(handle); err == nil {
			info.ComputeCapability = ComputeCapability{Major: major, Minor: minor}
		}
		devices = append(devices, info)
	}
	return devices, nil
}

func (c *Client) legacyDevices() ([]DeviceInfo, error) {
	var devices []DeviceInfo
	for i := 0; ; i++ {
		handle, err := c.api.DeviceGetHandleByIndex(i)
		if err != nil {
			if errors.Is(err, nvml.ErrUnavailable) {
				return nil, err
			}
			break
		}
		devices = append(devices, DeviceInfo{Index: uint32(i), Handle: handle})
	}
	return devices, nil
}

// Count returns the number of devices without resolving their handles.
func (c *Client) Count() (int, error) {
	if c.api.HasCUDA11Functions() {
		count, err := c.api.DeviceGetCountV2()
		if err != nil {
			return 0, fmt.Errorf("failed to count devices: %w", err)
		}
		return int(count), nil
	}
	devices, err := c.legacyDevices()
	if err != nil {
		return 0, err
	}
	return len(devices), nil
}

// DriverVersion returns the installed driver version as a semantic version.
// Driver strings zero-pad the last component ("535.129.03"), which strict
// semver rejects, so components are normalized before parsing.
func (c *Client) DriverVersion() (*semver.Version, error) {
	raw, err := c.api.SystemGetDriverVersion()
	if err != nil {
		return nil, err
	}
	v, err := semver.NewVersion(normalizeDriverVersion(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse driver version %q: %w", raw, err)
	}
	return v, nil
}

func normalizeDriverVersion(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	for i, part := range parts {
		trimmed := strings.TrimLeft(part, "0")
		if trimmed == "" {
			trimmed = "0"
		}
		parts[i] = trimmed
	}
	return strings.Join(parts, ".")
}

// SetProcessCPUAffinity asks the driver to pin the whole process to the CPUs
// nearest the device. See SetCPUAffinity for the thread-level variant.
func (c *Client) SetProcessCPUAffinity(device nvml.Device) error {
	return c.api.DeviceSetCpuAffinity(device)
}

// ClearProcessCPUAffinity undoes SetProcessCPUAffinity.
func (c *Client) ClearProcessCPUAffinity(device nvml.Device) error {
	return c.api.DeviceClearCpuAffinity(device)
}
