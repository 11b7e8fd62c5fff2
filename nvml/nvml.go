// Package nvml is a runtime binding to the NVIDIA Management Library
// (libnvidia-ml). The library is opened and its entry points resolved with
// purego on the first call to Bind, so binaries build and start on machines
// without an NVIDIA driver; no cgo is involved.
//
// Entry points that are newer than the installed driver are left unbound
// instead of failing the whole bind. Their wrappers return ErrUnavailable,
// which callers can treat as a capability probe.
package nvml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amikos-tech/pure-nvml/cuda"
	"github.com/amikos-tech/pure-nvml/internal/dl"
)

type library struct {
	loaded bool
	handle *dl.Library
	path   string

	open          func(path string) (*dl.Library, error)
	sym           func(lib *dl.Library, name string) (uintptr, error)
	register      func(fptr any, addr uintptr)
	driverVersion func() (cuda.Version, error)

	nvmlInit                      func() Return
	nvmlShutdown                  func() Return
	nvmlDeviceGetHandleByPciBusId func(pciBusID string, device *Device) Return
	nvmlDeviceGetHandleByIndex    func(index int32, device *Device) Return
	nvmlDeviceGetIndex            func(device Device, index *uint32) Return
	nvmlDeviceSetCpuAffinity      func(device Device) Return
	nvmlDeviceClearCpuAffinity    func(device Device) Return
	nvmlSystemGetDriverVersion    func(version []byte, length uint32) Return
	nvmlDeviceGetCpuAffinity      func(device Device, cpuSetSize uint32, cpuSet []uint64) Return
	nvmlErrorString               func(code Return) string

	nvmlDeviceGetCpuAffinityWithinScope func(device Device, nodeSetSize uint32, nodeSet []uint64, scope AffinityScope) Return
	nvmlDeviceGetBrand                  func(device Device, brandType *BrandType) Return
	nvmlDeviceGetCount_v2               func(deviceCount *uint32) Return
	nvmlDeviceGetHandleByIndex_v2       func(index uint32, device *Device) Return
	nvmlDeviceGetCudaComputeCapability  func(device Device, major, minor *int32) Return
}

var lib = newLibrary()

func newLibrary() *library {
	return &library{
		open:          dl.Open,
		sym:           (*dl.Library).Sym,
		register:      dl.Register,
		driverVersion: cuda.DriverGetVersion,
	}
}

// symbol describes one entry point to resolve. A non-zero minimum CUDA
// version marks the entry point as optional: drivers older than the minimum
// simply leave the slot unbound.
type symbol struct {
	name         string
	fptr         any
	minCUDAMajor int
	minCUDAMinor int
}

func (s symbol) versionGated() bool {
	return s.minCUDAMajor > 0 || s.minCUDAMinor > 0
}

func (l *library) symbols() []symbol {
	return []symbol{
		{name: "nvmlInit", fptr: &l.nvmlInit},
		{name: "nvmlShutdown", fptr: &l.nvmlShutdown},
		{name: "nvmlDeviceGetHandleByPciBusId", fptr: &l.nvmlDeviceGetHandleByPciBusId},
		{name: "nvmlDeviceGetHandleByIndex", fptr: &l.nvmlDeviceGetHandleByIndex},
		{name: "nvmlDeviceGetIndex", fptr: &l.nvmlDeviceGetIndex},
		{name: "nvmlDeviceSetCpuAffinity", fptr: &l.nvmlDeviceSetCpuAffinity},
		{name: "nvmlDeviceClearCpuAffinity", fptr: &l.nvmlDeviceClearCpuAffinity},
		{name: "nvmlSystemGetDriverVersion", fptr: &l.nvmlSystemGetDriverVersion},
		{name: "nvmlDeviceGetCpuAffinity", fptr: &l.nvmlDeviceGetCpuAffinity},
		{name: "nvmlErrorString", fptr: &l.nvmlErrorString},

		// Added to nvml.h with CUDA 11.
		{name: "nvmlDeviceGetCpuAffinityWithinScope", fptr: &l.nvmlDeviceGetCpuAffinityWithinScope, minCUDAMajor: 11},
		{name: "nvmlDeviceGetBrand", fptr: &l.nvmlDeviceGetBrand, minCUDAMajor: 11},
		{name: "nvmlDeviceGetCount_v2", fptr: &l.nvmlDeviceGetCount_v2, minCUDAMajor: 11},
		{name: "nvmlDeviceGetHandleByIndex_v2", fptr: &l.nvmlDeviceGetHandleByIndex_v2, minCUDAMajor: 11},
		{name: "nvmlDeviceGetCudaComputeCapability", fptr: &l.nvmlDeviceGetCudaComputeCapability, minCUDAMajor: 11},
	}
}

func (l *library) bind() error {
	if l.loaded {
		return nil
	}

	handle, err := l.openLibrary()
	if err != nil {
		return err
	}
	l.handle = handle

	var (
		version      cuda.Version
		versionKnown bool
	)
	for _, s := range l.symbols() {
		if s.versionGated() {
			if !versionKnown {
				version, err = l.driverVersion()
				if err != nil {
					return fmt.Errorf("failed to query the CUDA driver version: %w", err)
				}
				versionKnown = true
			}
			if !driverSufficient(version, s.minCUDAMajor, s.minCUDAMinor) {
				continue
			}
		}
		addr, err := l.sym(handle, s.name)
		if err != nil {
			return err
		}
		l.register(s.fptr, addr)
	}

	l.loaded = true
	return nil
}

func (l *library) openLibrary() (*dl.Library, error) {
	candidates := libraryCandidates()
	if l.path != "" {
		candidates = []string{l.path}
	}
	var errs []error
	for _, path := range candidates {
		handle, err := l.open(path)
		if err == nil {
			return handle, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("failed to open the NVIDIA management library (tried %s): %w",
		strings.Join(candidates, ", "), errors.Join(errs...))
}

// driverSufficient reports whether the installed driver supports at least
// CUDA major.minor, using the driver API encoding 1000*major + 10*minor.
func driverSufficient(version cuda.Version, major, minor int) bool {
	return int(version) >= 1000*major+10*minor
}

func (l *library) hasCUDA11Functions() bool {
	return l.loaded &&
		l.nvmlDeviceGetCount_v2 != nil &&
		l.nvmlDeviceGetHandleByIndex_v2 != nil &&
		l.nvmlDeviceGetCudaComputeCapability != nil &&
		l.nvmlDeviceGetBrand != nil
}

func (l *library) errorText(code Return) string {
	if l.nvmlErrorString != nil {
		if s := l.nvmlErrorString(code); s != "" {
			return s
		}
	}
	return code.String()
}

// Bind locates the management library and resolves every entry point this
// package wraps. It is idempotent: once a bind has succeeded, later calls
// return nil without touching the loader again. A failed bind leaves the
// package unbound and may be retried.
//
// Bind takes no lock. Make the first call before the package is reachable
// from other goroutines; once Bind has returned nil the resolved state is
// read-only and every wrapper is safe for concurrent use. The library handle
// stays open for the life of the process.
func Bind() error {
	return lib.bind()
}

// IsBound reports whether a Bind call has completed successfully.
func IsBound() bool {
	return lib.loaded
}

// SetLibraryPath forces Bind to open the given file instead of probing the
// default names. Must be called before the first successful Bind.
func SetLibraryPath(path string) error {
	if path == "" {
		return fmt.Errorf("library path cannot be empty")
	}
	if lib.loaded {
		return fmt.Errorf("cannot change library path after the binding is loaded")
	}
	lib.path = path
	return nil
}

// HasCUDA11Functions reports whether the v2 enumeration and device attribute
// entry points introduced with CUDA 11 are all bound. False means the caller
// is on an older driver and should use the original enumeration entry
// points. The scope-aware affinity query is gated on the same driver version
// but is not part of this group; probe it by calling it.
func HasCUDA11Functions() bool {
	return lib.hasCUDA11Functions()
}
