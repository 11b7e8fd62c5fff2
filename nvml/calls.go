package nvml

import "errors"

// ErrUnavailable is returned by a wrapper whose entry point is not bound:
// either Bind has not succeeded yet, or the installed driver predates the
// entry point. The native library is never invoked in that case and nothing
// is logged. Test with errors.Is.
var ErrUnavailable = errors.New("nvml: entry point not bound")

// forward runs one native call. An unbound slot, or any call before Bind has
// succeeded, short-circuits to ErrUnavailable; a failed bind may leave early
// slots written, and those must stay unreachable. A non-success status is
// logged once on the warning channel and surfaced as a *CallError; the
// process is never taken down on behalf of the caller.
func (l *library) forward(op string, bound bool, invoke func() Return) error {
	if !l.loaded || !bound {
		return ErrUnavailable
	}
	if ret := invoke(); ret != Success {
		logger().Warn("nvml call failed", "op", op, "error", l.errorText(ret))
		return &CallError{Op: op, Code: ret}
	}
	return nil
}

// Init initializes the management library. Wraps nvmlInit. Pair with
// Shutdown.
func Init() error {
	return lib.forward("nvmlInit", lib.nvmlInit != nil, func() Return {
		return lib.nvmlInit()
	})
}

// Shutdown releases the management library's internal state. Wraps
// nvmlShutdown.
func Shutdown() error {
	return lib.forward("nvmlShutdown", lib.nvmlShutdown != nil, func() Return {
		return lib.nvmlShutdown()
	})
}

// DeviceGetHandleByPciBusId looks a device up by its PCI bus id string, for
// example "0000:65:00.0". Wraps nvmlDeviceGetHandleByPciBusId.
func DeviceGetHandleByPciBusId(pciBusID string) (Device, error) {
	var device Device
	err := lib.forward("nvmlDeviceGetHandleByPciBusId", lib.nvmlDeviceGetHandleByPciBusId != nil, func() Return {
		return lib.nvmlDeviceGetHandleByPciBusId(pciBusID, &device)
	})
	return device, err
}

// DeviceGetHandleByIndex looks a device up by enumeration index. Wraps
// nvmlDeviceGetHandleByIndex, the pre-CUDA-11 entry point; prefer
// DeviceGetHandleByIndexV2 when HasCUDA11Functions reports true.
func DeviceGetHandleByIndex(index int) (Device, error) {
	var device Device
	err := lib.forward("nvmlDeviceGetHandleByIndex", lib.nvmlDeviceGetHandleByIndex != nil, func() Return {
		return lib.nvmlDeviceGetHandleByIndex(int32(index), &device)
	})
	return device, err
}

// DeviceGetIndex returns the enumeration index of a device handle. Wraps
// nvmlDeviceGetIndex.
func DeviceGetIndex(device Device) (uint32, error) {
	var index uint32
	err := lib.forward("nvmlDeviceGetIndex", lib.nvmlDeviceGetIndex != nil, func() Return {
		return lib.nvmlDeviceGetIndex(device, &index)
	})
	return index, err
}

// DeviceSetCpuAffinity pins the calling process to the CPUs nearest the
// device, as chosen by the driver. Wraps nvmlDeviceSetCpuAffinity.
func DeviceSetCpuAffinity(device Device) error {
	return lib.forward("nvmlDeviceSetCpuAffinity", lib.nvmlDeviceSetCpuAffinity != nil, func() Return {
		return lib.nvmlDeviceSetCpuAffinity(device)
	})
}

// DeviceClearCpuAffinity undoes DeviceSetCpuAffinity. Wraps
// nvmlDeviceClearCpuAffinity.
func DeviceClearCpuAffinity(device Device) error {
	return lib.forward("nvmlDeviceClearCpuAffinity", lib.nvmlDeviceClearCpuAffinity != nil, func() Return {
		return lib.nvmlDeviceClearCpuAffinity(device)
	})
}

// SystemGetDriverVersion returns the installed driver version string, for
// example "535.129.03". Wraps nvmlSystemGetDriverVersion.
func SystemGetDriverVersion() (string, error) {
	buf := make([]byte, systemDriverVersionBufferSize)
	err := lib.forward("nvmlSystemGetDriverVersion", lib.nvmlSystemGetDriverVersion != nil, func() Return {
		return lib.nvmlSystemGetDriverVersion(buf, uint32(len(buf)))
	})
	if err != nil {
		return "", err
	}
	return cstringToGo(buf), nil
}

// DeviceGetCpuAffinity returns the ideal CPU set for the device as a bitmask,
// 64 CPUs per word. cpuSetSize is the number of words to fill; use
// (#CPUs+63)/64 to cover the whole machine. Wraps nvmlDeviceGetCpuAffinity.
func DeviceGetCpuAffinity(device Device, cpuSetSize uint32) ([]uint64, error) {
	cpuSet := make([]uint64, cpuSetSize)
	err := lib.forward("nvmlDeviceGetCpuAffinity", lib.nvmlDeviceGetCpuAffinity != nil, func() Return {
		return lib.nvmlDeviceGetCpuAffinity(device, cpuSetSize, cpuSet)
	})
	if err != nil {
		return nil, err
	}
	return cpuSet, nil
}

// DeviceGetCpuAffinityWithinScope is DeviceGetCpuAffinity restricted to a
// NUMA node or processor socket. Wraps nvmlDeviceGetCpuAffinityWithinScope,
// available from CUDA 11 drivers.
func DeviceGetCpuAffinityWithinScope(device Device, cpuSetSize uint32, scope AffinityScope) ([]uint64, error) {
	cpuSet := make([]uint64, cpuSetSize)
	err := lib.forward("nvmlDeviceGetCpuAffinityWithinScope", lib.nvmlDeviceGetCpuAffinityWithinScope != nil, func() Return {
		return lib.nvmlDeviceGetCpuAffinityWithinScope(device, cpuSetSize, cpuSet, scope)
	})
	if err != nil {
		return nil, err
	}
	return cpuSet, nil
}

// DeviceGetBrand returns the product line of the device. Wraps
// nvmlDeviceGetBrand, available from CUDA 11 drivers.
func DeviceGetBrand(device Device) (BrandType, error) {
	var brand BrandType
	err := lib.forward("nvmlDeviceGetBrand", lib.nvmlDeviceGetBrand != nil, func() Return {
		return lib.nvmlDeviceGetBrand(device, &brand)
	})
	return brand, err
}

// DeviceGetCountV2 returns the number of devices the driver can see. Wraps
// nvmlDeviceGetCount_v2, available from CUDA 11 drivers.
func DeviceGetCountV2() (uint32, error) {
	var count uint32
	err := lib.forward("nvmlDeviceGetCount_v2", lib.nvmlDeviceGetCount_v2 != nil, func() Return {
		return lib.nvmlDeviceGetCount_v2(&count)
	})
	return count, err
}

// DeviceGetHandleByIndexV2 looks a device up by enumeration index. Wraps
// nvmlDeviceGetHandleByIndex_v2, available from CUDA 11 drivers.
func DeviceGetHandleByIndexV2(index uint32) (Device, error) {
	var device Device
	err := lib.forward("nvmlDeviceGetHandleByIndex_v2", lib.nvmlDeviceGetHandleByIndex_v2 != nil, func() Return {
		return lib.nvmlDeviceGetHandleByIndex_v2(index, &device)
	})
	return device, err
}

// DeviceGetCudaComputeCapability returns the device's CUDA compute
// capability, for example 8 and 6 for an Ampere part. Wraps
// nvmlDeviceGetCudaComputeCapability, available from CUDA 11 drivers.
func DeviceGetCudaComputeCapability(device Device) (major, minor int32, err error) {
	err = lib.forward("nvmlDeviceGetCudaComputeCapability", lib.nvmlDeviceGetCudaComputeCapability != nil, func() Return {
		return lib.nvmlDeviceGetCudaComputeCapability(device, &major, &minor)
	})
	if err != nil {
		return 0, 0, err
	}
	return major, minor, nil
}

// ErrorString renders a status code with the live library's nvmlErrorString
// when it is bound, falling back to the static table otherwise.
func ErrorString(code Return) string {
	return lib.errorText(code)
}
