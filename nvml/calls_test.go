package nvml

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestForwardUnboundNeverInvokes(t *testing.T) {
	resetLibrary(t)

	invocations := 0
	err := lib.forward("nvmlInit", false, func() Return {
		invocations++
		return Success
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("forward() error = %v, want ErrUnavailable", err)
	}
	if invocations != 0 {
		t.Errorf("unbound forward invoked the native call %d times", invocations)
	}
}

func TestForwarderUnavailableAfterFailedBind(t *testing.T) {
	resetLibrary(t)

	// A failed bind can leave slots resolved before the failure written; they
	// must stay unreachable until a bind succeeds.
	invocations := 0
	lib.nvmlInit = func() Return {
		invocations++
		return Success
	}

	if err := Init(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Init() error = %v with a written slot and no successful bind, want ErrUnavailable", err)
	}
	if invocations != 0 {
		t.Errorf("native call invoked %d times without a successful bind", invocations)
	}
}

func TestForwardersUnavailableBeforeBind(t *testing.T) {
	resetLibrary(t)

	calls := map[string]func() error{
		"Init":     Init,
		"Shutdown": Shutdown,
		"DeviceGetHandleByPciBusId": func() error {
			_, err := DeviceGetHandleByPciBusId("0000:65:00.0")
			return err
		},
		"DeviceGetHandleByIndex": func() error {
			_, err := DeviceGetHandleByIndex(0)
			return err
		},
		"DeviceGetIndex": func() error {
			_, err := DeviceGetIndex(0)
			return err
		},
		"DeviceSetCpuAffinity":   func() error { return DeviceSetCpuAffinity(0) },
		"DeviceClearCpuAffinity": func() error { return DeviceClearCpuAffinity(0) },
		"SystemGetDriverVersion": func() error {
			_, err := SystemGetDriverVersion()
			return err
		},
		"DeviceGetCpuAffinity": func() error {
			_, err := DeviceGetCpuAffinity(0, 1)
			return err
		},
		"DeviceGetCpuAffinityWithinScope": func() error {
			_, err := DeviceGetCpuAffinityWithinScope(0, 1, AffinityScopeNode)
			return err
		},
		"DeviceGetBrand": func() error {
			_, err := DeviceGetBrand(0)
			return err
		},
		"DeviceGetCountV2": func() error {
			_, err := DeviceGetCountV2()
			return err
		},
		"DeviceGetHandleByIndexV2": func() error {
			_, err := DeviceGetHandleByIndexV2(0)
			return err
		},
		"DeviceGetCudaComputeCapability": func() error {
			_, _, err := DeviceGetCudaComputeCapability(0)
			return err
		},
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, ErrUnavailable) {
			t.Errorf("%s error = %v before bind, want ErrUnavailable", name, err)
		}
	}
}

func TestForwardersPlumbResults(t *testing.T) {
	resetLibrary(t)
	lib.loaded = true

	lib.nvmlDeviceGetHandleByPciBusId = func(pciBusID string, device *Device) Return {
		if pciBusID != "0000:3b:00.0" {
			t.Errorf("native call saw bus id %q", pciBusID)
		}
		*device = 42
		return Success
	}
	device, err := DeviceGetHandleByPciBusId("0000:3b:00.0")
	if err != nil || device != 42 {
		t.Errorf("DeviceGetHandleByPciBusId() = %v, %v, want 42, nil", device, err)
	}

	lib.nvmlDeviceGetIndex = func(device Device, index *uint32) Return {
		if device != 42 {
			t.Errorf("native call saw device %v", device)
		}
		*index = 3
		return Success
	}
	index, err := DeviceGetIndex(42)
	if err != nil || index != 3 {
		t.Errorf("DeviceGetIndex() = %v, %v, want 3, nil", index, err)
	}

	lib.nvmlDeviceGetCpuAffinity = func(device Device, cpuSetSize uint32, cpuSet []uint64) Return {
		if cpuSetSize != 2 || len(cpuSet) != 2 {
			t.Errorf("native call saw size %d, len %d", cpuSetSize, len(cpuSet))
		}
		cpuSet[0] = 0xff
		cpuSet[1] = 0x1
		return Success
	}
	mask, err := DeviceGetCpuAffinity(42, 2)
	if err != nil || len(mask) != 2 || mask[0] != 0xff || mask[1] != 0x1 {
		t.Errorf("DeviceGetCpuAffinity() = %#x, %v", mask, err)
	}

	lib.nvmlDeviceGetCpuAffinityWithinScope = func(device Device, size uint32, set []uint64, scope AffinityScope) Return {
		if scope != AffinityScopeSocket {
			t.Errorf("native call saw scope %v, want socket", scope)
		}
		set[0] = 0xf0
		return Success
	}
	mask, err = DeviceGetCpuAffinityWithinScope(42, 1, AffinityScopeSocket)
	if err != nil || len(mask) != 1 || mask[0] != 0xf0 {
		t.Errorf("DeviceGetCpuAffinityWithinScope() = %#x, %v", mask, err)
	}

	lib.nvmlDeviceGetCudaComputeCapability = func(device Device, major, minor *int32) Return {
		*major, *minor = 8, 6
		return Success
	}
	major, minor, err := DeviceGetCudaComputeCapability(42)
	if err != nil || major != 8 || minor != 6 {
		t.Errorf("DeviceGetCudaComputeCapability() = %d, %d, %v, want 8, 6, nil", major, minor, err)
	}

	lib.nvmlDeviceGetCount_v2 = func(count *uint32) Return {
		*count = 4
		return Success
	}
	count, err := DeviceGetCountV2()
	if err != nil || count != 4 {
		t.Errorf("DeviceGetCountV2() = %v, %v, want 4, nil", count, err)
	}
}

func TestSystemGetDriverVersionTrimsBuffer(t *testing.T) {
	resetLibrary(t)
	lib.loaded = true

	lib.nvmlSystemGetDriverVersion = func(version []byte, length uint32) Return {
		if int(length) != len(version) || length != systemDriverVersionBufferSize {
			t.Errorf("native call saw length %d, len %d", length, len(version))
		}
		copy(version, "535.129.03\x00")
		return Success
	}
	got, err := SystemGetDriverVersion()
	if err != nil {
		t.Fatalf("SystemGetDriverVersion() error = %v", err)
	}
	if got != "535.129.03" {
		t.Errorf("SystemGetDriverVersion() = %q, want %q", got, "535.129.03")
	}
}

func TestForwarderNativeFailure(t *testing.T) {
	resetLibrary(t)
	lib.loaded = true

	lib.nvmlInit = func() Return { return ErrorDriverNotLoaded }

	err := Init()
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("Init() error = %T, want *CallError", err)
	}
	if callErr.Op != "nvmlInit" || callErr.Code != ErrorDriverNotLoaded {
		t.Errorf("CallError = {%q, %v}, want {nvmlInit, ErrorDriverNotLoaded}", callErr.Op, callErr.Code)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Error("native failure reported as ErrUnavailable")
	}
	if got := err.Error(); !strings.Contains(got, "nvmlInit") || !strings.Contains(got, "driver not loaded") {
		t.Errorf("CallError message = %q, want the op and status named", got)
	}
}

func TestForwarderFailureLogsWarning(t *testing.T) {
	resetLibrary(t)
	lib.loaded = true

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { SetLogger(nil) })

	lib.nvmlShutdown = func() Return { return ErrorUninitialized }
	if err := Shutdown(); err == nil {
		t.Fatal("Shutdown() succeeded, want a native failure")
	}
	logged := buf.String()
	if !strings.Contains(logged, "WARN") || !strings.Contains(logged, "nvmlShutdown") {
		t.Errorf("warning log = %q, want the failed op named at warn level", logged)
	}

	buf.Reset()
	lib.nvmlInit = func() Return { return Success }
	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := DeviceGetBrand(0); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("DeviceGetBrand() error = %v, want ErrUnavailable", err)
	}
	if buf.Len() != 0 {
		t.Errorf("success and unavailable paths logged: %q", buf.String())
	}
}

func TestErrorStringPrefersNativeText(t *testing.T) {
	resetLibrary(t)

	if got := ErrorString(ErrorNotSupported); got != ErrorNotSupported.String() {
		t.Errorf("ErrorString() = %q without a bound nvmlErrorString, want the static text", got)
	}

	lib.nvmlErrorString = func(code Return) string { return "Not Supported" }
	if got := ErrorString(ErrorNotSupported); got != "Not Supported" {
		t.Errorf("ErrorString() = %q, want the library's own text", got)
	}
}
