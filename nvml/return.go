package nvml

import "fmt"

// Return is the native NVML status code. Success is the only value this
// package interprets; everything else is reported back to the caller
// unchanged.
type Return int32

const (
	Success                     Return = 0
	ErrorUninitialized          Return = 1
	ErrorInvalidArgument        Return = 2
	ErrorNotSupported           Return = 3
	ErrorNoPermission           Return = 4
	ErrorAlreadyInitialized     Return = 5
	ErrorNotFound               Return = 6
	ErrorInsufficientSize       Return = 7
	ErrorInsufficientPower      Return = 8
	ErrorDriverNotLoaded        Return = 9
	ErrorTimeout                Return = 10
	ErrorIRQIssue               Return = 11
	ErrorLibraryNotFound        Return = 12
	ErrorFunctionNotFound       Return = 13
	ErrorCorruptedInforom       Return = 14
	ErrorGPUIsLost              Return = 15
	ErrorResetRequired          Return = 16
	ErrorOperatingSystem        Return = 17
	ErrorLibRMVersionMismatch   Return = 18
	ErrorInUse                  Return = 19
	ErrorMemory                 Return = 20
	ErrorNoData                 Return = 21
	ErrorVgpuECCNotSupported    Return = 22
	ErrorInsufficientResources  Return = 23
	ErrorUnknown                Return = 999
)

// String returns a static description of the status code. The live library's
// own nvmlErrorString text is preferred wherever it is bound; this is the
// fallback for diagnostics produced before or without a successful bind.
func (r Return) String() string {
	switch r {
	case Success:
		return "success"
	case ErrorUninitialized:
		return "library not initialized"
	case ErrorInvalidArgument:
		return "invalid argument"
	case ErrorNotSupported:
		return "operation not supported on this device"
	case ErrorNoPermission:
		return "insufficient permissions"
	case ErrorAlreadyInitialized:
		return "already initialized"
	case ErrorNotFound:
		return "object not found"
	case ErrorInsufficientSize:
		return "insufficient buffer size"
	case ErrorInsufficientPower:
		return "insufficient external power"
	case ErrorDriverNotLoaded:
		return "driver not loaded"
	case ErrorTimeout:
		return "timeout"
	case ErrorIRQIssue:
		return "kernel interrupt issue"
	case ErrorLibraryNotFound:
		return "management library not found"
	case ErrorFunctionNotFound:
		return "function not found in the installed driver"
	case ErrorCorruptedInforom:
		return "corrupted infoROM"
	case ErrorGPUIsLost:
		return "GPU is inaccessible"
	case ErrorResetRequired:
		return "GPU requires a reset"
	case ErrorOperatingSystem:
		return "GPU blocked by the operating system"
	case ErrorLibRMVersionMismatch:
		return "driver/library version mismatch"
	case ErrorInUse:
		return "GPU is in use"
	case ErrorMemory:
		return "insufficient memory"
	case ErrorNoData:
		return "no data"
	case ErrorVgpuECCNotSupported:
		return "vGPU operation unavailable with ECC enabled"
	case ErrorInsufficientResources:
		return "insufficient resources"
	case ErrorUnknown:
		return "unknown internal error"
	default:
		return fmt.Sprintf("status code %d", int32(r))
	}
}

// CallError reports an NVML entry point that executed and returned a
// non-success status. The process keeps running; the failed operation simply
// did not take effect.
type CallError struct {
	Op   string
	Code Return
}

func (e *CallError) Error() string {
	return fmt.Sprintf("nvml: %s failed: %s", e.Op, e.Code)
}
