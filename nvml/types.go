package nvml

// Device is an opaque NVML device handle. Handles are produced by the
// nvmlDeviceGetHandleBy* entry points and passed back to the library
// unchanged; they carry no meaning of their own and stay valid until
// Shutdown.
type Device uintptr

// BrandType identifies the product line of a device.
type BrandType uint32

const (
	BrandUnknown BrandType = iota
	BrandQuadro
	BrandTesla
	BrandNVS
	BrandGrid
	BrandGeForce
	BrandTitan
)

// AffinityScope selects which part of the machine topology an affinity query
// is answered for.
type AffinityScope uint32

const (
	AffinityScopeNode   AffinityScope = 0
	AffinityScopeSocket AffinityScope = 1
)

// systemDriverVersionBufferSize matches NVML_SYSTEM_DRIVER_VERSION_BUFFER_SIZE.
const systemDriverVersionBufferSize = 80
