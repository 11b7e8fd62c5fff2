// Package cuda provides a minimal runtime binding to the CUDA driver
// library, enough to read the CUDA version the installed driver supports.
// Like the nvml package it resolves its entry points with purego at runtime,
// so importing it never links against the driver.
package cuda

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/amikos-tech/pure-nvml/internal/dl"
)

// Version is a CUDA driver version in the driver API encoding
// 1000*major + 10*minor, as reported by cuDriverGetVersion.
type Version int

func (v Version) Major() int { return int(v) / 1000 }

func (v Version) Minor() int { return int(v) % 100 / 10 }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}

// result mirrors CUresult. Only success is interpreted here.
type result int32

const success result = 0

type binding struct {
	once    sync.Once
	bindErr error

	open     func(path string) (*dl.Library, error)
	sym      func(lib *dl.Library, name string) (uintptr, error)
	register func(fptr any, addr uintptr)

	driverGetVersion func(version *int32) result
	getErrorString   func(code result, str *uintptr) result
}

var lib = newBinding()

func newBinding() *binding {
	return &binding{
		open:     dl.Open,
		sym:      (*dl.Library).Sym,
		register: dl.Register,
	}
}

func (b *binding) bind() error {
	b.once.Do(func() {
		candidates := libraryCandidates()
		var (
			handle *dl.Library
			errs   []error
		)
		for _, path := range candidates {
			h, err := b.open(path)
			if err == nil {
				handle = h
				break
			}
			errs = append(errs, err)
		}
		if handle == nil {
			b.bindErr = fmt.Errorf("failed to open the CUDA driver library (tried %s): %w",
				strings.Join(candidates, ", "), errors.Join(errs...))
			return
		}

		addr, err := b.sym(handle, "cuDriverGetVersion")
		if err != nil {
			b.bindErr = err
			return
		}
		b.register(&b.driverGetVersion, addr)

		// Optional: very old drivers predate cuGetErrorString.
		if addr, err := b.sym(handle, "cuGetErrorString"); err == nil {
			b.register(&b.getErrorString, addr)
		}
	})
	return b.bindErr
}

func (b *binding) errorText(code result) string {
	if b.getErrorString != nil {
		var ptr uintptr
		if b.getErrorString(code, &ptr) == success {
			if s := dl.GoString(ptr); s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("CUDA error %d", int32(code))
}

// DriverGetVersion returns the CUDA version supported by the installed
// driver. cuDriverGetVersion is documented to work without cuInit, so this
// is safe to call before any CUDA context exists. The driver library is
// opened and resolved on the first call; the outcome is reused afterwards.
func DriverGetVersion() (Version, error) {
	if err := lib.bind(); err != nil {
		return 0, err
	}
	var version int32
	if ret := lib.driverGetVersion(&version); ret != success {
		return 0, fmt.Errorf("cuDriverGetVersion failed: %s", lib.errorText(ret))
	}
	return Version(version), nil
}
