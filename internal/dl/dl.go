// Package dl holds the dynamic loader primitives shared by the nvml and cuda
// bindings: open a shared library by name, resolve symbols from it, and
// register typed Go function variables against resolved addresses. It contains
// no policy; candidate names, fallbacks, and bind ordering belong to the
// packages that use it.
package dl

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Library is an open handle to a dynamically loaded shared library.
type Library struct {
	handle uintptr
	path   string
}

// Open loads the shared library at path. The path may be a bare soname, in
// which case the platform loader applies its usual search rules.
func Open(path string) (*Library, error) {
	if path == "" {
		return nil, fmt.Errorf("library path cannot be empty")
	}
	handle, err := loadLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if handle == 0 {
		return nil, fmt.Errorf("failed to open %s", path)
	}
	return &Library{handle: handle, path: path}, nil
}

// Path returns the name the library was opened with.
func (l *Library) Path() string {
	return l.path
}

// Sym resolves the named symbol and returns its address.
func (l *Library) Sym(name string) (uintptr, error) {
	addr, err := getSymbol(l.handle, name)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s in %s: %w", name, l.path, err)
	}
	return addr, nil
}

// Register binds fptr, a pointer to a Go function variable, to the native code
// at addr. The variable's signature must describe the native calling
// convention; see purego.RegisterFunc for the supported shapes.
func Register(fptr any, addr uintptr) {
	purego.RegisterFunc(fptr, addr)
}

// Close releases the library handle. The nvml binding never calls this, since
// its handle must outlive every subsystem that might still forward a call;
// clients with bounded lifetimes can.
func (l *Library) Close() error {
	if l == nil || l.handle == 0 {
		return nil
	}
	return closeLibrary(l.handle)
}
