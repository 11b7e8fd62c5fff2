package dl

import "unsafe"

// GoString copies a NUL-terminated C string at ptr into a Go string. A zero
// pointer yields the empty string. The native memory must stay valid for the
// duration of the call; the result does not alias it.
func GoString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Pointer(ptr + uintptr(n))) != 0 {
		n++
	}
	if n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
}
