package nvml

// cstringToGo converts a NUL-terminated character buffer populated by a
// native call into a Go string. When no terminator is present the whole
// buffer is returned.
func cstringToGo(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}
