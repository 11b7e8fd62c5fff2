package dl

import (
	"testing"
	"unsafe"
)

func TestGoString(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want string
	}{
		{name: "simple", buf: []byte("libnvidia-ml.so.1\x00"), want: "libnvidia-ml.so.1"},
		{name: "empty", buf: []byte("\x00"), want: ""},
		{name: "stops at first NUL", buf: []byte("535.129.03\x00trailing"), want: "535.129.03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GoString(uintptr(unsafe.Pointer(&tt.buf[0])))
			if got != tt.want {
				t.Errorf("GoString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGoStringZeroPointer(t *testing.T) {
	if got := GoString(0); got != "" {
		t.Errorf("GoString(0) = %q, want empty string", got)
	}
}
