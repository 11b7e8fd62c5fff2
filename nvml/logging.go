package nvml

import (
	"log/slog"
	"sync/atomic"
)

var pkgLogger atomic.Pointer[slog.Logger]

func init() {
	pkgLogger.Store(slog.Default())
}

// SetLogger replaces the logger used for this package's warnings, such as a
// native call returning a non-success status. Passing nil restores
// slog.Default. Safe to call concurrently with in-flight calls.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	pkgLogger.Store(l)
}

func logger() *slog.Logger {
	return pkgLogger.Load()
}
