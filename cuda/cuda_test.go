package cuda

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/amikos-tech/pure-nvml/internal/dl"
)

func TestVersionDecoding(t *testing.T) {
	tests := []struct {
		raw   Version
		major int
		minor int
		str   string
	}{
		{raw: 11000, major: 11, minor: 0, str: "11.0"},
		{raw: 11040, major: 11, minor: 4, str: "11.4"},
		{raw: 10020, major: 10, minor: 2, str: "10.2"},
		{raw: 12060, major: 12, minor: 6, str: "12.6"},
		{raw: 9000, major: 9, minor: 0, str: "9.0"},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if got := tt.raw.Major(); got != tt.major {
				t.Errorf("Major() = %d, want %d", got, tt.major)
			}
			if got := tt.raw.Minor(); got != tt.minor {
				t.Errorf("Minor() = %d, want %d", got, tt.minor)
			}
			if got := tt.raw.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
		})
	}
}

func TestBindTriesEveryCandidate(t *testing.T) {
	b := newBinding()
	var opened []string
	b.open = func(path string) (*dl.Library, error) {
		opened = append(opened, path)
		return nil, fmt.Errorf("failed to open %s: not found", path)
	}

	err := b.bind()
	if err == nil {
		t.Fatal("bind() succeeded with no loadable candidate")
	}
	for _, path := range libraryCandidates() {
		if !strings.Contains(err.Error(), path) {
			t.Errorf("bind() error %q does not name candidate %q", err, path)
		}
	}
	if len(opened) != len(libraryCandidates()) {
		t.Errorf("open attempts = %v, want every candidate", opened)
	}
}

func TestBindOutcomeIsSticky(t *testing.T) {
	b := newBinding()
	calls := 0
	b.open = func(path string) (*dl.Library, error) {
		calls++
		return nil, errors.New("no driver")
	}

	first := b.bind()
	second := b.bind()
	if !errors.Is(second, first) && second.Error() != first.Error() {
		t.Errorf("second bind() = %v, want the first outcome %v", second, first)
	}
	if calls != len(libraryCandidates()) {
		t.Errorf("open called %d times across two binds, want %d", calls, len(libraryCandidates()))
	}
}

func TestBindResolvesVersionSymbol(t *testing.T) {
	b := newBinding()
	b.open = func(path string) (*dl.Library, error) { return &dl.Library{}, nil }

	var resolved []string
	b.sym = func(_ *dl.Library, name string) (uintptr, error) {
		resolved = append(resolved, name)
		if name == "cuGetErrorString" {
			return 0, errors.New("symbol not found")
		}
		return 1, nil
	}
	registered := 0
	b.register = func(fptr any, addr uintptr) { registered++ }

	if err := b.bind(); err != nil {
		t.Fatalf("bind() error = %v", err)
	}
	found := false
	for _, name := range resolved {
		if name == "cuDriverGetVersion" {
			found = true
		}
	}
	if !found {
		t.Errorf("bind() resolved %v, want cuDriverGetVersion", resolved)
	}
	if registered != 1 {
		t.Errorf("registered %d symbols, want 1 when cuGetErrorString is absent", registered)
	}
}

func TestErrorTextWithoutErrorStringSymbol(t *testing.T) {
	b := newBinding()
	if got := b.errorText(999); got != "CUDA error 999" {
		t.Errorf("errorText(999) = %q, want numeric fallback", got)
	}
}
