package nvml

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// TestNoCgoImportInBindingPackages enforces the project's no-CGO contract:
// every native entry point is resolved at runtime, never linked.
func TestNoCgoImportInBindingPackages(t *testing.T) {
	root, err := resolveModuleRoot()
	if err != nil {
		t.Fatal(err)
	}

	for _, pkg := range []string{"nvml", "cuda", filepath.Join("internal", "dl")} {
		dir := filepath.Join(root, pkg)
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("failed to read package directory %s: %v", dir, err)
		}

		fset := token.NewFileSet()
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			name := entry.Name()
			if !strings.HasSuffix(name, ".go") {
				continue
			}

			fullPath := filepath.Join(dir, name)
			file, err := parser.ParseFile(fset, fullPath, nil, parser.ImportsOnly)
			if err != nil {
				t.Fatalf("failed to parse %s: %v", fullPath, err)
			}

			for _, imp := range file.Imports {
				if imp.Path != nil && imp.Path.Value == "\"C\"" {
					t.Fatalf("CGO import detected in %s: import \"C\" is forbidden", fullPath)
				}
			}
		}
	}
}

func resolveModuleRoot() (string, error) {
	candidates := make([]string, 0, 4)

	if wd, err := os.Getwd(); err == nil && wd != "" {
		candidates = append(candidates, wd, filepath.Dir(wd))
	}

	if _, thisFile, _, ok := runtime.Caller(0); ok {
		candidates = append(candidates, filepath.Dir(filepath.Dir(thisFile)))
	}

	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
	}

	return "", fmt.Errorf("failed to locate module root; checked: %v", candidates)
}
