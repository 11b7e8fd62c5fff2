package nvml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvLibraryPath names the environment variable LocateDriverLibrary consults
// for an explicit library file.
const EnvLibraryPath = "NVML_LIBRARY_PATH"

var errDriverLibraryNotFound = errors.New("NVIDIA management library not found")

// LocateOption configures LocateDriverLibrary.
type LocateOption func(*locateConfig) error

type locateConfig struct {
	libraryPath string
	searchDirs  []string
}

// WithLibraryPath short-circuits the search to an explicit library file. It
// takes precedence over the environment variable.
func WithLibraryPath(path string) LocateOption {
	return func(cfg *locateConfig) error {
		if path == "" {
			return fmt.Errorf("library path cannot be empty")
		}
		cfg.libraryPath = path
		return nil
	}
}

// WithSearchDirs adds directories to scan before the platform's well-known
// driver locations.
func WithSearchDirs(dirs ...string) LocateOption {
	return func(cfg *locateConfig) error {
		for _, dir := range dirs {
			if dir == "" {
				return fmt.Errorf("search directory cannot be empty")
			}
		}
		cfg.searchDirs = append(cfg.searchDirs, dirs...)
		return nil
	}
}

// LocateDriverLibrary returns an absolute path to the management library,
// suitable for SetLibraryPath. Resolution order: WithLibraryPath, the
// NVML_LIBRARY_PATH environment variable, the WithSearchDirs directories,
// then the platform's well-known driver locations.
//
// Locating is optional. When no explicit path is set, Bind probes the
// loader's default search rules on its own; this helper exists for hosts
// where the driver lives outside those rules.
func LocateDriverLibrary(opts ...LocateOption) (string, error) {
	cfg := locateConfig{
		libraryPath: strings.TrimSpace(os.Getenv(EnvLibraryPath)),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return "", err
		}
	}

	if cfg.libraryPath != "" {
		return validateLibraryFile(cfg.libraryPath)
	}

	var invalid []error
	for _, dir := range append(cfg.searchDirs, wellKnownDriverDirs()...) {
		for _, name := range libraryFilenames() {
			path, err := validateLibraryFile(filepath.Join(dir, name))
			if err == nil {
				return path, nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				invalid = append(invalid, err)
			}
		}
	}
	if len(invalid) > 0 {
		return "", fmt.Errorf("%w: candidates found but unusable: %w", errDriverLibraryNotFound, errors.Join(invalid...))
	}
	return "", errDriverLibraryNotFound
}

func validateLibraryFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat library file %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("library path %s is a directory", path)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("library file %s is empty", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s: %w", path, err)
	}
	return abs, nil
}
