//go:build !windows

package nvml

// libraryCandidates returns the names handed to the dynamic loader by Bind,
// in order. The unversioned name resolves via ldconfig on most driver
// installs; the soname covers machines that ship only the versioned file.
func libraryCandidates() []string {
	return []string{"libnvidia-ml.so", "libnvidia-ml.so.1"}
}

// libraryFilenames returns the file names LocateDriverLibrary scans for, in
// order of preference. The soname comes first: it is the file the driver
// package always installs, while the unversioned link needs the devel
// package.
func libraryFilenames() []string {
	return []string{"libnvidia-ml.so.1", "libnvidia-ml.so"}
}

// wellKnownDriverDirs returns the directories driver packages install the
// management library into. Directories that do not exist on the running
// machine are skipped during the scan.
func wellKnownDriverDirs() []string {
	return []string{
		"/usr/lib/x86_64-linux-gnu",
		"/usr/lib/aarch64-linux-gnu",
		"/usr/lib64",
		"/usr/lib",
		"/usr/lib/wsl/lib",
	}
}
