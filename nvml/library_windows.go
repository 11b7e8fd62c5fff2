//go:build windows

package nvml

// libraryCandidates returns the names handed to the dynamic loader by Bind,
// in order. Recent drivers place nvml.dll on the default search path; the
// NVSMI directory covers older installs that do not.
func libraryCandidates() []string {
	return []string{
		"nvml.dll",
		`C:\Program Files\NVIDIA Corporation\NVSMI\nvml.dll`,
	}
}

// libraryFilenames returns the file names LocateDriverLibrary scans for.
func libraryFilenames() []string {
	return []string{"nvml.dll"}
}

// wellKnownDriverDirs returns the directories the driver installer places
// nvml.dll into.
func wellKnownDriverDirs() []string {
	return []string{
		`C:\Windows\System32`,
		`C:\Program Files\NVIDIA Corporation\NVSMI`,
	}
}
