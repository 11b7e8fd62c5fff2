//go:build !windows

package cuda

// libraryCandidates returns the names handed to the dynamic loader, in
// order. The unversioned name only exists where the toolkit is installed, so
// the driver's own soname is tried as well.
func libraryCandidates() []string {
	return []string{"libcuda.so", "libcuda.so.1"}
}
