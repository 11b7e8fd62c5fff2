//go:build windows

package cuda

// libraryCandidates returns the names handed to the dynamic loader, in
// order. The driver installer places nvcuda.dll on the default search path.
func libraryCandidates() []string {
	return []string{"nvcuda.dll"}
}
