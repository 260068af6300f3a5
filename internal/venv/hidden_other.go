//go:build !windows

package venv

// isHidden cannot read Windows file attributes on this platform.
func isHidden(string) (bool, error) {
	return false, errHiddenUnsupported
}
