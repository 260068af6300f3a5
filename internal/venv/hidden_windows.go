//go:build windows

package venv

import "golang.org/x/sys/windows"

// isHidden reports whether path carries FILE_ATTRIBUTE_HIDDEN.
func isHidden(path string) (bool, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false, err
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return false, err
	}
	return attrs&windows.FILE_ATTRIBUTE_HIDDEN != 0, nil
}
