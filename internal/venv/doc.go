// Package venv manages the lifecycle of a Python virtual environment
// directory.
//
// It answers one question about an existing directory (is its pip
// executable present?) and performs the three mutations the tool needs:
// deleting the directory, creating it with "python -m venv", and hiding it
// on the Windows OS family with the attrib utility.
//
// Design decisions:
//   - We shell out to the host interpreter rather than laying out the
//     directory ourselves, because the venv module owns its on-disk format.
//   - The OS name is a field on Manager instead of a direct runtime.GOOS
//     check, so the Windows branch is testable on every platform.
//   - Hiding is cosmetic: its failures are logged and never returned from
//     Create.
package venv
