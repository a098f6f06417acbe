package clihelp

import (
	"os"

	"golang.org/x/sys/unix"
)

// IsTerminal reports whether f is attached to an interactive terminal, used
// by cmd/cosmo to decide between starting the REPL and treating stdin as a
// script pipe.
func IsTerminal(f *os.File) bool {
	_, err := unix.IoctlGetTermios(int(f.Fd()), ioctlGetTermios)

	return err == nil
}
