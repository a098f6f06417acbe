//go:build darwin || freebsd || netbsd || openbsd

package clihelp

import "golang.org/x/sys/unix"

const ioctlGetTermios = unix.TIOCGETA
