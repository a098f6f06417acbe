//go:build linux

package clihelp

import "golang.org/x/sys/unix"

const ioctlGetTermios = unix.TCGETS
