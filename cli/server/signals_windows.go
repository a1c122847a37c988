//go:build windows

package server

import "syscall"

// sighup is not delivered on Windows, but the constant is defined.
const sighup = syscall.SIGHUP
