//go:build windows

package server

import "syscall"

// sighup is never delivered on Windows, reloading is not supported there.
const sighup = syscall.SIGHUP
