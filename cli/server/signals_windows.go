//go:build windows

package server

import "syscall"

// sighup is never delivered on Windows, so log level reload isn't available there.
const sighup = syscall.SIGHUP
