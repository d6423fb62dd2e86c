//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build darwin dragonfly freebsd linux netbsd openbsd solaris

package simulator

import (
	"os"

	"github.com/creack/pty"
)

func ptyOpen() (master, slave *os.File, err error) {
	return pty.Open()
}
