//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package logging

func isTerminal(uintptr) bool {
	return false
}
