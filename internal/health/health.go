// Package health implements process liveness probing for supervised
// servers, watchers, and clients. It must never block for long and must
// treat any uncertainty as "not alive" rather than erroring, since it is
// consulted from hot loops (the watcher's poll, doctor's sweep).
package health

// IsAlive reports whether pid currently identifies a live process. The
// check is platform-dispatched: see health_linux.go, health_darwin.go, and
// health_other.go for the three strategies named by the supervision
// design (procfs, process-table lookup, signal 0).
func IsAlive(pid int) bool {
	return isAlive(pid)
}
