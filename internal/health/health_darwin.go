//go:build darwin

package health

import (
	gopsutilprocess "github.com/shirou/gopsutil/v3/process"
)

// isAlive on macOS goes through gopsutil's process-table lookup (backed by
// proc_pidinfo under the hood), since there is no /proc filesystem.
func isAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	running, err := gopsutilprocess.PidExists(int32(pid))
	if err != nil {
		return false
	}
	return running
}
