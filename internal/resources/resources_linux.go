package resources

import (
	"fmt"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

func readCPU() (cpuTimes, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return cpuTimes{}, fmt.Errorf("open procfs: %w", err)
	}
	stat, err := fs.Stat()
	if err != nil {
		return cpuTimes{}, fmt.Errorf("read cpu stat: %w", err)
	}
	c := stat.CPUTotal
	idle := c.Idle + c.Iowait
	busy := c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal
	return cpuTimes{busy: busy, total: busy + idle}, nil
}

// readMemory prefers MemAvailable from /proc/meminfo and falls back to
// sysinfo(2) when the kernel does not report it.
func readMemory() (used, total float64, err error) {
	if fs, err := procfs.NewDefaultFS(); err == nil {
		if mi, err := fs.Meminfo(); err == nil && mi.MemTotal != nil && mi.MemAvailable != nil {
			totalKB := float64(*mi.MemTotal)
			availKB := float64(*mi.MemAvailable)
			return (totalKB - availKB) * 1024 / gib, totalKB * 1024 / gib, nil
		}
	}

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0, fmt.Errorf("sysinfo: %w", err)
	}
	unit := float64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	t := float64(info.Totalram) * unit
	free := float64(info.Freeram+info.Bufferram) * unit
	return (t - free) / gib, t / gib, nil
}

func readDisk(path string) (used, free, total float64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := float64(st.Bsize)
	total = float64(st.Blocks) * bsize
	used = total - float64(st.Bfree)*bsize
	free = float64(st.Bavail) * bsize
	return used / gib, free / gib, total / gib, nil
}
