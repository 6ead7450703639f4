//go:build !linux

package resources

func readCPU() (cpuTimes, error) { return cpuTimes{}, ErrUnsupported }

func readMemory() (used, total float64, err error) { return 0, 0, ErrUnsupported }

func readDisk(path string) (used, free, total float64, err error) {
	return 0, 0, 0, ErrUnsupported
}
