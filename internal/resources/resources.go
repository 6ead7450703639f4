// Package resources samples host CPU, memory and disk usage for the
// dashboard.
package resources

import (
	"errors"
	"sync"
)

// ErrUnsupported is returned on platforms without a sampler.
var ErrUnsupported = errors.New("resource sampling not supported on this platform")

const gib = 1 << 30

// Usage is one resource reading. Percentages are in [0, 100].
type Usage struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemPercent  float64 `json:"mem_percent"`
	MemUsedGB   float64 `json:"mem_used_gb"`
	MemTotalGB  float64 `json:"mem_total_gb"`
	DiskPercent float64 `json:"disk_percent"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskTotalGB float64 `json:"disk_total_gb"`
}

// cpuTimes holds cumulative busy and total CPU seconds.
type cpuTimes struct {
	busy  float64
	total float64
}

// Sampler reads host usage. CPU load is computed from the difference
// between consecutive samples; the first sample reports the average since
// boot.
type Sampler struct {
	mu       sync.Mutex
	diskPath string
	prev     cpuTimes
	hasPrev  bool
}

// NewSampler creates a Sampler reporting disk usage for the filesystem
// holding diskPath ("/" when empty).
func NewSampler(diskPath string) *Sampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Sampler{diskPath: diskPath}
}

// Sample takes one reading.
func (s *Sampler) Sample() (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var u Usage
	cur, err := readCPU()
	if err != nil {
		return Usage{}, err
	}
	u.CPUPercent = cpuPercent(s.prev, cur, s.hasPrev)
	s.prev, s.hasPrev = cur, true

	if u.MemUsedGB, u.MemTotalGB, err = readMemory(); err != nil {
		return Usage{}, err
	}
	u.MemPercent = percent(u.MemUsedGB, u.MemTotalGB)

	var free float64
	if u.DiskUsedGB, free, u.DiskTotalGB, err = readDisk(s.diskPath); err != nil {
		return Usage{}, err
	}
	u.DiskPercent = percent(u.DiskUsedGB, u.DiskUsedGB+free)

	return u, nil
}

func cpuPercent(prev, cur cpuTimes, hasPrev bool) float64 {
	busy, total := cur.busy, cur.total
	if hasPrev {
		busy -= prev.busy
		total -= prev.total
	}
	if total <= 0 {
		return 0
	}
	return clamp(busy / total * 100)
}

func percent(used, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return clamp(used / total * 100)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
