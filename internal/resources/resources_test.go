package resources

import (
	"runtime"
	"testing"
)

func TestCPUPercent(t *testing.T) {
	prev := cpuTimes{busy: 100, total: 400}
	cur := cpuTimes{busy: 150, total: 500}

	if got := cpuPercent(prev, cur, true); got != 50 {
		t.Errorf("expected 50, got %v", got)
	}
	if got := cpuPercent(cpuTimes{}, cur, false); got != 30 {
		t.Errorf("expected since-boot 30, got %v", got)
	}
	if got := cpuPercent(cur, cur, true); got != 0 {
		t.Errorf("expected 0 with no elapsed time, got %v", got)
	}
}

func TestPercent(t *testing.T) {
	if got := percent(1, 4); got != 25 {
		t.Errorf("expected 25, got %v", got)
	}
	if got := percent(1, 0); got != 0 {
		t.Errorf("expected 0 for zero total, got %v", got)
	}
	if got := percent(5, 4); got != 100 {
		t.Errorf("expected clamp to 100, got %v", got)
	}
}

func TestSample(t *testing.T) {
	s := NewSampler("")
	u, err := s.Sample()
	if runtime.GOOS != "linux" {
		if err != ErrUnsupported {
			t.Errorf("expected ErrUnsupported, got %v", err)
		}
		return
	}
	if err != nil {
		t.Fatal(err)
	}

	for name, v := range map[string]float64{"cpu": u.CPUPercent, "mem": u.MemPercent, "disk": u.DiskPercent} {
		if v < 0 || v > 100 {
			t.Errorf("%s percent out of range: %v", name, v)
		}
	}
	if u.MemTotalGB <= 0 || u.DiskTotalGB <= 0 {
		t.Errorf("expected positive totals, got %+v", u)
	}

	if _, err := s.Sample(); err != nil {
		t.Errorf("second sample failed: %v", err)
	}
}
