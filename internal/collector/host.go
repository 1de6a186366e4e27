package collector

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// HostReading is one /proc observation. CPUValid is false on the first read
// because CPU usage is the delta between two reads.
type HostReading struct {
	CPUPct   float64
	CPUValid bool
	MemPct   float64
}

type HostCollector struct {
	procRoot string

	mu      sync.Mutex
	prevCPU *cpuSample
}

type cpuSample struct {
	total uint64
	idle  uint64
}

func NewHostCollector() *HostCollector { return &HostCollector{procRoot: "/proc"} }

func (h *HostCollector) Collect() (HostReading, error) {
	total, idle, err := readCPU(filepath.Join(h.procRoot, "stat"))
	if err != nil {
		return HostReading{}, err
	}
	var r HostReading
	h.mu.Lock()
	if h.prevCPU != nil {
		deltaTotal := total - h.prevCPU.total
		deltaIdle := idle - h.prevCPU.idle
		if total > h.prevCPU.total && deltaTotal > 0 {
			r.CPUPct = 100 * (1 - float64(deltaIdle)/float64(deltaTotal))
			r.CPUValid = true
		}
	}
	h.prevCPU = &cpuSample{total: total, idle: idle}
	h.mu.Unlock()

	memTotal, memAvail, err := readMem(filepath.Join(h.procRoot, "meminfo"))
	if err != nil {
		return HostReading{}, err
	}
	r.MemPct = 100 * float64(memTotal-memAvail) / float64(memTotal)
	return r, nil
}

func readCPU(path string) (total, idle uint64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if strings.HasPrefix(line, "cpu ") {
			parts := strings.Fields(line)
			if len(parts) < 5 {
				return 0, 0, errors.New("invalid cpu line")
			}
			vals := make([]uint64, 0, len(parts)-1)
			for _, p := range parts[1:] {
				v, e := strconv.ParseUint(p, 10, 64)
				if e != nil {
					return 0, 0, e
				}
				vals = append(vals, v)
				total += v
			}
			idle = vals[3]
			if len(vals) > 4 {
				idle += vals[4]
			}
			return total, idle, nil
		}
	}
	if err := s.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, errors.New("cpu line not found")
}

func readMem(path string) (total, available uint64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) < 2 {
			continue
		}
		if fields[0] == "MemTotal:" {
			total, _ = strconv.ParseUint(fields[1], 10, 64)
			total *= 1024
		}
		if fields[0] == "MemAvailable:" {
			available, _ = strconv.ParseUint(fields[1], 10, 64)
			available *= 1024
		}
	}
	if total == 0 || available > total {
		return 0, 0, errors.New("meminfo parse failed")
	}
	return total, available, nil
}
