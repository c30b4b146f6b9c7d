package sysinfo

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"
)

// Metrics represents host metrics for API responses
type Metrics struct {
	CPUCount        int     `json:"cpu_count"`
	MemoryTotalGB   float64 `json:"memory_total_gb"`
	MemoryUsedGB    float64 `json:"memory_used_gb"`
	MemoryFreeGB    float64 `json:"memory_free_gb"`
	DiskTotalGB     float64 `json:"disk_total_gb"`
	DiskUsedGB      float64 `json:"disk_used_gb"`
	DiskAvailableGB float64 `json:"disk_available_gb"`
	DiskUsedPercent float64 `json:"disk_used_percent"`
}

// GetMetrics returns host metrics. dataDir is the directory holding the
// database file; disk numbers describe the filesystem it lives on.
func GetMetrics(dataDir string) (Metrics, error) {
	metrics := Metrics{
		CPUCount: runtime.NumCPU(),
	}

	if err := getMemoryInfo(&metrics); err != nil {
		return metrics, fmt.Errorf("failed to get memory info: %w", err)
	}

	if err := getDiskInfo(dataDir, &metrics); err != nil {
		return metrics, fmt.Errorf("failed to get disk info: %w", err)
	}

	return metrics, nil
}

// getMemoryInfo reads memory information from /proc/meminfo
func getMemoryInfo(metrics *Metrics) error {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return fmt.Errorf("failed to open /proc/meminfo: %w", err)
	}
	defer file.Close()

	var memTotal, memAvailable float64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			memTotal = value / (1024 * 1024) // KB to GB
		case strings.HasPrefix(line, "MemAvailable:"):
			memAvailable = value / (1024 * 1024) // KB to GB
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading /proc/meminfo: %w", err)
	}

	metrics.MemoryTotalGB = memTotal
	metrics.MemoryFreeGB = memAvailable
	metrics.MemoryUsedGB = memTotal - memAvailable

	return nil
}

// getDiskInfo reports usage of the filesystem holding dataDir
func getDiskInfo(dataDir string, metrics *Metrics) error {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dataDir, &stat); err != nil {
		return fmt.Errorf("failed to stat filesystem at %s: %w", dataDir, err)
	}

	blockSize := float64(stat.Bsize)
	const gb = 1024 * 1024 * 1024

	metrics.DiskTotalGB = float64(stat.Blocks) * blockSize / gb
	metrics.DiskAvailableGB = float64(stat.Bavail) * blockSize / gb
	metrics.DiskUsedGB = metrics.DiskTotalGB - float64(stat.Bfree)*blockSize/gb
	if metrics.DiskTotalGB > 0 {
		metrics.DiskUsedPercent = (metrics.DiskUsedGB / metrics.DiskTotalGB) * 100
	}

	return nil
}
