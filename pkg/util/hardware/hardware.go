package hardware

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/pkg/log"
)

var (
	cpuOnce    sync.Once
	logicalCPU int
)

// GetCPUNum 返回可用的 CPU 核心数：主机逻辑核数与 GOMAXPROCS 取较小值。
// 容器中配合 automaxprocs 使用时，结果即为 cgroup 限制下的核数。
func GetCPUNum() int {
	cpuOnce.Do(func() {
		n, err := cpu.Counts(true)
		if err != nil || n <= 0 {
			log.Warn("failed to get logical cpu count, fall back to runtime", zap.Error(err))
			n = runtime.NumCPU()
		}
		logicalCPU = n
	})
	if procs := runtime.GOMAXPROCS(0); procs > 0 && procs < logicalCPU {
		return procs
	}
	return logicalCPU
}

// GetMemoryCount 返回主机物理内存总量（字节），失败时返回 0。
func GetMemoryCount() uint64 {
	stats, err := mem.VirtualMemory()
	if err != nil {
		log.Warn("failed to get memory count", zap.Error(err))
		return 0
	}
	return stats.Total
}

// GetFreeMemoryCount 返回主机当前可用内存（字节），失败时返回 0。
func GetFreeMemoryCount() uint64 {
	stats, err := mem.VirtualMemory()
	if err != nil {
		log.Warn("failed to get free memory count", zap.Error(err))
		return 0
	}
	return stats.Available
}
