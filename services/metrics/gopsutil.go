package metricssvc

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/trezcool/shule/core/monitor"
)

const cpuSampleInterval = 100 * time.Millisecond

// Collector takes host snapshots with gopsutil. Snapshot blocks for the
// short CPU sampling window; the monitoring session runs it off-loop.
type Collector struct {
	DiskPath string // defaults to "/"
}

var _ monitor.Collector = (*Collector)(nil)

func NewCollector() *Collector {
	return &Collector{DiskPath: "/"}
}

func (c *Collector) Snapshot() (monitor.Snapshot, error) {
	var snap monitor.Snapshot

	cpuPercents, err := cpu.Percent(cpuSampleInterval, false)
	if err != nil {
		return snap, errors.Wrap(err, "sampling cpu")
	}
	if len(cpuPercents) > 0 {
		snap.CPUPercent = cpuPercents[0]
	}
	if snap.CPUCountLogical, err = cpu.Counts(true); err != nil {
		return snap, errors.Wrap(err, "counting logical cpus")
	}
	if snap.CPUCountPhysical, err = cpu.Counts(false); err != nil {
		return snap, errors.Wrap(err, "counting physical cpus")
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return snap, errors.Wrap(err, "reading virtual memory")
	}
	snap.Memory = monitor.MemoryStat{
		Total:       vm.Total,
		Available:   vm.Available,
		Used:        vm.Used,
		Free:        vm.Free,
		UsedPercent: vm.UsedPercent,
	}

	swap, err := mem.SwapMemory()
	if err != nil {
		return snap, errors.Wrap(err, "reading swap")
	}
	snap.Swap = monitor.MemoryStat{
		Total:       swap.Total,
		Used:        swap.Used,
		Free:        swap.Free,
		UsedPercent: swap.UsedPercent,
	}

	diskPath := c.DiskPath
	if diskPath == "" {
		diskPath = "/"
	}
	du, err := disk.Usage(diskPath)
	if err != nil {
		return snap, errors.Wrap(err, "reading disk usage")
	}
	snap.DiskUsage = monitor.DiskStat{
		Path:        du.Path,
		Total:       du.Total,
		Used:        du.Used,
		Free:        du.Free,
		UsedPercent: du.UsedPercent,
	}

	counters, err := net.IOCounters(false)
	if err != nil {
		return snap, errors.Wrap(err, "reading net counters")
	}
	if len(counters) > 0 {
		snap.Network = monitor.NetStat{
			BytesSent:   counters[0].BytesSent,
			BytesRecv:   counters[0].BytesRecv,
			PacketsSent: counters[0].PacketsSent,
			PacketsRecv: counters[0].PacketsRecv,
		}
	}

	bootTime, err := host.BootTime()
	if err != nil {
		return snap, errors.Wrap(err, "reading boot time")
	}
	snap.Uptime = int64(bootTime)

	return snap, nil
}
