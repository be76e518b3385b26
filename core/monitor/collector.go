package monitor

type (
	// MemoryStat mirrors a virtual/swap memory snapshot.
	MemoryStat struct {
		Total       uint64  `json:"total"`
		Available   uint64  `json:"available,omitempty"`
		Used        uint64  `json:"used"`
		Free        uint64  `json:"free"`
		UsedPercent float64 `json:"percent"`
	}

	DiskStat struct {
		Path        string  `json:"path"`
		Total       uint64  `json:"total"`
		Used        uint64  `json:"used"`
		Free        uint64  `json:"free"`
		UsedPercent float64 `json:"percent"`
	}

	NetStat struct {
		BytesSent   uint64 `json:"bytes_sent"`
		BytesRecv   uint64 `json:"bytes_recv"`
		PacketsSent uint64 `json:"packets_sent"`
		PacketsRecv uint64 `json:"packets_recv"`
	}

	// Snapshot is one point-in-time view of the host, pushed periodically
	// over the monitoring stream as a "system_update" frame.
	Snapshot struct {
		CPUPercent       float64    `json:"cpu_percent"`
		CPUCountLogical  int        `json:"cpu_count_logical"`
		CPUCountPhysical int        `json:"cpu_count_physical"`
		Memory           MemoryStat `json:"memory"`
		Swap             MemoryStat `json:"swap"`
		DiskUsage        DiskStat   `json:"disk_usage"`
		Network          NetStat    `json:"network"`
		Uptime           int64      `json:"uptime"` // boot timestamp, seconds
	}

	// Collector takes host snapshots. Collection may block; callers must
	// run it off the connection's message loop.
	Collector interface {
		Snapshot() (Snapshot, error)
	}

	// LogRegistry resolves the log aliases clients may tail to file paths.
	LogRegistry interface {
		Resolve(alias string) (path string, ok bool)
		Aliases() []string
	}
)
