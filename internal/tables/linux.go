package tables

import (
	"github.com/Guliveer/unixstat-agent/internal/catalog"
)

// Linux returns the table for Linux hosts with procps and net-tools.
func Linux() *catalog.Table {
	b := newBuilder("linux")

	b.command("df", catalog.CommandDefinition{
		Command: []string{"df", "-Pk"},
		Mode:    catalog.RegexMulti,
		Ignore:  ignores(`^Filesystem\s.*`, `^(?:tmpfs|devtmpfs|udev|overlay|shm|none)\s.*`),
		Rules: []catalog.Rule{
			catalog.MustRule(`(\S+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)%\s+(\S.*)`,
				skip, "1K-blocks", "Used", "Available", "Use%", dim),
		},
	})
	b.metric("df", "1K-blocks", "Disk", "Total", "kb", normal, 1)
	b.metric("df", "Used", "Disk", "Used", "kb", normal, 1)
	b.metric("df", "Available", "Disk", "Free", "kb", normal, 1)
	b.metric("df", "Use%", "Disk", "Used", "%", normal, 1)

	// /proc/diskstats: major minor name, then the kernel I/O counters.
	// Sector counts are 512-byte units.
	b.command("diskstats", catalog.CommandDefinition{
		Command: []string{"cat", "/proc/diskstats"},
		Mode:    catalog.RegexMulti,
		Ignore:  ignores(`^\s*\d+\s+\d+\s+(?:loop|ram|zram)\d+\s.*`),
		Rules: []catalog.Rule{
			catalog.MustRule(`\s*\d+\s+\d+\s+(\S+)\s+(\d+)\s+\d+\s+(\d+)\s+\d+\s+(\d+)\s+\d+\s+(\d+)\s+\d+\s+(\d+)\s+(\d+).*`,
				dim, "reads", "sectors_read", "writes", "sectors_written", "in_progress", "io_ms"),
		},
	})
	b.metric("diskstats", "reads", "DiskIO", "Reads per Second", "transfers/s", delta, 1)
	b.metric("diskstats", "sectors_read", "DiskIO", "Data Read per Second", "bytes/s", delta, 512)
	b.metric("diskstats", "writes", "DiskIO", "Writes per Second", "transfers/s", delta, 1)
	b.metric("diskstats", "sectors_written", "DiskIO", "Data Written per Second", "bytes/s", delta, 512)
	b.metric("diskstats", "in_progress", "DiskIO", "Active transactions", "transactions", normal, 1)
	b.metric("diskstats", "io_ms", "DiskIO", "Percentage of Time Busy", "%", delta, 0.1)

	// netstat -i: Iface MTU RX-OK RX-ERR RX-DRP RX-OVR TX-OK TX-ERR TX-DRP TX-OVR Flg
	b.command("netstat", catalog.CommandDefinition{
		Command: []string{"netstat", "-i"},
		Mode:    catalog.InterfaceKeyed,
		Ignore:  ignores(`^Kernel Interface table.*`, `^Iface\s.*`),
		Rules: []catalog.Rule{
			catalog.MustRule(`(\S+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+\S+`,
				dim, skip, "RX-OK", "RX-ERR", "RX-DRP", "RX-OVR", "TX-OK", "TX-ERR", "TX-DRP", "TX-OVR"),
		},
	})
	b.metric("netstat", "RX-OK", "Network", "Receive/Packets", "packets", delta, 1)
	b.metric("netstat", "RX-ERR", "Network", "Receive/Errors", "packets", delta, 1)
	b.metric("netstat", "RX-DRP", "Network", "Receive/Dropped", "packets", delta, 1)
	b.metric("netstat", "RX-OVR", "Network", "Receive/Overruns", "packets", delta, 1)
	b.metric("netstat", "TX-OK", "Network", "Transmit/Packets", "packets", delta, 1)
	b.metric("netstat", "TX-ERR", "Network", "Transmit/Errors", "packets", delta, 1)
	b.metric("netstat", "TX-DRP", "Network", "Transmit/Dropped", "packets", delta, 1)
	b.metric("netstat", "TX-OVR", "Network", "Transmit/Overruns", "packets", delta, 1)

	b.command("free", catalog.CommandDefinition{
		Command: []string{"free", "-k"},
		Mode:    catalog.Simple,
		Ignore:  ignores(`^\s+total\s.*`),
		Rules: []catalog.Rule{
			catalog.MustRule(`Mem:\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)`,
				"memtotal", "memused", "memfree", "memshared", "membuffcache", "memavail"),
			catalog.MustRule(`Swap:\s+(\d+)\s+(\d+)\s+(\d+)`,
				"swaptot", "swapused", "swapfree"),
		},
	})
	b.metric("free", "memtotal", "MemoryDetailed", "PhysMem/Total", "kb", normal, 1)
	b.metric("free", "memused", "MemoryDetailed", "PhysMem/Used", "kb", normal, 1)
	b.metric("free", "memfree", "MemoryDetailed", "PhysMem/Free", "kb", normal, 1)
	b.metric("free", "memshared", "MemoryDetailed", "PhysMem/Shared", "kb", normal, 1)
	b.metric("free", "membuffcache", "MemoryDetailed", "PhysMem/Buffers and Cache", "kb", normal, 1)
	b.metric("free", "memavail", "MemoryDetailed", "PhysMem/Available", "kb", normal, 1)
	b.metric("free", "swaptot", "MemoryDetailed", "Swap/Total", "kb", normal, 1)
	b.metric("free", "swapused", "MemoryDetailed", "Swap/Used", "kb", normal, 1)
	b.metric("free", "swapfree", "MemoryDetailed", "Swap/Free", "kb", normal, 1)

	b.command("loadavg", catalog.CommandDefinition{
		Command: []string{"cat", "/proc/loadavg"},
		Mode:    catalog.Simple,
		Rules: []catalog.Rule{
			catalog.MustRule(`([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+(\d+)/(\d+)\s+\d+`,
				"la1", "la5", "la15", "procrun", "proctot"),
		},
	})
	b.metric("loadavg", "la1", "LoadAverage", "1 Minute", "load", normal, 1)
	b.metric("loadavg", "la5", "LoadAverage", "5 Minute", "load", normal, 1)
	b.metric("loadavg", "la15", "LoadAverage", "15 Minute", "load", normal, 1)
	b.metric("loadavg", "procrun", "Processes", "Runnable", "processes", normal, 1)
	b.metric("loadavg", "proctot", "Processes", "Total", "processes", normal, 1)

	// vmstat: procs r b, memory, swap si so, io bi bo, system in cs, cpu.
	// Newer procps appends a guest column, which is tolerated.
	b.command("vmstat", catalog.CommandDefinition{
		Command:     []string{"vmstat"},
		Mode:        catalog.Simple,
		Ignore:      ignores(),
		HeaderLines: 2,
		Rules: []catalog.Rule{
			catalog.MustRule(`\s*(\d+)\s+(\d+)\s+\d+\s+\d+\s+\d+\s+\d+`+
				`\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)`+
				`\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)(?:\s+\d+)?`,
				"r", "b", "si", "so", "bi", "bo", "in", "cs", "us", "sy", "id", "wa", "st"),
		},
	})
	b.metric("vmstat", "r", "KernelThreads", "Runnable", "threads", normal, 1)
	b.metric("vmstat", "b", "KernelThreads", "In Wait Queue", "threads", normal, 1)
	b.metric("vmstat", "si", "Page", "Swapped In", "kb/s", normal, 1)
	b.metric("vmstat", "so", "Page", "Swapped Out", "kb/s", normal, 1)
	b.metric("vmstat", "bi", "DiskIO", "Blocks In", "blocks/s", normal, 1)
	b.metric("vmstat", "bo", "DiskIO", "Blocks Out", "blocks/s", normal, 1)
	b.metric("vmstat", "in", "Faults", "Device Interrupts", "interrupts", normal, 1)
	b.metric("vmstat", "cs", "Faults", "Context Switches", "switches", normal, 1)
	b.metric("vmstat", "us", "CPU", "User", "%", normal, 1)
	b.metric("vmstat", "sy", "CPU", "System", "%", normal, 1)
	b.metric("vmstat", "id", "CPU", "Idle", "%", normal, 1)
	b.metric("vmstat", "wa", "CPU", "Waiting", "%", normal, 1)
	b.metric("vmstat", "st", "CPU", "Stolen", "%", normal, 1)

	return b.build()
}
