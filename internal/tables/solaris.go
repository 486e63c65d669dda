package tables

import (
	"github.com/Guliveer/unixstat-agent/internal/catalog"
)

const (
	normal = catalog.Normal
	delta  = catalog.Delta
	dim    = catalog.Dimension
	skip   = catalog.Skip
)

// Solaris returns the SunOS table.
func Solaris() *catalog.Table {
	b := newBuilder("solaris")

	// df -k: one row per mountpoint, pseudo filesystems included.
	b.command("df", catalog.CommandDefinition{
		Command: []string{"df", "-k"},
		Mode:    catalog.RegexMulti,
		Ignore:  ignores(`^Filesystem\s.*`),
		Rules: []catalog.Rule{
			catalog.MustRule(`\s*(\S+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)%\s+(\S.*)`,
				skip, "1K-blocks", "Used", "Available", "Use%", dim),
		},
	})
	b.metric("df", "1K-blocks", "Disk", "Total", "kb", normal, 1)
	b.metric("df", "Used", "Disk", "Used", "kb", normal, 1)
	b.metric("df", "Available", "Disk", "Free", "kb", normal, 1)
	b.metric("df", "Use%", "Disk", "Used", "%", normal, 1)

	// iostat -x: "extended device statistics" and the column header come first.
	b.command("iostat", catalog.CommandDefinition{
		Command:     []string{"iostat", "-x"},
		Mode:        catalog.RegexMulti,
		Ignore:      ignores(),
		HeaderLines: 2,
		Rules: []catalog.Rule{
			catalog.MustRule(`\s*([\w/.-]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)`+
				`\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+(\d+)\s+(\d+)`,
				dim, "r-s", "w-s", "kr-s", "kw-s", "wait", "actv", "svc_t", "%w", "%b"),
		},
	})
	b.metric("iostat", "r-s", "DiskIO", "Reads per Second", "transfers/s", normal, 1)
	b.metric("iostat", "w-s", "DiskIO", "Writes per Second", "transfers/s", normal, 1)
	b.metric("iostat", "kr-s", "DiskIO", "Data Read per Second", "kb/s", normal, 1)
	b.metric("iostat", "kw-s", "DiskIO", "Data Written per Second", "kb/s", normal, 1)
	b.metric("iostat", "wait", "DiskIO", "Average queue length", "transactions", normal, 1)
	b.metric("iostat", "actv", "DiskIO", "Active transactions", "transactions", normal, 1)
	b.metric("iostat", "svc_t", "DiskIO", "Average service time", "ms", normal, 1)
	b.metric("iostat", "%w", "DiskIO", "Percentage of Time Non-Empty Queue", "%", normal, 1)
	b.metric("iostat", "%b", "DiskIO", "Percentage of Time Busy", "%", normal, 1)

	b.command("iostatCPU", catalog.CommandDefinition{
		Command: []string{"iostat", "-c"},
		Mode:    catalog.Simple,
		Ignore:  ignores(),
		Rules: []catalog.Rule{
			catalog.MustRule(`\s*(\d+)\s+(\d+)\s+(\d+)\s+(\d+)`, "us", "sy", "wt", "id"),
		},
	})
	b.metric("iostatCPU", "us", "CPU", "User", "%", normal, 1)
	b.metric("iostatCPU", "sy", "CPU", "System", "%", normal, 1)
	b.metric("iostatCPU", "wt", "CPU", "Waiting", "%", normal, 1)
	b.metric("iostatCPU", "id", "CPU", "Idle", "%", normal, 1)

	// netstat: Name Mtu Net/Dest Address Ipkts Ierrs Opkts Oerrs Collis Queue
	b.command("netstat", catalog.CommandDefinition{
		Command: []string{"netstat", "-I"},
		Mode:    catalog.InterfaceKeyed,
		Ignore:  ignores(`^\s*Name\s+Mtu\s.*`),
		Rules: []catalog.Rule{
			catalog.MustRule(`\s*(\w[\w.:]*\*?)\s+(\d+)\s+(\S+)\s+(\S+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)`,
				dim, skip, skip, skip, "Ipkts", "Ierrs", "Opkts", "Oerrs", "Collis", "Queue"),
		},
	})
	b.metric("netstat", "Ipkts", "Network", "Receive/Packets", "packets", delta, 1)
	b.metric("netstat", "Ierrs", "Network", "Receive/Errors", "packets", delta, 1)
	b.metric("netstat", "Opkts", "Network", "Transmit/Packets", "packets", delta, 1)
	b.metric("netstat", "Oerrs", "Network", "Transmit/Errors", "packets", delta, 1)
	b.metric("netstat", "Collis", "Network", "Collisions", "packets", delta, 1)
	b.metric("netstat", "Queue", "Network", "Queue", "packets", normal, 1)

	b.command("swap", catalog.CommandDefinition{
		Command: []string{"/usr/sbin/swap", "-s"},
		Mode:    catalog.Simple,
		Ignore:  ignores(),
		Rules: []catalog.Rule{
			catalog.MustRule(`total:\s+(\d+)k\s+bytes allocated\s+\+\s+(\d+)k\s+reserved\s+=\s+(\d+)k\s+used,\s+(\d+)k\s+available`,
				"swalloc", "swres", "swused", "swavail"),
		},
	})
	b.metric("swap", "swalloc", "MemoryDetailed/Swap", "Allocated", "kb", normal, 1)
	b.metric("swap", "swres", "MemoryDetailed/Swap", "Reserved", "kb", normal, 1)
	b.metric("swap", "swused", "MemoryDetailed/Swap", "Used", "kb", normal, 1)
	b.metric("swap", "swavail", "MemoryDetailed/Swap", "Available", "kb", normal, 1)

	// top -b: only the five-line summary block is parsed; the process
	// table that follows is never read.
	b.command("top", catalog.CommandDefinition{
		Command:   []string{"top", "-b"},
		Mode:      catalog.Simple,
		Ignore:    ignores(),
		LineLimit: 5,
		Rules: []catalog.Rule{
			catalog.MustRule(`(?:last pid:\s+\d+;\s+)?load averages?:\s+([0-9.]+),\s+([0-9.]+),\s+([0-9.]+).*`,
				"la1", "la5", "la15"),
			catalog.MustRule(`(\d+)\s+processes:\s+(\d+)\s+sleeping,(?:.*?,)?\s*(\d+)\s+on cpu.*`,
				"proctot", "procslp", "proccpu"),
			catalog.MustRule(`Memory:\s+(\d+)M\s+phys mem,\s+(\d+)M\s+free mem,\s+(\d+)M\s+total swap,\s+(\d+)M\s+free swap.*`,
				"memphys", "memfree", "swaptot", "swapfree"),
		},
	})
	b.metric("top", "la1", "LoadAverage", "1 Minute", "load", normal, 1)
	b.metric("top", "la5", "LoadAverage", "5 Minute", "load", normal, 1)
	b.metric("top", "la15", "LoadAverage", "15 Minute", "load", normal, 1)
	b.metric("top", "proctot", "Processes", "Total", "processes", normal, 1)
	b.metric("top", "procslp", "Processes", "Sleeping", "processes", normal, 1)
	b.metric("top", "proccpu", "Processes", "On CPU", "processes", normal, 1)
	b.metric("top", "memphys", "MemoryDetailed", "PhysMem/Total", "mb", normal, 1)
	b.metric("top", "memfree", "MemoryDetailed", "PhysMem/Free", "mb", normal, 1)
	b.metric("top", "swaptot", "MemoryDetailed", "Swap/Total", "mb", normal, 1)
	b.metric("top", "swapfree", "MemoryDetailed", "Swap/Free", "mb", normal, 1)

	// vmstat: two header rows. The trailing cpu columns are left to iostatCPU.
	b.command("vmstat", catalog.CommandDefinition{
		Command:     []string{"vmstat"},
		Mode:        catalog.Simple,
		Ignore:      ignores(),
		HeaderLines: 2,
		Rules: []catalog.Rule{
			catalog.MustRule(`\s*(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)`+
				`\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+-?(\d+)`+
				`\s+-?(\d+)\s+-?(\d+)\s+-?(\d+)\s+(\d+)`+
				`\s+(\d+)\s+(\d+)\s+\d+\s+\d+\s+\d+`,
				"r", "b", "w", "swap", "free", "re", "mf", "pi", "po", "fr",
				"de", "sr", "d0", "d1", "d2", "d3", "in", "sy", "cs"),
		},
	})
	b.metric("vmstat", "r", "KernelThreads", "Runnable", "threads", normal, 1)
	b.metric("vmstat", "b", "KernelThreads", "In Wait Queue", "threads", normal, 1)
	b.metric("vmstat", "w", "KernelThreads", "Swapped", "threads", normal, 1)
	b.metric("vmstat", "swap", "Memory", "Swap", "kb", normal, 4096)
	b.metric("vmstat", "free", "Memory", "Free", "kb", normal, 4096)
	b.metric("vmstat", "re", "Page", "Reclaimed", "pages", normal, 1024)
	b.metric("vmstat", "mf", "Page", "Page Faults", "pages", normal, 1)
	b.metric("vmstat", "pi", "Page", "Paged In", "pages", normal, 1024)
	b.metric("vmstat", "po", "Page", "Paged Out", "pages", normal, 1024)
	b.metric("vmstat", "fr", "Page", "Freed", "pages", normal, 1)
	b.metric("vmstat", "de", "Page", "Anticipated Short-term Shortfall", "kb", normal, 4096)
	b.metric("vmstat", "sr", "Page", "Pages Scanned by Clock Algorithm", "pages", normal, 1)
	b.metric("vmstat", "d0", "Disk", "disk0/Operations per Second", "ops/s", normal, 1)
	b.metric("vmstat", "d1", "Disk", "disk1/Operations per Second", "ops/s", normal, 1)
	b.metric("vmstat", "d2", "Disk", "disk2/Operations per Second", "ops/s", normal, 1)
	b.metric("vmstat", "d3", "Disk", "disk3/Operations per Second", "ops/s", normal, 1)
	b.metric("vmstat", "in", "Faults", "Device Interrupts", "interrupts", normal, 1)
	b.metric("vmstat", "sy", "Faults", "System Calls", "threads", normal, 1)
	b.metric("vmstat", "cs", "Faults", "Context Switches", "switches", normal, 1)

	return b.build()
}
