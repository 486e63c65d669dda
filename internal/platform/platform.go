// Package platform identifies the host operating system once at startup so
// the matching command table can be selected.
package platform

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
	"github.com/Guliveer/unixstat-agent/internal/tables"
)

// Info describes the host.
type Info struct {
	OS       string `json:"os"`       // e.g., "solaris", "linux"
	Release  string `json:"release"`  // e.g., "5.11", "6.1.0-18-amd64"
	Name     string `json:"name"`     // e.g., "Oracle Solaris 11.4", "Debian GNU/Linux 12"
	Hostname string `json:"hostname"`
}

// Detect gathers host information. gopsutil is tried first; uname and
// runtime.GOOS fill in whatever it could not provide.
func Detect(ctx context.Context, logger *zap.Logger) Info {
	if logger == nil {
		logger = zap.NewNop()
	}
	info := Info{}

	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		logger.Debug("Host info not available via gopsutil", zap.Error(err))
	}
	if hi != nil {
		info.OS = hi.OS
		info.Release = hi.KernelVersion
		info.Hostname = hi.Hostname
		if hi.Platform != "" {
			info.Name = strings.TrimSpace(hi.Platform + " " + hi.PlatformVersion)
		}
	}

	if info.OS == "" || info.Release == "" {
		sysname, release, err := uname()
		if err != nil {
			logger.Debug("uname failed", zap.Error(err))
		} else {
			if info.OS == "" {
				info.OS = sysname
			}
			if info.Release == "" {
				info.Release = release
			}
		}
	}
	if info.OS == "" {
		info.OS = runtime.GOOS
	}
	info.OS = strings.ToLower(info.OS)

	if info.Hostname == "" {
		info.Hostname, _ = os.Hostname()
	}
	if info.Name == "" && info.OS == "linux" {
		if data, err := os.ReadFile("/etc/os-release"); err == nil {
			fields := parseKeyValueFile(string(data))
			if pretty, ok := fields["PRETTY_NAME"]; ok {
				info.Name = strings.Trim(pretty, "\"")
			}
		}
	}
	return info
}

// Table selects the command table for the host. A non-empty override names
// the platform explicitly and skips detection.
func Table(info Info, override string) (*catalog.Table, error) {
	name := info.OS
	if override != "" {
		name = override
	}
	tbl, err := tables.ForOS(name)
	if err != nil {
		return nil, fmt.Errorf("selecting command table: %w", err)
	}
	return tbl, nil
}

// parseKeyValueFile parses a file with KEY=VALUE lines (like /etc/os-release).
func parseKeyValueFile(content string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			fields[parts[0]] = parts[1]
		}
	}
	return fields
}
