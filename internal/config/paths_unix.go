//go:build !windows

package config

import (
	"os"
	"path/filepath"
)

const systemConfigPath = "/etc/unixstat/agent.yaml"

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".unixstat", "agent.yaml"),
		systemConfigPath,
	}
}

// SystemPath returns where a service installation keeps its config file.
func SystemPath() string { return systemConfigPath }
