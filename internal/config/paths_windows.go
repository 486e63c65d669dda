//go:build windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	return []string{SystemPath()}
}

// SystemPath returns where a service installation keeps its config file.
func SystemPath() string {
	return filepath.Join(os.Getenv("ProgramData"), "unixstat", "agent.yaml")
}
