//go:build linux

package autostart

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const unitPath = "/etc/systemd/system/unixstat-agent.service"

// linuxManager implements Manager for Linux using systemd.
type linuxManager struct{}

// New returns a Manager that uses systemd for service management.
func New() Manager {
	return &linuxManager{}
}

// ServiceName returns the systemd service name.
func (l *linuxManager) ServiceName() string { return serviceName }

// IsInstalled checks whether the systemd unit file exists.
func (l *linuxManager) IsInstalled() (bool, error) {
	_, err := os.Stat(unitPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking unit file: %w", err)
	}
	return true, nil
}

// Install writes the systemd unit file, reloads the daemon, enables and starts the service.
func (l *linuxManager) Install(execPath, configPath string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	unit := render(systemdUnit, execPath, configPath)
	if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}

	commands := [][]string{
		{"systemctl", "daemon-reload"},
		{"systemctl", "enable", serviceName},
		{"systemctl", "start", serviceName},
	}
	return runAll(commands)
}

// Uninstall stops, disables, and removes the systemd service.
func (l *linuxManager) Uninstall() error {
	// Best-effort stop and disable; the service may already be inactive.
	_ = exec.Command("systemctl", "stop", serviceName).Run()
	_ = exec.Command("systemctl", "disable", serviceName).Run()

	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unit file: %w", err)
	}

	_ = exec.Command("systemctl", "daemon-reload").Run()
	return nil
}

func runAll(commands [][]string) error {
	for _, args := range commands {
		if err := exec.Command(args[0], args[1:]...).Run(); err != nil {
			return fmt.Errorf("running %s: %w", strings.Join(args, " "), err)
		}
	}
	return nil
}
