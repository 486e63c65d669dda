//go:build solaris

package autostart

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const (
	manifestPath = "/var/svc/manifest/site/unixstat-agent.xml"
	serviceFMRI  = "svc:/site/unixstat-agent:default"
)

// smfManager implements Manager using the Service Management Facility.
type smfManager struct{}

// New returns a Manager that uses SMF for service management.
func New() Manager {
	return &smfManager{}
}

// ServiceName returns the SMF instance FMRI.
func (m *smfManager) ServiceName() string { return serviceFMRI }

// IsInstalled checks whether the service manifest exists.
func (m *smfManager) IsInstalled() (bool, error) {
	_, err := os.Stat(manifestPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking manifest: %w", err)
	}
	return true, nil
}

// Install writes the manifest, imports it and enables the default instance.
func (m *smfManager) Install(execPath, configPath string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	manifest := render(smfManifest, execPath, configPath)
	if err := os.WriteFile(manifestPath, []byte(manifest), 0444); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	commands := [][]string{
		{"/usr/sbin/svccfg", "import", manifestPath},
		{"/usr/sbin/svcadm", "enable", serviceFMRI},
	}
	for _, args := range commands {
		if err := exec.Command(args[0], args[1:]...).Run(); err != nil {
			return fmt.Errorf("running %s: %w", strings.Join(args, " "), err)
		}
	}
	return nil
}

// Uninstall disables the instance, deletes the service and removes the manifest.
func (m *smfManager) Uninstall() error {
	_ = exec.Command("/usr/sbin/svcadm", "disable", "-s", serviceFMRI).Run()
	_ = exec.Command("/usr/sbin/svccfg", "delete", "site/"+serviceName).Run()

	if err := os.Remove(manifestPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing manifest: %w", err)
	}
	return nil
}
