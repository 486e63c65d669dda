package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Guliveer/unixstat-agent/internal/autostart"
	"github.com/Guliveer/unixstat-agent/internal/config"
)

func newInstallCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Register the agent with the host's service manager",
		Long: "Register the agent with the host's service manager.\n\n" +
			"When no configuration file exists, the resolved configuration (including\n" +
			"--url and --token) is written to " + config.SystemPath() + " first.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolving executable: %w", err)
			}

			configPath := flags.configPath
			if configPath == "" {
				configPath = config.Locate()
			}
			return installAgent(cmd.OutOrStdout(), autostart.New(), resolveExecutable(exe), cfg, configPath, config.SystemPath())
		},
	}
}

// resolveExecutable follows symlinks so the service points at the real
// binary. The unresolved path is kept when resolution fails.
func resolveExecutable(exe string) string {
	if resolved, err := filepath.EvalSymlinks(exe); err == nil && resolved != "" {
		return resolved
	}
	return exe
}

// installAgent registers exe with mgr. An empty configPath means no config
// file exists yet; cfg is then written to defaultPath and used.
func installAgent(w io.Writer, mgr autostart.Manager, exe string, cfg *config.Config, configPath, defaultPath string) error {
	if installed, err := mgr.IsInstalled(); err == nil && installed {
		fmt.Fprintf(w, "%s is already installed\n", mgr.ServiceName())
		return nil
	}

	if configPath == "" {
		if err := config.WriteConfig(cfg, defaultPath); err != nil {
			return fmt.Errorf("writing configuration: %w", err)
		}
		fmt.Fprintf(w, "wrote %s\n", defaultPath)
		configPath = defaultPath
	}
	configPath, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}

	if err := mgr.Install(exe, configPath); err != nil {
		return err
	}
	fmt.Fprintf(w, "installed %s\n", mgr.ServiceName())
	return nil
}

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the agent from the host's service manager",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := autostart.New()
			if err := mgr.Uninstall(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", mgr.ServiceName())
			return nil
		},
	}
}
