// Package autostart installs the agent under the host's service manager:
// SMF on Solaris and illumos, systemd on Linux.
package autostart

import (
	"errors"
	"strings"
)

const (
	serviceName = "unixstat-agent"

	// dataDir is the service's working directory, so relative paths in the
	// config (such as buffer.db_path) land somewhere writable.
	dataDir = "/var/lib/unixstat"
)

// ErrUnsupported is returned on hosts without a supported service manager.
var ErrUnsupported = errors.New("autostart: no supported service manager on this platform")

// Manager provides platform-specific autostart installation.
type Manager interface {
	IsInstalled() (bool, error)
	Install(execPath, configPath string) error
	Uninstall() error
	ServiceName() string
}

// systemdUnit is the unit file written on Linux.
const systemdUnit = `[Unit]
Description=UnixStat Agent
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
WorkingDirectory={dataDir}
ExecStart={execPath} run --config {configPath}
Restart=always
RestartSec=10
StandardOutput=journal
StandardError=journal
SyslogIdentifier=unixstat-agent

NoNewPrivileges=true
ProtectSystem=strict
ProtectHome=true
ReadWritePaths={dataDir}
PrivateTmp=true

[Install]
WantedBy=multi-user.target
`

// smfManifest is the service bundle imported with svccfg on Solaris.
const smfManifest = `<?xml version="1.0"?>
<!DOCTYPE service_bundle SYSTEM "/usr/share/lib/xml/dtd/service_bundle.dtd.1">
<service_bundle type="manifest" name="unixstat-agent">
  <service name="site/unixstat-agent" type="service" version="1">
    <create_default_instance enabled="false"/>
    <single_instance/>
    <dependency name="network" grouping="require_all" restart_on="none" type="service">
      <service_fmri value="svc:/milestone/network:default"/>
    </dependency>
    <dependency name="filesystem" grouping="require_all" restart_on="none" type="service">
      <service_fmri value="svc:/system/filesystem/local"/>
    </dependency>
    <method_context working_directory="{dataDir}"/>
    <exec_method type="method" name="start" exec="{execPath} run --config {configPath} &amp;" timeout_seconds="60"/>
    <exec_method type="method" name="stop" exec=":kill" timeout_seconds="60"/>
    <property_group name="startd" type="framework">
      <propval name="duration" type="astring" value="contract"/>
    </property_group>
    <stability value="Unstable"/>
    <template>
      <common_name>
        <loctext xml:lang="C">UnixStat Agent</loctext>
      </common_name>
    </template>
  </service>
</service_bundle>
`

// render substitutes the binary and config paths into a service template.
func render(template, execPath, configPath string) string {
	return strings.NewReplacer(
		"{execPath}", execPath,
		"{configPath}", configPath,
		"{dataDir}", dataDir,
	).Replace(template)
}
