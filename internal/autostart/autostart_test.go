package autostart

import (
	"strings"
	"testing"
)

func TestRender_Systemd(t *testing.T) {
	got := render(systemdUnit, "/opt/unixstat/bin/agent", "/etc/unixstat/agent.yaml")
	want := "ExecStart=/opt/unixstat/bin/agent run --config /etc/unixstat/agent.yaml"
	if !strings.Contains(got, want) {
		t.Errorf("unit missing %q:\n%s", want, got)
	}
	for _, want := range []string{"WorkingDirectory=/var/lib/unixstat", "ReadWritePaths=/var/lib/unixstat"} {
		if !strings.Contains(got, want) {
			t.Errorf("unit missing %q", want)
		}
	}
	if strings.Contains(got, "{") {
		t.Errorf("unit has unreplaced placeholders:\n%s", got)
	}
}

func TestRender_SMF(t *testing.T) {
	got := render(smfManifest, "/opt/unixstat/bin/agent", "/etc/unixstat/agent.yaml")
	want := `exec="/opt/unixstat/bin/agent run --config /etc/unixstat/agent.yaml &amp;"`
	if !strings.Contains(got, want) {
		t.Errorf("manifest missing %q:\n%s", want, got)
	}
	if !strings.Contains(got, `<method_context working_directory="/var/lib/unixstat"/>`) {
		t.Errorf("manifest has no working directory")
	}
	if strings.Contains(got, "{execPath}") || strings.Contains(got, "{configPath}") || strings.Contains(got, "{dataDir}") {
		t.Errorf("manifest has unreplaced placeholders")
	}
}

func TestNew_ServiceName(t *testing.T) {
	if name := New().ServiceName(); !strings.Contains(name, serviceName) {
		t.Errorf("ServiceName() = %q, want it to contain %q", name, serviceName)
	}
}
