//go:build !linux && !solaris

package autostart

type unsupported struct{}

// New returns a Manager whose operations fail with ErrUnsupported.
func New() Manager { return unsupported{} }

func (unsupported) ServiceName() string        { return serviceName }
func (unsupported) IsInstalled() (bool, error) { return false, ErrUnsupported }
func (unsupported) Install(_, _ string) error  { return ErrUnsupported }
func (unsupported) Uninstall() error           { return ErrUnsupported }
