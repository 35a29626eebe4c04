package cmsdist

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotBootstrapped is returned when an operation needs the package
// manager but the area has no init script.
var ErrNotBootstrapped = errors.New("cmsdist area is not bootstrapped")

// BootstrapOwnershipError means the installation prefix could not be
// created or handed over to the install user.
type BootstrapOwnershipError struct {
	Prefix string
	User   string
	Err    error
}

func (e *BootstrapOwnershipError) Error() string {
	return fmt.Sprintf("unable to create or find installation area %s for user %s: %v", e.Prefix, e.User, e.Err)
}

func (e *BootstrapOwnershipError) Unwrap() error { return e.Err }

// BootstrapError is a failed download or run of bootstrap.sh.
type BootstrapError struct {
	Stage  string
	Output string
	Err    error
}

func (e *BootstrapError) Error() string {
	msg := fmt.Sprintf("bootstrap %s failed: %v", e.Stage, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// InstallError is a nonzero exit of the install run.
type InstallError struct {
	Package  string
	ExitCode int
	Output   string
	Err      error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("could not install package %s (exit status %d). %s", e.Package, e.ExitCode, strings.TrimSpace(e.Output))
}

func (e *InstallError) Unwrap() error { return e.Err }

// UninstallError is a nonzero exit of the uninstall run.
type UninstallError struct {
	Package  string
	ExitCode int
	Output   string
	Err      error
}

func (e *UninstallError) Error() string {
	return fmt.Sprintf("could not remove package %s (exit status %d). %s", e.Package, e.ExitCode, strings.TrimSpace(e.Output))
}

func (e *UninstallError) Unwrap() error { return e.Err }

// StepError is a secondary step that failed while running in strict mode.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
