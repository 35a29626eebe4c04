package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"sync"

	"github.com/open-edge-platform/cmsdist-provider/internal/utils/logger"
)

// Command is one process invocation. Name and Args are passed to the
// process as an argument vector, never through a shell.
type Command struct {
	Name string
	Args []string
	// User runs the command through "sudo -u" when set and different
	// from the current user.
	User string
	// Env holds extra VAR=value pairs for the child.
	Env []string
}

// String renders the command for logs and mock matching. It does not
// include the sudo prefix or the environment.
func (c Command) String() string {
	return JoinArgs(append([]string{c.Name}, c.Args...))
}

// Result is what a finished process left behind.
type Result struct {
	Output   string
	ExitCode int
}

// Executor runs commands. Default is replaced by a mock in tests.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExitError reports a command that ran and exited nonzero, or could not
// be started (exit code 127).
type ExitError struct {
	Cmd      string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("failed to exec %s: exit status %d", e.Cmd, e.ExitCode)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Default is the executor used by package-level helpers.
var Default Executor = &ExecExecutor{}

var (
	currentUserOnce sync.Once
	currentUserName string
)

// CurrentUser returns the login name of the running process, or "" if it
// cannot be determined.
func CurrentUser() string {
	currentUserOnce.Do(func() {
		if u, err := user.Current(); err == nil {
			currentUserName = u.Username
		}
	})
	return currentUserName
}

// GetOSEnvirons returns the system environment variables
func GetOSEnvirons() map[string]string {
	environ := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			environ[parts[0]] = parts[1]
		}
	}
	return environ
}

// GetOSProxyEnvirons retrieves HTTP and HTTPS proxy environment variables
func GetOSProxyEnvirons() map[string]string {
	proxyEnv := make(map[string]string)
	for key, value := range GetOSEnvirons() {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "http_proxy") ||
			strings.Contains(lower, "https_proxy") ||
			lower == "no_proxy" {
			proxyEnv[key] = value
		}
	}
	return proxyEnv
}

// Argv prepares the full argument vector, adding the sudo prefix and
// forwarding proxy variables when the command switches identity.
func Argv(cmd Command) []string {
	if cmd.User == "" || cmd.User == CurrentUser() {
		return append([]string{cmd.Name}, cmd.Args...)
	}

	argv := []string{"sudo", "-u", cmd.User}
	for key, value := range GetOSProxyEnvirons() {
		argv = append(argv, key+"="+value)
	}
	argv = append(argv, cmd.Env...)
	argv = append(argv, cmd.Name)
	return append(argv, cmd.Args...)
}

// ExecExecutor runs commands on the local host with os/exec.
type ExecExecutor struct{}

// Run executes the command and returns its combined output and exit code.
func (ExecExecutor) Run(ctx context.Context, cmd Command) (Result, error) {
	log := logger.Logger()
	argv := Argv(cmd)
	if cmd.User != "" {
		log.Debugf("Exec as %s: [%s]", cmd.User, cmd.String())
	} else {
		log.Debugf("Exec: [%s]", cmd.String())
	}

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if len(cmd.Env) > 0 && argv[0] != "sudo" {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = &out

	err := c.Run()
	res := Result{Output: out.String()}
	if err == nil {
		if res.Output != "" {
			log.Debug(res.Output)
		}
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			// killed by a signal, usually the context
			res.ExitCode = 1
		}
	default:
		res.ExitCode = 127
	}
	if res.Output != "" {
		log.Info(res.Output)
	}
	return res, &ExitError{Cmd: cmd.String(), ExitCode: res.ExitCode, Output: res.Output, Err: err}
}

// Run executes cmd with the Default executor.
func Run(ctx context.Context, cmd Command) (Result, error) {
	return Default.Run(ctx, cmd)
}

// IsCommandExist checks if a command is reachable on PATH.
func IsCommandExist(ctx context.Context, name string) (bool, error) {
	res, err := Default.Run(ctx, Command{Name: "sh", Args: []string{"-c", `command -v "$1"`, "sh", name}})
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(res.Output) != "", nil
}

// JoinArgs quotes arguments that need it and joins them with spaces.
func JoinArgs(args []string) string {
	var builder strings.Builder
	for i, arg := range args {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(quote(arg))
	}
	return builder.String()
}

func quote(value string) string {
	if value == "" {
		return "''"
	}
	if !strings.ContainsAny(value, " \t\n'\"\\$`;&|<>()*?[]#~!{}") {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
