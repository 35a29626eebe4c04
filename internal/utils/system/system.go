package system

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/open-edge-platform/cmsdist-provider/internal/utils/logger"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/shell"
)

var (
	OsReleaseFile = "/etc/os-release"

	// LookupUser resolves the install user. Replaced in tests.
	LookupUser = user.Lookup
)

// RequiredCommands are the host tools the provider invokes directly.
var RequiredCommands = []string{"sudo", "bash", "sh", "perl", "mkdir", "chown", "touch", "rm", "install"}

func GetHostOsInfo(ctx context.Context) (map[string]string, error) {
	log := logger.Logger()
	var hostOsInfo = map[string]string{
		"name":    "",
		"version": "",
		"arch":    "",
	}

	// Get architecture using uname command
	res, err := shell.Run(ctx, shell.Command{Name: "uname", Args: []string{"-m"}})
	if err != nil {
		log.Errorf("Failed to get host architecture: %v", err)
		return hostOsInfo, fmt.Errorf("failed to get host architecture: %w", err)
	}
	hostOsInfo["arch"] = strings.TrimSpace(res.Output)

	if file, err := os.Open(OsReleaseFile); err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			key, value, ok := strings.Cut(scanner.Text(), "=")
			if !ok {
				continue
			}
			value = strings.Trim(strings.TrimSpace(value), "\"")
			switch key {
			case "NAME":
				hostOsInfo["name"] = value
			case "VERSION_ID":
				hostOsInfo["version"] = value
			}
		}
		log.Debugf("Detected OS info: %s %s %s", hostOsInfo["name"], hostOsInfo["version"], hostOsInfo["arch"])
		return hostOsInfo, nil
	}

	res, err = shell.Run(ctx, shell.Command{Name: "lsb_release", Args: []string{"-si"}})
	if err != nil {
		log.Errorf("Failed to get host OS name: %v", err)
		return hostOsInfo, fmt.Errorf("failed to get host OS name: %w", err)
	}
	hostOsInfo["name"] = strings.TrimSpace(res.Output)

	res, err = shell.Run(ctx, shell.Command{Name: "lsb_release", Args: []string{"-sr"}})
	if err != nil {
		log.Errorf("Failed to get host OS version: %v", err)
		return hostOsInfo, fmt.Errorf("failed to get host OS version: %w", err)
	}
	hostOsInfo["version"] = strings.TrimSpace(res.Output)
	if hostOsInfo["name"] == "" {
		log.Errorf("Failed to detect host OS info!")
		return hostOsInfo, fmt.Errorf("failed to detect host OS info")
	}
	log.Debugf("Detected OS info: %s %s %s", hostOsInfo["name"], hostOsInfo["version"], hostOsInfo["arch"])
	return hostOsInfo, nil
}

// Check is the outcome of one prerequisite check.
type Check struct {
	Name string
	OK   bool
	// Detail explains a failed check.
	Detail string
}

// CheckPrerequisites verifies that every required command is on PATH and
// that installUser exists. It returns all checks, and an error naming the
// failed ones.
func CheckPrerequisites(ctx context.Context, installUser string) ([]Check, error) {
	log := logger.Logger()
	var checks []Check
	var failed []string

	for _, cmd := range RequiredCommands {
		found, err := shell.IsCommandExist(ctx, cmd)
		c := Check{Name: "command " + cmd, OK: found && err == nil}
		switch {
		case err != nil:
			c.Detail = err.Error()
		case !found:
			c.Detail = "not found on PATH"
		}
		checks = append(checks, c)
	}

	c := Check{Name: "user " + installUser}
	if installUser == "" {
		c.Detail = "no install user configured"
	} else if _, err := LookupUser(installUser); err != nil {
		c.Detail = err.Error()
	} else {
		c.OK = true
	}
	checks = append(checks, c)

	for _, c := range checks {
		if !c.OK {
			log.Warnf("Prerequisite %s failed: %s", c.Name, c.Detail)
			failed = append(failed, c.Name)
		}
	}
	if len(failed) > 0 {
		return checks, fmt.Errorf("missing prerequisites: %s", strings.Join(failed, ", "))
	}
	return checks, nil
}
