package cmsdist

import (
	"context"

	"github.com/open-edge-platform/cmsdist-provider/internal/config"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/logger"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/shell"
)

// $1 is the init script. Only the exit status is used.
const bootstrapCheckScript = `source "$1" >/dev/null 2>&1; command -v apt-get >/dev/null 2>&1`

// isBootstrapped reports whether apt-get is reachable after sourcing the
// area's init script.
func (c *CmsDist) isBootstrapped(ctx context.Context, s config.Settings) bool {
	logger.Logger().Debugf("Checking if %s bootstrapped in %s.", s.Architecture, s.Prefix)
	initScript, ok := findInitScript(s)
	if !ok {
		return false
	}
	_, err := c.run(ctx, shell.Command{
		Name: "bash",
		Args: []string{"-c", bootstrapCheckScript, scriptName, initScript},
	})
	return err == nil
}

// bootstrap prepares the area for the architecture. An area that is
// already bootstrapped only gets its package database ownership repaired.
func (c *CmsDist) bootstrap(ctx context.Context, s config.Settings) error {
	log := logger.Logger()

	if c.isBootstrapped(ctx, s) {
		_, err := c.run(ctx, shell.Command{Name: "chown", Args: []string{"-R", s.User, s.RPMDBDir()}})
		log.Debugf("Bootstrap previously done.")
		return c.secondary("ownership repair of "+s.RPMDBDir(), err)
	}

	log.Debugf("Creating %s and assigning it to %s", s.Prefix, s.User)
	for _, cmd := range []shell.Command{
		{Name: "mkdir", Args: []string{"-p", s.Prefix}},
		{Name: "chown", Args: []string{s.User, s.Prefix}},
	} {
		if _, err := c.run(ctx, cmd); err != nil {
			log.Warnf("Unable to create / find installation area. Please check your install_options.")
			return &BootstrapOwnershipError{Prefix: s.Prefix, User: s.User, Err: err}
		}
	}

	script := s.BootstrapScriptPath()
	url := s.BootstrapURL()
	log.Debugf("Fetching bootstrap from %s (%s)", s.Repository, url)
	if err := c.download().FetchVerified(ctx, url, script, 0755); err != nil {
		return &BootstrapError{Stage: "download", Err: err}
	}

	log.Infof("Installing CMS bootstrap for %s in %s", s.Architecture, s.Prefix)
	res, err := c.run(ctx, shell.Command{
		Name: "sh",
		Args: []string{"-x", script, "setup",
			"-path", s.Prefix,
			"-arch", s.Architecture,
			"-server", s.Server,
			"-server-path", s.ServerPath,
			"-assume-yes"},
		User: s.User,
	})
	if err != nil {
		return &BootstrapError{Stage: "setup", Output: res.Output, Err: err}
	}
	log.Debugf("Bootstrap completed")
	return nil
}
