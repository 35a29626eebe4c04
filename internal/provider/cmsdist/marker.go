package cmsdist

import (
	"context"

	"github.com/open-edge-platform/cmsdist-provider/internal/config"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/logger"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/shell"
)

// repairMarker makes the PKG_<fullname> marker agree with whether the
// package's files are present. Nothing runs when they already agree.
func (c *CmsDist) repairMarker(ctx context.Context, s config.Settings, installed bool) error {
	marker := s.MarkerPath()
	present := fileExists(marker)
	log := logger.Logger()

	var cmd shell.Command
	switch {
	case installed && !present:
		log.Infof("%s is installed but has no marker, creating %s", s.Package.FullName(), marker)
		cmd = shell.Command{Name: "touch", Args: []string{marker}, User: s.User}
	case !installed && present:
		log.Infof("%s is not installed, removing stale marker %s", s.Package.FullName(), marker)
		cmd = shell.Command{Name: "rm", Args: []string{"-f", marker}, User: s.User}
	default:
		return nil
	}

	_, err := c.run(ctx, cmd)
	return c.secondary("marker repair", err)
}
