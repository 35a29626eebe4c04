package cmsdist

import (
	"context"
	"fmt"
	"os"

	"github.com/open-edge-platform/cmsdist-provider/internal/config"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/logger"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/shell"
)

// ensureCleanupScript makes sure the cleanup script sits in the area's
// .cmsdistrc directory. A script already present is never fetched again.
func (c *CmsDist) ensureCleanupScript(ctx context.Context, s config.Settings) error {
	dest := s.CleanupScriptPath()
	if fileExists(dest) {
		return nil
	}
	return c.secondary("cleanup script "+s.CleanupScript, c.fetchCleanupScript(ctx, s, dest))
}

func (c *CmsDist) fetchCleanupScript(ctx context.Context, s config.Settings, dest string) error {
	log := logger.Logger()

	if _, err := c.run(ctx, shell.Command{Name: "mkdir", Args: []string{"-p", s.RCDir()}, User: s.User}); err != nil {
		return fmt.Errorf("creating %s: %w", s.RCDir(), err)
	}

	tmp, err := os.CreateTemp("", "cmsdist-cleanup-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	url := s.CleanupScriptURL()
	if err := c.download().Fetch(ctx, url, tmpPath, 0644); err != nil {
		return err
	}
	if _, err := c.run(ctx, shell.Command{Name: "install", Args: []string{"-m", "0644", tmpPath, dest}, User: s.User}); err != nil {
		return fmt.Errorf("placing %s: %w", dest, err)
	}
	log.Debugf("Downloaded %s", url)
	return nil
}
