package cmsdist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/open-edge-platform/cmsdist-provider/internal/config"
	"github.com/open-edge-platform/cmsdist-provider/internal/provider"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/logger"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/network"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/shell"
)

const (
	// ID is the name the provider registers under.
	ID = "cmsdist"

	// VersionTag is reported for every installed package. Only presence is
	// tracked.
	VersionTag = "1.0"

	// $0 of every bash -c invocation.
	scriptName = "cmsdist"
)

// Positional parameters: $1 init script, $2 package, $3 marker.
const installScript = `source "$1" 2>&1; apt-get update; apt-get install -y "$2" 2>&1 && touch "$3" && apt-get clean -y`

// Positional parameters: $1 init script, $2 package, $3 marker, $4 cleanup script.
const uninstallScript = `source "$1" 2>&1; apt-get update; apt-get remove -y "$2" 2>&1; rm -f "$3"; perl "$4"`

// Fetcher downloads the bootstrap and cleanup scripts.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string, mode os.FileMode) error
	FetchVerified(ctx context.Context, url, dest string, mode os.FileMode) error
}

// Options configures a CmsDist provider.
type Options struct {
	// Executor runs commands. nil means shell.Default.
	Executor shell.Executor
	Fetcher  Fetcher
	Defaults config.Defaults
	Scheme   string
	Strict   bool
}

// CmsDist installs and removes cmsdist packages through apt-get inside a
// bootstrapped area.
type CmsDist struct {
	executor shell.Executor
	fetcher  Fetcher
	defaults config.Defaults
	scheme   string
	strict   bool
}

func init() {
	provider.Register(&CmsDist{})
}

// New returns a provider configured from opts.
func New(opts Options) *CmsDist {
	return &CmsDist{
		executor: opts.Executor,
		fetcher:  opts.Fetcher,
		defaults: opts.Defaults,
		scheme:   opts.Scheme,
		strict:   opts.Strict,
	}
}

// Name returns the provider ID.
func (c *CmsDist) Name() string {
	return ID
}

// Init configures the provider from the global configuration.
func (c *CmsDist) Init(cfg *config.GlobalConfig) error {
	helpers := config.NewConfigHelpers(cfg)
	cfg = helpers.GetConfig()

	opts := network.Options{
		Client:   network.NewHTTPClient(cfg.Download.Insecure, helpers.DownloadTimeout()),
		Attempts: helpers.RetryAttempts(),
		Delay:    helpers.RetryDelay(),
		Progress: cfg.Download.Progress,
	}
	if cfg.Download.Keyring != "" {
		keyring, err := network.LoadKeyring(cfg.Download.Keyring)
		if err != nil {
			return fmt.Errorf("failed to load download keyring: %w", err)
		}
		opts.Keyring = keyring
	}
	if cfg.Download.Insecure {
		logger.Logger().Warnf("TLS certificate verification is disabled for downloads")
	}

	c.fetcher = network.NewDownloader(opts)
	c.defaults = helpers.EffectiveDefaults()
	c.scheme = cfg.Download.Scheme
	c.strict = helpers.Strict()
	return nil
}

// Features returns the capabilities of the provider.
func (c *CmsDist) Features() []provider.Feature {
	return []provider.Feature{
		provider.FeatureUnversionable,
		provider.FeaturePackageSettings,
		provider.FeatureInstallOptions,
	}
}

// Install bootstraps the area if needed and installs the package.
func (c *CmsDist) Install(ctx context.Context, res provider.Resource) (int, error) {
	s, err := c.settings(res)
	if err != nil {
		return 1, err
	}
	log := logger.Logger()

	if err := c.bootstrap(ctx, s); err != nil {
		return 1, err
	}
	if err := c.ensureCleanupScript(ctx, s); err != nil {
		return 1, err
	}
	initScript, ok := findInitScript(s)
	if !ok {
		return 1, ErrNotBootstrapped
	}

	fullname := s.Package.FullName()
	log.Infof("Installing %s into %s as %s", fullname, s.AreaDir(), s.User)
	out, err := c.run(ctx, shell.Command{
		Name: "bash",
		Args: []string{"-c", installScript, scriptName, initScript, fullname, s.MarkerPath()},
		User: s.User,
	})
	if err != nil {
		code := exitCode(out, err)
		log.Errorf("Installing %s failed with exit status %d", fullname, code)
		return code, &InstallError{Package: fullname, ExitCode: code, Output: out.Output, Err: err}
	}
	log.Infof("Installed %s", fullname)
	return 0, nil
}

// Uninstall removes the package and purges leftover metadata with the
// cleanup script. It never bootstraps.
func (c *CmsDist) Uninstall(ctx context.Context, res provider.Resource) (int, error) {
	s, err := c.settings(res)
	if err != nil {
		return 1, err
	}
	log := logger.Logger()

	initScript, ok := findInitScript(s)
	if !ok {
		return 1, fmt.Errorf("removing %s from %s: %w", s.Package.FullName(), s.AreaDir(), ErrNotBootstrapped)
	}
	if err := c.ensureCleanupScript(ctx, s); err != nil {
		return 1, err
	}

	fullname := s.Package.FullName()
	log.Infof("Removing %s from %s as %s", fullname, s.AreaDir(), s.User)
	out, err := c.run(ctx, shell.Command{
		Name: "bash",
		Args: []string{"-c", uninstallScript, scriptName, initScript, fullname, s.MarkerPath(), s.CleanupScriptPath()},
		User: s.User,
	})
	if err != nil {
		code := exitCode(out, err)
		log.Errorf("Removing %s failed with exit status %d", fullname, code)
		return code, &UninstallError{Package: fullname, ExitCode: code, Output: out.Output, Err: err}
	}
	log.Infof("Removed %s", fullname)
	return 0, nil
}

// Query reports whether the package is installed, repairing the marker
// file so that it agrees with the package's files.
func (c *CmsDist) Query(ctx context.Context, res provider.Resource) (*provider.Status, error) {
	s, err := c.settings(res)
	if err != nil {
		return nil, err
	}
	log := logger.Logger()
	log.Debugf("query invoked with %s %s %s", s.Prefix, s.Architecture, s.User)

	if err := c.bootstrap(ctx, s); err != nil {
		return nil, err
	}
	if err := c.ensureCleanupScript(ctx, s); err != nil {
		return nil, err
	}

	installed := fileExists(s.GroundTruthPath())
	if err := c.repairMarker(ctx, s, installed); err != nil {
		return nil, err
	}
	if !installed {
		log.Debugf("%s is not installed", s.Package.FullName())
		return nil, nil
	}
	return &provider.Status{Ensure: VersionTag, Name: res.Name}, nil
}

// Instances is not supported and always returns an empty list.
func (c *CmsDist) Instances(ctx context.Context) ([]provider.Status, error) {
	return []provider.Status{}, nil
}

func (c *CmsDist) settings(res provider.Resource) (config.Settings, error) {
	defaults := c.defaults
	if defaults == (config.Defaults{}) {
		defaults = config.BuiltinDefaults(os.Getenv)
	}
	s, err := res.Settings(defaults, c.scheme)
	if err != nil {
		return config.Settings{}, fmt.Errorf("resource %q: %w", res.Name, err)
	}
	return s, nil
}

func (c *CmsDist) run(ctx context.Context, cmd shell.Command) (shell.Result, error) {
	executor := c.executor
	if executor == nil {
		executor = shell.Default
	}
	return executor.Run(ctx, cmd)
}

func (c *CmsDist) download() Fetcher {
	if c.fetcher == nil {
		c.fetcher = network.NewDownloader(network.Options{})
	}
	return c.fetcher
}

// secondary applies the strict policy to the error of a step whose failure
// does not by itself decide the outcome of the operation.
func (c *CmsDist) secondary(step string, err error) error {
	if err == nil {
		return nil
	}
	if c.strict {
		return &StepError{Step: step, Err: err}
	}
	logger.Logger().Warnf("%s failed, continuing: %v", step, err)
	return nil
}

// findInitScript returns the first init script of the area in lexical
// order.
func findInitScript(s config.Settings) (string, bool) {
	matches, err := filepath.Glob(s.InitScriptGlob())
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func exitCode(res shell.Result, err error) int {
	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode != 0 {
		return exitErr.ExitCode
	}
	if res.ExitCode != 0 {
		return res.ExitCode
	}
	return 1
}
