package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/open-edge-platform/cmsdist-provider/internal/config"
	"github.com/open-edge-platform/cmsdist-provider/internal/provider"
	"github.com/open-edge-platform/cmsdist-provider/internal/provider/cmsdist"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/logger"
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Global flags
var (
	configFile string
	logLevel   string
	verbose    bool
	progress   bool
)

// globalConfig is loaded by the logging hook before any subcommand runs.
var globalConfig *config.GlobalConfig

// newProvider returns the initialized package provider. Tests replace it.
var newProvider = func(cfg *config.GlobalConfig) (provider.Provider, error) {
	p, ok := provider.Get(cmsdist.ID)
	if !ok {
		return nil, fmt.Errorf("provider %q is not registered", cmsdist.ID)
	}
	if err := p.Init(cfg); err != nil {
		return nil, fmt.Errorf("initializing provider %s: %w", cmsdist.ID, err)
	}
	return p, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := createRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logger.Logger().Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	_ = logger.Logger().Sync()
	stop()
	os.Exit(exitCodeFor(err))
}

func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cmsdist-provider",
		Short: "Package provider for the CMS software distribution",
		Long: `cmsdist-provider installs, removes and queries cmsdist packages
(group+package+version[/arch]) inside a bootstrapped apt-rpm area.
It is executed by the orchestration engine once per operation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Provider configuration file (default $"+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&progress, "progress", false,
		"Show download progress bars")

	rootCmd.AddCommand(createInstallCommand())
	rootCmd.AddCommand(createUninstallCommand())
	rootCmd.AddCommand(createQueryCommand())
	rootCmd.AddCommand(createInstancesCommand())
	rootCmd.AddCommand(createFeaturesCommand())
	rootCmd.AddCommand(createCheckCommand())
	rootCmd.AddCommand(createVersionCommand())

	attachLoggingHooks(rootCmd)
	return rootCmd
}

// attachLoggingHooks gives every subcommand the hook that loads the
// configuration and sets up the global logger.
func attachLoggingHooks(root *cobra.Command) {
	for _, cmd := range root.Commands() {
		cmd.PersistentPreRunE = initRuntime
	}
}

func initRuntime(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadGlobalConfig(config.ResolvePath(configFile))
	if err != nil {
		return err
	}
	if level := resolveRequestedLogLevel(cmd); level != "" {
		cfg.Logging.Level = level
	}
	if progress {
		cfg.Download.Progress = true
	}

	helpers := config.NewConfigHelpers(cfg)
	z, err := logger.New(logger.Config{Level: helpers.LogLevel(), File: cfg.Logging.File})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	logger.Init(z.With("run", uuid.NewString()))
	logger.Logger().Debugf("cmsdist-provider %s: %s", version, cmd.CommandPath())

	globalConfig = cfg
	return nil
}

// resolveRequestedLogLevel returns the level asked for on the command line,
// or "" to keep the configured one.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd != nil {
		if f := cmd.Flags().Lookup("verbose"); f != nil && f.Changed && f.Value.String() == "true" {
			return "debug"
		}
	}
	return ""
}

// exitCodeFor maps an error to the process exit status. Package manager
// failures keep their own exit status.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var installErr *cmsdist.InstallError
	if errors.As(err, &installErr) && installErr.ExitCode > 0 {
		return installErr.ExitCode
	}
	var uninstallErr *cmsdist.UninstallError
	if errors.As(err, &uninstallErr) && uninstallErr.ExitCode > 0 {
		return uninstallErr.ExitCode
	}
	return 1
}
