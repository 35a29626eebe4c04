package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/open-edge-platform/cmsdist-provider/internal/provider"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Resource selection flags
var (
	resourceFile string
	resourceName string
	options      []string
	outFormat    = formatValue("json")
)

// formatValue is the --format flag. Only json and text are accepted.
type formatValue string

var _ pflag.Value = (*formatValue)(nil)

func (f *formatValue) String() string { return string(*f) }

func (f *formatValue) Set(s string) error {
	switch v := strings.ToLower(s); v {
	case "json", "text":
		*f = formatValue(v)
		return nil
	default:
		return fmt.Errorf("invalid format %q (expected json|text)", s)
	}
}

func (f *formatValue) Type() string { return "format" }

func addResourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&resourceFile, "resource", "",
		"Resource descriptor file (JSON or YAML), '-' for stdin")
	cmd.Flags().StringVar(&resourceName, "name", "",
		"Package name: group+package+version[/arch]")
	cmd.Flags().StringArrayVar(&options, "option", nil,
		"Install option as key=value (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("resource", "name")
	cmd.MarkFlagsOneRequired("resource", "name")
}

func addFormatFlag(cmd *cobra.Command) {
	outFormat = "json"
	cmd.Flags().Var(&outFormat, "format", "Output format: json or text")
}

// loadResource builds the resource descriptor from --resource or --name.
func loadResource(cmd *cobra.Command) (provider.Resource, error) {
	if resourceFile == "" {
		return provider.NewResource(resourceName, options)
	}
	if len(options) > 0 {
		return provider.Resource{}, fmt.Errorf("--option cannot be combined with --resource")
	}
	if resourceFile == "-" {
		return provider.ReadResource(cmd.InOrStdin())
	}
	data, err := os.ReadFile(resourceFile)
	if err != nil {
		return provider.Resource{}, fmt.Errorf("reading resource file: %w", err)
	}
	return provider.ParseResource(data)
}

func createInstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [flags]",
		Short: "Installs a cmsdist package, bootstrapping the area if needed",
		Args:  cobra.NoArgs,
		RunE:  executeInstall,
	}
	addResourceFlags(cmd)
	return cmd
}

func executeInstall(cmd *cobra.Command, _ []string) error {
	res, err := loadResource(cmd)
	if err != nil {
		return err
	}
	p, err := newProvider(globalConfig)
	if err != nil {
		return err
	}
	logger.Logger().Infof("Install requested for %s", res.Name)
	code, err := p.Install(cmd.Context(), res)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", code)
	return nil
}

func createUninstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall [flags]",
		Short: "Removes a cmsdist package and purges its metadata",
		Args:  cobra.NoArgs,
		RunE:  executeUninstall,
	}
	addResourceFlags(cmd)
	return cmd
}

func executeUninstall(cmd *cobra.Command, _ []string) error {
	res, err := loadResource(cmd)
	if err != nil {
		return err
	}
	p, err := newProvider(globalConfig)
	if err != nil {
		return err
	}
	logger.Logger().Infof("Uninstall requested for %s", res.Name)
	code, err := p.Uninstall(cmd.Context(), res)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", code)
	return nil
}

func createQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [flags]",
		Short: "Reports whether a cmsdist package is installed",
		Long: `Query reports whether a package is installed. The area is
bootstrapped if needed and the package marker is repaired to match the
installed files.`,
		Args: cobra.NoArgs,
		RunE: executeQuery,
	}
	addResourceFlags(cmd)
	addFormatFlag(cmd)
	return cmd
}

func executeQuery(cmd *cobra.Command, _ []string) error {
	res, err := loadResource(cmd)
	if err != nil {
		return err
	}
	p, err := newProvider(globalConfig)
	if err != nil {
		return err
	}
	status, err := p.Query(cmd.Context(), res)
	if err != nil {
		return err
	}

	if outFormat == "text" {
		if status == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "absent")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "installed %s\n", status.Ensure)
		}
		return nil
	}
	return writeJSON(cmd, status)
}

func createInstancesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "instances",
		Short: "Lists installed packages (not supported, always empty)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newProvider(globalConfig)
			if err != nil {
				return err
			}
			instances, err := p.Instances(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, instances)
		},
	}
}

func createFeaturesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Lists the features the provider declares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newProvider(globalConfig)
			if err != nil {
				return err
			}
			return writeJSON(cmd, provider.FeatureNames(p.Features()))
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
