package config

import (
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/cmsdist-provider/internal/ospackage"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/logger"
)

// Built-in defaults.
const (
	DefaultPrefix        = "/opt/cms"
	DefaultArchitecture  = "slc6_amd64_gcc481"
	DefaultUser          = "cmsbuild"
	DefaultRepository    = "cms"
	DefaultServer        = "cmsrep.cern.ch"
	DefaultServerPath    = "cmssw/cms"
	DefaultCleanupScript = "cmsrpm_cleanup_v2.pl"

	// EnvBoxenHome moves the default prefix under a boxen homebrew tree.
	EnvBoxenHome = "BOXEN_HOME"
)

// Defaults is the set of values used when a resource supplies no override.
type Defaults struct {
	InstallPrefix string `yaml:"install_prefix"`
	Architecture  string `yaml:"architecture"`
	InstallUser   string `yaml:"install_user"`
	Repository    string `yaml:"repository"`
	Server        string `yaml:"server"`
	ServerPath    string `yaml:"server_path"`
	CleanupScript string `yaml:"cmsrep_script"`
}

// BuiltinDefaults returns the hardcoded defaults. getenv is consulted for
// BOXEN_HOME.
func BuiltinDefaults(getenv func(string) string) Defaults {
	prefix := DefaultPrefix
	if getenv != nil {
		if boxen := strings.TrimSpace(getenv(EnvBoxenHome)); boxen != "" {
			prefix = filepath.Join(boxen, "homebrew")
		}
	}
	return Defaults{
		InstallPrefix: prefix,
		Architecture:  DefaultArchitecture,
		InstallUser:   DefaultUser,
		Repository:    DefaultRepository,
		Server:        DefaultServer,
		ServerPath:    DefaultServerPath,
		CleanupScript: DefaultCleanupScript,
	}
}

// Merge returns d with every non-empty field of other applied on top.
func (d Defaults) Merge(other Defaults) Defaults {
	pick := func(base, over string) string {
		if strings.TrimSpace(over) != "" {
			return over
		}
		return base
	}
	return Defaults{
		InstallPrefix: pick(d.InstallPrefix, other.InstallPrefix),
		Architecture:  pick(d.Architecture, other.Architecture),
		InstallUser:   pick(d.InstallUser, other.InstallUser),
		Repository:    pick(d.Repository, other.Repository),
		Server:        pick(d.Server, other.Server),
		ServerPath:    pick(d.ServerPath, other.ServerPath),
		CleanupScript: pick(d.CleanupScript, other.CleanupScript),
	}
}

// Settings is the immutable configuration of one reconciliation call.
type Settings struct {
	Package       ospackage.PackageInfo
	Prefix        string
	Architecture  string
	User          string
	Repository    string
	Server        string
	ServerPath    string
	CleanupScript string
	// Scheme is prepended to Server when it carries none.
	Scheme string
}

// Resolve combines defaults, per-resource overrides and the architecture
// carried in the package name, in increasing order of precedence.
func Resolve(d Defaults, scheme string, pkg ospackage.PackageInfo, ov Overrides) Settings {
	s := Settings{
		Package:       pkg,
		Prefix:        ov.or(OptInstallPrefix, d.InstallPrefix),
		Architecture:  ov.or(OptArchitecture, d.Architecture),
		User:          ov.or(OptInstallUser, d.InstallUser),
		Repository:    ov.or(OptRepository, d.Repository),
		Server:        ov.or(OptServer, d.Server),
		ServerPath:    ov.or(OptServerPath, d.ServerPath),
		CleanupScript: ov.or(OptCleanupScript, d.CleanupScript),
		Scheme:        scheme,
	}
	if ov.Len() > 0 {
		logger.Logger().Debugf("install_options for %s: %s", pkg, strings.Join(ov.Keys(), ", "))
	}
	if pkg.Arch != "" {
		s.Architecture = pkg.Arch
	}
	if s.Scheme == "" {
		s.Scheme = "https"
	}
	return s
}

// AreaDir is <prefix>/<architecture>.
func (s Settings) AreaDir() string {
	return filepath.Join(s.Prefix, s.Architecture)
}

// RCDir holds marker files and the cleanup script.
func (s Settings) RCDir() string {
	return filepath.Join(s.AreaDir(), ".cmsdistrc")
}

// MarkerPath is the PKG_<fullname> marker of the package.
func (s Settings) MarkerPath() string {
	return filepath.Join(s.RCDir(), s.Package.MarkerName())
}

// CleanupScriptPath is where the cleanup script is kept locally.
func (s Settings) CleanupScriptPath() string {
	return filepath.Join(s.RCDir(), s.CleanupScript)
}

// GroundTruthPath exists when the package's files are installed.
func (s Settings) GroundTruthPath() string {
	return filepath.Join(s.AreaDir(), s.Package.Group, s.Package.Name, s.Package.Version,
		"etc", "profile.d", "init.sh")
}

// InitScriptGlob matches the package-manager init script of the area.
func (s Settings) InitScriptGlob() string {
	return filepath.Join(s.AreaDir(), "external", "apt", "*", "etc", "profile.d", "init.sh")
}

// RPMDBDir is the package database whose ownership is repaired.
func (s Settings) RPMDBDir() string {
	return filepath.Join(s.AreaDir(), "var", "lib", "rpm")
}

// BootstrapScriptPath is where bootstrap.sh is downloaded to.
func (s Settings) BootstrapScriptPath() string {
	return filepath.Join(s.Prefix, "bootstrap-"+s.Architecture+".sh")
}

// BaseURL is the server with a scheme.
func (s Settings) BaseURL() string {
	server := strings.TrimRight(s.Server, "/")
	if strings.Contains(server, "://") {
		return server
	}
	return s.Scheme + "://" + server
}

// BootstrapURL is <server>/<server_path>/bootstrap.sh.
func (s Settings) BootstrapURL() string {
	return joinURL(s.BaseURL(), s.ServerPath, "bootstrap.sh")
}

// CleanupScriptURL is <server>/<cmsrep_script>.
func (s Settings) CleanupScriptURL() string {
	return joinURL(s.BaseURL(), s.CleanupScript)
}

func joinURL(base string, parts ...string) string {
	out := base
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		out += "/" + p
	}
	return out
}
