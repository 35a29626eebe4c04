package ospackage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPackageName is returned for names that are not group+package+version.
var ErrInvalidPackageName = errors.New("invalid package name")

// PackageInfo identifies one cmsdist package.
type PackageInfo struct {
	Group   string // e.g. "cms"
	Name    string // e.g. "cmssw"
	Version string // e.g. "CMSSW_7_1_0"
	// Arch is the architecture override carried in the resource name, or
	// "" when the name has none.
	Arch string
}

// Parse splits "group+package+version[/arch]" into its parts.
func Parse(resourceName string) (PackageInfo, error) {
	raw := strings.TrimSpace(resourceName)
	fullname, arch, _ := strings.Cut(raw, "/")

	parts := strings.Split(fullname, "+")
	if len(parts) != 3 {
		return PackageInfo{}, fmt.Errorf("%w: %q must be group+package+version", ErrInvalidPackageName, resourceName)
	}
	for _, p := range parts {
		if p == "" {
			return PackageInfo{}, fmt.Errorf("%w: %q has an empty component", ErrInvalidPackageName, resourceName)
		}
	}
	if strings.Contains(arch, "/") {
		return PackageInfo{}, fmt.Errorf("%w: %q has more than one architecture suffix", ErrInvalidPackageName, resourceName)
	}

	return PackageInfo{
		Group:   parts[0],
		Name:    parts[1],
		Version: parts[2],
		Arch:    arch,
	}, nil
}

// FullName is the composite apt package name, without the architecture.
func (p PackageInfo) FullName() string {
	return p.Group + "+" + p.Name + "+" + p.Version
}

// MarkerName is the file name of the installed-package marker.
func (p PackageInfo) MarkerName() string {
	return "PKG_" + p.FullName()
}

func (p PackageInfo) String() string {
	if p.Arch == "" {
		return p.FullName()
	}
	return p.FullName() + "/" + p.Arch
}
