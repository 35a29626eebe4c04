package provider

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/open-edge-platform/cmsdist-provider/internal/config"
	"github.com/open-edge-platform/cmsdist-provider/internal/ospackage"
	"sigs.k8s.io/yaml"
)

// Resource is the package resource descriptor handed over by the host
// runtime. InstallOptions is either a list, whose first element is used,
// or a map.
type Resource struct {
	Name           string      `json:"name"`
	InstallOptions interface{} `json:"install_options,omitempty"`
}

// ParseResource decodes a JSON or YAML descriptor.
func ParseResource(data []byte) (Resource, error) {
	var res Resource
	if err := yaml.Unmarshal(data, &res); err != nil {
		return Resource{}, fmt.Errorf("decoding resource descriptor: %w", err)
	}
	if strings.TrimSpace(res.Name) == "" {
		return Resource{}, fmt.Errorf("resource descriptor has no name")
	}
	return res, nil
}

// ReadResource decodes a descriptor from r.
func ReadResource(r io.Reader) (Resource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Resource{}, fmt.Errorf("reading resource descriptor: %w", err)
	}
	return ParseResource(data)
}

// NewResource builds a descriptor from a name and key=value options.
func NewResource(name string, options []string) (Resource, error) {
	res := Resource{Name: name}
	if len(options) == 0 {
		return res, nil
	}
	m := make(map[string]interface{}, len(options))
	for _, opt := range options {
		key, value, ok := strings.Cut(opt, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return Resource{}, fmt.Errorf("invalid option %q, expected key=value", opt)
		}
		m[strings.TrimSpace(key)] = value
	}
	res.InstallOptions = m
	return res, nil
}

// Package parses the resource name.
func (r Resource) Package() (ospackage.PackageInfo, error) {
	return ospackage.Parse(r.Name)
}

// Overrides resolves install_options into typed overrides.
func (r Resource) Overrides() config.Overrides {
	return config.FromRaw(r.InstallOptions)
}

// Settings resolves the full configuration of one call against defaults.
func (r Resource) Settings(d config.Defaults, scheme string) (config.Settings, error) {
	pkg, err := r.Package()
	if err != nil {
		return config.Settings{}, err
	}
	return config.Resolve(d, scheme, pkg, r.Overrides()), nil
}

// FeatureNames renders features as strings, sorted.
func FeatureNames(features []Feature) []string {
	out := make([]string, 0, len(features))
	for _, f := range features {
		out = append(out, string(f))
	}
	sort.Strings(out)
	return out
}
