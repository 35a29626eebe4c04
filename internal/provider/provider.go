package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/open-edge-platform/cmsdist-provider/internal/config"
)

// Feature is a capability the provider declares to the host runtime.
type Feature string

const (
	// FeatureUnversionable means only presence is tracked, never versions.
	FeatureUnversionable Feature = "unversionable"
	// FeaturePackageSettings means a free-form settings map is accepted.
	FeaturePackageSettings Feature = "package_settings"
	// FeatureInstallOptions means install_options are honored.
	FeatureInstallOptions Feature = "install_options"
)

// Status is what Query reports for an installed package.
type Status struct {
	Ensure string `json:"ensure"`
	Name   string `json:"name"`
}

// Provider is the interface every package provider must implement.
type Provider interface {
	// Name is a unique ID, e.g. "cmsdist".
	Name() string

	// Init does one-time setup from the provider configuration.
	Init(cfg *config.GlobalConfig) error

	// Features lists the declared capabilities.
	Features() []Feature

	// Install brings the package to present. It returns the exit code of
	// the package manager run.
	Install(ctx context.Context, res Resource) (int, error)

	// Uninstall brings the package to absent.
	Uninstall(ctx context.Context, res Resource) (int, error)

	// Query reports the current state. A nil Status means absent.
	Query(ctx context.Context, res Resource) (*Status, error)

	// Instances enumerates installed packages.
	Instances(ctx context.Context) ([]Status, error)
}

var (
	mu        sync.RWMutex
	providers = make(map[string]Provider)
)

// Register makes a Provider available under its Name().
func Register(p Provider) {
	mu.Lock()
	defer mu.Unlock()
	providers[p.Name()] = p
}

// Get returns the Provider by name.
func Get(name string) (Provider, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := providers[name]
	return p, ok
}

// Names returns the registered provider names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
