package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/open-edge-platform/cmsdist-provider/internal/utils/logger"
)

// Recognized install option keys.
const (
	OptInstallPrefix = "install_prefix"
	OptArchitecture  = "architecture"
	OptInstallUser   = "install_user"
	OptRepository    = "repository"
	OptServer        = "server"
	OptServerPath    = "server_path"
	OptCleanupScript = "cmsrep_script"
)

var knownOptions = map[string]bool{
	OptInstallPrefix: true,
	OptArchitecture:  true,
	OptInstallUser:   true,
	OptRepository:    true,
	OptServer:        true,
	OptServerPath:    true,
	OptCleanupScript: true,
}

// Overrides are per-resource install options. The zero value has no
// overrides.
type Overrides struct {
	values map[string]string
}

// FromMap builds overrides from a decoded options map. Scalars are
// formatted as strings; nested values are ignored.
func FromMap(m map[string]interface{}) Overrides {
	log := logger.Logger()
	ov := Overrides{values: make(map[string]string, len(m))}
	for k, v := range m {
		switch val := v.(type) {
		case nil:
		case string:
			ov.set(k, val)
		case bool, int, int64, float64, uint64:
			ov.set(k, fmt.Sprint(val))
		default:
			log.Debugf("install_options: ignoring non-scalar value for %s", k)
		}
	}
	return ov
}

// FromList uses the first element of a decoded options list.
func FromList(l []interface{}) Overrides {
	if len(l) == 0 {
		logger.Logger().Debugf("install_options is an empty list. Using default.")
		return Overrides{}
	}
	if len(l) > 1 {
		logger.Logger().Debugf("install_options has %d entries, only the first is used", len(l))
	}
	if m, ok := asMap(l[0]); ok {
		return FromMap(m)
	}
	logger.Logger().Debugf("install_options first entry is %T, not a map. Using default.", l[0])
	return Overrides{}
}

// FromRaw accepts whatever the host runtime put in install_options.
func FromRaw(v interface{}) Overrides {
	if v == nil {
		logger.Logger().Debugf("install_options not specified. Using default.")
		return Overrides{}
	}
	if m, ok := asMap(v); ok {
		return FromMap(m)
	}
	if l, ok := v.([]interface{}); ok {
		return FromList(l)
	}
	logger.Logger().Debugf("install_options is %T, neither list nor map. Using default.", v)
	return Overrides{}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[string]string:
		out := make(map[string]interface{}, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, s := range m {
			out[fmt.Sprint(k)] = s
		}
		return out, true
	}
	return nil, false
}

func (o *Overrides) set(key, value string) {
	key = strings.TrimSpace(key)
	if !knownOptions[key] {
		logger.Logger().Debugf("install_options: ignoring unknown option %q", key)
	}
	o.values[key] = value
}

// Get returns the override for key. Empty values count as not set.
func (o Overrides) Get(key string) (string, bool) {
	v, ok := o.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Keys returns the override keys in sorted order.
func (o Overrides) Keys() []string {
	keys := make([]string, 0, len(o.values))
	for k := range o.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports how many overrides were supplied.
func (o Overrides) Len() int { return len(o.values) }

func (o Overrides) or(key, fallback string) string {
	if v, ok := o.Get(key); ok {
		return v
	}
	return fallback
}
