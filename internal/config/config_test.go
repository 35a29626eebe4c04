package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/open-edge-platform/cmsdist-provider/internal/ospackage"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cmsdist-provider.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadGlobalConfigEmptyPath(t *testing.T) {
	cfg, err := LoadGlobalConfig("")
	if err != nil {
		t.Fatalf("LoadGlobalConfig failed: %v", err)
	}
	if !cfg.Strict || cfg.Download.Scheme != "https" || cfg.Download.Attempts != 3 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadGlobalConfig(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantErr   string
		checkFunc func(t *testing.T, cfg *GlobalConfig)
	}{
		{
			name:    "empty_file",
			content: "",
			checkFunc: func(t *testing.T, cfg *GlobalConfig) {
				if cfg.Logging.Level != "info" {
					t.Errorf("Level = %q, want info", cfg.Logging.Level)
				}
			},
		},
		{
			name:    "comment_only",
			content: "# nothing here\n",
			checkFunc: func(t *testing.T, cfg *GlobalConfig) {
				if !cfg.Strict {
					t.Error("expected strict default")
				}
			},
		},
		{
			name: "full",
			content: `logging:
  level: debug
defaults:
  install_prefix: /data/cms
  install_user: builder
download:
  scheme: http
  insecure: true
  timeout: 30s
  attempts: 5
  delay: 500ms
  progress: true
strict: false
`,
			checkFunc: func(t *testing.T, cfg *GlobalConfig) {
				if cfg.Logging.Level != "debug" || cfg.Strict {
					t.Errorf("unexpected logging/strict: %+v", cfg)
				}
				if cfg.Defaults.InstallPrefix != "/data/cms" || cfg.Defaults.InstallUser != "builder" {
					t.Errorf("unexpected defaults: %+v", cfg.Defaults)
				}
				h := NewConfigHelpers(cfg)
				if h.DownloadTimeout() != 30*time.Second || h.RetryDelay() != 500*time.Millisecond || h.RetryAttempts() != 5 {
					t.Errorf("unexpected download helpers: %v %v %d", h.DownloadTimeout(), h.RetryDelay(), h.RetryAttempts())
				}
				if !cfg.Download.Insecure || !cfg.Download.Progress || cfg.Download.Scheme != "http" {
					t.Errorf("unexpected download: %+v", cfg.Download)
				}
			},
		},
		{
			name:    "partial_download_keeps_defaults",
			content: "download:\n  attempts: 1\n",
			checkFunc: func(t *testing.T, cfg *GlobalConfig) {
				if cfg.Download.Attempts != 1 || cfg.Download.Timeout != "10m" || cfg.Download.Scheme != "https" {
					t.Errorf("unexpected download: %+v", cfg.Download)
				}
			},
		},
		{name: "bad_level", content: "logging:\n  level: loud\n", wantErr: "schema validation failed"},
		{name: "unknown_key", content: "retries: 3\n", wantErr: "schema validation failed"},
		{name: "bad_scheme", content: "download:\n  scheme: ftp\n", wantErr: "schema validation failed"},
		{name: "bad_duration", content: "download:\n  timeout: soon\n", wantErr: "schema validation failed"},
		{name: "zero_attempts", content: "download:\n  attempts: 0\n", wantErr: "schema validation failed"},
		{name: "script_with_slash", content: "defaults:\n  cmsrep_script: ../x.pl\n", wantErr: "schema validation failed"},
		{name: "missing_keyring", content: "download:\n  keyring: /nonexistent/keyring.asc\n", wantErr: "download.keyring"},
		{name: "invalid_yaml", content: "logging: [", wantErr: "invalid YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadGlobalConfig(writeTestFile(t, tt.content))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				if cfg != nil {
					t.Error("Expected nil config when error occurred")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadGlobalConfig failed: %v", err)
			}
			tt.checkFunc(t, cfg)
		})
	}
}

func TestLoadGlobalConfigMissingFile(t *testing.T) {
	if _, err := LoadGlobalConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/cmsdist-provider.yml")
	if got := ResolvePath("/tmp/flag.yml"); got != "/tmp/flag.yml" {
		t.Errorf("flag should win, got %q", got)
	}
	if got := ResolvePath(""); got != "/etc/cmsdist-provider.yml" {
		t.Errorf("env fallback, got %q", got)
	}
}

func TestBuiltinDefaults(t *testing.T) {
	d := BuiltinDefaults(func(string) string { return "" })
	want := Defaults{
		InstallPrefix: "/opt/cms",
		Architecture:  "slc6_amd64_gcc481",
		InstallUser:   "cmsbuild",
		Repository:    "cms",
		Server:        "cmsrep.cern.ch",
		ServerPath:    "cmssw/cms",
		CleanupScript: "cmsrpm_cleanup_v2.pl",
	}
	if d != want {
		t.Errorf("BuiltinDefaults() = %+v, want %+v", d, want)
	}

	boxen := BuiltinDefaults(func(key string) string {
		if key == EnvBoxenHome {
			return "/opt/boxen"
		}
		return ""
	})
	if boxen.InstallPrefix != "/opt/boxen/homebrew" {
		t.Errorf("boxen prefix = %q", boxen.InstallPrefix)
	}
}

func TestEffectiveDefaultsLayersConfig(t *testing.T) {
	t.Setenv(EnvBoxenHome, "")
	cfg := DefaultGlobalConfig()
	cfg.Defaults.Server = "mirror.example.org"
	d := NewConfigHelpers(cfg).EffectiveDefaults()
	if d.Server != "mirror.example.org" || d.InstallPrefix != DefaultPrefix {
		t.Errorf("unexpected effective defaults: %+v", d)
	}
}

func TestResolveExample(t *testing.T) {
	pkg, err := ospackage.Parse("group1+pkgA+1.2.3/customarch")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ov := FromRaw(map[string]interface{}{"install_user": "builduser"})
	s := Resolve(BuiltinDefaults(nil), "https", pkg, ov)

	if s.Architecture != "customarch" {
		t.Errorf("Architecture = %q, want customarch", s.Architecture)
	}
	if s.User != "builduser" {
		t.Errorf("User = %q, want builduser", s.User)
	}
	if s.Prefix != DefaultPrefix || s.Repository != DefaultRepository || s.Server != DefaultServer ||
		s.ServerPath != DefaultServerPath || s.CleanupScript != DefaultCleanupScript {
		t.Errorf("expected defaults for the rest, got %+v", s)
	}
}

func TestResolveNameArchBeatsOption(t *testing.T) {
	pkg, _ := ospackage.Parse("cms+cmssw+CMSSW_7_1_0/slc7_amd64_gcc630")
	s := Resolve(BuiltinDefaults(nil), "", pkg, FromMap(map[string]interface{}{"architecture": "slc6_amd64_gcc481"}))
	if s.Architecture != "slc7_amd64_gcc630" {
		t.Errorf("Architecture = %q", s.Architecture)
	}
	if s.Scheme != "https" {
		t.Errorf("Scheme = %q, want https fallback", s.Scheme)
	}
}

func TestResolveOverridesEveryKey(t *testing.T) {
	pkg, _ := ospackage.Parse("cms+cmssw+1")
	ov := FromList([]interface{}{
		map[string]interface{}{
			"install_prefix": "/data",
			"architecture":   "arch1",
			"install_user":   "u1",
			"repository":     "comp",
			"server":         "http://mirror:8080/",
			"server_path":    "/cmssw/comp/",
			"cmsrep_script":  "clean.pl",
		},
		map[string]interface{}{"install_user": "ignored"},
	})
	s := Resolve(BuiltinDefaults(nil), "https", pkg, ov)

	if s.Prefix != "/data" || s.Architecture != "arch1" || s.User != "u1" || s.Repository != "comp" ||
		s.Server != "http://mirror:8080/" || s.ServerPath != "/cmssw/comp/" || s.CleanupScript != "clean.pl" {
		t.Fatalf("overrides not applied: %+v", s)
	}
	if got := s.BootstrapURL(); got != "http://mirror:8080/cmssw/comp/bootstrap.sh" {
		t.Errorf("BootstrapURL() = %q", got)
	}
	if got := s.CleanupScriptURL(); got != "http://mirror:8080/clean.pl" {
		t.Errorf("CleanupScriptURL() = %q", got)
	}
}

func TestSettingsPaths(t *testing.T) {
	pkg, _ := ospackage.Parse("cms+cmssw+CMSSW_7_1_0")
	s := Resolve(BuiltinDefaults(nil), "https", pkg, Overrides{})

	tests := map[string][2]string{
		"area":       {s.AreaDir(), "/opt/cms/slc6_amd64_gcc481"},
		"marker":     {s.MarkerPath(), "/opt/cms/slc6_amd64_gcc481/.cmsdistrc/PKG_cms+cmssw+CMSSW_7_1_0"},
		"cleanup":    {s.CleanupScriptPath(), "/opt/cms/slc6_amd64_gcc481/.cmsdistrc/cmsrpm_cleanup_v2.pl"},
		"truth":      {s.GroundTruthPath(), "/opt/cms/slc6_amd64_gcc481/cms/cmssw/CMSSW_7_1_0/etc/profile.d/init.sh"},
		"initglob":   {s.InitScriptGlob(), "/opt/cms/slc6_amd64_gcc481/external/apt/*/etc/profile.d/init.sh"},
		"rpmdb":      {s.RPMDBDir(), "/opt/cms/slc6_amd64_gcc481/var/lib/rpm"},
		"bootstrap":  {s.BootstrapScriptPath(), "/opt/cms/bootstrap-slc6_amd64_gcc481.sh"},
		"bootURL":    {s.BootstrapURL(), "https://cmsrep.cern.ch/cmssw/cms/bootstrap.sh"},
		"cleanupURL": {s.CleanupScriptURL(), "https://cmsrep.cern.ch/cmsrpm_cleanup_v2.pl"},
	}
	for name, pair := range tests {
		if pair[0] != pair[1] {
			t.Errorf("%s = %q, want %q", name, pair[0], pair[1])
		}
	}
}

func TestConfigHelpersLogLevel(t *testing.T) {
	cfg := DefaultGlobalConfig()
	cfg.Logging.Level = "warn"
	if got := NewConfigHelpers(cfg).LogLevel(); got != "warn" {
		t.Errorf("LogLevel() = %q, want warn", got)
	}
	if got := NewConfigHelpers(nil).LogLevel(); got != "info" {
		t.Errorf("LogLevel() on nil config = %q, want info", got)
	}
}

func TestResolveLogsAppliedOptions(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Init(zap.New(core).Sugar())
	t.Cleanup(func() { logger.Init(nil) })

	pkg, _ := ospackage.Parse("cms+cmssw+1")
	Resolve(BuiltinDefaults(nil), "https", pkg, FromMap(map[string]interface{}{"server": "mirror", "install_user": "u1"}))

	found := logs.FilterMessage("install_options for cms+cmssw+1: install_user, server")
	if found.Len() != 1 {
		t.Errorf("expected applied options logged, got %v", logs.All())
	}

	Resolve(BuiltinDefaults(nil), "https", pkg, Overrides{})
	if n := logs.FilterMessageSnippet("install_options for").Len(); n != 1 {
		t.Errorf("empty overrides should not be logged, got %d entries", n)
	}
}
