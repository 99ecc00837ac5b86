package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tfvm/internal/paths"
)

const (
	DefaultTool         = "terraform"
	DefaultDownloadsURL = "https://www.terraform.io/downloads.html"
	DefaultReleasesURL  = "https://releases.hashicorp.com/terraform"
	DefaultTimeout      = 30 * time.Second
	DefaultLogLevel     = "warn"
)

// Config holds the settings the version manager works from. Values are only
// assigned through the setters, which replace anything invalid with the
// built-in default instead of failing.
type Config struct {
	Tool         string        `yaml:"tool"`
	Version      string        `yaml:"version,omitempty"`
	InstallDir   string        `yaml:"install_dir"`
	DownloadsURL string        `yaml:"downloads_url"`
	ReleasesURL  string        `yaml:"releases_url"`
	Timeout      time.Duration `yaml:"timeout"`
	LogLevel     string        `yaml:"log_level"`

	findings []ValidationResult
}

// Default returns the baseline configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Reset()
	return cfg
}

// Reset restores every field to its built-in default.
func (c *Config) Reset() {
	c.Tool = DefaultTool
	c.Version = ""
	c.InstallDir = paths.DefaultInstallDir()
	c.DownloadsURL = DefaultDownloadsURL
	c.ReleasesURL = DefaultReleasesURL
	c.Timeout = DefaultTimeout
	c.LogLevel = DefaultLogLevel
	c.findings = nil
}

// SetTool sets the managed tool name; names that cannot form a binary file
// name fall back to the default tool.
func (c *Config) SetTool(name string) {
	if tool, ok := validTool(name); ok {
		c.Tool = tool
		return
	}
	c.Tool = DefaultTool
}

// SetVersion sets the target version expression. Only an empty expression
// leaves the target unset; a malformed one is kept so resolving it fails.
func (c *Config) SetVersion(expr string) {
	c.Version = strings.TrimSpace(expr)
}

// SetInstallDir sets the binary directory. It must already exist; anything
// else falls back to the default directory.
func (c *Config) SetInstallDir(dir string) {
	if abs, ok := validDir(dir); ok {
		c.InstallDir = abs
		return
	}
	c.InstallDir = paths.DefaultInstallDir()
}

// SetDownloadsURL sets the page scraped for the latest published version.
func (c *Config) SetDownloadsURL(raw string) {
	if u, ok := validURL(raw); ok {
		c.DownloadsURL = u
		return
	}
	c.DownloadsURL = DefaultDownloadsURL
}

// SetReleasesURL sets the release index base URL.
func (c *Config) SetReleasesURL(raw string) {
	if u, ok := validURL(raw); ok {
		c.ReleasesURL = u
		return
	}
	c.ReleasesURL = DefaultReleasesURL
}

// SetTimeout sets the network timeout; non-positive values fall back to the
// default.
func (c *Config) SetTimeout(d time.Duration) {
	if d > 0 {
		c.Timeout = d
		return
	}
	c.Timeout = DefaultTimeout
}

// SetLogLevel sets the log level name.
func (c *Config) SetLogLevel(level string) {
	if l, ok := validLogLevel(level); ok {
		c.LogLevel = l
		return
	}
	c.LogLevel = DefaultLogLevel
}

// Findings lists the values Load discarded in favour of defaults.
func (c *Config) Findings() []ValidationResult {
	return append([]ValidationResult(nil), c.findings...)
}

// Marshal returns the YAML encoding of the configuration.
func (c *Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}
