package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"tfvm/internal/expression"
	"tfvm/internal/paths"
)

// ValidationResult captures a single finding about a configured value.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Key     string `json:"key"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

var toolNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.]*$`)

func validTool(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if !toolNameRegex.MatchString(name) {
		return "", false
	}
	return name, true
}

func validDir(dir string) (string, bool) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", false
	}
	abs, err := filepath.Abs(paths.ExpandHome(dir))
	if err != nil {
		return "", false
	}
	if ok, err := paths.DirExists(abs); err != nil || !ok {
		return "", false
	}
	return abs, true
}

func validURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return strings.TrimRight(raw, "/"), true
}

func validLogLevel(level string) (string, bool) {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "debug", "info", "warn", "error":
		return level, true
	}
	return "", false
}

// check compares a raw value against what the setter kept and records a
// warning when the raw value was discarded.
func (c *Config) check(key, raw string, valid bool, fallback string) {
	if strings.TrimSpace(raw) == "" || valid {
		return
	}
	c.findings = append(c.findings, ValidationResult{
		Level:   "warning",
		Key:     key,
		Value:   raw,
		Message: fmt.Sprintf("%s %q is invalid, using %q", key, raw, fallback),
	})
}

// Validate reports problems with the effective configuration that the setters
// cannot repair, such as a default install directory that does not exist yet.
func (c *Config) Validate() []ValidationResult {
	results := c.Findings()
	if c.Version != "" {
		if _, err := expression.Parse(c.Version); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Key:     "version",
				Value:   c.Version,
				Message: fmt.Sprintf("version %q: %v", c.Version, err),
			})
		}
	}
	if ok, err := paths.DirExists(c.InstallDir); err != nil {
		results = append(results, ValidationResult{
			Level:   "error",
			Key:     "install_dir",
			Value:   c.InstallDir,
			Message: fmt.Sprintf("install_dir %q: %v", c.InstallDir, err),
		})
	} else if !ok {
		results = append(results, ValidationResult{
			Level:   "warning",
			Key:     "install_dir",
			Value:   c.InstallDir,
			Message: fmt.Sprintf("install_dir %q does not exist yet; it is created on first install", c.InstallDir),
		})
	}
	if c.Timeout < time.Second {
		results = append(results, ValidationResult{
			Level:   "warning",
			Key:     "timeout",
			Value:   c.Timeout.String(),
			Message: fmt.Sprintf("timeout %s is very short for remote catalog fetches", c.Timeout),
		})
	}
	return results
}
