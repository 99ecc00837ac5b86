package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"tfvm/internal/paths"
)

// EnvPrefix prefixes every environment override, e.g. TFVM_INSTALL_DIR.
const EnvPrefix = "TFVM"

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"tool":          "tool",
	"target":        "version",
	"install-dir":   "install_dir",
	"downloads-url": "downloads_url",
	"releases-url":  "releases_url",
	"timeout":       "timeout",
	"log-level":     "log_level",
}

// Load layers defaults, the YAML file at path (or the per-user default file
// when path is empty), TFVM_* environment variables and any changed flags, in
// that order of precedence. A missing file is not an error; a malformed one
// is. Invalid values are replaced by defaults and reported by Findings.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	defaults := Default()

	v := viper.New()
	v.SetDefault("tool", defaults.Tool)
	v.SetDefault("version", defaults.Version)
	v.SetDefault("install_dir", defaults.InstallDir)
	v.SetDefault("downloads_url", defaults.DownloadsURL)
	v.SetDefault("releases_url", defaults.ReleasesURL)
	v.SetDefault("timeout", defaults.Timeout.String())
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = paths.DefaultConfigFile()
	}
	if path != "" {
		exists, err := paths.FileExists(path)
		if err != nil {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
		if exists {
			v.SetConfigFile(path)
			v.SetConfigType(configType(path))
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	cfg := Default()
	cfg.apply(v)
	return cfg, nil
}

// configType picks the viper codec from the file extension. YAML is the
// default so extension-less files keep working.
func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

func (c *Config) apply(v *viper.Viper) {
	raw := v.GetString("tool")
	c.SetTool(raw)
	c.check("tool", raw, c.Tool == strings.TrimSpace(raw), c.Tool)

	c.SetVersion(v.GetString("version"))

	raw = v.GetString("install_dir")
	c.SetInstallDir(raw)
	_, ok := validDir(raw)
	c.check("install_dir", raw, ok || strings.TrimSpace(raw) == paths.DefaultInstallDir(), c.InstallDir)

	raw = v.GetString("downloads_url")
	c.SetDownloadsURL(raw)
	_, ok = validURL(raw)
	c.check("downloads_url", raw, ok, c.DownloadsURL)

	raw = v.GetString("releases_url")
	c.SetReleasesURL(raw)
	_, ok = validURL(raw)
	c.check("releases_url", raw, ok, c.ReleasesURL)

	raw = v.GetString("timeout")
	timeout := v.GetDuration("timeout")
	c.SetTimeout(timeout)
	c.check("timeout", raw, timeout > 0, c.Timeout.String())

	raw = v.GetString("log_level")
	c.SetLogLevel(raw)
	_, ok = validLogLevel(raw)
	c.check("log_level", raw, ok, c.LogLevel)
}
