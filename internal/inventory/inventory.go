package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"

	"tfvm/internal/version"
)

var ErrVersionNotInstalled = errors.New("version not installed")

// NotInstalledError reports the version that had no binary in the inventory.
type NotInstalledError struct {
	Version string
	Dir     string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("%s -- version: %s (install dir %s)", ErrVersionNotInstalled, e.Version, e.Dir)
}

func (e *NotInstalledError) Is(target error) bool {
	return target == ErrVersionNotInstalled
}

// Entry is one installed binary.
type Entry struct {
	Version string `json:"version"`
	Path    string `json:"path"`
}

// Inventory lists the binaries named "<tool>-<version>" in a directory. Every
// query rescans the directory; nothing is cached between calls.
type Inventory struct {
	dir     string
	tool    string
	pattern *regexp.Regexp
}

// New returns an inventory of tool binaries stored in dir.
func New(dir, tool string) *Inventory {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(tool) + `-(\d+\.\d+\.\d+(?:-\w+)?)(?:\.exe)?$`)
	return &Inventory{dir: dir, tool: tool, pattern: pattern}
}

// Dir is the scanned directory.
func (i *Inventory) Dir() string {
	return i.dir
}

// PathFor returns where the binary for v lives once installed.
func (i *Inventory) PathFor(v string) string {
	name := i.tool + "-" + v
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(i.dir, name)
}

// Entries scans the directory and returns one entry per version, ordered by
// version. A missing or unreadable directory yields no entries.
func (i *Inventory) Entries() []Entry {
	infos, err := os.ReadDir(i.dir)
	if err != nil {
		return nil
	}

	type scanned struct {
		v     version.Version
		entry Entry
	}
	var found []scanned
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		m := i.pattern.FindStringSubmatch(info.Name())
		if m == nil {
			continue
		}
		v, err := version.Parse(m[1])
		if err != nil {
			continue
		}
		found = append(found, scanned{
			v:     v,
			entry: Entry{Version: m[1], Path: filepath.Join(i.dir, info.Name())},
		})
	}

	slices.SortStableFunc(found, func(a, b scanned) int { return a.v.Compare(b.v) })
	found = slices.CompactFunc(found, func(a, b scanned) bool { return a.entry.Version == b.entry.Version })

	entries := make([]Entry, len(found))
	for idx, s := range found {
		entries[idx] = s.entry
	}
	return entries
}

// Versions returns the installed versions, ascending.
func (i *Inventory) Versions() []string {
	entries := i.Entries()
	out := make([]string, len(entries))
	for idx, e := range entries {
		out[idx] = e.Version
	}
	return out
}

// Binaries returns installed binary paths in the same order as Versions.
func (i *Inventory) Binaries() []string {
	entries := i.Entries()
	out := make([]string, len(entries))
	for idx, e := range entries {
		out[idx] = e.Path
	}
	return out
}

// Catalog returns the installed versions as a catalog for resolution.
func (i *Inventory) Catalog() version.Catalog {
	return version.NewCatalog(i.Versions())
}

// Manifest maps each installed version to its binary path.
func (i *Inventory) Manifest() map[string]string {
	entries := i.Entries()
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Version] = e.Path
	}
	return out
}

// Latest returns the highest installed version.
func (i *Inventory) Latest() (string, bool) {
	versions := i.Versions()
	if len(versions) == 0 {
		return "", false
	}
	return versions[len(versions)-1], true
}

// Lookup returns the binary path for v, if installed.
func (i *Inventory) Lookup(v string) (string, bool) {
	path, ok := i.Manifest()[v]
	return path, ok
}

// Validate returns the binary path for v or a *NotInstalledError.
func (i *Inventory) Validate(v string) (string, error) {
	if path, ok := i.Lookup(v); ok {
		return path, nil
	}
	return "", &NotInstalledError{Version: v, Dir: i.dir}
}

// Any reports whether at least one version is installed.
func (i *Inventory) Any() bool {
	return len(i.Entries()) > 0
}
