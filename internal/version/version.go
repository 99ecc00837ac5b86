package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	ErrEmptyVersion   = errors.New("version string is empty")
	ErrInvalidVersion = errors.New("version string is not a semantic version")
)

// Token matches a semver-shaped token as it appears in expressions, inventory
// file names and release listings.
const Token = `\d+(?:\.\d+)?(?:\.\d+)?(?:-\w+)?`

var versionRegex = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-(\w+))?$`)

// Version is a major.minor.patch triple with an optional prerelease tag.
type Version struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	Prerelease string

	// components records how many numeric parts were written (1, 2 or 3).
	components int
}

// New builds a fully specified version.
func New(major, minor, patch uint64, prerelease string) Version {
	return Version{Major: major, Minor: minor, Patch: patch, Prerelease: prerelease, components: 3}
}

// Parse reads "1", "1.2", "1.2.3" or "1.2.3-beta". Missing components are zero.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, ErrEmptyVersion
	}
	m := versionRegex.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	var v Version
	fields := []*uint64{&v.Major, &v.Minor, &v.Patch}
	for i, part := range m[1:4] {
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		*fields[i] = n
		v.components = i + 1
	}
	v.Prerelease = m[4]
	return v, nil
}

// MustParse is Parse for literals known to be valid; it panics otherwise.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("version.MustParse: %v", err))
	}
	return v
}

// Components returns how many numeric parts the version was written with.
func (v Version) Components() int {
	if v.components == 0 {
		return 3
	}
	return v.components
}

// Numeric returns the written numeric parts, without any prerelease.
func (v Version) Numeric() []uint64 {
	all := []uint64{v.Major, v.Minor, v.Patch}
	return all[:v.Components()]
}

// IsPrerelease reports whether the version carries a prerelease tag.
func (v Version) IsPrerelease() bool {
	return v.Prerelease != ""
}

// String renders the canonical "major.minor.patch[-prerelease]" form.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// Compare returns -1, 0 or 1. Numeric parts are compared first, a prerelease
// sorts below the same triple without one, and prerelease tags that compare
// equal under semver rules are tie-broken lexically so that Compare is zero
// only for equal versions.
func (v Version) Compare(other Version) int {
	if c := v.semver().Compare(other.semver()); c != 0 {
		return c
	}
	return strings.Compare(v.Prerelease, other.Prerelease)
}

// Equal reports whether every field matches.
func (v Version) Equal(other Version) bool {
	return v.Major == other.Major &&
		v.Minor == other.Minor &&
		v.Patch == other.Patch &&
		v.Prerelease == other.Prerelease
}

// LessThan reports whether v sorts strictly before other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

func (v Version) semver() *semver.Version {
	return semver.New(v.Major, v.Minor, v.Patch, v.Prerelease, "")
}
