package command

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"tfvm/internal/version"
)

var (
	ErrUnknownRevision   = errors.New("unknown revision")
	ErrUnknownSubcommand = errors.New("unknown subcommand")
)

// Revision identifies a family of tool releases that share subcommand flags.
type Revision string

const (
	Rev011 Revision = "rev011"
	Rev012 Revision = "rev012"
	Rev013 Revision = "rev013"
	Rev014 Revision = "rev014"
)

// Revisions lists every known revision, oldest first.
func Revisions() []Revision {
	return []Revision{Rev011, Rev012, Rev013, Rev014}
}

// RevisionFor maps a concrete version to its revision. Anything older than
// 0.12 uses rev011 and anything from 0.14 on uses rev014.
func RevisionFor(v string) (Revision, error) {
	parsed, err := version.Parse(v)
	if err != nil {
		return "", err
	}
	if parsed.Major > 0 {
		return Rev014, nil
	}
	switch {
	case parsed.Minor <= 11:
		return Rev011, nil
	case parsed.Minor == 12:
		return Rev012, nil
	case parsed.Minor == 13:
		return Rev013, nil
	default:
		return Rev014, nil
	}
}

// Flag is one option a subcommand accepts. Switches are rendered as "-name";
// everything else as "-name=value".
type Flag struct {
	Name    string `json:"name"`
	Default string `json:"default,omitempty"`
	Switch  bool   `json:"switch,omitempty"`
}

// Profile is the flag set of one subcommand.
type Profile struct {
	Name  string `json:"name"`
	Flags []Flag `json:"flags"`
}

// Lookup returns the flag called name.
func (p Profile) Lookup(name string) (Flag, bool) {
	for _, f := range p.Flags {
		if f.Name == name {
			return f, true
		}
	}
	return Flag{}, false
}

type profiles map[string]Profile

func valued(name, def string) Flag { return Flag{Name: name, Default: def} }
func switched(name string, on bool) Flag {
	def := "false"
	if on {
		def = "true"
	}
	return Flag{Name: name, Default: def, Switch: true}
}

func profile(name string, flags ...Flag) Profile {
	return Profile{Name: name, Flags: flags}
}

var rev011 = profiles{
	"init": profile("init",
		valued("backend", "true"),
		valued("backend-config", ""),
		valued("from-module", ""),
		valued("get", "true"),
		valued("get-plugins", "true"),
		valued("input", "true"),
		valued("lock", "true"),
		valued("lock-timeout", "0s"),
		valued("plugin-dir", ""),
		valued("upgrade", "false"),
		valued("verify-plugins", "true"),
		switched("no-color", false),
		switched("force-copy", false),
		switched("reconfigure", false),
	),
	"plan": profile("plan",
		switched("destroy", false),
		switched("detailed-exitcode", false),
		valued("input", "true"),
		valued("lock", "true"),
		valued("lock-timeout", "0s"),
		valued("module-depth", "-1"),
		switched("no-color", false),
		valued("out", ""),
		valued("parallelism", "10"),
		valued("refresh", "true"),
		valued("state", "terraform.tfstate"),
		valued("var-file", ""),
	),
	"apply": profile("apply",
		valued("backup", ""),
		switched("auto-approve", false),
		valued("lock", "true"),
		valued("lock-timeout", "0s"),
		valued("input", "true"),
		switched("no-color", false),
		valued("parallelism", "10"),
		valued("refresh", "true"),
		valued("state", "terraform.tfstate"),
		valued("state-out", ""),
		valued("var-file", ""),
	),
	"refresh": profile("refresh",
		valued("backup", ""),
		valued("input", "true"),
		valued("lock", "true"),
		valued("lock-timeout", "0s"),
		switched("no-color", false),
		valued("state", "terraform.tfstate"),
		valued("state-out", ""),
		valued("var-file", ""),
	),
	"destroy": profile("destroy",
		valued("backup", ""),
		switched("auto-approve", false),
		switched("force", false),
		valued("lock", "true"),
		valued("lock-timeout", "0s"),
		switched("no-color", false),
		valued("parallelism", "10"),
		valued("refresh", "true"),
		valued("state", "terraform.tfstate"),
		valued("state-out", ""),
		valued("var-file", ""),
	),
	"fmt": profile("fmt",
		valued("list", "true"),
		valued("write", "true"),
		valued("diff", "false"),
		valued("check", "false"),
	),
	"show": profile("show",
		valued("module-depth", "-1"),
		switched("no-color", false),
	),
	"validate": profile("validate",
		valued("check-variables", "true"),
		switched("no-color", true),
		valued("var-file", ""),
	),
	"version": profile("version"),
}

// with returns a copy of base with the given profiles added or replaced.
func with(base profiles, add ...Profile) profiles {
	out := maps.Clone(base)
	for _, p := range add {
		out[p.Name] = p
	}
	return out
}

// without returns a copy of base lacking the named subcommands.
func without(base profiles, names ...string) profiles {
	out := maps.Clone(base)
	for _, name := range names {
		delete(out, name)
	}
	return out
}

var rev012 = with(rev011,
	profile("show",
		switched("json", false),
		switched("no-color", false),
	),
	profile("0.12checklist"),
)

var rev013 = without(rev012, "0.12checklist")

var table = map[Revision]profiles{
	Rev011: rev011,
	Rev012: rev012,
	Rev013: rev013,
	Rev014: with(rev013),
}

// Lookup returns the profile of subcommand sub under rev.
func Lookup(rev Revision, sub string) (Profile, error) {
	subs, ok := table[rev]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownRevision, rev)
	}
	p, ok := subs[sub]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q under %s", ErrUnknownSubcommand, sub, rev)
	}
	return p, nil
}

// Subcommands lists the subcommands known under rev, sorted.
func Subcommands(rev Revision) []string {
	return slices.Sorted(maps.Keys(table[rev]))
}
