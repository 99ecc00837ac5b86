package command

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedOption  = errors.New("unsupported option")
	ErrInvalidOptionValue = errors.New("invalid option value")
)

// UnsupportedOptionError lists every option key a subcommand does not accept.
type UnsupportedOptionError struct {
	Subcommand string
	Keys       []string
}

func (e *UnsupportedOptionError) Error() string {
	return fmt.Sprintf("%s for %s: %s", ErrUnsupportedOption, e.Subcommand, strings.Join(e.Keys, ", "))
}

func (e *UnsupportedOptionError) Is(target error) bool {
	return target == ErrUnsupportedOption
}

// Options carries the caller's settings for one subcommand run. Echo, Quiet
// and Environment are for whoever spawns the process; Flags are rendered into
// the argument list.
type Options struct {
	Echo        bool              `json:"echo"`
	Quiet       bool              `json:"quiet"`
	Environment map[string]string `json:"environment,omitempty"`
	Flags       map[string]string `json:"flags,omitempty"`
}

// Set records a flag value. Underscores in key are read as hyphens.
func (o *Options) Set(key, value string) {
	if o.Flags == nil {
		o.Flags = map[string]string{}
	}
	o.Flags[normalizeKey(key)] = value
}

// Env renders Environment as sorted KEY=VALUE pairs.
func (o Options) Env() []string {
	out := make([]string, 0, len(o.Environment))
	for _, k := range slices.Sorted(maps.Keys(o.Environment)) {
		out = append(out, k+"="+o.Environment[k])
	}
	return out
}

// Validate checks every flag key against p and every switch value for a
// boolean. Unknown keys are reported before bad values.
func (o Options) Validate(p Profile) error {
	var unknown []string
	var badValue error
	for _, key := range slices.Sorted(maps.Keys(o.Flags)) {
		flag, ok := p.Lookup(normalizeKey(key))
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if flag.Switch && badValue == nil {
			if _, err := strconv.ParseBool(o.Flags[key]); err != nil {
				badValue = fmt.Errorf("%w: %s=%q is a switch and takes true or false", ErrInvalidOptionValue, key, o.Flags[key])
			}
		}
	}
	if len(unknown) > 0 {
		return &UnsupportedOptionError{Subcommand: p.Name, Keys: unknown}
	}
	return badValue
}

// ParseAssignments reads "key=value" pairs; a bare "key" means "key=true".
func ParseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		key = normalizeKey(strings.TrimSpace(key))
		if key == "" {
			return nil, fmt.Errorf("%w: %q has no key", ErrInvalidOptionValue, pair)
		}
		if !found {
			value = "true"
		}
		out[key] = value
	}
	return out, nil
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
